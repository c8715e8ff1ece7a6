package storage

import (
	"context"

	"uniclaw/internal/model"
)

// DecisionSink receives gate decisions for audit.
type DecisionSink interface {
	PutDecisions(ctx context.Context, decisions []model.GateDecision) error
}

// SnapshotSink receives pool snapshots.
type SnapshotSink interface {
	PutSnapshots(ctx context.Context, snapshots []model.PoolSnapshot) error
}
