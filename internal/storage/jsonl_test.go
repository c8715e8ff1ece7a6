package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"uniclaw/internal/model"
)

func TestJsonlRoundTripDecisions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "decisions.jsonl")
	store := NewJsonlStorage(path)

	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	first := []model.GateDecision{{OperationID: "a", Type: model.OpArb, Approved: true, ReasonCode: "APPROVED", DecidedAt: at}}
	second := []model.GateDecision{{OperationID: "b", Type: model.OpRebalance, ReasonCode: "SLIPPAGE_TOO_HIGH", Gate: 4, DecidedAt: at}}
	if err := store.PutDecisions(context.Background(), first); err != nil {
		t.Fatalf("put first: %v", err)
	}
	if err := store.PutDecisions(context.Background(), second); err != nil {
		t.Fatalf("put second: %v", err)
	}

	var got []model.GateDecision
	err := ScanJSONL(path, func(_ int, d model.GateDecision) error {
		got = append(got, d)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	want := append(first, second...)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("decisions mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestScanJSONLBadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candidates.jsonl")
	content := "{\"type\":\"arb\"}\n\nnot json\n{\"type\":\"rebalance\"}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	err := ScanJSONL(path, func(int, model.CandidateOperation) error { return nil }, nil)
	var lineErr *LineError
	if !errors.As(err, &lineErr) || lineErr.Line != 3 {
		t.Fatalf("expected line 3 error, got %v", err)
	}

	var types []model.OperationType
	var skipped int
	err = ScanJSONL(path, func(_ int, op model.CandidateOperation) error {
		types = append(types, op.Type)
		return nil
	}, func(*LineError) { skipped++ })
	if err != nil {
		t.Fatalf("scan with handler: %v", err)
	}
	if skipped != 1 || !reflect.DeepEqual(types, []model.OperationType{model.OpArb, model.OpRebalance}) {
		t.Fatalf("got types %v skipped %d", types, skipped)
	}
}

func TestPutDecisionsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "none.jsonl")
	if err := NewJsonlStorage(path).PutDecisions(context.Background(), nil); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no file for empty batch, got %v", err)
	}
}
