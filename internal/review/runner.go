// Package review replays candidate operations from JSONL through the safety
// gate and records every decision.
package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"uniclaw/internal/metrics"
	"uniclaw/internal/model"
	"uniclaw/internal/safety"
	"uniclaw/internal/storage"
)

// Config controls a review run.
type Config struct {
	PortfolioValueUSD float64
	BatchSize         int
	// ReplayFrom re-decides every candidate observed at or after it,
	// ignoring the stored cursor.
	ReplayFrom uint64
	// StrictInput aborts on the first malformed candidate instead of
	// counting it and moving on.
	StrictInput bool
	StateStore  StateStore
}

// Summary totals one run.
type Summary struct {
	Total     int            `json:"total"`
	Skipped   int            `json:"skipped"`
	Approved  int            `json:"approved"`
	Rejected  int            `json:"rejected"`
	Malformed int            `json:"malformed"`
	ByReason  map[string]int `json:"by_reason"`
	Cursor    uint64         `json:"cursor"`
}

// Runner gates candidates in input order. Input is expected to be sorted by
// observed_at. The saved cursor only covers timestamps whose candidates are
// all stored, so an interrupted run re-decides the pending timestamp group
// rather than dropping part of it. Candidates without a timestamp are always
// decided.
type Runner struct {
	cfg     Config
	gate    *safety.Gate
	sinks   []storage.DecisionSink
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewRunner builds a Runner with its dependencies. metrics may be nil.
func NewRunner(cfg Config, gate *safety.Gate, sinks []storage.DecisionSink, m *metrics.Metrics, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:     cfg,
		gate:    gate,
		sinks:   sinks,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Run decides every new candidate in inputPath.
func (r *Runner) Run(ctx context.Context, inputPath string) (Summary, error) {
	summary := Summary{ByReason: make(map[string]int)}
	if r.gate == nil {
		return summary, fmt.Errorf("gate is nil")
	}
	if !(r.cfg.PortfolioValueUSD > 0) {
		return summary, fmt.Errorf("%w: portfolio value must be positive", model.ErrInvalidInput)
	}
	if r.cfg.BatchSize <= 0 {
		r.cfg.BatchSize = 500
	}

	cursor, err := r.loadCursor(ctx)
	if err != nil {
		return summary, err
	}
	summary.Cursor = cursor

	// Candidates sharing the newest observed_at may straddle a batch
	// boundary, so a mid-run flush only commits the timestamp below it.
	batch := make([]model.GateDecision, 0, r.cfg.BatchSize)
	flush := func(final bool) error {
		if len(batch) == 0 && !final {
			return nil
		}
		if len(batch) > 0 {
			for _, sink := range r.sinks {
				if err := sink.PutDecisions(ctx, batch); err != nil {
					return fmt.Errorf("store decisions: %w", err)
				}
			}
		}
		commit := summary.Cursor
		if !final && commit > 0 {
			commit--
		}
		if commit < cursor {
			commit = cursor
		}
		if r.cfg.StateStore != nil && commit > 0 {
			if err := r.cfg.StateStore.Save(ctx, commit); err != nil {
				return fmt.Errorf("save state: %w", err)
			}
		}
		r.logger.Debug("batch flushed", zap.Int("decisions", len(batch)), zap.Uint64("cursor", commit))
		batch = batch[:0]
		return nil
	}

	onBadLine := func(lineErr *storage.LineError) {
		summary.Total++
		summary.Malformed++
		r.metrics.ObserveMalformed()
		r.logger.Warn("decode candidate", zap.Int("line", lineErr.Line), zap.Error(lineErr.Err))
	}
	if r.cfg.StrictInput {
		onBadLine = nil
	}

	err = storage.ScanJSONL(inputPath, func(line int, op model.CandidateOperation) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		summary.Total++
		if op.ObservedAt > 0 && op.ObservedAt <= cursor {
			summary.Skipped++
			return nil
		}
		if op.ID == "" {
			op.ID = uuid.NewString()
		}

		decision, err := r.gate.Evaluate(op, r.cfg.PortfolioValueUSD)
		if err != nil {
			if r.cfg.StrictInput || !errors.Is(err, model.ErrInvalidInput) {
				return fmt.Errorf("line %d: %w", line, err)
			}
			summary.Malformed++
			r.metrics.ObserveMalformed()
			r.logger.Warn("malformed candidate", zap.Int("line", line), zap.String("id", op.ID), zap.Error(err))
			return nil
		}

		record := decision.Record(op, r.cfg.PortfolioValueUSD, r.now())
		r.metrics.ObserveDecision(record)
		summary.ByReason[record.ReasonCode]++
		if record.Approved {
			summary.Approved++
		} else {
			summary.Rejected++
			r.logger.Debug("candidate rejected",
				zap.String("id", record.OperationID),
				zap.String("type", string(record.Type)),
				zap.String("reason", record.ReasonCode),
				zap.Int("gate", record.Gate),
			)
		}
		if op.ObservedAt > summary.Cursor {
			summary.Cursor = op.ObservedAt
		}

		batch = append(batch, record)
		if len(batch) >= r.cfg.BatchSize {
			return flush(false)
		}
		return nil
	}, onBadLine)
	if err != nil {
		return summary, err
	}
	if err := flush(true); err != nil {
		return summary, err
	}

	r.logger.Info("review complete",
		zap.Int("total", summary.Total),
		zap.Int("skipped", summary.Skipped),
		zap.Int("approved", summary.Approved),
		zap.Int("rejected", summary.Rejected),
		zap.Int("malformed", summary.Malformed),
		zap.Uint64("cursor", summary.Cursor),
	)
	return summary, nil
}

func (r *Runner) loadCursor(ctx context.Context) (uint64, error) {
	if r.cfg.ReplayFrom > 0 {
		return r.cfg.ReplayFrom - 1, nil
	}
	if r.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := r.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}
