package review

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"uniclaw/internal/metrics"
	"uniclaw/internal/model"
	"uniclaw/internal/safety"
	"uniclaw/internal/storage"
)

type memorySink struct {
	decisions []model.GateDecision
}

func (m *memorySink) PutDecisions(ctx context.Context, decisions []model.GateDecision) error {
	m.decisions = append(m.decisions, decisions...)
	return nil
}

// flakySink fails its failOn-th call and stores everything else.
type flakySink struct {
	memorySink
	calls  int
	failOn int
}

func (f *flakySink) PutDecisions(ctx context.Context, decisions []model.GateDecision) error {
	f.calls++
	if f.calls == f.failOn {
		return errors.New("sink unavailable")
	}
	return f.memorySink.PutDecisions(ctx, decisions)
}

func writeCandidates(t *testing.T, path string, ops []model.CandidateOperation, extra ...string) {
	t.Helper()
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()
	for _, op := range ops {
		line, err := json.Marshal(op)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if _, err := file.Write(append(line, '\n')); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	for _, line := range extra {
		if _, err := file.WriteString(line + "\n"); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

func testGate(t *testing.T) *safety.Gate {
	t.Helper()
	gate, err := safety.NewGate(safety.Config{MaxOpPct: 0.05, MinProfitUSD: 15, MaxSlippagePct: 1.0})
	if err != nil {
		t.Fatalf("gate: %v", err)
	}
	return gate
}

func candidate(id string, capital float64, ts uint64) model.CandidateOperation {
	return model.CandidateOperation{
		ID:                id,
		Type:              model.OpArb,
		CapitalAtRiskUSD:  capital,
		ExpectedProfitUSD: 50,
		GasEstimateUSD:    30,
		SlippagePct:       0.3,
		IsAtomic:          true,
		ObservedAt:        ts,
	}
}

func TestRunnerResumes(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "candidates.jsonl")
	writeCandidates(t, input, []model.CandidateOperation{
		candidate("a", 4000, 100),
		candidate("b", 6000, 200),
	})

	sink := &memorySink{}
	state := &FileStateStore{Path: filepath.Join(dir, "state", "review.json")}
	m := metrics.New()
	runner := NewRunner(Config{PortfolioValueUSD: 100000, BatchSize: 1, StateStore: state}, testGate(t), []storage.DecisionSink{sink}, m, nil)

	summary, err := runner.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if summary.Approved != 1 || summary.Rejected != 1 || summary.Cursor != 200 {
		t.Fatalf("first summary: %+v", summary)
	}
	if summary.ByReason[safety.ReasonSizeExceedsLimit] != 1 {
		t.Fatalf("reasons: %+v", summary.ByReason)
	}

	writeCandidates(t, input, []model.CandidateOperation{candidate("c", 1000, 300)})
	summary, err = runner.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.Skipped != 2 || summary.Approved != 1 || summary.Cursor != 300 {
		t.Fatalf("second summary: %+v", summary)
	}

	var ids []string
	for _, d := range sink.decisions {
		ids = append(ids, d.OperationID)
	}
	if !reflect.DeepEqual(ids, []string{"a", "b", "c"}) {
		t.Fatalf("decided ids: %v", ids)
	}

	last, ok, err := state.Load(context.Background())
	if err != nil || !ok || last != 300 {
		t.Fatalf("state: %d %v %v", last, ok, err)
	}
}

func TestRunnerReplayFrom(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "candidates.jsonl")
	writeCandidates(t, input, []model.CandidateOperation{
		candidate("a", 4000, 100),
		candidate("b", 4000, 200),
	})
	state := &FileStateStore{Path: filepath.Join(dir, "state.json")}
	if err := state.Save(context.Background(), 200); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	sink := &memorySink{}
	runner := NewRunner(Config{PortfolioValueUSD: 100000, ReplayFrom: 200, StateStore: state}, testGate(t), []storage.DecisionSink{sink}, nil, nil)
	summary, err := runner.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Skipped != 1 || len(sink.decisions) != 1 || sink.decisions[0].OperationID != "b" {
		t.Fatalf("replay: %+v %+v", summary, sink.decisions)
	}
}

func TestRunnerMalformedInput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "candidates.jsonl")
	bad := candidate("neg", -5, 0)
	writeCandidates(t, input, []model.CandidateOperation{candidate("", 4000, 0), bad}, "{broken")

	sink := &memorySink{}
	runner := NewRunner(Config{PortfolioValueUSD: 100000}, testGate(t), []storage.DecisionSink{sink}, nil, nil)
	summary, err := runner.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Total != 3 || summary.Malformed != 2 || summary.Approved != 1 {
		t.Fatalf("summary: %+v", summary)
	}
	if len(sink.decisions) != 1 || len(sink.decisions[0].OperationID) != 36 || !strings.Contains(sink.decisions[0].OperationID, "-") {
		t.Fatalf("expected generated uuid, got %+v", sink.decisions)
	}

	strict := NewRunner(Config{PortfolioValueUSD: 100000, StrictInput: true}, testGate(t), nil, nil, nil)
	if _, err := strict.Run(context.Background(), input); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected strict failure, got %v", err)
	}
}

func TestRunnerResumesSharedTimestampAfterFailedFlush(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "candidates.jsonl")
	writeCandidates(t, input, []model.CandidateOperation{
		candidate("a", 4000, 100),
		candidate("b", 4000, 100),
		candidate("c", 4000, 100),
	})

	sink := &flakySink{failOn: 2}
	state := &FileStateStore{Path: filepath.Join(dir, "state.json")}
	runner := NewRunner(Config{PortfolioValueUSD: 100000, BatchSize: 1, StateStore: state}, testGate(t), []storage.DecisionSink{sink}, nil, nil)

	if _, err := runner.Run(context.Background(), input); err == nil {
		t.Fatalf("expected sink failure")
	}
	last, ok, err := state.Load(context.Background())
	if err != nil || !ok || last != 99 {
		t.Fatalf("partial group must not be committed: %d %v %v", last, ok, err)
	}

	summary, err := runner.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if summary.Skipped != 0 || summary.Approved != 3 || summary.Cursor != 100 {
		t.Fatalf("rerun summary: %+v", summary)
	}

	decided := make(map[string]int)
	for _, d := range sink.decisions {
		decided[d.OperationID]++
	}
	if !reflect.DeepEqual(decided, map[string]int{"a": 2, "b": 1, "c": 1}) {
		t.Fatalf("decided ids across runs: %v", decided)
	}

	summary, err = runner.Run(context.Background(), input)
	if err != nil || summary.Skipped != 3 {
		t.Fatalf("third run: %+v %v", summary, err)
	}
}
