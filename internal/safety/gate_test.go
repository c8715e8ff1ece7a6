package safety

import (
	"errors"
	"sync"
	"testing"
	"time"

	"uniclaw/internal/model"
)

var scenarioConfig = Config{MaxOpPct: 0.05, MinProfitUSD: 15, MaxSlippagePct: 1.0}

func scenarioOp() model.CandidateOperation {
	return model.CandidateOperation{
		ID:                "op-1",
		Type:              model.OpArb,
		CapitalAtRiskUSD:  4000,
		ExpectedProfitUSD: 50,
		GasEstimateUSD:    30,
		SlippagePct:       0.3,
		IsAtomic:          true,
	}
}

func mustGate(t *testing.T, cfg Config) *Gate {
	t.Helper()
	g, err := NewGate(cfg)
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}
	return g
}

func TestEvaluateApproves(t *testing.T) {
	d, err := mustGate(t, scenarioConfig).Evaluate(scenarioOp(), 100000)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !d.Approved || d.Reason != ReasonApproved {
		t.Fatalf("expected approval, got %+v", d)
	}
	if d.SizeLimitUSD != 5000 || d.NetProfitUSD != 20 {
		t.Fatalf("numbers: got %+v", d)
	}
}

func TestEvaluateRejectsOversize(t *testing.T) {
	op := scenarioOp()
	op.CapitalAtRiskUSD = 6000
	d, err := mustGate(t, scenarioConfig).Evaluate(op, 100000)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if d.Approved || d.Reason != ReasonSizeExceedsLimit || d.Gate != GateSize {
		t.Fatalf("expected size rejection, got %+v", d)
	}
}

func TestEvaluateEachGate(t *testing.T) {
	g := mustGate(t, Config{MaxOpPct: 0.05, MinProfitUSD: 15, MaxSlippagePct: 1.0, MaxGasPriceGwei: 100})
	cases := []struct {
		name   string
		mutate func(*model.CandidateOperation)
		gate   int
		reason string
	}{
		{"gas exceeds profit", func(op *model.CandidateOperation) { op.GasEstimateUSD = 50 }, GateGas, ReasonGasExceedsProfit},
		{"gas price ceiling", func(op *model.CandidateOperation) { op.GasPriceGwei = 150 }, GateGas, ReasonGasPriceAboveCeiling},
		{"min profit", func(op *model.CandidateOperation) { op.GasEstimateUSD = 40 }, GateMinProfit, ReasonBelowMinProfit},
		{"slippage", func(op *model.CandidateOperation) { op.SlippagePct = 1.5 }, GateSlippage, ReasonSlippageTooHigh},
		{"atomicity", func(op *model.CandidateOperation) { op.IsAtomic = false }, GateAtomicity, ReasonNonAtomicArb},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			op := scenarioOp()
			tc.mutate(&op)
			d, err := g.Evaluate(op, 100000)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if d.Approved || d.Gate != tc.gate || d.Reason != tc.reason {
				t.Fatalf("got %+v, want gate %d reason %s", d, tc.gate, tc.reason)
			}
		})
	}
}

func TestEvaluateNonAtomicRebalanceAllowed(t *testing.T) {
	op := scenarioOp()
	op.Type = model.OpRebalance
	op.IsAtomic = false
	d, err := mustGate(t, scenarioConfig).Evaluate(op, 100000)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !d.Approved {
		t.Fatalf("expected approval, got %+v", d)
	}
}

func TestEvaluateFirstFailureWins(t *testing.T) {
	g := mustGate(t, scenarioConfig)
	// every later gate fails too; the reason must stay pinned to the size gate
	failAll := []func(*model.CandidateOperation){
		func(op *model.CandidateOperation) { op.GasEstimateUSD = 60 },
		func(op *model.CandidateOperation) { op.SlippagePct = 5 },
		func(op *model.CandidateOperation) { op.IsAtomic = false },
	}
	for mask := 0; mask < 1<<len(failAll); mask++ {
		op := scenarioOp()
		op.CapitalAtRiskUSD = 6000
		for i, mutate := range failAll {
			if mask&(1<<i) != 0 {
				mutate(&op)
			}
		}
		d, err := g.Evaluate(op, 100000)
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if d.Reason != ReasonSizeExceedsLimit {
			t.Fatalf("mask %b: got %s", mask, d.Reason)
		}
	}

	for _, slippage := range []float64{0.3, 5} {
		op := scenarioOp()
		op.ExpectedProfitUSD = 40
		op.SlippagePct = slippage
		d, err := g.Evaluate(op, 100000)
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if d.Reason != ReasonBelowMinProfit {
			t.Fatalf("slippage %v: got %s", slippage, d.Reason)
		}
	}
}

func TestEvaluateInvalidInput(t *testing.T) {
	g := mustGate(t, scenarioConfig)
	unknown := scenarioOp()
	unknown.Type = "teleport"
	negative := scenarioOp()
	negative.CapitalAtRiskUSD = -1

	cases := []struct {
		name      string
		op        model.CandidateOperation
		portfolio float64
	}{
		{"unknown type", unknown, 100000},
		{"negative capital", negative, 100000},
		{"zero portfolio", scenarioOp(), 0},
	}
	for _, tc := range cases {
		if _, err := g.Evaluate(tc.op, tc.portfolio); !errors.Is(err, model.ErrInvalidInput) {
			t.Fatalf("%s: expected invalid input, got %v", tc.name, err)
		}
	}
}

func TestNewGateValidates(t *testing.T) {
	bad := []Config{
		{MaxOpPct: 0},
		{MaxOpPct: 1.5},
		{MaxOpPct: 0.05, MinProfitUSD: -1},
		{MaxOpPct: 0.05, MaxSlippagePct: -1},
		{MaxOpPct: 0.05, MaxGasPriceGwei: -1},
	}
	for _, cfg := range bad {
		if _, err := NewGate(cfg); !errors.Is(err, model.ErrInvalidInput) {
			t.Fatalf("config %+v: expected invalid input, got %v", cfg, err)
		}
	}
}

func TestEvaluateConcurrent(t *testing.T) {
	g := mustGate(t, scenarioConfig)
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := g.Evaluate(scenarioOp(), 100000)
			if err == nil && !d.Approved {
				err = errors.New("unexpected rejection")
			}
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent evaluate: %v", err)
	}
}

func TestDecisionRecord(t *testing.T) {
	op := scenarioOp()
	op.ObservedAt = 1700000000
	d, err := mustGate(t, scenarioConfig).Evaluate(op, 100000)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := d.Record(op, 100000, at)
	if rec.OperationID != "op-1" || rec.ReasonCode != ReasonApproved || !rec.DecidedAt.Equal(at) || rec.ObservedAt != 1700000000 {
		t.Fatalf("record: got %+v", rec)
	}
}
