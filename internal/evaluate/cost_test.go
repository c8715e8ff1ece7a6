package evaluate

import (
	"errors"
	"testing"

	"uniclaw/internal/model"
)

func TestGasCostUSD(t *testing.T) {
	cost, err := GasCostUSD(GasQuote{GasUnits: 200000, BaseFeeGwei: 20, PriorityFeeGwei: 2, NativePriceUSD: 2000})
	if err != nil {
		t.Fatalf("gas cost: %v", err)
	}
	if !approx(cost.RawUSD, 8.8, 1e-9) || !approx(cost.BufferedUSD, 10.56, 1e-9) {
		t.Fatalf("got %+v", cost)
	}
	if _, err := GasCostUSD(GasQuote{GasUnits: 1, BaseFeeGwei: -1, NativePriceUSD: 1}); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func flatMultipliers() []float64 {
	table := make([]float64, 24)
	for i := range table {
		table[i] = 1
	}
	table[14] = 1.5
	table[3] = 0.5
	return table
}

func TestHourlyGasModel(t *testing.T) {
	m, err := NewHourlyGasModel(flatMultipliers())
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	got, err := m.Project(10, 14, 3)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if !approx(got, 10.0/3, 1e-12) {
		t.Fatalf("project: got %v", got)
	}
	if m.CheapestHour() != 3 {
		t.Fatalf("cheapest hour: got %d", m.CheapestHour())
	}
	if _, err := m.Project(10, 24, 3); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected hour range error, got %v", err)
	}
	if _, err := NewHourlyGasModel(make([]float64, 23)); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected table length error, got %v", err)
	}
}

func TestGasBenchmarks(t *testing.T) {
	bench := GasBenchmarks{model.OpArb: 250000, model.OpFlashSwap: 400000}
	cost, err := bench.Quote(model.OpArb, 10, 0, 2000)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !approx(cost.BufferedUSD, 6, 1e-9) {
		t.Fatalf("got %+v", cost)
	}
	if _, err := bench.Units(model.OpRebalance); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected missing benchmark error, got %v", err)
	}
}

func TestCrossChainCost(t *testing.T) {
	bridges := BridgeTable{"across": 0.05}
	res, err := CrossChainCost(CrossChainInput{Bridge: "Across", AmountUSD: 10000, SourceGasUSD: 2, DestGasUSD: 1, SlippagePct: 0.05}, bridges)
	if err != nil {
		t.Fatalf("cost: %v", err)
	}
	if !approx(res.TotalCostUSD, 18, 1e-9) || !approx(res.TotalCostPct, 0.18, 1e-9) {
		t.Fatalf("got %+v", res)
	}
	if !res.ArbViable || !res.RebalanceViable {
		t.Fatalf("expected both flags, got %+v", res)
	}

	res, err = CrossChainCost(CrossChainInput{Bridge: "across", AmountUSD: 10000, SourceGasUSD: 2, DestGasUSD: 1, SlippagePct: 0.5}, bridges)
	if err != nil {
		t.Fatalf("cost: %v", err)
	}
	if res.ArbViable || !res.RebalanceViable || res.Reason != ReasonCostAboveArbLimit {
		t.Fatalf("expected rebalance only, got %+v", res)
	}

	if _, err := CrossChainCost(CrossChainInput{Bridge: "wormhole", AmountUSD: 1}, bridges); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected unknown bridge error, got %v", err)
	}
}
