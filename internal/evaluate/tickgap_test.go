package evaluate

import (
	"errors"
	"reflect"
	"testing"

	"uniclaw/internal/model"
	"uniclaw/internal/tickmath"
)

func gapTicks() []model.TickSnapshot {
	return []model.TickSnapshot{
		{Index: -600, LiquidityNet: "1000"},
		{Index: -540, LiquidityNet: "500"},
		{Index: 0, LiquidityNet: "-500"},
		{Index: 1200, LiquidityNet: "-1000"},
	}
}

var testGapConfig = GapConfig{MinWidthTicks: 100, MaxLiquidity: 2000, LowResistanceLiquidity: 1200}

func TestAnalyseTickGaps(t *testing.T) {
	gaps, err := AnalyseTickGaps(gapTicks(), testGapConfig)
	if err != nil {
		t.Fatalf("analyse: %v", err)
	}
	if len(gaps) != 2 {
		t.Fatalf("expected 2 gaps, got %+v", gaps)
	}
	if gaps[0].LowerTick != 0 || gaps[0].UpperTick != 1200 || gaps[0].Liquidity != 1000 || gaps[0].Resistance != ResistanceLow {
		t.Fatalf("first gap: got %+v", gaps[0])
	}
	if gaps[1].LowerTick != -540 || gaps[1].WidthTicks != 540 || gaps[1].Liquidity != 1500 || gaps[1].Resistance != ResistanceMedium {
		t.Fatalf("second gap: got %+v", gaps[1])
	}
	if gaps[0].PriceLower != 1 {
		t.Fatalf("price lower: got %v", gaps[0].PriceLower)
	}
}

func TestAnalyseTickGapsOrderIndependent(t *testing.T) {
	want, err := AnalyseTickGaps(gapTicks(), testGapConfig)
	if err != nil {
		t.Fatalf("analyse: %v", err)
	}
	shuffled := gapTicks()
	shuffled[0], shuffled[3] = shuffled[3], shuffled[0]
	shuffled[1], shuffled[2] = shuffled[2], shuffled[1]
	got, err := AnalyseTickGaps(shuffled, testGapConfig)
	if err != nil {
		t.Fatalf("analyse shuffled: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order dependence:\n got %+v\nwant %+v", got, want)
	}
}

func TestAnalyseTickGapsErrors(t *testing.T) {
	if _, err := AnalyseTickGaps(nil, testGapConfig); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected empty list error, got %v", err)
	}
	dup := append(gapTicks(), model.TickSnapshot{Index: 0, LiquidityNet: "1"})
	if _, err := AnalyseTickGaps(dup, testGapConfig); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestScoreGapArb(t *testing.T) {
	upper, err := tickmath.TickToPrice(1200)
	if err != nil {
		t.Fatalf("tick to price: %v", err)
	}
	gap := TickGap{LowerTick: 0, UpperTick: 1200, WidthTicks: 1200, Liquidity: 5e20, PriceLower: 1, PriceUpper: upper}
	cfg := GapArbConfig{PoolFee: 0.003, GasCostUSD: 2}

	arb, err := ScoreGapArb(gap, 1.0, 1.05, cfg)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !arb.Viable || !approx(arb.EstimatedProfitUSD, 5.25, 1e-9) || !approx(arb.NetProfitUSD, 3.25, 1e-9) {
		t.Fatalf("expected viable arb, got %+v", arb)
	}

	arb, err = ScoreGapArb(gap, 1.0, 1.2, cfg)
	if err != nil {
		t.Fatalf("score outside: %v", err)
	}
	if arb.Viable || arb.Reason != ReasonOutsideGap {
		t.Fatalf("expected outside gap, got %+v", arb)
	}

	arb, err = ScoreGapArb(gap, 1.0, 1.0, cfg)
	if err != nil {
		t.Fatalf("score on boundary: %v", err)
	}
	if arb.Reason != ReasonOutsideGap {
		t.Fatalf("boundary is not strictly inside, got %+v", arb)
	}
}
