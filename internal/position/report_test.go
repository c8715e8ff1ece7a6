package position

import (
	"math"
	"math/big"
	"testing"

	"uniclaw/internal/model"
)

func reportFixture() ReportInput {
	shifted := func(v int64) string {
		return new(big.Int).Lsh(big.NewInt(v), 128).String()
	}
	return ReportInput{
		Pool: model.PoolSnapshot{
			Address:              "0xpool",
			BlockNumber:          100,
			TickSpacing:          60,
			CurrentTick:          0,
			SqrtPriceX96:         new(big.Int).Lsh(big.NewInt(1), 96).String(),
			Liquidity:            "4000000000000000000",
			FeeGrowthGlobal0X128: shifted(10),
			FeeGrowthGlobal1X128: "0",
			Ticks: []model.TickSnapshot{
				{Index: -600, FeeGrowthOutside0X128: shifted(2)},
				{Index: 600, FeeGrowthOutside0X128: shifted(3)},
			},
		},
		Position: model.Position{
			Owner:     "0xowner",
			TickLower: -600,
			TickUpper: 600,
			Liquidity: "1000000000000000000",
		},
		Token0:     model.TokenMeta{Decimals: 18},
		Token1:     model.TokenMeta{Decimals: 18},
		EntryPrice: 1,
	}
}

func TestBuildReport(t *testing.T) {
	rep, err := BuildReport(reportFixture())
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if rep.Composition != Mixed {
		t.Fatalf("composition: got %s", rep.Composition)
	}
	if rep.Fees0 != "5" || rep.Fees1 != "0" {
		t.Fatalf("fees: got %s / %s", rep.Fees0, rep.Fees1)
	}
	if math.Abs(rep.FeeShare-0.25) > 1e-12 {
		t.Fatalf("fee share: got %v", rep.FeeShare)
	}
	if rep.Amount0 == "0" || rep.Amount1 == "0" {
		t.Fatalf("expected both tokens held, got %s / %s", rep.Amount0, rep.Amount1)
	}
	if rep.ImpermanentLoss == nil || math.Abs(*rep.ImpermanentLoss) > 1e-12 {
		t.Fatalf("impermanent loss at entry price: %v", rep.ImpermanentLoss)
	}
	if len(rep.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", rep.Warnings)
	}
}

func TestBuildReportMissingTicks(t *testing.T) {
	in := reportFixture()
	in.Pool.Ticks = nil
	in.Pool.Liquidity = "0"
	rep, err := BuildReport(in)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if rep.Fees0 != "" || len(rep.Warnings) != 2 {
		t.Fatalf("expected fee and share warnings, got %+v", rep)
	}
}

func TestBuildReportMisalignedRange(t *testing.T) {
	in := reportFixture()
	in.Position.TickLower = -590
	if _, err := BuildReport(in); err == nil {
		t.Fatalf("expected misaligned range error")
	}
}
