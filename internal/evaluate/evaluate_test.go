package evaluate

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"uniclaw/internal/model"
)

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestFindTwoPoolArbDirection(t *testing.T) {
	in := TwoPoolInput{PriceA: 100, PriceB: 100.5, FeeA: 0.0005, FeeB: 0.0005, TradeSizeUSD: 10000, GasCostUSD: 5}
	arb, err := FindTwoPoolArb(in)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if arb == nil || !arb.Viable {
		t.Fatalf("expected viable arb, got %+v", arb)
	}
	if !approx(arb.NetSpread, 0.004, 1e-12) {
		t.Fatalf("net spread: got %v", arb.NetSpread)
	}
	if !approx(arb.NetProfitUSD, 35, 1e-9) {
		t.Fatalf("net profit: got %v", arb.NetProfitUSD)
	}

	in.PriceA, in.PriceB = in.PriceB, in.PriceA
	arb, err = FindTwoPoolArb(in)
	if err != nil {
		t.Fatalf("find reversed: %v", err)
	}
	if arb != nil {
		t.Fatalf("expected no arb in reversed direction, got %+v", arb)
	}

	arb, err = DiscoverTwoPoolArb(in)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if arb == nil || arb.BuyPool != "B" || arb.SellPool != "A" || !arb.Viable {
		t.Fatalf("discover: got %+v", arb)
	}
}

func TestFindTwoPoolArbRejections(t *testing.T) {
	arb, err := FindTwoPoolArb(TwoPoolInput{PriceA: 100, PriceB: 100.05, FeeA: 0.0005, FeeB: 0.0005, TradeSizeUSD: 10000})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if arb.Viable || arb.Reason != ReasonSpreadBelowFees {
		t.Fatalf("expected spread below fees, got %+v", arb)
	}

	arb, err = FindTwoPoolArb(TwoPoolInput{PriceA: 100, PriceB: 100.5, FeeA: 0.0005, FeeB: 0.0005, TradeSizeUSD: 1000, GasCostUSD: 10})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if arb.Viable || arb.Reason != ReasonGasExceedsProfit {
		t.Fatalf("expected gas exceeds profit, got %+v", arb)
	}

	if _, err := FindTwoPoolArb(TwoPoolInput{PriceA: 0, PriceB: 1}); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func testBook() PriceBook {
	return PriceBook{
		{Base: "ETH", Quote: "USDC"}: {Price: 2000, Fee: 0.0005},
		{Base: "BTC", Quote: "USDC"}: {Price: 40000, Fee: 0.0005},
		{Base: "BTC", Quote: "ETH"}:  {Price: 20.2, Fee: 0.0005},
	}
}

func TestEvaluateTriangular(t *testing.T) {
	res, err := EvaluateTriangular([]string{"ETH", "USDC", "BTC"}, testBook(), 1)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.PathFound || !res.Viable || res.Reason != ReasonViable {
		t.Fatalf("expected viable cycle, got %+v", res)
	}
	if !reflect.DeepEqual(res.Path, []string{"ETH", "USDC", "BTC", "ETH"}) {
		t.Fatalf("path: got %v", res.Path)
	}
	want := 2000 / 40000.0 * 20.2 * math.Pow(0.9995, 3)
	if !approx(res.FinalAmount, want, 1e-12) {
		t.Fatalf("final amount: got %v want %v", res.FinalAmount, want)
	}
	if len(res.Hops) != 3 {
		t.Fatalf("hops: got %d", len(res.Hops))
	}
}

func TestEvaluateTriangularUnprofitableAndMissing(t *testing.T) {
	book := testBook()
	book[Pair{Base: "BTC", Quote: "ETH"}] = Quote{Price: 20, Fee: 0.0005}
	res, err := EvaluateTriangular([]string{"ETH", "USDC", "BTC", "ETH"}, book, 1)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.Viable || res.Reason != ReasonNoCycleProfit {
		t.Fatalf("expected no cycle profit, got %+v", res)
	}

	res, err = EvaluateTriangular([]string{"ETH", "DAI", "BTC"}, book, 1)
	if err != nil {
		t.Fatalf("evaluate missing: %v", err)
	}
	if res.PathFound || res.Reason != ReasonNoPath {
		t.Fatalf("expected no path, got %+v", res)
	}

	if _, err := EvaluateTriangular([]string{"ETH", "USDC"}, book, 1); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected short path error, got %v", err)
	}
	if _, err := EvaluateTriangular([]string{"ETH", "ETH", "BTC"}, book, 1); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected repeat error, got %v", err)
	}
}

func TestEvaluateFlashSwap(t *testing.T) {
	res, err := EvaluateFlashSwap(FlashSwapInput{BorrowedAmountUSD: 100000, GrossProfitUSD: 200, BorrowFeeRate: 0.0009, GasCostUSD: 40})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !approx(res.NetProfitUSD, 70, 1e-9) || !res.Viable {
		t.Fatalf("net profit: got %+v", res)
	}
	if !approx(res.MinSpreadToBreakeven, 0.0013, 1e-12) {
		t.Fatalf("breakeven: got %v", res.MinSpreadToBreakeven)
	}

	res, err = EvaluateFlashSwap(FlashSwapInput{BorrowedAmountUSD: 100000, GrossProfitUSD: 100, BorrowFeeRate: 0.0009, GasCostUSD: 40})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.Viable || res.Reason != ReasonGasExceedsProfit {
		t.Fatalf("expected not viable, got %+v", res)
	}

	if _, err := EvaluateFlashSwap(FlashSwapInput{BorrowedAmountUSD: 0}); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}

	// a loss-making trade is still a result
	if res, err := EvaluateFlashSwap(FlashSwapInput{BorrowedAmountUSD: 1000, GrossProfitUSD: -10}); err != nil || res.Viable {
		t.Fatalf("negative gross: %+v %v", res, err)
	}
	for _, gross := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		in := FlashSwapInput{BorrowedAmountUSD: 1000, GrossProfitUSD: gross, BorrowFeeRate: 0.0009}
		if _, err := EvaluateFlashSwap(in); !errors.Is(err, model.ErrInvalidInput) {
			t.Fatalf("gross %v: expected invalid input, got %v", gross, err)
		}
	}
}
