package position

import (
	"fmt"
	"math"
	"time"

	"uniclaw/internal/model"
)

// ImpermanentLoss returns LP value over HODL value minus one for a position
// opened at entryPrice. Pass priceLower=0 and priceUpper=+Inf for a full-range
// position. Both prices are clamped into the range, so the result freezes once
// price leaves it. The result is 0 at entry and never positive.
func ImpermanentLoss(entryPrice, currentPrice, priceLower, priceUpper float64) (float64, error) {
	if !(entryPrice > 0) || math.IsInf(entryPrice, 0) {
		return 0, fmt.Errorf("%w: entry price %v", ErrInvalidRange, entryPrice)
	}
	if err := checkRange(currentPrice, priceLower, priceUpper); err != nil {
		return 0, err
	}

	entry := clamp(entryPrice, priceLower, priceUpper)
	current := clamp(currentPrice, priceLower, priceUpper)

	// Unit liquidity: token amounts per L at a clamped price.
	held0, held1 := unitAmounts(entry, priceLower, priceUpper)
	now0, now1 := unitAmounts(current, priceLower, priceUpper)

	hodl := held0*current + held1
	if hodl == 0 {
		return 0, nil
	}
	lp := now0*current + now1
	il := lp/hodl - 1
	if math.Abs(il) < ilEpsilon {
		return 0, nil
	}
	return il, nil
}

// ilEpsilon absorbs float rounding around the entry price.
const ilEpsilon = 1e-12

// FullRangeImpermanentLoss is the closed form 2*sqrt(r)/(1+r) - 1 for a price
// ratio r = current/entry.
func FullRangeImpermanentLoss(ratio float64) (float64, error) {
	if !(ratio > 0) || math.IsInf(ratio, 0) {
		return 0, fmt.Errorf("%w: price ratio %v", model.ErrInvalidInput, ratio)
	}
	return 2*math.Sqrt(ratio)/(1+ratio) - 1, nil
}

func unitAmounts(price, priceLower, priceUpper float64) (float64, float64) {
	sp, sa, sb := sqrtPrices(price, priceLower, priceUpper)
	var amount0 float64
	if math.IsInf(sb, 1) {
		amount0 = 1 / sp
	} else {
		amount0 = 1/sp - 1/sb
	}
	return amount0, sp - sa
}

func clamp(value, lo, hi float64) float64 {
	return math.Max(lo, math.Min(value, hi))
}

// OpportunityLoss is the LP outcome minus an externally chosen benchmark.
func OpportunityLoss(lpTotalValue, benchmarkValue float64) float64 {
	return lpTotalValue - benchmarkValue
}

// Verdict fingerprints whether fees outweighed impermanent loss.
type Verdict string

const (
	BeatHodl   Verdict = "BEAT_HODL"
	LostToHodl Verdict = "LOST_TO_HODL"
)

// PnLInput carries USD valuations of one closed (or marked) position.
// BenchmarkValue defaults to HodlValue when nil; a zero benchmark is a
// valid total-loss alternative.
type PnLInput struct {
	EntryValue     float64  `json:"entry_value"`
	HodlValue      float64  `json:"hodl_value"`
	CloseValue     float64  `json:"close_value"`
	FeeIncome      float64  `json:"fee_income"`
	BenchmarkValue *float64 `json:"benchmark_value,omitempty"`
}

// PnL decomposes a position's return.
type PnL struct {
	FeeIncome   float64 `json:"fee_income"`
	PriceReturn float64 `json:"price_return"`
	IL          float64 `json:"il"`
	ONL         float64 `json:"onl"`
	NetUSD      float64 `json:"net_usd"`
	Fingerprint Verdict `json:"fingerprint"`
}

// NetProfit splits the return into fee income, price return (HODL minus entry),
// impermanent loss (close minus HODL) and opportunity loss against the benchmark.
func NetProfit(in PnLInput) (PnL, error) {
	if in.EntryValue < 0 || in.HodlValue < 0 || in.CloseValue < 0 || in.FeeIncome < 0 {
		return PnL{}, fmt.Errorf("%w: negative valuation", model.ErrInvalidInput)
	}
	benchmark := in.HodlValue
	if in.BenchmarkValue != nil {
		if *in.BenchmarkValue < 0 {
			return PnL{}, fmt.Errorf("%w: negative benchmark", model.ErrInvalidInput)
		}
		benchmark = *in.BenchmarkValue
	}

	il := in.CloseValue - in.HodlValue
	out := PnL{
		FeeIncome:   in.FeeIncome,
		PriceReturn: in.HodlValue - in.EntryValue,
		IL:          il,
		ONL:         OpportunityLoss(in.CloseValue+in.FeeIncome, benchmark),
		NetUSD:      in.CloseValue + in.FeeIncome - in.EntryValue,
		Fingerprint: LostToHodl,
	}
	if in.FeeIncome+il > 0 {
		out.Fingerprint = BeatHodl
	}
	return out, nil
}

// FeeShare is the fraction of swap fees earned by a position while in range.
// Both operands are raw liquidity units; activeLiquidity already includes the
// position.
func FeeShare(positionLiquidity, activeLiquidity float64) (float64, error) {
	if positionLiquidity < 0 || activeLiquidity < 0 {
		return 0, fmt.Errorf("%w: negative liquidity", model.ErrInvalidInput)
	}
	if activeLiquidity == 0 {
		return 0, fmt.Errorf("fee share: %w", model.ErrUndefined)
	}
	if positionLiquidity > activeLiquidity {
		return 0, fmt.Errorf("%w: position liquidity exceeds active liquidity", model.ErrInvalidInput)
	}
	return positionLiquidity / activeLiquidity, nil
}

// FeeAPR annualizes fees earned over window against TVL.
func FeeAPR(feesUSD, tvlUSD float64, window time.Duration) (float64, error) {
	if feesUSD < 0 || tvlUSD < 0 || window < 0 {
		return 0, fmt.Errorf("%w: negative fee apr input", model.ErrInvalidInput)
	}
	if tvlUSD == 0 || window == 0 {
		return 0, fmt.Errorf("fee apr: %w", model.ErrUndefined)
	}
	year := 365 * 24 * time.Hour
	return feesUSD / tvlUSD * float64(year) / float64(window), nil
}
