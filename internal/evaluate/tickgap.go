package evaluate

import (
	"math/big"
	"sort"

	"uniclaw/internal/model"
	"uniclaw/internal/tickmath"
)

// Resistance grades how little liquidity sits inside a gap.
type Resistance string

const (
	ResistanceLow    Resistance = "LOW"
	ResistanceMedium Resistance = "MEDIUM"
)

// GapConfig holds the thresholds for AnalyseTickGaps.
type GapConfig struct {
	// MinWidthTicks is exclusive: a gap must be wider than this.
	MinWidthTicks int `json:"min_width_ticks"`
	// MaxLiquidity is exclusive: active liquidity must be below it.
	MaxLiquidity float64 `json:"max_liquidity"`
	// LowResistanceLiquidity splits LOW from MEDIUM gaps.
	LowResistanceLiquidity float64 `json:"low_resistance_liquidity"`
}

// TickGap is a contiguous tick interval with thin active liquidity.
type TickGap struct {
	LowerTick  int        `json:"lower_tick"`
	UpperTick  int        `json:"upper_tick"`
	WidthTicks int        `json:"width_ticks"`
	Liquidity  float64    `json:"liquidity"`
	PriceLower float64    `json:"price_lower"`
	PriceUpper float64    `json:"price_upper"`
	Resistance Resistance `json:"resistance"`
}

// AnalyseTickGaps sorts the initialized ticks, accumulates liquidityNet from
// the lowest tick upward and flags every interval between neighbouring ticks
// that is both wide and thin. Gaps come back widest first, then by lower tick.
func AnalyseTickGaps(ticks []model.TickSnapshot, cfg GapConfig) ([]TickGap, error) {
	if len(ticks) == 0 {
		return nil, invalid("empty tick list")
	}
	if cfg.MinWidthTicks < 0 {
		return nil, invalid("min width must be non-negative, got %d", cfg.MinWidthTicks)
	}
	if err := checkNonNegative("max liquidity", cfg.MaxLiquidity); err != nil {
		return nil, err
	}

	type entry struct {
		index int
		net   *big.Int
	}
	sorted := make([]entry, 0, len(ticks))
	for _, tick := range ticks {
		net, err := model.ParseBigInt(tick.LiquidityNet)
		if err != nil {
			return nil, err
		}
		sorted = append(sorted, entry{index: int(tick.Index), net: net})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].index < sorted[j].index })

	var gaps []TickGap
	active := new(big.Int)
	for i := 0; i < len(sorted); i++ {
		if i > 0 && sorted[i].index == sorted[i-1].index {
			return nil, invalid("duplicate tick %d", sorted[i].index)
		}
		active.Add(active, sorted[i].net)
		if i == len(sorted)-1 {
			break
		}

		lower, upper := sorted[i].index, sorted[i+1].index
		width := upper - lower
		liquidity, _ := new(big.Float).SetInt(active).Float64()
		if width <= cfg.MinWidthTicks || liquidity >= cfg.MaxLiquidity {
			continue
		}

		priceLower, err := tickmath.TickToPrice(lower)
		if err != nil {
			return nil, err
		}
		priceUpper, err := tickmath.TickToPrice(upper)
		if err != nil {
			return nil, err
		}
		resistance := ResistanceMedium
		if liquidity < cfg.LowResistanceLiquidity {
			resistance = ResistanceLow
		}
		gaps = append(gaps, TickGap{
			LowerTick:  lower,
			UpperTick:  upper,
			WidthTicks: width,
			Liquidity:  liquidity,
			PriceLower: priceLower,
			PriceUpper: priceUpper,
			Resistance: resistance,
		})
	}

	sort.Slice(gaps, func(i, j int) bool {
		if gaps[i].WidthTicks != gaps[j].WidthTicks {
			return gaps[i].WidthTicks > gaps[j].WidthTicks
		}
		return gaps[i].LowerTick < gaps[j].LowerTick
	})
	return gaps, nil
}

// DefaultGapProfitFactor is an uncalibrated placeholder for the share of gap
// liquidity assumed capturable. Calibrate it against fills before trusting it.
const DefaultGapProfitFactor = 0.01

// GapArbConfig parameterizes ScoreGapArb.
type GapArbConfig struct {
	PoolFee      float64 `json:"pool_fee"`
	GasCostUSD   float64 `json:"gas_cost_usd"`
	ProfitFactor float64 `json:"profit_factor"`
}

// GapArb scores pushing the pool price across a gap toward an external price.
type GapArb struct {
	Gap           TickGap `json:"gap"`
	PoolPrice     float64 `json:"pool_price"`
	ExternalPrice float64 `json:"external_price"`
	Spread        float64 `json:"spread"`
	NetSpread     float64 `json:"net_spread"`
	// EstimatedProfitUSD is liquidity/1e18 * externalPrice * ProfitFactor,
	// a rough approximation rather than an integral over the liquidity curve.
	EstimatedProfitUSD float64 `json:"estimated_profit_usd"`
	NetProfitUSD       float64 `json:"net_profit_usd"`
	Viable             bool    `json:"viable"`
	Reason             string  `json:"reason"`
}

// ScoreGapArb reports an arb only when externalPrice lies strictly inside the gap.
func ScoreGapArb(gap TickGap, poolPrice, externalPrice float64, cfg GapArbConfig) (GapArb, error) {
	if err := checkPositive("pool price", poolPrice); err != nil {
		return GapArb{}, err
	}
	if err := checkPositive("external price", externalPrice); err != nil {
		return GapArb{}, err
	}
	if err := checkFeeRate("pool fee", cfg.PoolFee); err != nil {
		return GapArb{}, err
	}
	factor := cfg.ProfitFactor
	if factor == 0 {
		factor = DefaultGapProfitFactor
	}

	out := GapArb{Gap: gap, PoolPrice: poolPrice, ExternalPrice: externalPrice}
	if !(externalPrice > gap.PriceLower && externalPrice < gap.PriceUpper) {
		out.Reason = ReasonOutsideGap
		return out, nil
	}

	out.Spread = abs(externalPrice-poolPrice) / poolPrice
	out.NetSpread = out.Spread - cfg.PoolFee
	out.EstimatedProfitUSD = gap.Liquidity / 1e18 * externalPrice * factor
	out.NetProfitUSD = out.EstimatedProfitUSD - cfg.GasCostUSD
	switch {
	case out.NetSpread <= 0:
		out.Reason = ReasonSpreadBelowFees
	case out.NetProfitUSD <= 0:
		out.Reason = ReasonGasExceedsProfit
	default:
		out.Viable = true
		out.Reason = ReasonViable
	}
	return out, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
