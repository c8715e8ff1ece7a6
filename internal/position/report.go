package position

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"uniclaw/internal/model"
	"uniclaw/internal/tickmath"
)

// ReportInput is one position read against a same-block pool snapshot.
type ReportInput struct {
	Pool     model.PoolSnapshot
	Position model.Position
	Token0   model.TokenMeta
	Token1   model.TokenMeta
	// EntryPrice is token1 per token0 in whole-token units; zero skips IL.
	EntryPrice float64
}

// Report summarizes a position in whole-token units. Prices are token1 per
// token0 adjusted for decimals.
type Report struct {
	Pool            string      `json:"pool"`
	Owner           string      `json:"owner"`
	BlockNumber     uint64      `json:"block_number"`
	TickLower       int32       `json:"tick_lower"`
	TickUpper       int32       `json:"tick_upper"`
	CurrentTick     int32       `json:"current_tick"`
	Price           float64     `json:"price"`
	PriceLower      float64     `json:"price_lower"`
	PriceUpper      float64     `json:"price_upper"`
	Composition     Composition `json:"composition"`
	Amount0         string      `json:"amount0"`
	Amount1         string      `json:"amount1"`
	Fees0           string      `json:"fees0,omitempty"`
	Fees1           string      `json:"fees1,omitempty"`
	FeeShare        float64     `json:"fee_share,omitempty"`
	ImpermanentLoss *float64    `json:"impermanent_loss,omitempty"`
	Warnings        []string    `json:"warnings,omitempty"`
}

// BuildReport derives holdings, uncollected fees, fee share and IL. Missing
// boundary ticks or zero active liquidity degrade to warnings.
func BuildReport(in ReportInput) (Report, error) {
	pos := in.Position
	if err := tickmath.ValidateRange(int(pos.TickLower), int(pos.TickUpper), int(in.Pool.TickSpacing)); err != nil {
		return Report{}, err
	}

	sqrtX96, err := model.ParseBigInt(in.Pool.SqrtPriceX96)
	if err != nil {
		return Report{}, fmt.Errorf("sqrt price: %w", err)
	}
	rawPrice, err := tickmath.SqrtPriceX96ToPrice(sqrtX96)
	if err != nil {
		return Report{}, err
	}
	rawLower, err := tickmath.TickToPrice(int(pos.TickLower))
	if err != nil {
		return Report{}, err
	}
	rawUpper, err := tickmath.TickToPrice(int(pos.TickUpper))
	if err != nil {
		return Report{}, err
	}

	liquidity, err := model.ParseBigInt(pos.Liquidity)
	if err != nil {
		return Report{}, fmt.Errorf("position liquidity: %w", err)
	}
	liquidityF, _ := decimal.NewFromBigInt(liquidity, 0).Float64()

	amounts, err := AmountsFromLiquidity(liquidityF, rawPrice, rawLower, rawUpper)
	if err != nil {
		return Report{}, err
	}
	comp, err := CompositionAt(rawPrice, rawLower, rawUpper)
	if err != nil {
		return Report{}, err
	}

	scale := math.Pow10(int(in.Token0.Decimals) - int(in.Token1.Decimals))
	rep := Report{
		Pool:        in.Pool.Address,
		Owner:       pos.Owner,
		BlockNumber: in.Pool.BlockNumber,
		TickLower:   pos.TickLower,
		TickUpper:   pos.TickUpper,
		CurrentTick: in.Pool.CurrentTick,
		Price:       rawPrice * scale,
		PriceLower:  rawLower * scale,
		PriceUpper:  rawUpper * scale,
		Composition: comp,
		Amount0:     formatFloatAmount(amounts.Amount0, in.Token0.Decimals),
		Amount1:     formatFloatAmount(amounts.Amount1, in.Token1.Decimals),
	}

	lower, okLower := in.Pool.TickByIndex(pos.TickLower)
	upper, okUpper := in.Pool.TickByIndex(pos.TickUpper)
	if okLower && okUpper {
		fees, err := PositionFees(in.Pool, lower, upper, pos)
		if err != nil {
			return Report{}, err
		}
		rep.Fees0 = FormatAmount(fees.Amount0, in.Token0.Decimals)
		rep.Fees1 = FormatAmount(fees.Amount1, in.Token1.Decimals)
	} else {
		rep.Warnings = append(rep.Warnings, "boundary ticks missing from snapshot; fees not computed")
	}

	if comp == Mixed {
		active, err := model.ParseBigInt(in.Pool.Liquidity)
		if err != nil {
			return Report{}, fmt.Errorf("pool liquidity: %w", err)
		}
		activeF, _ := decimal.NewFromBigInt(active, 0).Float64()
		if share, err := FeeShare(liquidityF, activeF); err == nil {
			rep.FeeShare = share
		} else {
			rep.Warnings = append(rep.Warnings, err.Error())
		}
	}

	if in.EntryPrice > 0 {
		il, err := ImpermanentLoss(in.EntryPrice, rep.Price, rep.PriceLower, rep.PriceUpper)
		if err != nil {
			return Report{}, err
		}
		rep.ImpermanentLoss = &il
	}

	return rep, nil
}

func formatFloatAmount(raw float64, decimals uint8) string {
	return decimal.NewFromFloat(raw).Floor().Shift(-int32(decimals)).String()
}
