// Package position implements concentrated-liquidity position accounting:
// liquidity/amount conversion, fee growth, impermanent loss and P&L.
package position

import (
	"fmt"
	"math"

	"uniclaw/internal/model"
)

// ErrInvalidRange reports a malformed price range.
var ErrInvalidRange = fmt.Errorf("%w: invalid price range", model.ErrInvalidInput)

// Composition describes which tokens a position holds at a price.
type Composition string

const (
	AllToken0 Composition = "ALL_TOKEN0"
	Mixed     Composition = "MIXED"
	AllToken1 Composition = "ALL_TOKEN1"
)

// Amounts holds token quantities in raw price units.
type Amounts struct {
	Amount0 float64 `json:"amount0"`
	Amount1 float64 `json:"amount1"`
}

// Deposit is the outcome of sizing a position from offered token amounts.
type Deposit struct {
	Liquidity float64     `json:"liquidity"`
	Amount0   float64     `json:"amount0"`
	Amount1   float64     `json:"amount1"`
	Refund0   float64     `json:"refund0"`
	Refund1   float64     `json:"refund1"`
	Regime    Composition `json:"regime"`
}

// CompositionAt classifies price against [priceLower, priceUpper].
func CompositionAt(price, priceLower, priceUpper float64) (Composition, error) {
	if err := checkRange(price, priceLower, priceUpper); err != nil {
		return "", err
	}
	return composition(price, priceLower, priceUpper), nil
}

// LiquidityFromAmounts returns the largest liquidity the offered amounts can
// back. In range the binding token decides L and the other token's surplus is
// reported as a refund.
func LiquidityFromAmounts(amount0, amount1, price, priceLower, priceUpper float64) (Deposit, error) {
	if err := checkRange(price, priceLower, priceUpper); err != nil {
		return Deposit{}, err
	}
	if amount0 < 0 || amount1 < 0 || math.IsNaN(amount0) || math.IsNaN(amount1) {
		return Deposit{}, fmt.Errorf("%w: negative amount", model.ErrInvalidInput)
	}

	sp, sa, sb := sqrtPrices(price, priceLower, priceUpper)
	regime := composition(price, priceLower, priceUpper)

	var liquidity float64
	switch regime {
	case AllToken0:
		liquidity = liquidityForAmount0(amount0, sa, sb)
	case AllToken1:
		liquidity = liquidityForAmount1(amount1, sa, sb)
	default:
		liquidity = math.Min(liquidityForAmount0(amount0, sp, sb), liquidityForAmount1(amount1, sa, sp))
	}

	used, err := AmountsFromLiquidity(liquidity, price, priceLower, priceUpper)
	if err != nil {
		return Deposit{}, err
	}

	return Deposit{
		Liquidity: liquidity,
		Amount0:   used.Amount0,
		Amount1:   used.Amount1,
		Refund0:   math.Max(amount0-used.Amount0, 0),
		Refund1:   math.Max(amount1-used.Amount1, 0),
		Regime:    regime,
	}, nil
}

// AmountsFromLiquidity is the exact inverse of LiquidityFromAmounts.
func AmountsFromLiquidity(liquidity, price, priceLower, priceUpper float64) (Amounts, error) {
	if err := checkRange(price, priceLower, priceUpper); err != nil {
		return Amounts{}, err
	}
	if liquidity < 0 || math.IsNaN(liquidity) {
		return Amounts{}, fmt.Errorf("%w: negative liquidity", model.ErrInvalidInput)
	}

	sp, sa, sb := sqrtPrices(price, priceLower, priceUpper)
	switch composition(price, priceLower, priceUpper) {
	case AllToken0:
		return Amounts{Amount0: amount0ForLiquidity(liquidity, sa, sb)}, nil
	case AllToken1:
		return Amounts{Amount1: liquidity * (sb - sa)}, nil
	default:
		return Amounts{
			Amount0: amount0ForLiquidity(liquidity, sp, sb),
			Amount1: liquidity * (sp - sa),
		}, nil
	}
}

func liquidityForAmount0(amount0, sa, sb float64) float64 {
	if math.IsInf(sb, 1) {
		return amount0 * sa
	}
	return amount0 * sa * sb / (sb - sa)
}

func liquidityForAmount1(amount1, sa, sb float64) float64 {
	return amount1 / (sb - sa)
}

func amount0ForLiquidity(liquidity, sa, sb float64) float64 {
	if math.IsInf(sb, 1) {
		return liquidity / sa
	}
	return liquidity * (sb - sa) / (sa * sb)
}

func composition(price, priceLower, priceUpper float64) Composition {
	switch {
	case price <= priceLower:
		return AllToken0
	case price >= priceUpper:
		return AllToken1
	default:
		return Mixed
	}
}

func sqrtPrices(price, priceLower, priceUpper float64) (float64, float64, float64) {
	return math.Sqrt(price), math.Sqrt(priceLower), math.Sqrt(priceUpper)
}

func checkRange(price, priceLower, priceUpper float64) error {
	if !(price > 0) || math.IsInf(price, 0) {
		return fmt.Errorf("%w: price %v", ErrInvalidRange, price)
	}
	if !(priceLower >= 0) || !(priceUpper > priceLower) {
		return fmt.Errorf("%w: [%v, %v]", ErrInvalidRange, priceLower, priceUpper)
	}
	return nil
}
