// Package tickmath converts between tick indices, prices and sqrt prices.
package tickmath

import (
	"fmt"
	"math"
	"math/big"

	"uniclaw/internal/model"
)

const (
	MinTick = -887272
	MaxTick = 887272
)

var (
	ErrInvalidTickRange = fmt.Errorf("%w: invalid tick range", model.ErrInvalidInput)
	ErrInvalidPrice     = fmt.Errorf("%w: invalid price", model.ErrInvalidInput)
)

var logBase = math.Log(1.0001)

// Rounding selects the snapping direction for SnapTickToSpacing.
type Rounding int

const (
	RoundDown Rounding = iota
	RoundUp
)

// TickToPrice returns 1.0001^tick, computed as exp(tick*ln(1.0001)).
func TickToPrice(tick int) (float64, error) {
	if err := checkTick(tick); err != nil {
		return 0, err
	}
	return math.Exp(float64(tick) * logBase), nil
}

// SqrtPriceAtTick returns 1.0001^(tick/2).
func SqrtPriceAtTick(tick int) (float64, error) {
	if err := checkTick(tick); err != nil {
		return 0, err
	}
	return math.Exp(float64(tick) * logBase / 2), nil
}

// PriceToTick returns the greatest tick whose price does not exceed price.
func PriceToTick(price float64) (int, error) {
	if !(price > 0) || math.IsInf(price, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPrice, price)
	}
	tick := int(math.Floor(math.Log(price) / logBase))
	// log/log can land a hair on either side of an exact tick price.
	if math.Exp(float64(tick+1)*logBase) <= price {
		tick++
	} else if math.Exp(float64(tick)*logBase) > price {
		tick--
	}
	if tick < MinTick || tick > MaxTick {
		return 0, fmt.Errorf("%w: price %v maps to tick %d", ErrInvalidTickRange, price, tick)
	}
	return tick, nil
}

// MinUsableTick is the lowest tick aligned to spacing.
func MinUsableTick(spacing int) int {
	return -(MaxTick / spacing) * spacing
}

// MaxUsableTick is the highest tick aligned to spacing.
func MaxUsableTick(spacing int) int {
	return (MaxTick / spacing) * spacing
}

// SnapTickToSpacing moves tick to a multiple of spacing in the given direction.
func SnapTickToSpacing(tick, spacing int, dir Rounding) (int, error) {
	if spacing <= 0 {
		return 0, fmt.Errorf("%w: tick spacing %d", model.ErrInvalidInput, spacing)
	}
	if err := checkTick(tick); err != nil {
		return 0, err
	}

	snapped := floorDiv(tick, spacing) * spacing
	if dir == RoundUp && snapped != tick {
		snapped += spacing
	}

	if lo := MinUsableTick(spacing); snapped < lo {
		snapped = lo
	}
	if hi := MaxUsableTick(spacing); snapped > hi {
		snapped = hi
	}
	return snapped, nil
}

// ValidateRange checks bounds, ordering and (when spacing > 0) alignment.
func ValidateRange(lower, upper, spacing int) error {
	if err := checkTick(lower); err != nil {
		return err
	}
	if err := checkTick(upper); err != nil {
		return err
	}
	if upper <= lower {
		return fmt.Errorf("%w: upper %d <= lower %d", ErrInvalidTickRange, upper, lower)
	}
	if spacing > 0 {
		if lower%spacing != 0 {
			return fmt.Errorf("%w: lower %d not aligned to spacing %d", ErrInvalidTickRange, lower, spacing)
		}
		if upper%spacing != 0 {
			return fmt.Errorf("%w: upper %d not aligned to spacing %d", ErrInvalidTickRange, upper, spacing)
		}
	}
	return nil
}

// RangeForPrices returns the narrowest aligned tick pair that brackets
// [priceLower, priceUpper].
func RangeForPrices(priceLower, priceUpper float64, spacing int) (int, int, error) {
	if !(priceLower > 0) || !(priceUpper > priceLower) {
		return 0, 0, fmt.Errorf("%w: [%v, %v]", ErrInvalidPrice, priceLower, priceUpper)
	}
	rawLower, err := PriceToTick(priceLower)
	if err != nil {
		return 0, 0, err
	}
	rawUpper, err := PriceToTick(priceUpper)
	if err != nil {
		return 0, 0, err
	}
	if p, _ := TickToPrice(rawUpper); p < priceUpper {
		rawUpper++
	}

	lower, err := SnapTickToSpacing(rawLower, spacing, RoundDown)
	if err != nil {
		return 0, 0, err
	}
	upper, err := SnapTickToSpacing(min(rawUpper, MaxTick), spacing, RoundUp)
	if err != nil {
		return 0, 0, err
	}
	if upper <= lower {
		upper = lower + spacing
	}
	if err := ValidateRange(lower, upper, spacing); err != nil {
		return 0, 0, err
	}
	return lower, upper, nil
}

// TickSpacingForFee maps a fee tier in pips to its tick spacing.
func TickSpacingForFee(feePips uint32) (int, error) {
	switch feePips {
	case 100:
		return 1, nil
	case 500:
		return 10, nil
	case 3000:
		return 60, nil
	case 10000:
		return 200, nil
	default:
		return 0, fmt.Errorf("%w: unknown fee tier %d", model.ErrInvalidInput, feePips)
	}
}

var q96 = new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 96))

// SqrtPriceX96ToPrice converts a Q64.96 sqrt price into a raw token1/token0 price.
func SqrtPriceX96ToPrice(sqrtPriceX96 *big.Int) (float64, error) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return 0, fmt.Errorf("%w: sqrt price x96 must be positive", ErrInvalidPrice)
	}
	sqrt := new(big.Float).SetInt(sqrtPriceX96)
	sqrt.Quo(sqrt, q96)
	price, _ := new(big.Float).Mul(sqrt, sqrt).Float64()
	return price, nil
}

// PriceToSqrtPriceX96 converts a raw price into Q64.96 fixed point.
func PriceToSqrtPriceX96(price float64) (*big.Int, error) {
	if !(price > 0) || math.IsInf(price, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrice, price)
	}
	sqrt := new(big.Float).SetFloat64(math.Sqrt(price))
	out, _ := sqrt.Mul(sqrt, q96).Int(nil)
	return out, nil
}

func checkTick(tick int) error {
	if tick < MinTick || tick > MaxTick {
		return fmt.Errorf("%w: tick %d outside [%d, %d]", ErrInvalidTickRange, tick, MinTick, MaxTick)
	}
	return nil
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
