package position

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"uniclaw/internal/model"
	"uniclaw/internal/tickmath"
)

// FeeGrowthInside derives the per-liquidity fee growth inside [tickLower, tickUpper)
// from the global accumulator and the two boundary "outside" readings.
// All arithmetic wraps modulo 2^256, so an accumulator that has overflowed
// still yields the correct forward delta.
func FeeGrowthInside(global, outsideLower, outsideUpper *uint256.Int, currentTick, tickLower, tickUpper int) (*uint256.Int, error) {
	if err := tickmath.ValidateRange(tickLower, tickUpper, 0); err != nil {
		return nil, err
	}
	if global == nil || outsideLower == nil || outsideUpper == nil {
		return nil, fmt.Errorf("%w: nil fee growth", model.ErrInvalidInput)
	}

	below := new(uint256.Int)
	if currentTick >= tickLower {
		below.Set(outsideLower)
	} else {
		below.Sub(global, outsideLower)
	}

	above := new(uint256.Int)
	if currentTick < tickUpper {
		above.Set(outsideUpper)
	} else {
		above.Sub(global, outsideUpper)
	}

	inside := new(uint256.Int).Sub(global, below)
	return inside.Sub(inside, above), nil
}

// FeesOwed converts a fee-growth delta into raw token units for liquidity.
// The result is floor(liquidity * (now - last) / 2^128).
func FeesOwed(liquidity *big.Int, now, last *uint256.Int) *big.Int {
	if liquidity == nil || liquidity.Sign() <= 0 || now == nil || last == nil {
		return big.NewInt(0)
	}
	delta := new(uint256.Int).Sub(now, last)
	owed := new(big.Int).Mul(delta.ToBig(), liquidity)
	return owed.Rsh(owed, 128)
}

// Fees is the collectable balance of a position in raw token units.
type Fees struct {
	Amount0          *big.Int     `json:"amount0"`
	Amount1          *big.Int     `json:"amount1"`
	Accrued0         *big.Int     `json:"accrued0"`
	Accrued1         *big.Int     `json:"accrued1"`
	FeeGrowthInside0 *uint256.Int `json:"-"`
	FeeGrowthInside1 *uint256.Int `json:"-"`
}

// PositionFees returns tokens owed plus fees accrued since the position's last
// snapshot. The pool and tick snapshots must come from the same block.
func PositionFees(pool model.PoolSnapshot, lower, upper model.TickSnapshot, pos model.Position) (Fees, error) {
	if lower.Index != pos.TickLower || upper.Index != pos.TickUpper {
		return Fees{}, fmt.Errorf("%w: tick snapshots %d/%d do not match position range %d/%d",
			model.ErrInvalidInput, lower.Index, upper.Index, pos.TickLower, pos.TickUpper)
	}

	liquidity, err := model.ParseBigInt(pos.Liquidity)
	if err != nil {
		return Fees{}, fmt.Errorf("position liquidity: %w", err)
	}

	inside0, err := insideFromStrings(pool.FeeGrowthGlobal0X128, lower.FeeGrowthOutside0X128, upper.FeeGrowthOutside0X128,
		int(pool.CurrentTick), int(pos.TickLower), int(pos.TickUpper))
	if err != nil {
		return Fees{}, fmt.Errorf("token0 fee growth: %w", err)
	}
	inside1, err := insideFromStrings(pool.FeeGrowthGlobal1X128, lower.FeeGrowthOutside1X128, upper.FeeGrowthOutside1X128,
		int(pool.CurrentTick), int(pos.TickLower), int(pos.TickUpper))
	if err != nil {
		return Fees{}, fmt.Errorf("token1 fee growth: %w", err)
	}

	last0, err := model.ParseUint256(pos.FeeGrowthInside0LastX128)
	if err != nil {
		return Fees{}, fmt.Errorf("token0 last snapshot: %w", err)
	}
	last1, err := model.ParseUint256(pos.FeeGrowthInside1LastX128)
	if err != nil {
		return Fees{}, fmt.Errorf("token1 last snapshot: %w", err)
	}
	owed0, err := model.ParseBigInt(pos.TokensOwed0)
	if err != nil {
		return Fees{}, fmt.Errorf("tokens owed0: %w", err)
	}
	owed1, err := model.ParseBigInt(pos.TokensOwed1)
	if err != nil {
		return Fees{}, fmt.Errorf("tokens owed1: %w", err)
	}

	accrued0 := FeesOwed(liquidity, inside0, last0)
	accrued1 := FeesOwed(liquidity, inside1, last1)

	return Fees{
		Amount0:          new(big.Int).Add(owed0, accrued0),
		Amount1:          new(big.Int).Add(owed1, accrued1),
		Accrued0:         accrued0,
		Accrued1:         accrued1,
		FeeGrowthInside0: inside0,
		FeeGrowthInside1: inside1,
	}, nil
}

func insideFromStrings(global, outsideLower, outsideUpper string, current, lower, upper int) (*uint256.Int, error) {
	g, err := model.ParseUint256(global)
	if err != nil {
		return nil, err
	}
	ol, err := model.ParseUint256(outsideLower)
	if err != nil {
		return nil, err
	}
	ou, err := model.ParseUint256(outsideUpper)
	if err != nil {
		return nil, err
	}
	return FeeGrowthInside(g, ol, ou, current, lower, upper)
}
