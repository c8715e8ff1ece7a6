package position

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// FormatAmount renders a raw token amount in whole-token units.
func FormatAmount(raw *big.Int, decimals uint8) string {
	if raw == nil {
		return "0"
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).String()
}

// ToTokenUnits converts a raw amount into a float in whole-token units.
func ToTokenUnits(raw *big.Int, decimals uint8) float64 {
	if raw == nil {
		return 0
	}
	f, _ := decimal.NewFromBigInt(raw, -int32(decimals)).Float64()
	return f
}
