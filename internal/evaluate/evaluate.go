// Package evaluate scores candidate trades against fee, gas and bridge cost
// models. Unprofitable candidates are ordinary results with Viable=false and
// a reason code; only malformed input produces an error.
package evaluate

import (
	"fmt"
	"math"

	"uniclaw/internal/model"
)

// Reason codes attached to evaluator results.
const (
	ReasonViable            = "VIABLE"
	ReasonSpreadBelowFees   = "SPREAD_BELOW_FEES"
	ReasonGasExceedsProfit  = "GAS_EXCEEDS_PROFIT"
	ReasonNoPath            = "NO_PATH"
	ReasonNoCycleProfit     = "NO_CYCLE_PROFIT"
	ReasonOutsideGap        = "PRICE_OUTSIDE_GAP"
	ReasonCostAboveArbLimit = "COST_ABOVE_ARB_LIMIT"
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", model.ErrInvalidInput, fmt.Sprintf(format, args...))
}

func checkPositive(name string, value float64) error {
	if !(value > 0) || math.IsInf(value, 0) {
		return invalid("%s must be positive, got %v", name, value)
	}
	return nil
}

func checkNonNegative(name string, value float64) error {
	if !(value >= 0) || math.IsInf(value, 0) {
		return invalid("%s must be non-negative, got %v", name, value)
	}
	return nil
}

func checkFinite(name string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return invalid("%s must be finite, got %v", name, value)
	}
	return nil
}

func checkFeeRate(name string, value float64) error {
	if !(value >= 0) || value >= 1 {
		return invalid("%s must be in [0, 1), got %v", name, value)
	}
	return nil
}
