// Package safety implements the sequential gate every candidate operation
// passes before capital is committed.
package safety

import (
	"fmt"
	"math"
	"time"

	"uniclaw/internal/model"
)

// Reason codes. Exactly one is attached to every decision.
const (
	ReasonApproved             = "APPROVED"
	ReasonSizeExceedsLimit     = "SIZE_EXCEEDS_LIMIT"
	ReasonGasExceedsProfit     = "GAS_EXCEEDS_PROFIT"
	ReasonGasPriceAboveCeiling = "GAS_PRICE_ABOVE_CEILING"
	ReasonBelowMinProfit       = "BELOW_MIN_PROFIT"
	ReasonSlippageTooHigh      = "SLIPPAGE_TOO_HIGH"
	ReasonNonAtomicArb         = "NON_ATOMIC_ARB_FORBIDDEN"
)

// Gate indices in evaluation order.
const (
	GateSize = iota + 1
	GateGas
	GateMinProfit
	GateSlippage
	GateAtomicity
)

// Config bounds what the gate will approve. Percentages are in percent
// units (1.0 means 1%), MaxOpPct is a fraction of portfolio value.
type Config struct {
	MaxOpPct       float64 `json:"max_op_pct"`
	MinProfitUSD   float64 `json:"min_profit_usd"`
	MaxSlippagePct float64 `json:"max_slippage_pct"`
	// MaxGasPriceGwei of zero disables the gas price ceiling.
	MaxGasPriceGwei float64 `json:"max_gas_price_gwei"`
}

// Validate rejects configurations the gate cannot enforce.
func (c Config) Validate() error {
	if !(c.MaxOpPct > 0 && c.MaxOpPct <= 1) {
		return fmt.Errorf("%w: max op pct must be in (0, 1], got %v", model.ErrInvalidInput, c.MaxOpPct)
	}
	if !nonNegative(c.MinProfitUSD) {
		return fmt.Errorf("%w: min profit must be non-negative, got %v", model.ErrInvalidInput, c.MinProfitUSD)
	}
	if !nonNegative(c.MaxSlippagePct) {
		return fmt.Errorf("%w: max slippage must be non-negative, got %v", model.ErrInvalidInput, c.MaxSlippagePct)
	}
	if !nonNegative(c.MaxGasPriceGwei) {
		return fmt.Errorf("%w: max gas price must be non-negative, got %v", model.ErrInvalidInput, c.MaxGasPriceGwei)
	}
	return nil
}

// Decision is the outcome of one evaluation along with the numbers that
// drove it.
type Decision struct {
	Approved     bool    `json:"approved"`
	Reason       string  `json:"reason"`
	Gate         int     `json:"gate"`
	SizeLimitUSD float64 `json:"size_limit_usd"`
	NetProfitUSD float64 `json:"net_profit_usd"`
}

// Record turns the decision into the audit row persisted by the review runner.
func (d Decision) Record(op model.CandidateOperation, portfolioValue float64, decidedAt time.Time) model.GateDecision {
	return model.GateDecision{
		OperationID:       op.ID,
		Type:              op.Type,
		Approved:          d.Approved,
		ReasonCode:        d.Reason,
		Gate:              d.Gate,
		PortfolioValueUSD: portfolioValue,
		SizeLimitUSD:      d.SizeLimitUSD,
		CapitalAtRiskUSD:  op.CapitalAtRiskUSD,
		NetProfitUSD:      d.NetProfitUSD,
		SlippagePct:       op.SlippagePct,
		ObservedAt:        op.ObservedAt,
		DecidedAt:         decidedAt.UTC(),
	}
}

// Gate holds an immutable Config. It keeps no other state, so one Gate can
// be shared across goroutines.
type Gate struct {
	cfg Config
}

// NewGate validates cfg and builds a gate.
func NewGate(cfg Config) (*Gate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Gate{cfg: cfg}, nil
}

// Config returns a copy of the gate's configuration.
func (g *Gate) Config() Config {
	return g.cfg
}

// Evaluate runs size, gas, min-profit, slippage and atomicity checks in that
// order and stops at the first failure. A rejection is a Decision, not an
// error; errors are reserved for malformed operations.
func (g *Gate) Evaluate(op model.CandidateOperation, portfolioValue float64) (Decision, error) {
	opType, err := validateOperation(op, portfolioValue)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{
		SizeLimitUSD: portfolioValue * g.cfg.MaxOpPct,
		NetProfitUSD: op.ExpectedProfitUSD - op.GasEstimateUSD,
	}
	reject := func(gate int, reason string) (Decision, error) {
		d.Gate = gate
		d.Reason = reason
		return d, nil
	}

	if op.CapitalAtRiskUSD > d.SizeLimitUSD {
		return reject(GateSize, ReasonSizeExceedsLimit)
	}
	if d.NetProfitUSD <= 0 {
		return reject(GateGas, ReasonGasExceedsProfit)
	}
	if g.cfg.MaxGasPriceGwei > 0 && op.GasPriceGwei > g.cfg.MaxGasPriceGwei {
		return reject(GateGas, ReasonGasPriceAboveCeiling)
	}
	if d.NetProfitUSD < g.cfg.MinProfitUSD {
		return reject(GateMinProfit, ReasonBelowMinProfit)
	}
	if op.SlippagePct > g.cfg.MaxSlippagePct {
		return reject(GateSlippage, ReasonSlippageTooHigh)
	}
	if opType.IsArbitrage() && !op.IsAtomic {
		return reject(GateAtomicity, ReasonNonAtomicArb)
	}

	d.Approved = true
	d.Gate = GateAtomicity
	d.Reason = ReasonApproved
	return d, nil
}

func validateOperation(op model.CandidateOperation, portfolioValue float64) (model.OperationType, error) {
	opType, err := model.ParseOperationType(string(op.Type))
	if err != nil {
		return "", err
	}
	if !(portfolioValue > 0) || math.IsInf(portfolioValue, 0) {
		return "", fmt.Errorf("%w: portfolio value must be positive, got %v", model.ErrInvalidInput, portfolioValue)
	}
	fields := []struct {
		name  string
		value float64
	}{
		{"capital at risk", op.CapitalAtRiskUSD},
		{"gas estimate", op.GasEstimateUSD},
		{"slippage", op.SlippagePct},
		{"gas price", op.GasPriceGwei},
	}
	for _, f := range fields {
		if !nonNegative(f.value) {
			return "", fmt.Errorf("%w: %s must be non-negative, got %v", model.ErrInvalidInput, f.name, f.value)
		}
	}
	if math.IsNaN(op.ExpectedProfitUSD) || math.IsInf(op.ExpectedProfitUSD, 0) {
		return "", fmt.Errorf("%w: expected profit must be finite", model.ErrInvalidInput)
	}
	return opType, nil
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}
