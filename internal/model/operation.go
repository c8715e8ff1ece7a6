package model

import (
	"fmt"
	"strings"
)

// OperationType tags a candidate capital-deploying action.
type OperationType string

const (
	OpArb               OperationType = "arb"
	OpFlashSwap         OperationType = "flash_swap"
	OpSingleSideDeposit OperationType = "single_side_deposit"
	OpGapEdgeLP         OperationType = "gap_edge_lp"
	OpRebalance         OperationType = "rebalance"
	OpCrossChain        OperationType = "cross_chain_transfer"
)

// ParseOperationType normalizes a type tag and rejects unknown names.
func ParseOperationType(input string) (OperationType, error) {
	switch t := OperationType(strings.ToLower(strings.TrimSpace(input))); t {
	case OpArb, OpFlashSwap, OpSingleSideDeposit, OpGapEdgeLP, OpRebalance, OpCrossChain:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unknown operation type %q", ErrInvalidInput, input)
	}
}

// IsArbitrage reports whether the type is subject to the atomicity rule.
func (t OperationType) IsArbitrage() bool {
	return t == OpArb || t == OpFlashSwap
}

// CandidateOperation is a proposed action awaiting a gate decision.
type CandidateOperation struct {
	ID                string        `json:"id,omitempty"`
	Type              OperationType `json:"type"`
	CapitalAtRiskUSD  float64       `json:"capital_at_risk_usd"`
	ExpectedProfitUSD float64       `json:"expected_profit_usd"`
	GasEstimateUSD    float64       `json:"gas_estimate_usd"`
	SlippagePct       float64       `json:"slippage_pct"`
	IsAtomic          bool          `json:"is_atomic"`
	GasPriceGwei      float64       `json:"gas_price_gwei,omitempty"`
	ObservedAt        uint64        `json:"observed_at,omitempty"`
}
