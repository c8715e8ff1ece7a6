package model

import "time"

// GateDecision is the audit record for one evaluated candidate.
type GateDecision struct {
	OperationID       string        `json:"operation_id"`
	Type              OperationType `json:"type"`
	Approved          bool          `json:"approved"`
	ReasonCode        string        `json:"reason_code"`
	Gate              int           `json:"gate"`
	PortfolioValueUSD float64       `json:"portfolio_value_usd"`
	SizeLimitUSD      float64       `json:"size_limit_usd"`
	CapitalAtRiskUSD  float64       `json:"capital_at_risk_usd"`
	NetProfitUSD      float64       `json:"net_profit_usd"`
	SlippagePct       float64       `json:"slippage_pct"`
	ObservedAt        uint64        `json:"observed_at,omitempty"`
	DecidedAt         time.Time     `json:"decided_at"`
}
