package evaluate

import "strings"

// Cross-chain viability thresholds, as a percentage of the moved amount.
const (
	ArbMaxCostPct       = 0.5
	RebalanceMaxCostPct = 2.0
)

// BridgeTable maps a bridge name to its fee, as a percentage of the amount.
type BridgeTable map[string]float64

// FeePct looks a bridge up case-insensitively.
func (t BridgeTable) FeePct(bridge string) (float64, error) {
	name := strings.ToLower(strings.TrimSpace(bridge))
	for key, fee := range t {
		if strings.ToLower(key) == name {
			return fee, nil
		}
	}
	return 0, invalid("unknown bridge %q", bridge)
}

// CrossChainInput describes one bridged transfer. SlippagePct applies to each leg.
type CrossChainInput struct {
	Bridge       string  `json:"bridge"`
	AmountUSD    float64 `json:"amount_usd"`
	SourceGasUSD float64 `json:"source_gas_usd"`
	DestGasUSD   float64 `json:"dest_gas_usd"`
	SlippagePct  float64 `json:"slippage_pct"`
}

// CrossChainResult itemizes the transfer cost.
type CrossChainResult struct {
	Bridge          string  `json:"bridge"`
	BridgeFeeUSD    float64 `json:"bridge_fee_usd"`
	GasUSD          float64 `json:"gas_usd"`
	SlippageUSD     float64 `json:"slippage_usd"`
	TotalCostUSD    float64 `json:"total_cost_usd"`
	TotalCostPct    float64 `json:"total_cost_pct"`
	ArbViable       bool    `json:"arb_viable"`
	RebalanceViable bool    `json:"rebalance_viable"`
	Reason          string  `json:"reason"`
}

// CrossChainCost sums bridge fee, both gas legs and slippage on both legs.
// The two viability flags are independent thresholds on TotalCostPct.
func CrossChainCost(in CrossChainInput, bridges BridgeTable) (CrossChainResult, error) {
	feePct, err := bridges.FeePct(in.Bridge)
	if err != nil {
		return CrossChainResult{}, err
	}
	if err := checkPositive("amount", in.AmountUSD); err != nil {
		return CrossChainResult{}, err
	}
	if err := checkNonNegative("source gas", in.SourceGasUSD); err != nil {
		return CrossChainResult{}, err
	}
	if err := checkNonNegative("destination gas", in.DestGasUSD); err != nil {
		return CrossChainResult{}, err
	}
	if err := checkNonNegative("slippage", in.SlippagePct); err != nil {
		return CrossChainResult{}, err
	}

	out := CrossChainResult{
		Bridge:       in.Bridge,
		BridgeFeeUSD: in.AmountUSD * feePct / 100,
		GasUSD:       in.SourceGasUSD + in.DestGasUSD,
		SlippageUSD:  2 * in.AmountUSD * in.SlippagePct / 100,
	}
	out.TotalCostUSD = out.BridgeFeeUSD + out.GasUSD + out.SlippageUSD
	out.TotalCostPct = out.TotalCostUSD / in.AmountUSD * 100
	out.ArbViable = out.TotalCostPct < ArbMaxCostPct
	out.RebalanceViable = out.TotalCostPct < RebalanceMaxCostPct
	out.Reason = ReasonViable
	if !out.ArbViable {
		out.Reason = ReasonCostAboveArbLimit
	}
	return out, nil
}
