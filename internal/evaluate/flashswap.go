package evaluate

// FlashSwapInput describes an atomic borrow-use-repay sequence.
type FlashSwapInput struct {
	BorrowedAmountUSD float64 `json:"borrowed_amount_usd"`
	GrossProfitUSD    float64 `json:"gross_profit_usd"`
	BorrowFeeRate     float64 `json:"borrow_fee_rate"`
	GasCostUSD        float64 `json:"gas_cost_usd"`
}

// FlashSwapResult reports net profit and the spread needed to break even.
type FlashSwapResult struct {
	BorrowFeeUSD         float64 `json:"borrow_fee_usd"`
	GasCostUSD           float64 `json:"gas_cost_usd"`
	NetProfitUSD         float64 `json:"net_profit_usd"`
	MinSpreadToBreakeven float64 `json:"min_spread_to_breakeven"`
	Viable               bool    `json:"viable"`
	Reason               string  `json:"reason"`
}

// EvaluateFlashSwap nets the borrow fee and gas out of gross profit.
func EvaluateFlashSwap(in FlashSwapInput) (FlashSwapResult, error) {
	if err := checkPositive("borrowed amount", in.BorrowedAmountUSD); err != nil {
		return FlashSwapResult{}, err
	}
	if err := checkFinite("gross profit", in.GrossProfitUSD); err != nil {
		return FlashSwapResult{}, err
	}
	if err := checkFeeRate("borrow fee rate", in.BorrowFeeRate); err != nil {
		return FlashSwapResult{}, err
	}
	if err := checkNonNegative("gas cost", in.GasCostUSD); err != nil {
		return FlashSwapResult{}, err
	}

	borrowFee := in.BorrowedAmountUSD * in.BorrowFeeRate
	out := FlashSwapResult{
		BorrowFeeUSD:         borrowFee,
		GasCostUSD:           in.GasCostUSD,
		NetProfitUSD:         in.GrossProfitUSD - borrowFee - in.GasCostUSD,
		MinSpreadToBreakeven: (borrowFee + in.GasCostUSD) / in.BorrowedAmountUSD,
		Reason:               ReasonGasExceedsProfit,
	}
	if out.NetProfitUSD > 0 {
		out.Viable = true
		out.Reason = ReasonViable
	}
	return out, nil
}
