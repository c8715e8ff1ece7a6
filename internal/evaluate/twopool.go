package evaluate

// TwoPoolInput describes buying in pool A and selling in pool B.
type TwoPoolInput struct {
	PriceA       float64 `json:"price_a"`
	PriceB       float64 `json:"price_b"`
	FeeA         float64 `json:"fee_a"`
	FeeB         float64 `json:"fee_b"`
	TradeSizeUSD float64 `json:"trade_size_usd"`
	GasCostUSD   float64 `json:"gas_cost_usd"`
}

// TwoPoolArb is the scored buy-low/sell-high opportunity.
type TwoPoolArb struct {
	BuyPool        string  `json:"buy_pool"`
	SellPool       string  `json:"sell_pool"`
	Spread         float64 `json:"spread"`
	NetSpread      float64 `json:"net_spread"`
	GrossProfitUSD float64 `json:"gross_profit_usd"`
	GasCostUSD     float64 `json:"gas_cost_usd"`
	NetProfitUSD   float64 `json:"net_profit_usd"`
	Viable         bool    `json:"viable"`
	Reason         string  `json:"reason"`
}

// FindTwoPoolArb scores buying in A and selling in B. It returns nil when B
// does not trade above A; callers check the opposite direction themselves or
// use DiscoverTwoPoolArb.
func FindTwoPoolArb(in TwoPoolInput) (*TwoPoolArb, error) {
	if err := validateTwoPool(in); err != nil {
		return nil, err
	}
	if in.PriceB <= in.PriceA {
		return nil, nil
	}

	spread := (in.PriceB - in.PriceA) / in.PriceA
	netSpread := spread - in.FeeA - in.FeeB
	gross := in.TradeSizeUSD * netSpread

	arb := &TwoPoolArb{
		BuyPool:        "A",
		SellPool:       "B",
		Spread:         spread,
		NetSpread:      netSpread,
		GrossProfitUSD: gross,
		GasCostUSD:     in.GasCostUSD,
		NetProfitUSD:   gross - in.GasCostUSD,
	}
	switch {
	case netSpread <= 0:
		arb.Reason = ReasonSpreadBelowFees
	case arb.NetProfitUSD <= 0:
		arb.Reason = ReasonGasExceedsProfit
	default:
		arb.Viable = true
		arb.Reason = ReasonViable
	}
	return arb, nil
}

// DiscoverTwoPoolArb checks both directions and returns whichever has a spread.
func DiscoverTwoPoolArb(in TwoPoolInput) (*TwoPoolArb, error) {
	arb, err := FindTwoPoolArb(in)
	if err != nil || arb != nil {
		return arb, err
	}
	reversed := TwoPoolInput{
		PriceA:       in.PriceB,
		PriceB:       in.PriceA,
		FeeA:         in.FeeB,
		FeeB:         in.FeeA,
		TradeSizeUSD: in.TradeSizeUSD,
		GasCostUSD:   in.GasCostUSD,
	}
	arb, err = FindTwoPoolArb(reversed)
	if arb != nil {
		arb.BuyPool, arb.SellPool = "B", "A"
	}
	return arb, err
}

func validateTwoPool(in TwoPoolInput) error {
	if err := checkPositive("price a", in.PriceA); err != nil {
		return err
	}
	if err := checkPositive("price b", in.PriceB); err != nil {
		return err
	}
	if err := checkFeeRate("fee a", in.FeeA); err != nil {
		return err
	}
	if err := checkFeeRate("fee b", in.FeeB); err != nil {
		return err
	}
	if err := checkNonNegative("trade size", in.TradeSizeUSD); err != nil {
		return err
	}
	return checkNonNegative("gas cost", in.GasCostUSD)
}
