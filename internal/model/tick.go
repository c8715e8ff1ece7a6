package model

// TickSnapshot is the state of one initialized tick.
type TickSnapshot struct {
	Index                 int32  `json:"index"`
	LiquidityNet          string `json:"liquidity_net"`
	LiquidityGross        string `json:"liquidity_gross"`
	FeeGrowthOutside0X128 string `json:"fee_growth_outside0_x128"`
	FeeGrowthOutside1X128 string `json:"fee_growth_outside1_x128"`
}
