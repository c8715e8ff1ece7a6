package model

// PoolSnapshot is a coherent, single-block view of a V3 pool.
// Fixed-point and 128/256-bit values are kept as decimal strings.
type PoolSnapshot struct {
	ChainID              uint64         `json:"chain_id"`
	Address              string         `json:"address"`
	BlockNumber          uint64         `json:"block_number"`
	Timestamp            uint64         `json:"timestamp,omitempty"`
	Token0               string         `json:"token0"`
	Token1               string         `json:"token1"`
	Fee                  uint32         `json:"fee"`
	TickSpacing          int32          `json:"tick_spacing"`
	CurrentTick          int32          `json:"current_tick"`
	SqrtPriceX96         string         `json:"sqrt_price_x96"`
	Liquidity            string         `json:"liquidity"`
	FeeGrowthGlobal0X128 string         `json:"fee_growth_global0_x128"`
	FeeGrowthGlobal1X128 string         `json:"fee_growth_global1_x128"`
	TVLUSD               float64        `json:"tvl_usd,omitempty"`
	VolumeUSD24h         float64        `json:"volume_usd_24h,omitempty"`
	Ticks                []TickSnapshot `json:"ticks,omitempty"`
}

// TickByIndex returns the initialized tick at index, if present in the snapshot.
func (p PoolSnapshot) TickByIndex(index int32) (TickSnapshot, bool) {
	for _, tick := range p.Ticks {
		if tick.Index == index {
			return tick, true
		}
	}
	return TickSnapshot{}, false
}
