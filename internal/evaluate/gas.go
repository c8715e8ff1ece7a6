package evaluate

import (
	"strings"

	"uniclaw/internal/model"
)

// GasSafetyBuffer inflates every gas estimate by 20%.
const GasSafetyBuffer = 1.2

const gweiPerNative = 1e9

// GasQuote is a gas-market observation plus the work to be priced.
type GasQuote struct {
	GasUnits        uint64  `json:"gas_units"`
	BaseFeeGwei     float64 `json:"base_fee_gwei"`
	PriorityFeeGwei float64 `json:"priority_fee_gwei"`
	NativePriceUSD  float64 `json:"native_price_usd"`
}

// GasCost is a priced quote.
type GasCost struct {
	GasPriceGwei float64 `json:"gas_price_gwei"`
	NativeCost   float64 `json:"native_cost"`
	RawUSD       float64 `json:"raw_usd"`
	BufferedUSD  float64 `json:"buffered_usd"`
}

// GasCostUSD prices a quote in USD and applies GasSafetyBuffer.
func GasCostUSD(q GasQuote) (GasCost, error) {
	if err := checkNonNegative("base fee", q.BaseFeeGwei); err != nil {
		return GasCost{}, err
	}
	if err := checkNonNegative("priority fee", q.PriorityFeeGwei); err != nil {
		return GasCost{}, err
	}
	if err := checkPositive("native price", q.NativePriceUSD); err != nil {
		return GasCost{}, err
	}
	price := q.BaseFeeGwei + q.PriorityFeeGwei
	native := float64(q.GasUnits) * price / gweiPerNative
	raw := native * q.NativePriceUSD
	return GasCost{
		GasPriceGwei: price,
		NativeCost:   native,
		RawUSD:       raw,
		BufferedUSD:  raw * GasSafetyBuffer,
	}, nil
}

// HourlyGasModel scales a cost observed at one UTC hour to another hour.
type HourlyGasModel struct {
	multipliers [24]float64
}

// NewHourlyGasModel takes exactly 24 positive multipliers indexed by UTC hour.
func NewHourlyGasModel(multipliers []float64) (*HourlyGasModel, error) {
	if len(multipliers) != 24 {
		return nil, invalid("hour multiplier table needs 24 entries, got %d", len(multipliers))
	}
	m := &HourlyGasModel{}
	for hour, v := range multipliers {
		if err := checkPositive("hour multiplier", v); err != nil {
			return nil, err
		}
		m.multipliers[hour] = v
	}
	return m, nil
}

// Multiplier returns the table entry for hour.
func (m *HourlyGasModel) Multiplier(hour int) (float64, error) {
	if hour < 0 || hour > 23 {
		return 0, invalid("hour %d out of range [0, 23]", hour)
	}
	return m.multipliers[hour], nil
}

// Project rescales cost observed at fromHour to toHour.
func (m *HourlyGasModel) Project(cost float64, fromHour, toHour int) (float64, error) {
	if err := checkNonNegative("cost", cost); err != nil {
		return 0, err
	}
	from, err := m.Multiplier(fromHour)
	if err != nil {
		return 0, err
	}
	to, err := m.Multiplier(toHour)
	if err != nil {
		return 0, err
	}
	return cost / from * to, nil
}

// CheapestHour returns the hour with the lowest multiplier, earliest on ties.
func (m *HourlyGasModel) CheapestHour() int {
	best := 0
	for hour := 1; hour < 24; hour++ {
		if m.multipliers[hour] < m.multipliers[best] {
			best = hour
		}
	}
	return best
}

// GasBenchmarks maps an operation type to its typical gas units.
type GasBenchmarks map[model.OperationType]uint64

// Units looks up the benchmark for op.
func (b GasBenchmarks) Units(op model.OperationType) (uint64, error) {
	units, ok := b[model.OperationType(strings.ToLower(string(op)))]
	if !ok {
		return 0, invalid("no gas benchmark for operation %q", op)
	}
	return units, nil
}

// Quote prices op at the given market observation.
func (b GasBenchmarks) Quote(op model.OperationType, baseFeeGwei, priorityFeeGwei, nativePriceUSD float64) (GasCost, error) {
	units, err := b.Units(op)
	if err != nil {
		return GasCost{}, err
	}
	return GasCostUSD(GasQuote{
		GasUnits:        units,
		BaseFeeGwei:     baseFeeGwei,
		PriorityFeeGwei: priorityFeeGwei,
		NativePriceUSD:  nativePriceUSD,
	})
}
