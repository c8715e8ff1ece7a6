package model

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// ParseBigInt parses a base-10 integer string; empty input is zero.
func ParseBigInt(value string) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("%w: invalid int: %s", ErrInvalidInput, value)
	}
	return parsed, nil
}

// ParseUint256 parses a fee-growth accumulator. Values must fit in 256 bits.
func ParseUint256(value string) (*uint256.Int, error) {
	parsed, err := ParseBigInt(value)
	if err != nil {
		return nil, err
	}
	if parsed.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative accumulator: %s", ErrInvalidInput, value)
	}
	out, overflow := uint256.FromBig(parsed)
	if overflow {
		return nil, fmt.Errorf("%w: accumulator exceeds 256 bits: %s", ErrInvalidInput, value)
	}
	return out, nil
}
