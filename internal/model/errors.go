package model

import "errors"

var (
	// ErrInvalidInput marks malformed ranges, unknown names and other inputs the
	// caller must fix. It is never returned for a merely unprofitable candidate.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUndefined marks a result with a zero or missing denominator (zero TVL,
	// zero liquidity). Callers branch on it instead of propagating NaN or Inf.
	ErrUndefined = errors.New("undefined result")
)
