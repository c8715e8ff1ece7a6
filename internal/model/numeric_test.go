package model

import (
	"errors"
	"testing"
)

func TestParseUint256(t *testing.T) {
	got, err := ParseUint256("340282366920938463463374607431768211456")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ToBig().String() != "340282366920938463463374607431768211456" {
		t.Fatalf("value mismatch: %s", got.ToBig())
	}

	zero, err := ParseUint256("")
	if err != nil || !zero.IsZero() {
		t.Fatalf("empty input should parse to zero: %v %v", zero, err)
	}
}

func TestParseUint256Invalid(t *testing.T) {
	cases := []string{
		"-1",
		"abc",
		"115792089237316195423570985008687907853269984665640564039457584007913129639936",
	}
	for _, input := range cases {
		if _, err := ParseUint256(input); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected invalid input for %q, got %v", input, err)
		}
	}
}

func TestParseOperationType(t *testing.T) {
	got, err := ParseOperationType(" Flash_Swap ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != OpFlashSwap || !got.IsArbitrage() {
		t.Fatalf("type mismatch: %s", got)
	}
	if OpSingleSideDeposit.IsArbitrage() {
		t.Fatalf("single side deposit is not arbitrage")
	}
	if _, err := ParseOperationType("teleport"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
