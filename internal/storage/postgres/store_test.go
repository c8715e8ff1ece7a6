package postgres

import (
	"reflect"
	"regexp"
	"strings"
	"testing"
	"time"

	"uniclaw/internal/model"
)

func insertColumns(t *testing.T, query string) []string {
	t.Helper()
	match := regexp.MustCompile(`(?s)INSERT INTO \w+ \((.*?)\)`).FindStringSubmatch(query)
	if match == nil {
		t.Fatalf("no column list in %q", query)
	}
	var cols []string
	for _, col := range strings.Split(match[1], ",") {
		cols = append(cols, strings.TrimSpace(col))
	}
	return cols
}

func TestUpsertDecisionRefreshesEveryColumn(t *testing.T) {
	cols := insertColumns(t, upsertDecision)
	for _, col := range cols {
		if col == "operation_id" {
			continue
		}
		if !strings.Contains(upsertDecision, col+" = EXCLUDED."+col) {
			t.Fatalf("column %s is not refreshed on conflict", col)
		}
	}

	d := model.GateDecision{
		OperationID:      "op-1",
		Type:             model.OpArb,
		ReasonCode:       "SLIPPAGE_TOO_HIGH",
		Gate:             4,
		CapitalAtRiskUSD: 4000,
		SlippagePct:      1.5,
		ObservedAt:       1700000000,
		DecidedAt:        time.Unix(1700000100, 0).UTC(),
	}
	args := decisionArgs(d)
	if len(args) != len(cols) {
		t.Fatalf("args %d != columns %d", len(args), len(cols))
	}
	if args[7] != 4000.0 || args[9] != 1.5 || args[10] != int64(1700000000) {
		t.Fatalf("decision inputs not bound: %v", args)
	}
}

func TestSnapshotArgsKeepFeeGrowthAndTokens(t *testing.T) {
	snap := model.PoolSnapshot{
		ChainID:              1,
		Address:              "0xpool",
		BlockNumber:          19000000,
		Timestamp:            1700000000,
		Token0:               "0xtoken0",
		Token1:               "0xtoken1",
		Fee:                  3000,
		TickSpacing:          60,
		CurrentTick:          -120,
		SqrtPriceX96:         "79228162514264337593543950336",
		Liquidity:            "1000",
		FeeGrowthGlobal0X128: "340282366920938463463374607431768211456",
		FeeGrowthGlobal1X128: "42",
	}
	args, err := snapshotArgs(snap)
	if err != nil {
		t.Fatalf("args: %v", err)
	}
	cols := insertColumns(t, insertSnapshot)
	if len(args) != len(cols) {
		t.Fatalf("args %d != columns %d", len(args), len(cols))
	}

	got := make(map[string]interface{}, len(cols))
	for i, col := range cols {
		got[col] = args[i]
	}
	want := map[string]interface{}{
		"block_timestamp":         int64(1700000000),
		"token0":                  "0xtoken0",
		"token1":                  "0xtoken1",
		"fee_growth_global0_x128": "340282366920938463463374607431768211456",
		"fee_growth_global1_x128": "42",
	}
	for col, value := range want {
		if !reflect.DeepEqual(got[col], value) {
			t.Fatalf("%s = %v, want %v", col, got[col], value)
		}
	}

	empty, err := snapshotArgs(model.PoolSnapshot{})
	if err != nil {
		t.Fatalf("empty args: %v", err)
	}
	if empty[11] != "0" || empty[12] != "0" {
		t.Fatalf("missing fee growth should bind as 0: %v", empty)
	}
}
