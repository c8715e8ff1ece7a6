package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"uniclaw/internal/model"
)

// Schema creates the tables the store writes to.
const Schema = `
CREATE TABLE IF NOT EXISTS gate_decisions (
	operation_id        TEXT PRIMARY KEY,
	op_type             TEXT NOT NULL,
	approved            BOOLEAN NOT NULL,
	reason_code         TEXT NOT NULL,
	gate                INTEGER NOT NULL,
	portfolio_value_usd DOUBLE PRECISION NOT NULL,
	size_limit_usd      DOUBLE PRECISION NOT NULL,
	capital_at_risk_usd DOUBLE PRECISION NOT NULL,
	net_profit_usd      DOUBLE PRECISION NOT NULL,
	slippage_pct        DOUBLE PRECISION NOT NULL,
	observed_at         BIGINT NOT NULL,
	decided_at          TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS pool_snapshots (
	chain_id                BIGINT NOT NULL,
	pool_address            TEXT NOT NULL,
	block_number            BIGINT NOT NULL,
	block_timestamp         BIGINT NOT NULL DEFAULT 0,
	token0                  TEXT NOT NULL DEFAULT '',
	token1                  TEXT NOT NULL DEFAULT '',
	fee                     INTEGER NOT NULL,
	tick_spacing            INTEGER NOT NULL,
	current_tick            INTEGER NOT NULL,
	sqrt_price_x96          NUMERIC NOT NULL,
	liquidity               NUMERIC NOT NULL,
	fee_growth_global0_x128 NUMERIC NOT NULL DEFAULT 0,
	fee_growth_global1_x128 NUMERIC NOT NULL DEFAULT 0,
	ticks                   JSONB NOT NULL,
	created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, pool_address, block_number)
);
ALTER TABLE pool_snapshots ADD COLUMN IF NOT EXISTS block_timestamp BIGINT NOT NULL DEFAULT 0;
ALTER TABLE pool_snapshots ADD COLUMN IF NOT EXISTS token0 TEXT NOT NULL DEFAULT '';
ALTER TABLE pool_snapshots ADD COLUMN IF NOT EXISTS token1 TEXT NOT NULL DEFAULT '';
ALTER TABLE pool_snapshots ADD COLUMN IF NOT EXISTS fee_growth_global0_x128 NUMERIC NOT NULL DEFAULT 0;
ALTER TABLE pool_snapshots ADD COLUMN IF NOT EXISTS fee_growth_global1_x128 NUMERIC NOT NULL DEFAULT 0;
CREATE TABLE IF NOT EXISTS runner_state (
	name              TEXT PRIMARY KEY,
	last_processed_ts BIGINT NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL
);
`

// Store provides Postgres persistence for gate audits and pool snapshots.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema applies Schema.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const upsertDecision = `
	INSERT INTO gate_decisions (
		operation_id, op_type, approved, reason_code, gate, portfolio_value_usd,
		size_limit_usd, capital_at_risk_usd, net_profit_usd, slippage_pct, observed_at, decided_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	ON CONFLICT (operation_id)
	DO UPDATE SET
		op_type = EXCLUDED.op_type,
		approved = EXCLUDED.approved,
		reason_code = EXCLUDED.reason_code,
		gate = EXCLUDED.gate,
		portfolio_value_usd = EXCLUDED.portfolio_value_usd,
		size_limit_usd = EXCLUDED.size_limit_usd,
		capital_at_risk_usd = EXCLUDED.capital_at_risk_usd,
		net_profit_usd = EXCLUDED.net_profit_usd,
		slippage_pct = EXCLUDED.slippage_pct,
		observed_at = EXCLUDED.observed_at,
		decided_at = EXCLUDED.decided_at
`

func decisionArgs(d model.GateDecision) []interface{} {
	return []interface{}{
		d.OperationID,
		string(d.Type),
		d.Approved,
		d.ReasonCode,
		d.Gate,
		d.PortfolioValueUSD,
		d.SizeLimitUSD,
		d.CapitalAtRiskUSD,
		d.NetProfitUSD,
		d.SlippagePct,
		int64(d.ObservedAt),
		d.DecidedAt,
	}
}

// PutDecisions upserts gate decisions keyed by operation id. A re-decided
// operation replaces every column, inputs included.
func (s *Store) PutDecisions(ctx context.Context, decisions []model.GateDecision) error {
	if len(decisions) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, d := range decisions {
		batch.Queue(upsertDecision, decisionArgs(d)...)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range decisions {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

const insertSnapshot = `
	INSERT INTO pool_snapshots (
		chain_id, pool_address, block_number, block_timestamp, token0, token1,
		fee, tick_spacing, current_tick, sqrt_price_x96, liquidity,
		fee_growth_global0_x128, fee_growth_global1_x128, ticks
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10::numeric,$11::numeric,$12::numeric,$13::numeric,$14)
	ON CONFLICT (chain_id, pool_address, block_number) DO NOTHING
`

func snapshotArgs(snap model.PoolSnapshot) ([]interface{}, error) {
	ticks, err := json.Marshal(snap.Ticks)
	if err != nil {
		return nil, fmt.Errorf("marshal ticks: %w", err)
	}
	return []interface{}{
		int64(snap.ChainID),
		snap.Address,
		int64(snap.BlockNumber),
		int64(snap.Timestamp),
		snap.Token0,
		snap.Token1,
		int64(snap.Fee),
		snap.TickSpacing,
		snap.CurrentTick,
		numericOrZero(snap.SqrtPriceX96),
		numericOrZero(snap.Liquidity),
		numericOrZero(snap.FeeGrowthGlobal0X128),
		numericOrZero(snap.FeeGrowthGlobal1X128),
		ticks,
	}, nil
}

func numericOrZero(value string) string {
	if value == "" {
		return "0"
	}
	return value
}

// PutSnapshots stores pool snapshots; the tick list is kept as JSONB.
// A block's snapshot is immutable, so repeats are ignored.
func (s *Store) PutSnapshots(ctx context.Context, snapshots []model.PoolSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		args, err := snapshotArgs(snap)
		if err != nil {
			return err
		}
		batch.Queue(insertSnapshot, args...)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range snapshots {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns last_processed_ts for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var ts int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_ts FROM runner_state WHERE name=$1`, name)
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(ts), true, nil
}

// SaveState upserts last_processed_ts for a name.
func (s *Store) SaveState(ctx context.Context, name string, ts uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO runner_state (name, last_processed_ts, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_ts = EXCLUDED.last_processed_ts, updated_at = now()
	`, name, int64(ts))
	return err
}
