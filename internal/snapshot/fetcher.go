// Package snapshot reads coherent single-block views of a V3 pool over
// eth_call: pool state, initialized ticks and positions.
package snapshot

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"uniclaw/internal/model"
)

// Caller is the subset of chain.Client the fetcher needs.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Options configures a Fetcher.
type Options struct {
	MaxRetries   int
	RetryBackoff time.Duration
	Concurrency  int
	WordBatch    int
	Logger       *zap.Logger
}

// Fetcher pins every call to one block so the values it returns are coherent.
type Fetcher struct {
	caller       Caller
	maxRetries   int
	retryBackoff time.Duration
	concurrency  int
	wordBatch    int
	logger       *zap.Logger
}

// NewFetcher creates a fetcher around caller.
func NewFetcher(caller Caller, opts Options) *Fetcher {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	wordBatch := opts.WordBatch
	if wordBatch <= 0 {
		wordBatch = 16
	}
	return &Fetcher{
		caller:       caller,
		maxRetries:   opts.MaxRetries,
		retryBackoff: opts.RetryBackoff,
		concurrency:  concurrency,
		wordBatch:    wordBatch,
		logger:       logger,
	}
}

// PositionKey is keccak256(abi.encodePacked(owner, tickLower, tickUpper)),
// the key the pool uses for its positions mapping.
func PositionKey(owner common.Address, tickLower, tickUpper int32) common.Hash {
	buf := make([]byte, 0, common.AddressLength+6)
	buf = append(buf, owner.Bytes()...)
	buf = append(buf, int24Bytes(tickLower)...)
	buf = append(buf, int24Bytes(tickUpper)...)
	return crypto.Keccak256Hash(buf)
}

func int24Bytes(v int32) []byte {
	u := uint32(v)
	return []byte{byte(u >> 16), byte(u >> 8), byte(u)}
}

// FetchPool reads slot0, liquidity, fee parameters and global fee growth at block.
func (f *Fetcher) FetchPool(ctx context.Context, pool common.Address, block uint64) (model.PoolSnapshot, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("parse pool abi: %w", err)
	}

	snap := model.PoolSnapshot{Address: pool.Hex(), BlockNumber: block}

	values, err := f.call(ctx, pool, poolABI, block, "token0")
	if err != nil {
		return model.PoolSnapshot{}, err
	}
	token0, err := asAddress(values[0])
	if err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("token0: %w", err)
	}
	snap.Token0 = token0.Hex()

	values, err = f.call(ctx, pool, poolABI, block, "token1")
	if err != nil {
		return model.PoolSnapshot{}, err
	}
	token1, err := asAddress(values[0])
	if err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("token1: %w", err)
	}
	snap.Token1 = token1.Hex()

	values, err = f.call(ctx, pool, poolABI, block, "fee")
	if err != nil {
		return model.PoolSnapshot{}, err
	}
	fee, err := asBigInt(values[0])
	if err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("fee: %w", err)
	}
	snap.Fee = uint32(fee.Uint64())

	values, err = f.call(ctx, pool, poolABI, block, "tickSpacing")
	if err != nil {
		return model.PoolSnapshot{}, err
	}
	if snap.TickSpacing, err = asInt24(values[0]); err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("tick spacing: %w", err)
	}

	values, err = f.call(ctx, pool, poolABI, block, "slot0")
	if err != nil {
		return model.PoolSnapshot{}, err
	}
	if len(values) < 2 {
		return model.PoolSnapshot{}, fmt.Errorf("slot0: expected 7 values, got %d", len(values))
	}
	if snap.SqrtPriceX96, err = asDecimalString(values[0]); err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("slot0 sqrtPriceX96: %w", err)
	}
	if snap.CurrentTick, err = asInt24(values[1]); err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("slot0 tick: %w", err)
	}

	scalars := []struct {
		method string
		dst    *string
	}{
		{"liquidity", &snap.Liquidity},
		{"feeGrowthGlobal0X128", &snap.FeeGrowthGlobal0X128},
		{"feeGrowthGlobal1X128", &snap.FeeGrowthGlobal1X128},
	}
	for _, s := range scalars {
		values, err := f.call(ctx, pool, poolABI, block, s.method)
		if err != nil {
			return model.PoolSnapshot{}, err
		}
		if *s.dst, err = asDecimalString(values[0]); err != nil {
			return model.PoolSnapshot{}, fmt.Errorf("%s: %w", s.method, err)
		}
	}

	return snap, nil
}

// FetchTicks scans the tick bitmap between lower and upper and loads every
// initialized tick found. Words and ticks are fetched concurrently; the
// result is sorted by index.
func (f *Fetcher) FetchTicks(ctx context.Context, pool common.Address, block uint64, spacing, lower, upper int32) ([]model.TickSnapshot, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}

	words, err := WordsForTicks(lower, upper, spacing)
	if err != nil {
		return nil, err
	}
	batches, err := SplitWords(words, f.wordBatch)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		indices []int32
	)
	for _, batch := range batches {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(f.concurrency)
		for w := int(batch.From); w <= int(batch.To); w++ {
			word := int16(w)
			g.Go(func() error {
				values, err := f.call(gctx, pool, poolABI, block, "tickBitmap", word)
				if err != nil {
					return err
				}
				bitmap, err := asBigInt(values[0])
				if err != nil {
					return fmt.Errorf("tickBitmap %d: %w", word, err)
				}
				found := TicksInWord(word, bitmap, spacing)
				mu.Lock()
				for _, tick := range found {
					if tick >= lower && tick <= upper {
						indices = append(indices, tick)
					}
				}
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	f.logger.Debug("bitmap scanned",
		zap.String("pool", pool.Hex()),
		zap.Int("words", int(words.To)-int(words.From)+1),
		zap.Int("ticks", len(indices)),
	)

	ticks := make([]model.TickSnapshot, len(indices))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, index := range indices {
		i, index := i, index
		g.Go(func() error {
			tick, err := f.fetchTick(gctx, pool, poolABI, block, index)
			if err != nil {
				return err
			}
			ticks[i] = tick
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(ticks, func(i, j int) bool { return ticks[i].Index < ticks[j].Index })
	return ticks, nil
}

func (f *Fetcher) fetchTick(ctx context.Context, pool common.Address, poolABI abi.ABI, block uint64, index int32) (model.TickSnapshot, error) {
	values, err := f.call(ctx, pool, poolABI, block, "ticks", big.NewInt(int64(index)))
	if err != nil {
		return model.TickSnapshot{}, err
	}
	if len(values) < 4 {
		return model.TickSnapshot{}, fmt.Errorf("ticks %d: expected 8 values, got %d", index, len(values))
	}
	tick := model.TickSnapshot{Index: index}
	fields := []*string{&tick.LiquidityGross, &tick.LiquidityNet, &tick.FeeGrowthOutside0X128, &tick.FeeGrowthOutside1X128}
	for i, dst := range fields {
		if *dst, err = asDecimalString(values[i]); err != nil {
			return model.TickSnapshot{}, fmt.Errorf("ticks %d field %d: %w", index, i, err)
		}
	}
	return tick, nil
}

// FetchPosition reads the owner's position in [tickLower, tickUpper].
func (f *Fetcher) FetchPosition(ctx context.Context, pool, owner common.Address, tickLower, tickUpper int32, block uint64) (model.Position, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return model.Position{}, fmt.Errorf("parse pool abi: %w", err)
	}

	key := PositionKey(owner, tickLower, tickUpper)
	values, err := f.call(ctx, pool, poolABI, block, "positions", [32]byte(key))
	if err != nil {
		return model.Position{}, err
	}
	if len(values) < 5 {
		return model.Position{}, fmt.Errorf("positions: expected 5 values, got %d", len(values))
	}

	pos := model.Position{Owner: owner.Hex(), TickLower: tickLower, TickUpper: tickUpper}
	fields := []*string{&pos.Liquidity, &pos.FeeGrowthInside0LastX128, &pos.FeeGrowthInside1LastX128, &pos.TokensOwed0, &pos.TokensOwed1}
	for i, dst := range fields {
		if *dst, err = asDecimalString(values[i]); err != nil {
			return model.Position{}, fmt.Errorf("positions field %d: %w", i, err)
		}
	}
	return pos, nil
}

// FetchTokenMeta loads decimals and symbol for token. A symbol that cannot be
// read in either encoding is left empty.
func (f *Fetcher) FetchTokenMeta(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	meta := model.TokenMeta{Address: token.Hex()}

	stringABI, err := erc20ABIStringInstance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	values, err := f.call(ctx, token, stringABI, 0, "decimals")
	if err != nil {
		return meta, err
	}
	if meta.Decimals, err = asUint8(values[0]); err != nil {
		return meta, fmt.Errorf("decimals: %w", err)
	}

	if values, err := f.callOnce(ctx, token, stringABI, 0, "symbol"); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
		}
	} else if values, err := f.callOnce(ctx, token, bytes32ABI, 0, "symbol"); err == nil {
		if symbol, ok := bytes32ToString(values[0]); ok {
			meta.Symbol = symbol
		}
	} else {
		f.logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	return meta, nil
}

// Snapshot reads pool state plus initialized ticks within tickWindow of the
// current tick, all at block.
func (f *Fetcher) Snapshot(ctx context.Context, pool common.Address, block uint64, tickWindow int32) (model.PoolSnapshot, error) {
	snap, err := f.FetchPool(ctx, pool, block)
	if err != nil {
		return model.PoolSnapshot{}, err
	}
	if snap.TickSpacing <= 0 {
		return model.PoolSnapshot{}, fmt.Errorf("pool %s reports tick spacing %d", pool.Hex(), snap.TickSpacing)
	}

	lower := clampTick(snap.CurrentTick - tickWindow)
	upper := clampTick(snap.CurrentTick + tickWindow)
	ticks, err := f.FetchTicks(ctx, pool, block, snap.TickSpacing, lower, upper)
	if err != nil {
		return model.PoolSnapshot{}, err
	}
	snap.Ticks = ticks

	f.logger.Info("pool snapshot",
		zap.String("pool", pool.Hex()),
		zap.Uint64("block", block),
		zap.Int32("tick", snap.CurrentTick),
		zap.Int("ticks", len(ticks)),
	)
	return snap, nil
}

func clampTick(tick int32) int32 {
	const maxTick = 887272
	if tick < -maxTick {
		return -maxTick
	}
	if tick > maxTick {
		return maxTick
	}
	return tick
}

func (f *Fetcher) call(ctx context.Context, to common.Address, parsed abi.ABI, block uint64, method string, args ...interface{}) ([]interface{}, error) {
	var values []interface{}
	err := withRetry(ctx, f.maxRetries, f.retryBackoff, func(ctx context.Context) error {
		var err error
		values, err = f.callOnce(ctx, to, parsed, block, method, args...)
		if err != nil {
			f.logger.Warn("eth_call failed", zap.String("to", to.Hex()), zap.String("method", method), zap.Error(err))
		}
		return err
	})
	return values, err
}

func (f *Fetcher) callOnce(ctx context.Context, to common.Address, parsed abi.ABI, block uint64, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	var blockPtr *big.Int
	if block > 0 {
		blockPtr = new(big.Int).SetUint64(block)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := f.caller.CallContract(ctx, msg, blockPtr)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}
