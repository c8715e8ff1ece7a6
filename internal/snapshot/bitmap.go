package snapshot

import (
	"fmt"
	"math/big"
)

// WordRange is an inclusive range of tick bitmap word positions.
type WordRange struct {
	From int16
	To   int16
}

// WordPosition returns the bitmap word holding tick. Ticks are compressed
// by spacing first, rounding toward negative infinity.
func WordPosition(tick, spacing int32) int16 {
	compressed := tick / spacing
	if tick%spacing != 0 && tick < 0 {
		compressed--
	}
	return int16(compressed >> 8)
}

// WordsForTicks returns the word range that covers [lower, upper].
func WordsForTicks(lower, upper, spacing int32) (WordRange, error) {
	if spacing <= 0 {
		return WordRange{}, fmt.Errorf("tick spacing must be positive, got %d", spacing)
	}
	if upper < lower {
		return WordRange{}, fmt.Errorf("upper tick must be >= lower tick")
	}
	return WordRange{From: WordPosition(lower, spacing), To: WordPosition(upper, spacing)}, nil
}

// SplitWords splits a word range into batches of size batchSize.
func SplitWords(r WordRange, batchSize int) ([]WordRange, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if r.To < r.From {
		return nil, fmt.Errorf("to word must be >= from word")
	}

	ranges := make([]WordRange, 0)
	start := int(r.From)
	end := int(r.To)
	for start <= end {
		stop := start + batchSize - 1
		if stop > end {
			stop = end
		}
		ranges = append(ranges, WordRange{From: int16(start), To: int16(stop)})
		start = stop + 1
	}
	return ranges, nil
}

// TicksInWord decodes the initialized ticks recorded in one bitmap word.
func TicksInWord(word int16, bitmap *big.Int, spacing int32) []int32 {
	if bitmap == nil || bitmap.Sign() == 0 {
		return nil
	}
	var ticks []int32
	for bit := 0; bit < 256; bit++ {
		if bitmap.Bit(bit) == 0 {
			continue
		}
		compressed := int32(word)*256 + int32(bit)
		ticks = append(ticks, compressed*spacing)
	}
	return ticks
}
