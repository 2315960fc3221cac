package indexer

import (
	"fmt"
	"iter"
)

// BlockRange is an inclusive block interval.
type BlockRange struct {
	From uint64
	To   uint64
}

func (r BlockRange) String() string {
	return fmt.Sprintf("%d-%d", r.From, r.To)
}

// SplitRange yields consecutive chunks of at most size blocks that cover
// [from, to] exactly once, lowest first. Chunks are computed on demand.
func SplitRange(from, to, size uint64) (iter.Seq[BlockRange], error) {
	if size == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block must be >= from block")
	}
	return func(yield func(BlockRange) bool) {
		start := from
		for {
			end := to
			if to-start >= size {
				end = start + size - 1
			}
			if !yield(BlockRange{From: start, To: end}) || end == to {
				return
			}
			start = end + 1
		}
	}, nil
}
