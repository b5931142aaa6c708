package util

import "iter"

// CreateBatches lazily splits elements into contiguous chunks of batchSize.
// The last chunk holds the remainder and may be shorter. Chunks alias the
// input slice. A batchSize below 1 is treated as 1.
func CreateBatches[T any](elements []T, batchSize int) iter.Seq[[]T] {
	if batchSize < 1 {
		batchSize = 1
	}
	return func(yield func([]T) bool) {
		for start := 0; start < len(elements); start += batchSize {
			end := min(start+batchSize, len(elements))
			if !yield(elements[start:end:end]) {
				return
			}
		}
	}
}
