package signal

import (
	"fmt"
	"iter"
)

// Chunk is one window of normalized signal submitted to the network.
// Samples aliases the normalized signal; Start is the window's offset in it.
type Chunk struct {
	Start   int
	Samples []float32
}

// End returns the exclusive end offset of the chunk in the source signal.
func (c Chunk) End() int { return c.Start + len(c.Samples) }

// ValidateChunking checks the chunk geometry up front.
func ValidateChunking(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("overlap must be in [0, chunk size), got %d", overlap)
	}
	return nil
}

// Chunks returns the overlapping windows covering all of sig, in strictly
// increasing start order. Interior chunks have length exactly size and each
// chunk starts overlap samples before its predecessor ends. The final chunk
// absorbs the tail: rather than emitting a trailing sliver shorter than the
// step, the last window extends to the end of the signal, so its length is
// in [1, size + step). The network is convolutional and accepts any window
// length, so no padding is needed.
//
// The sequence is lazy and restartable; chunk samples alias sig.
func Chunks(sig []float32, size, overlap int) iter.Seq[Chunk] {
	step := size - overlap
	return func(yield func(Chunk) bool) {
		if len(sig) == 0 {
			return
		}
		for start := 0; ; start += step {
			next := start + step
			if next+size > len(sig) {
				// Final window takes everything that remains.
				yield(Chunk{Start: start, Samples: sig[start:]})
				return
			}
			if !yield(Chunk{Start: start, Samples: sig[start : start+size]}) {
				return
			}
		}
	}
}

// CollectChunks materializes Chunks into a slice.
func CollectChunks(sig []float32, size, overlap int) []Chunk {
	var out []Chunk
	for c := range Chunks(sig, size, overlap) {
		out = append(out, c)
	}
	return out
}
