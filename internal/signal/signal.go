// Package signal holds read signal types and the preprocessing steps that
// prepare raw current samples for the network: prefix trimming and robust
// scaling.
package signal

import "slices"

// Read is one sequencing read as delivered by the input source: the raw
// picoampere samples and the read identifier.
type Read struct {
	ID      string
	Samples []float32
}

// Normalized is a read's signal after trimming and scaling.
type Normalized struct {
	Samples   []float32
	TrimStart int // number of raw samples removed from the front
}

const (
	// DefaultTrimCap bounds the prefix scanned for the open-pore-to-strand
	// transition.
	DefaultTrimCap = 8000

	trimWindow = 40
	trimFactor = 2.4

	// minSpread floors the scale statistic so near-constant signal does
	// not divide by zero.
	minSpread = 1e-3

	// madScale converts a median absolute deviation into a consistent
	// estimate of the standard deviation.
	madScale = 1.4826
)

// TrimStart returns the index at which the strand signal starts, found by
// scanning at most scanCap samples for the first window whose mean rises
// above a robust threshold over the prefix. Returns 0 when no such window
// exists within the cap.
func TrimStart(samples []float32, scanCap int) int {
	limit := len(samples)
	if scanCap > 0 && scanCap < limit {
		limit = scanCap
	}
	if limit < 2*trimWindow {
		return 0
	}

	prefix := samples[:limit]
	med, mad := medMAD(prefix)
	thresh := med + trimFactor*mad

	for i := 0; i+trimWindow <= limit; i += trimWindow {
		var sum float32
		for _, v := range prefix[i : i+trimWindow] {
			sum += v
		}
		if sum/trimWindow > thresh {
			end := i + trimWindow
			if end >= len(samples) {
				return 0
			}
			return end
		}
	}
	return 0
}

// Scale standardizes samples in place using the median as center and the
// scaled MAD as spread. The spread is floored at minSpread, so a constant
// signal maps to all zeros instead of dividing by zero.
func Scale(samples []float32) {
	if len(samples) == 0 {
		return
	}
	med, mad := medMAD(samples)
	spread := mad * madScale
	if spread < minSpread {
		spread = minSpread
	}
	inv := 1 / spread
	for i, v := range samples {
		samples[i] = (v - med) * inv
	}
}

// Preprocess trims the read's raw signal and scales the remainder. The
// returned samples are a fresh slice; the read's raw samples are untouched.
func Preprocess(r *Read, trimCap int) Normalized {
	trim := TrimStart(r.Samples, trimCap)
	out := make([]float32, len(r.Samples)-trim)
	copy(out, r.Samples[trim:])
	Scale(out)
	return Normalized{Samples: out, TrimStart: trim}
}

// medMAD returns the median and the median absolute deviation of v.
func medMAD(v []float32) (med, mad float32) {
	sorted := make([]float32, len(v))
	copy(sorted, v)
	slices.Sort(sorted)
	med = quantile50(sorted)

	for i, x := range sorted {
		d := x - med
		if d < 0 {
			d = -d
		}
		sorted[i] = d
	}
	slices.Sort(sorted)
	mad = quantile50(sorted)
	return med, mad
}

// quantile50 returns the median of an already-sorted slice.
func quantile50(sorted []float32) float32 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
