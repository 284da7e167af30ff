// Package stitch reconciles the overlapping per-chunk decodes of one read
// into a single sequence and quality string.
package stitch

import "github.com/strand-bio/squall/internal/decode"

// Stitched is the final sequence and quality string for one read.
type Stitched struct {
	Seq  []byte
	Qual []byte
}

// CutPoint picks the split for one chunk boundary. Consecutive chunks
// overlap by overlap source samples; the cut sample is the midpoint of that
// overlap (a deterministic tie-break: both chunks have full context there).
// It returns leftEnd, the number of leading bases kept from the left call,
// and rightStart, the index of the first base kept from the right call.
// Bases map to samples through each call's move table.
func CutPoint(left, right *decode.ChunkCall, overlap int) (leftEnd, rightStart int) {
	cut := right.Start + overlap/2

	leftEnd = len(left.Bases)
	for i := range left.Bases {
		if left.SamplePos(i) >= cut {
			leftEnd = i
			break
		}
	}

	rightStart = len(right.Bases)
	for i := range right.Bases {
		if right.SamplePos(i) >= cut {
			rightStart = i
			break
		}
	}
	return leftEnd, rightStart
}

// Stitch merges a read's chunk calls, in chunk order, into one sequence.
// For each boundary the left call keeps its bases before the cut and the
// right call contributes from the cut onward; qualities follow their bases.
// Calls that emitted nothing contribute nothing and do not break the chain.
// The first chunk's leading and the last chunk's trailing calls are never
// trimmed. A single-call read is returned unmodified.
func Stitch(calls []decode.ChunkCall, overlap int) Stitched {
	var out Stitched
	if len(calls) == 0 {
		return out
	}

	// from marks where the current call starts contributing; updated at
	// each boundary by the cut against the next call.
	from := 0
	for i := 0; i < len(calls)-1; i++ {
		left, right := &calls[i], &calls[i+1]
		leftEnd, rightStart := CutPoint(left, right, overlap)
		if leftEnd < from {
			leftEnd = from
		}
		out.Seq = append(out.Seq, left.Bases[from:leftEnd]...)
		out.Qual = append(out.Qual, left.Quals[from:leftEnd]...)
		from = rightStart
	}

	last := &calls[len(calls)-1]
	if from > len(last.Bases) {
		from = len(last.Bases)
	}
	out.Seq = append(out.Seq, last.Bases[from:]...)
	out.Qual = append(out.Qual, last.Quals[from:]...)
	return out
}
