// Package decode converts network probability matrices into called bases
// with per-base qualities and a move table. Two interchangeable decoders
// exist: Greedy (reference, one matrix at a time) and Fused (fans a whole
// batch across a worker pool). Both produce identical calls.
package decode

import (
	"fmt"
	"math"

	"github.com/strand-bio/squall/internal/kernels"
	"github.com/strand-bio/squall/internal/model"
)

// ChunkCall is the decoded result for one chunk: called bases, per-base
// qualities (printable phred, '!' offset), and the move table mapping each
// base to the time-step that emitted it. Start and Stride locate time-steps
// in the normalized signal for stitching.
type ChunkCall struct {
	Bases  []byte
	Quals  []byte
	Moves  []int32
	Start  int
	Stride int
}

// SamplePos returns the signal offset at which base i was emitted.
func (c *ChunkCall) SamplePos(i int) int {
	return c.Start + int(c.Moves[i])*c.Stride
}

// Decoder turns a batch of probability matrices into chunk calls,
// index-aligned with the input.
type Decoder interface {
	DecodeBatch(ms []model.ProbMatrix) ([]ChunkCall, error)

	// Name returns the decoder identifier for logging.
	Name() string
}

// Decoder identifiers accepted by New.
const (
	NameGreedy = "greedy"
	NameFused  = "fused"
)

// New selects a decoder implementation. The fused decoder shares the
// provided pool; a nil pool degrades it to inline execution.
func New(name, alphabet string, stride int, pool *model.Pool) (Decoder, error) {
	switch name {
	case NameGreedy:
		return &Greedy{alphabet: []byte(alphabet), stride: stride}, nil
	case NameFused:
		return &Fused{greedy: Greedy{alphabet: []byte(alphabet), stride: stride}, pool: pool}, nil
	default:
		return nil, fmt.Errorf("unknown decoder %q (want %s or %s)", name, NameGreedy, NameFused)
	}
}

// Greedy is the reference decoder: best-path collapse with a blank symbol
// at alphabet index 0.
type Greedy struct {
	alphabet []byte
	stride   int
}

func (d *Greedy) Name() string { return NameGreedy }

// DecodeBatch decodes matrices one at a time.
func (d *Greedy) DecodeBatch(ms []model.ProbMatrix) ([]ChunkCall, error) {
	out := make([]ChunkCall, len(ms))
	for i := range ms {
		out[i] = d.decodeOne(ms[i])
	}
	return out, nil
}

// decodeOne collapses the best path of one matrix. At each time-step the
// highest-probability symbol is taken; runs of the same non-blank symbol
// collapse to a single call, scored at their first emitting step. A matrix
// with zero time-steps yields a zero-length call.
func (d *Greedy) decodeOne(m model.ProbMatrix) ChunkCall {
	call := ChunkCall{Start: m.Start, Stride: d.stride}

	prev := 0 // blank
	for t := 0; t < m.Steps; t++ {
		row := m.Row(t)
		sym := kernels.ArgMax(row)
		if sym != 0 && sym != prev {
			call.Bases = append(call.Bases, d.alphabet[sym])
			call.Quals = append(call.Quals, phredChar(row[sym]))
			call.Moves = append(call.Moves, int32(t))
		}
		prev = sym
	}
	return call
}

// Fused decodes a whole batch at once across the worker pool. The contract
// is identical to Greedy per chunk.
type Fused struct {
	greedy Greedy
	pool   *model.Pool
}

func (d *Fused) Name() string { return NameFused }

// DecodeBatch fans the matrices across the pool.
func (d *Fused) DecodeBatch(ms []model.ProbMatrix) ([]ChunkCall, error) {
	out := make([]ChunkCall, len(ms))
	tasks := make([]func(), len(ms))
	for i := range ms {
		i := i
		tasks[i] = func() { out[i] = d.greedy.decodeOne(ms[i]) }
	}
	d.pool.Run(tasks...)
	return out, nil
}

// maxPhred caps the quality a greedy decode can claim.
const maxPhred = 50

// phredChar maps a log-probability to a printable phred character:
// q = -10*log10(1-p), clamped to [0, maxPhred], offset by '!'.
func phredChar(logProb float32) byte {
	p := math.Exp(float64(logProb))
	if p >= 1 {
		return '!' + maxPhred
	}
	q := int(math.Round(-10 * math.Log10(1-p)))
	if q < 0 {
		q = 0
	}
	if q > maxPhred {
		q = maxPhred
	}
	return byte('!' + q)
}
