package model

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/strand-bio/squall/internal/signal"
)

// ErrEmptyBatch is returned when a batch with no usable chunks is submitted.
var ErrEmptyBatch = errors.New("empty batch")

// Runner owns one backend instance and serializes access to it: while one
// batch is in flight, no concurrent call into the same Runner executes.
// Multiple Runners over the same Network run independently.
type Runner struct {
	mu      sync.Mutex
	backend Backend
}

// NewRunner wraps a backend.
func NewRunner(b Backend) *Runner {
	return &Runner{backend: b}
}

// Backend returns the wrapped backend.
func (r *Runner) Backend() Backend { return r.backend }

// Run executes one batch of chunks and returns probability matrices
// index-aligned with the input, each carrying its chunk's start offset.
// A malformed batch is rejected before touching the backend; a backend
// failure aborts the whole batch.
func (r *Runner) Run(ctx context.Context, chunks []signal.Chunk) ([]ProbMatrix, error) {
	if len(chunks) == 0 {
		return nil, ErrEmptyBatch
	}
	for i, c := range chunks {
		if len(c.Samples) == 0 {
			return nil, fmt.Errorf("%w: chunk %d has no samples", ErrEmptyBatch, i)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	windows := make([][]float32, len(chunks))
	for i, c := range chunks {
		windows[i] = c.Samples
	}

	matrices, err := r.backend.Forward(ctx, windows)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", r.backend.Name(), err)
	}
	if len(matrices) != len(chunks) {
		return nil, fmt.Errorf("backend %s: returned %d matrices for %d chunks",
			r.backend.Name(), len(matrices), len(chunks))
	}
	for i := range matrices {
		matrices[i].Start = chunks[i].Start
	}
	return matrices, nil
}
