package squall

import (
	"context"

	"github.com/strand-bio/squall/pkg/basecall"
)

// Read is one raw signal read.
type Read = basecall.Read

// Result is the called sequence and quality string for one read.
type Result = basecall.Result

// Stats holds the counters and per-stage timings of a run.
type Stats = basecall.Stats

// Source yields reads one at a time; Next returns io.EOF at end of input.
type Source = basecall.Source

// Sink receives called reads in input order.
type Sink = basecall.Sink

// Option configures the caller.
type Option = basecall.Option

// Option helpers for configuring the caller.
var (
	WithChunkSize  = basecall.WithChunkSize
	WithOverlap    = basecall.WithOverlap
	WithBatchSize  = basecall.WithBatchSize
	WithRunners    = basecall.WithRunners
	WithTrimCap    = basecall.WithTrimCap
	WithDevice     = basecall.WithDevice
	WithDecoder    = basecall.WithDecoder
	WithDebugBreak = basecall.WithDebugBreak
	WithLogger     = basecall.WithLogger
)

// Sentinel errors for classifying failures.
var (
	ErrInvalidConfig  = basecall.ErrInvalidConfig
	ErrBackendFailure = basecall.ErrBackendFailure
)

// Caller wraps the underlying basecaller and exposes a simplified API.
type Caller struct {
	inner basecall.Caller
}

// Open loads the model under modelDir and returns a Caller.
func Open(modelDir string, opts ...Option) (*Caller, error) {
	c, err := basecall.Open(modelDir, opts...)
	if err != nil {
		return nil, err
	}
	return &Caller{inner: c}, nil
}

// Run basecalls every read from in and writes results to out in input
// order.
func (c *Caller) Run(ctx context.Context, in Source, out Sink) (*Stats, error) {
	return c.inner.Run(ctx, in, out)
}

// CallRead basecalls a single read without an output sink.
func (c *Caller) CallRead(ctx context.Context, read *Read) (Result, error) {
	return c.inner.CallRead(ctx, read)
}

// Alphabet reports the loaded model's symbol alphabet, blank first.
func (c *Caller) Alphabet() string {
	return c.inner.Config().Alphabet
}

// Stride reports how many signal samples one model time-step spans.
func (c *Caller) Stride() int {
	return c.inner.Config().Stride
}

// Close releases the model mapping and worker pools.
func (c *Caller) Close() error {
	return c.inner.Close()
}

// Inner exposes the underlying caller for advanced integrations.
func (c *Caller) Inner() basecall.Caller {
	return c.inner
}
