// Package basecall is the high-level API for running the basecaller: open
// a model directory, feed it signal reads, get called sequences back.
package basecall

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/rs/zerolog"

	"github.com/strand-bio/squall/internal/decode"
	"github.com/strand-bio/squall/internal/model"
	"github.com/strand-bio/squall/internal/pipeline"
	"github.com/strand-bio/squall/internal/signal"
	"github.com/strand-bio/squall/internal/stitch"
)

// Read is one raw signal read: an identifier plus current samples.
type Read = signal.Read

// Result is the called sequence and quality string for one read.
type Result = stitch.Stitched

// Stats holds the counters and per-stage timings of a run.
type Stats = pipeline.Stats

// Source yields reads one at a time; Next returns io.EOF at end of input.
type Source interface {
	Next() (*Read, error)
	Close() error
}

// Sink receives called reads in input order.
type Sink interface {
	WriteRead(id string, seq, qual []byte) error
}

var (
	// ErrInvalidConfig is returned by Open before any input is touched.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrBackendFailure marks errors raised during model execution or
	// decoding rather than input or output handling.
	ErrBackendFailure = pipeline.ErrBackend
)

// Caller is an opened basecaller: a loaded model plus its runner fleet.
type Caller interface {
	// Run basecalls every read from in and writes results to out in
	// input order. The first error aborts the run; reads already
	// written remain valid.
	Run(ctx context.Context, in Source, out Sink) (*Stats, error)

	// CallRead basecalls a single read without an output sink.
	CallRead(ctx context.Context, read *Read) (Result, error)

	// Config reports the loaded model's architecture parameters.
	Config() model.Config

	// Close releases the weight mapping and worker pools.
	Close() error
}

// Options configures a Caller. Zero values select the defaults listed on
// each field; use the With* functions rather than building this directly.
type Options struct {
	// ChunkSize is the window length in samples (default 8000).
	ChunkSize int

	// Overlap is the number of samples shared by consecutive windows
	// (default 150). Must be smaller than ChunkSize.
	Overlap int

	// BatchSize is the number of chunks per model call (default 32).
	// Batches are filled across read boundaries.
	BatchSize int

	// Runners is the number of model runner instances (default 1).
	// Each runner executes one batch at a time; batches are spread
	// across runners as they come free.
	Runners int

	// TrimCap bounds the prefix scanned for the adapter-to-strand
	// transition (default 8000 samples).
	TrimCap int

	// Device selects the execution backend: "cpu" (serial reference,
	// default) or "parallel" (worker pool per runner).
	Device string

	// Decoder selects the decoder: "greedy" (default) or "fused".
	Decoder string

	// DebugBreak stops the run after this many batches when positive.
	// Reads whose chunks all ran are still emitted.
	DebugBreak int

	// Logger receives the per-stage timing summary. Defaults to a
	// no-op logger.
	Logger zerolog.Logger
}

// Option is a functional option for configuring the caller.
type Option func(*Options)

// WithChunkSize sets the window length in samples.
func WithChunkSize(n int) Option {
	return func(o *Options) { o.ChunkSize = n }
}

// WithOverlap sets the overlap between consecutive windows.
func WithOverlap(n int) Option {
	return func(o *Options) { o.Overlap = n }
}

// WithBatchSize sets the number of chunks per model call.
func WithBatchSize(n int) Option {
	return func(o *Options) { o.BatchSize = n }
}

// WithRunners sets the number of model runner instances.
func WithRunners(n int) Option {
	return func(o *Options) { o.Runners = n }
}

// WithTrimCap bounds the prefix scanned for signal trimming.
func WithTrimCap(n int) Option {
	return func(o *Options) { o.TrimCap = n }
}

// WithDevice selects the execution backend.
func WithDevice(device string) Option {
	return func(o *Options) { o.Device = device }
}

// WithDecoder selects the decoder implementation.
func WithDecoder(name string) Option {
	return func(o *Options) { o.Decoder = name }
}

// WithDebugBreak stops the run after n batches.
func WithDebugBreak(n int) Option {
	return func(o *Options) { o.DebugBreak = n }
}

// WithLogger sets the logger for run summaries.
func WithLogger(log zerolog.Logger) Option {
	return func(o *Options) { o.Logger = log }
}

type caller struct {
	net      *model.Network
	backends []model.Backend
	driver   *pipeline.Driver
	decPool  *model.Pool
	options  Options
}

// Open loads the model under modelDir and builds the runner fleet.
// Configuration is validated before any file is opened.
func Open(modelDir string, opts ...Option) (Caller, error) {
	options := Options{
		ChunkSize: 8000,
		Overlap:   150,
		BatchSize: 32,
		Runners:   1,
		TrimCap:   signal.DefaultTrimCap,
		Device:    model.DeviceCPU,
		Decoder:   decode.NameGreedy,
		Logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if err := validate(options); err != nil {
		return nil, err
	}

	net, err := model.Load(modelDir)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	// Split the CPU budget across runners so a multi-runner parallel
	// setup does not oversubscribe.
	workersPer := runtime.GOMAXPROCS(0) / options.Runners
	if workersPer < 1 {
		workersPer = 1
	}

	backends := make([]model.Backend, options.Runners)
	runners := make([]*model.Runner, options.Runners)
	for i := range runners {
		b, err := model.NewBackend(net, options.Device, workersPer)
		if err != nil {
			for _, prev := range backends[:i] {
				prev.Close()
			}
			net.Close()
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		backends[i] = b
		runners[i] = model.NewRunner(b)
	}

	cfg := net.Config()
	var decPool *model.Pool
	if options.Decoder == decode.NameFused {
		decPool = model.NewPool(workersPer)
	}
	dec, err := decode.New(options.Decoder, cfg.Alphabet, cfg.Stride, decPool)
	if err != nil {
		for _, b := range backends {
			b.Close()
		}
		decPool.Close()
		net.Close()
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	driver := pipeline.NewDriver(pipeline.Config{
		ChunkSize:  options.ChunkSize,
		Overlap:    options.Overlap,
		BatchSize:  options.BatchSize,
		TrimCap:    options.TrimCap,
		DebugBreak: options.DebugBreak,
	}, runners, dec, options.Logger)

	return &caller{
		net:      net,
		backends: backends,
		driver:   driver,
		decPool:  decPool,
		options:  options,
	}, nil
}

func validate(o Options) error {
	if o.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size %d, want > 0", ErrInvalidConfig, o.ChunkSize)
	}
	if o.Overlap < 0 || o.Overlap >= o.ChunkSize {
		return fmt.Errorf("%w: overlap %d, want within [0, %d)", ErrInvalidConfig, o.Overlap, o.ChunkSize)
	}
	if o.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size %d, want > 0", ErrInvalidConfig, o.BatchSize)
	}
	if o.Runners <= 0 {
		return fmt.Errorf("%w: runners %d, want > 0", ErrInvalidConfig, o.Runners)
	}
	if o.DebugBreak < 0 {
		return fmt.Errorf("%w: debug break %d, want >= 0", ErrInvalidConfig, o.DebugBreak)
	}
	return nil
}

func (c *caller) Run(ctx context.Context, in Source, out Sink) (*Stats, error) {
	return c.driver.Run(ctx, in, out)
}

func (c *caller) CallRead(ctx context.Context, read *Read) (Result, error) {
	return c.driver.CallRead(ctx, read)
}

func (c *caller) Config() model.Config { return c.net.Config() }

func (c *caller) Close() error {
	for _, b := range c.backends {
		b.Close()
	}
	c.decPool.Close()
	return c.net.Close()
}
