package model

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// ProbMatrix is the network output for one window: Steps rows of Symbols
// log-probabilities. Start is the window's offset in the normalized signal,
// attached by the runner.
type ProbMatrix struct {
	Start   int
	Steps   int
	Symbols int
	Data    []float32 // [Steps * Symbols]
}

// Row returns the log-probability row for time-step t.
func (m ProbMatrix) Row(t int) []float32 {
	return m.Data[t*m.Symbols : (t+1)*m.Symbols]
}

// Backend executes batched forward passes. Implementations must return one
// ProbMatrix per input window, index-aligned with the batch.
type Backend interface {
	Forward(ctx context.Context, windows [][]float32) ([]ProbMatrix, error)

	// Name returns the backend identifier for logging.
	Name() string

	// Close releases backend resources such as worker pools.
	Close()
}

// Backend identifiers accepted by NewBackend.
const (
	DeviceCPU      = "cpu"
	DeviceParallel = "parallel"
)

// NewBackend selects an execution backend for the network. workers bounds
// the parallel backend's pool; <=0 means GOMAXPROCS.
func NewBackend(net *Network, device string, workers int) (Backend, error) {
	switch device {
	case DeviceCPU:
		return &serialBackend{net: net}, nil
	case DeviceParallel:
		if workers <= 0 {
			workers = runtime.GOMAXPROCS(0)
		}
		return &parallelBackend{net: net, pool: NewPool(workers)}, nil
	default:
		return nil, fmt.Errorf("unknown device %q (want %s or %s)", device, DeviceCPU, DeviceParallel)
	}
}

// serialBackend is the reference backend: windows run one at a time.
type serialBackend struct {
	net *Network
}

func (b *serialBackend) Name() string { return DeviceCPU }

func (b *serialBackend) Close() {}

func (b *serialBackend) Forward(ctx context.Context, windows [][]float32) ([]ProbMatrix, error) {
	out := make([]ProbMatrix, len(windows))
	for i, w := range windows {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		out[i] = b.net.forward(w)
	}
	return out, nil
}

// parallelBackend fans a batch across a fixed worker pool. Output order is
// still index-aligned with the input.
type parallelBackend struct {
	net  *Network
	pool *Pool
}

func (b *parallelBackend) Name() string { return DeviceParallel }

func (b *parallelBackend) Close() { b.pool.Close() }

func (b *parallelBackend) Forward(ctx context.Context, windows [][]float32) ([]ProbMatrix, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	out := make([]ProbMatrix, len(windows))
	tasks := make([]func(), len(windows))
	for i := range windows {
		i := i
		tasks[i] = func() { out[i] = b.net.forward(windows[i]) }
	}
	b.pool.Run(tasks...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Pool is a fixed-size worker pool for parallel task execution. A nil Pool
// runs tasks serially. Buffered job channel (3x worker count) keeps
// submission from blocking under fan-out.
type Pool struct {
	jobs chan poolJob
}

type poolJob struct {
	fn func()
	wg *sync.WaitGroup
}

// NewPool starts size workers. Returns nil for size <= 1, which callers can
// still use (tasks run inline).
func NewPool(size int) *Pool {
	if size <= 1 {
		return nil
	}
	p := &Pool{jobs: make(chan poolJob, size*3)}
	for i := 0; i < size; i++ {
		go func() {
			for job := range p.jobs {
				job.fn()
				job.wg.Done()
			}
		}()
	}
	return p
}

// Run executes tasks and waits for all of them to finish.
func (p *Pool) Run(tasks ...func()) {
	if p == nil {
		for _, task := range tasks {
			if task != nil {
				task()
			}
		}
		return
	}
	var wg sync.WaitGroup
	for _, task := range tasks {
		if task == nil {
			continue
		}
		wg.Add(1)
		p.jobs <- poolJob{fn: task, wg: &wg}
	}
	wg.Wait()
}

// Close stops the pool's workers.
func (p *Pool) Close() {
	if p != nil {
		close(p.jobs)
	}
}
