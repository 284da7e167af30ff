package pipeline

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Stats accumulates run counters and per-stage wall time. Stage times
// overlap when runners execute concurrently; they are a profile, not a
// partition of the total.
type Stats struct {
	Reads   atomic.Int64
	Samples atomic.Int64
	Chunks  atomic.Int64
	Batches atomic.Int64

	readNs       atomic.Int64
	preprocessNs atomic.Int64
	chunkNs      atomic.Int64
	callNs       atomic.Int64
	decodeNs     atomic.Int64
	stitchNs     atomic.Int64
	writeNs      atomic.Int64
}

func (s *Stats) add(dst *atomic.Int64, since time.Time) {
	dst.Add(int64(time.Since(since)))
}

// Log writes the performance summary the way the CLI reports it.
func (s *Stats) Log(log zerolog.Logger, total time.Duration) {
	samplesPerSec := float64(0)
	if total > 0 {
		samplesPerSec = float64(s.Samples.Load()) / total.Seconds()
	}
	log.Info().
		Int64("reads", s.Reads.Load()).
		Int64("samples", s.Samples.Load()).
		Int64("chunks", s.Chunks.Load()).
		Int64("batches", s.Batches.Load()).
		Dur("read", time.Duration(s.readNs.Load())).
		Dur("preprocess", time.Duration(s.preprocessNs.Load())).
		Dur("chunk", time.Duration(s.chunkNs.Load())).
		Dur("call", time.Duration(s.callNs.Load())).
		Dur("decode", time.Duration(s.decodeNs.Load())).
		Dur("stitch", time.Duration(s.stitchNs.Load())).
		Dur("write", time.Duration(s.writeNs.Load())).
		Dur("total", total).
		Float64("samples_per_sec", samplesPerSec).
		Msg("run complete")
}
