// Package pipeline drives a full basecalling run: reads stream in,
// normalized signal is split into overlapping chunks, chunks are batched
// across read boundaries and dispatched to model runners, decoded calls
// are reassembled per read, and finished reads are written in input
// order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/strand-bio/squall/internal/decode"
	"github.com/strand-bio/squall/internal/model"
	"github.com/strand-bio/squall/internal/signal"
	"github.com/strand-bio/squall/internal/sigio"
	"github.com/strand-bio/squall/internal/stitch"
	"github.com/strand-bio/squall/internal/writer"
)

// ErrBackend marks failures raised while a batch was executing or being
// decoded, as opposed to input or output errors.
var ErrBackend = errors.New("backend execution failed")

// Config carries the knobs the driver needs. Validation happens at the
// API layer before a Driver is built.
type Config struct {
	ChunkSize int
	Overlap   int
	BatchSize int
	TrimCap   int
	// DebugBreak stops dispatch after this many batches when positive.
	// Reads whose chunks all ran are still stitched and emitted.
	DebugBreak int
}

// Driver owns the runner fleet and decoder for the lifetime of a run.
type Driver struct {
	cfg     Config
	runners []*model.Runner
	dec     decode.Decoder
	log     zerolog.Logger
}

func NewDriver(cfg Config, runners []*model.Runner, dec decode.Decoder, log zerolog.Logger) *Driver {
	return &Driver{cfg: cfg, runners: runners, dec: dec, log: log}
}

// chunkRef ties a chunk in flight back to its read so decoded calls can
// be slotted into place regardless of which runner handled the batch.
type chunkRef struct {
	read  *readState
	index int
	chunk signal.Chunk
}

type readState struct {
	order int
	id    string
	calls []decode.ChunkCall
	left  int
}

// Run consumes every read from in and writes called reads to out.
// Output order matches input order even when batches complete out of
// order across runners. The first error aborts the run; reads already
// written remain valid.
func (d *Driver) Run(ctx context.Context, in sigio.Reader, out writer.Emitter) (*Stats, error) {
	st := &Stats{}
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	batchCh := make(chan []chunkRef, len(d.runners))
	em := &emitter{out: out, overlap: d.cfg.Overlap, ready: make(map[int]result)}

	var wg sync.WaitGroup
	errCh := make(chan error, len(d.runners))
	for _, r := range d.runners {
		wg.Add(1)
		go func(r *model.Runner) {
			defer wg.Done()
			if err := d.consume(ctx, r, batchCh, em, st); err != nil {
				select {
				case errCh <- err:
				default:
				}
				cancel()
			}
		}(r)
	}

	prodErr := d.produce(ctx, in, batchCh, em, st)
	close(batchCh)
	wg.Wait()

	st.Log(d.log, time.Since(start))

	if prodErr != nil {
		return st, prodErr
	}
	select {
	case err := <-errCh:
		return st, err
	default:
	}
	return st, nil
}

// produce ingests reads, preprocesses and chunks them, and fills
// batches up to BatchSize chunks. Batches cross read boundaries so
// runners stay saturated on short reads.
func (d *Driver) produce(ctx context.Context, in sigio.Reader, batchCh chan<- []chunkRef, em *emitter, st *Stats) error {
	cur := make([]chunkRef, 0, d.cfg.BatchSize)
	sent := 0
	order := 0

	// send flushes the current batch; it reports false when the run
	// should stop dispatching (cancellation or debug break).
	send := func() bool {
		if len(cur) == 0 {
			return true
		}
		select {
		case batchCh <- cur:
		case <-ctx.Done():
			return false
		}
		st.Batches.Add(1)
		cur = make([]chunkRef, 0, d.cfg.BatchSize)
		sent++
		return d.cfg.DebugBreak <= 0 || sent < d.cfg.DebugBreak
	}

	for {
		t0 := time.Now()
		read, err := in.Next()
		st.add(&st.readNs, t0)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		st.Reads.Add(1)
		st.Samples.Add(int64(len(read.Samples)))

		t0 = time.Now()
		norm := signal.Preprocess(read, d.cfg.TrimCap)
		st.add(&st.preprocessNs, t0)

		t0 = time.Now()
		chunks := signal.CollectChunks(norm.Samples, d.cfg.ChunkSize, d.cfg.Overlap)
		st.add(&st.chunkNs, t0)
		st.Chunks.Add(int64(len(chunks)))

		rs := &readState{
			order: order,
			id:    read.ID,
			calls: make([]decode.ChunkCall, len(chunks)),
			left:  len(chunks),
		}
		order++

		if len(chunks) == 0 {
			// Nothing survived trimming; emit an empty record so the
			// read is still accounted for downstream.
			if err := em.complete(rs.order, rs.id, stitch.Stitched{}, st); err != nil {
				return err
			}
			continue
		}

		for i, c := range chunks {
			cur = append(cur, chunkRef{read: rs, index: i, chunk: c})
			if len(cur) == d.cfg.BatchSize {
				if !send() {
					return nil
				}
			}
		}
	}
	send()
	return nil
}

func (d *Driver) consume(ctx context.Context, r *model.Runner, batchCh <-chan []chunkRef, em *emitter, st *Stats) error {
	for refs := range batchCh {
		chunks := make([]signal.Chunk, len(refs))
		for i, ref := range refs {
			chunks[i] = ref.chunk
		}

		t0 := time.Now()
		mats, err := r.Run(ctx, chunks)
		st.add(&st.callNs, t0)
		if err != nil {
			return fmt.Errorf("model call (batch of %d chunks, first read %s): %w: %w",
				len(refs), refs[0].read.id, ErrBackend, err)
		}

		t0 = time.Now()
		calls, err := d.dec.DecodeBatch(mats)
		st.add(&st.decodeNs, t0)
		if err != nil {
			return fmt.Errorf("decode: %w: %w", ErrBackend, err)
		}

		if err := em.deliver(refs, calls, st); err != nil {
			return err
		}
	}
	return nil
}

// CallRead runs the full chain for a single read on the first runner
// and returns the stitched call without touching any output sink.
func (d *Driver) CallRead(ctx context.Context, read *signal.Read) (stitch.Stitched, error) {
	norm := signal.Preprocess(read, d.cfg.TrimCap)
	chunks := signal.CollectChunks(norm.Samples, d.cfg.ChunkSize, d.cfg.Overlap)
	if len(chunks) == 0 {
		return stitch.Stitched{}, nil
	}

	calls := make([]decode.ChunkCall, 0, len(chunks))
	for lo := 0; lo < len(chunks); lo += d.cfg.BatchSize {
		hi := lo + d.cfg.BatchSize
		if hi > len(chunks) {
			hi = len(chunks)
		}
		mats, err := d.runners[0].Run(ctx, chunks[lo:hi])
		if err != nil {
			return stitch.Stitched{}, fmt.Errorf("model call: %w", err)
		}
		batch, err := d.dec.DecodeBatch(mats)
		if err != nil {
			return stitch.Stitched{}, fmt.Errorf("decode: %w", err)
		}
		calls = append(calls, batch...)
	}
	return stitch.Stitch(calls, d.cfg.Overlap), nil
}

type result struct {
	id  string
	res stitch.Stitched
}

// emitter reorders finished reads back into input order before writing.
type emitter struct {
	mu      sync.Mutex
	out     writer.Emitter
	overlap int
	next    int
	ready   map[int]result
}

// deliver slots decoded calls into their reads and stitches any read
// whose last chunk just arrived.
func (e *emitter) deliver(refs []chunkRef, calls []decode.ChunkCall, st *Stats) error {
	var done []*readState
	e.mu.Lock()
	for i, ref := range refs {
		ref.read.calls[ref.index] = calls[i]
		ref.read.left--
		if ref.read.left == 0 {
			done = append(done, ref.read)
		}
	}
	e.mu.Unlock()

	for _, rs := range done {
		t0 := time.Now()
		res := stitch.Stitch(rs.calls, e.overlap)
		st.add(&st.stitchNs, t0)
		if err := e.complete(rs.order, rs.id, res, st); err != nil {
			return err
		}
	}
	return nil
}

// complete parks a finished read and flushes the longest prefix of
// consecutive reads starting at the next expected position.
func (e *emitter) complete(order int, id string, res stitch.Stitched, st *Stats) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ready[order] = result{id: id, res: res}
	for {
		r, ok := e.ready[e.next]
		if !ok {
			return nil
		}
		delete(e.ready, e.next)
		e.next++
		t0 := time.Now()
		err := e.out.WriteRead(r.id, r.res.Seq, r.res.Qual)
		st.add(&st.writeNs, t0)
		if err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
}
