// Package writer formats called reads as FASTQ or FASTA text.
package writer

import (
	"fmt"

	"github.com/shenwei356/xopen"
)

// Emitter receives finished reads. The pipeline emits through this
// interface so callers can substitute their own sink.
type Emitter interface {
	WriteRead(id string, seq, qual []byte) error
}

// Fastx writes FASTQ (or FASTA) records. Output goes through xopen, so
// "-" means stdout and a .gz suffix compresses transparently.
type Fastx struct {
	fh    *xopen.Writer
	fastq bool
}

// New opens path for writing. fastq selects FASTQ output; otherwise FASTA
// (qualities are dropped).
func New(path string, fastq bool) (*Fastx, error) {
	fh, err := xopen.Wopen(path)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	return &Fastx{fh: fh, fastq: fastq}, nil
}

// WriteRead writes one record.
func (w *Fastx) WriteRead(id string, seq, qual []byte) error {
	var err error
	if w.fastq {
		_, err = fmt.Fprintf(w.fh, "@%s\n%s\n+\n%s\n", id, seq, qual)
	} else {
		_, err = fmt.Fprintf(w.fh, ">%s\n%s\n", id, seq)
	}
	if err != nil {
		return fmt.Errorf("write read %s: %w", id, err)
	}
	return nil
}

// Close flushes and closes the output.
func (w *Fastx) Close() error { return w.fh.Close() }
