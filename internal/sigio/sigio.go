// Package sigio reads and writes raw signal files. Two formats are
// supported: .sig, a snappy-framed record stream with per-record checksums,
// and .npz, a numpy archive holding one samples array per read (array name
// is the read id).
package sigio

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/strand-bio/squall/internal/signal"
)

// Reader yields one read per call. Next returns io.EOF at end of input;
// any other error aborts the run.
type Reader interface {
	Next() (*signal.Read, error)
	Close() error
}

// Open dispatches on the file extension.
func Open(path string) (Reader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sig":
		return OpenSig(path)
	case ".npz":
		return OpenNpz(path)
	default:
		return nil, fmt.Errorf("unsupported signal format %q (want .sig or .npz)", filepath.Ext(path))
	}
}
