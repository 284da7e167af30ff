package sigio

import (
	"fmt"
	"io"
	"sort"

	"github.com/sbinet/npyio/npz"

	"github.com/strand-bio/squall/internal/signal"
)

// NpzReader reads a numpy .npz archive holding one 1-D samples array per
// read, keyed by read id. Keys are visited in sorted order so runs are
// reproducible regardless of archive layout.
type NpzReader struct {
	r    *npz.Reader
	keys []string
	next int
}

// OpenNpz opens a .npz signal archive.
func OpenNpz(path string) (*NpzReader, error) {
	r, err := npz.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open npz: %w", err)
	}
	keys := append([]string(nil), r.Keys()...)
	sort.Strings(keys)
	return &NpzReader{r: r, keys: keys}, nil
}

// Next returns the next read, or io.EOF when the archive is exhausted.
func (n *NpzReader) Next() (*signal.Read, error) {
	if n.next >= len(n.keys) {
		return nil, io.EOF
	}
	key := n.keys[n.next]
	n.next++

	samples, err := n.readArray(key)
	if err != nil {
		return nil, fmt.Errorf("npz array %q: %w", key, err)
	}
	return &signal.Read{ID: trimNpyExt(key), Samples: samples}, nil
}

// readArray loads one array, accepting the dtypes signal files come in.
func (n *NpzReader) readArray(key string) ([]float32, error) {
	var f32 []float32
	if err := n.r.Read(key, &f32); err == nil {
		return f32, nil
	}

	var f64 []float64
	if err := n.r.Read(key, &f64); err == nil {
		out := make([]float32, len(f64))
		for i, v := range f64 {
			out[i] = float32(v)
		}
		return out, nil
	}

	var i16 []int16
	if err := n.r.Read(key, &i16); err == nil {
		out := make([]float32, len(i16))
		for i, v := range i16 {
			out[i] = float32(v)
		}
		return out, nil
	}

	var i32 []int32
	if err := n.r.Read(key, &i32); err != nil {
		return nil, fmt.Errorf("unsupported dtype: %w", err)
	}
	out := make([]float32, len(i32))
	for i, v := range i32 {
		out[i] = float32(v)
	}
	return out, nil
}

// Close closes the archive.
func (n *NpzReader) Close() error { return n.r.Close() }

// trimNpyExt strips the ".npy" suffix numpy adds to member names.
func trimNpyExt(key string) string {
	const ext = ".npy"
	if len(key) > len(ext) && key[len(key)-len(ext):] == ext {
		return key[:len(key)-len(ext)]
	}
	return key
}
