package sqw

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"sort"
)

// Writer builds an SQW file in memory and flushes it on Close.
// Metadata and tensors are written in sorted key order so output is
// reproducible.
type Writer struct {
	path     string
	metadata map[string]any
	tensors  []*writerTensor
}

type writerTensor struct {
	desc TensorDesc
	data []float32
}

// NewWriter creates a writer targeting path.
func NewWriter(path string) *Writer {
	return &Writer{
		path:     path,
		metadata: make(map[string]any),
	}
}

// SetMetaString sets a string metadata value.
func (w *Writer) SetMetaString(key, val string) {
	w.metadata[key] = val
}

// SetMetaUint32 sets a uint32 metadata value.
func (w *Writer) SetMetaUint32(key string, val uint32) {
	w.metadata[key] = val
}

// SetMetaFloat32 sets a float32 metadata value.
func (w *Writer) SetMetaFloat32(key string, val float32) {
	w.metadata[key] = val
}

// AddTensorF32 adds an F32 tensor. The data slice is retained until Close.
func (w *Writer) AddTensorF32(name string, shape []int, data []float32) error {
	n := 1
	for _, s := range shape {
		if s <= 0 {
			return fmt.Errorf("tensor %s: bad dimension %d", name, s)
		}
		n *= s
	}
	if n != len(data) {
		return fmt.Errorf("tensor %s: shape wants %d elements, got %d", name, n, len(data))
	}
	for _, t := range w.tensors {
		if t.desc.Name == name {
			return fmt.Errorf("tensor %s: duplicate name", name)
		}
	}
	w.tensors = append(w.tensors, &writerTensor{
		desc: TensorDesc{
			Name:  name,
			DType: DTypeF32,
			Shape: append([]int(nil), shape...),
			Size:  int64(len(data) * 4),
		},
		data: data,
	})
	return nil
}

// Close assigns tensor offsets, writes the file, and syncs it to disk.
func (w *Writer) Close() error {
	sort.Slice(w.tensors, func(i, j int) bool {
		return w.tensors[i].desc.Name < w.tensors[j].desc.Name
	})

	var off int64
	for _, t := range w.tensors {
		t.desc.Offset = off
		off = align(off + t.desc.Size)
	}

	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	bw := bufio.NewWriter(f)

	written := int64(0)
	put := func(buf []byte) {
		bw.Write(buf)
		written += int64(len(buf))
	}
	putU32 := func(v uint32) {
		var buf [4]byte
		byteOrder.PutUint32(buf[:], v)
		put(buf[:])
	}
	putU64 := func(v uint64) {
		var buf [8]byte
		byteOrder.PutUint64(buf[:], v)
		put(buf[:])
	}
	putString := func(s string) {
		putU64(uint64(len(s)))
		put([]byte(s))
	}

	putU32(Magic)
	putU32(Version)
	putU64(uint64(len(w.metadata)))
	putU64(uint64(len(w.tensors)))

	keys := make([]string, 0, len(w.metadata))
	for k := range w.metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		putString(k)
		switch v := w.metadata[k].(type) {
		case string:
			putU32(uint32(MetaString))
			putString(v)
		case uint32:
			putU32(uint32(MetaUint32))
			putU32(v)
		case float32:
			putU32(uint32(MetaFloat32))
			putU32(math.Float32bits(v))
		default:
			f.Close()
			os.Remove(w.path)
			return fmt.Errorf("metadata %q: unsupported type %T", k, v)
		}
	}

	for _, t := range w.tensors {
		putString(t.desc.Name)
		putU32(uint32(t.desc.DType))
		putU32(uint32(len(t.desc.Shape)))
		for _, d := range t.desc.Shape {
			putU64(uint64(d))
		}
		putU64(uint64(t.desc.Offset))
		putU64(uint64(t.desc.Size))
	}

	// Pad to the aligned start of the data section.
	for target := align(written); written < target; {
		put([]byte{0})
	}

	var cursor int64
	var scratch [4]byte
	for _, t := range w.tensors {
		for cursor < t.desc.Offset {
			put([]byte{0})
			cursor++
		}
		for _, v := range t.data {
			byteOrder.PutUint32(scratch[:], math.Float32bits(v))
			bw.Write(scratch[:])
		}
		cursor += t.desc.Size
	}

	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}
