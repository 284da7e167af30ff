package sqw

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/exp/mmap"
)

// Reader provides read access to an SQW file via memory mapping.
type Reader struct {
	path     string
	mmap     *mmap.ReaderAt
	data     []byte
	metadata map[string]any
	tensors  map[string]*TensorDesc
	dataOff  int64 // offset where the tensor data section begins
}

// Open opens an SQW file and memory-maps it.
func Open(path string) (*Reader, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	mmapReader, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mmap file: %w", err)
	}

	data := make([]byte, info.Size())
	if _, err := mmapReader.ReadAt(data, 0); err != nil {
		mmapReader.Close()
		return nil, fmt.Errorf("read mmap: %w", err)
	}

	r := &Reader{
		path:     path,
		mmap:     mmapReader,
		data:     data,
		metadata: make(map[string]any),
		tensors:  make(map[string]*TensorDesc),
	}

	if err := r.parse(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// Close unmaps the file.
func (r *Reader) Close() error {
	if r.mmap != nil {
		err := r.mmap.Close()
		r.mmap = nil
		return err
	}
	return nil
}

// parse reads the header, metadata, and tensor table.
func (r *Reader) parse() error {
	off := 0

	if len(r.data) < 24 {
		return fmt.Errorf("file too small for header")
	}

	magic := byteOrder.Uint32(r.data[off:])
	off += 4
	if magic != Magic {
		return fmt.Errorf("invalid magic: 0x%08x", magic)
	}

	version := byteOrder.Uint32(r.data[off:])
	off += 4
	if version != Version {
		return fmt.Errorf("unsupported version: %d", version)
	}

	metaCount := byteOrder.Uint64(r.data[off:])
	off += 8
	tensorCount := byteOrder.Uint64(r.data[off:])
	off += 8

	for i := uint64(0); i < metaCount; i++ {
		key, n, err := r.readString(off)
		if err != nil {
			return fmt.Errorf("metadata key %d: %w", i, err)
		}
		off += n

		if off+4 > len(r.data) {
			return fmt.Errorf("metadata %q: truncated type", key)
		}
		mt := MetaType(byteOrder.Uint32(r.data[off:]))
		off += 4

		switch mt {
		case MetaString:
			val, n, err := r.readString(off)
			if err != nil {
				return fmt.Errorf("metadata %q: %w", key, err)
			}
			off += n
			r.metadata[key] = val
		case MetaUint32:
			if off+4 > len(r.data) {
				return fmt.Errorf("metadata %q: truncated value", key)
			}
			r.metadata[key] = byteOrder.Uint32(r.data[off:])
			off += 4
		case MetaFloat32:
			if off+4 > len(r.data) {
				return fmt.Errorf("metadata %q: truncated value", key)
			}
			bits := byteOrder.Uint32(r.data[off:])
			r.metadata[key] = *(*float32)(unsafe.Pointer(&bits))
			off += 4
		default:
			return fmt.Errorf("metadata %q: unknown type %d", key, mt)
		}
	}

	for i := uint64(0); i < tensorCount; i++ {
		name, n, err := r.readString(off)
		if err != nil {
			return fmt.Errorf("tensor %d: %w", i, err)
		}
		off += n

		if off+8 > len(r.data) {
			return fmt.Errorf("tensor %q: truncated descriptor", name)
		}
		dtype := DType(byteOrder.Uint32(r.data[off:]))
		off += 4
		ndims := int(byteOrder.Uint32(r.data[off:]))
		off += 4

		if ndims <= 0 || ndims > 8 {
			return fmt.Errorf("tensor %q: bad rank %d", name, ndims)
		}
		if off+8*ndims+16 > len(r.data) {
			return fmt.Errorf("tensor %q: truncated shape", name)
		}
		shape := make([]int, ndims)
		for d := 0; d < ndims; d++ {
			shape[d] = int(byteOrder.Uint64(r.data[off:]))
			off += 8
		}
		offset := int64(byteOrder.Uint64(r.data[off:]))
		off += 8
		size := int64(byteOrder.Uint64(r.data[off:]))
		off += 8

		r.tensors[name] = &TensorDesc{
			Name:   name,
			DType:  dtype,
			Shape:  shape,
			Offset: offset,
			Size:   size,
		}
	}

	r.dataOff = align(int64(off))
	return nil
}

func (r *Reader) readString(off int) (string, int, error) {
	if off+8 > len(r.data) {
		return "", 0, fmt.Errorf("truncated string length")
	}
	n := int(byteOrder.Uint64(r.data[off:]))
	if n < 0 || off+8+n > len(r.data) {
		return "", 0, fmt.Errorf("truncated string of length %d", n)
	}
	return string(r.data[off+8 : off+8+n]), 8 + n, nil
}

// GetMetadata returns a metadata value by key.
func (r *Reader) GetMetadata(key string) (any, bool) {
	v, ok := r.metadata[key]
	return v, ok
}

// MetaUint32 returns a uint32 metadata value, or the fallback if absent.
func (r *Reader) MetaUint32(key string, fallback uint32) uint32 {
	if v, ok := r.metadata[key]; ok {
		if u, ok := v.(uint32); ok {
			return u
		}
	}
	return fallback
}

// MetaString returns a string metadata value, or the fallback if absent.
func (r *Reader) MetaString(key, fallback string) string {
	if v, ok := r.metadata[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

// GetTensor returns a tensor descriptor by name.
func (r *Reader) GetTensor(name string) (*TensorDesc, bool) {
	d, ok := r.tensors[name]
	return d, ok
}

// ListTensors returns all tensor names.
func (r *Reader) ListTensors() []string {
	names := make([]string, 0, len(r.tensors))
	for name := range r.tensors {
		names = append(names, name)
	}
	return names
}

// TensorF32 returns a tensor's data as a []float32 view into the mapped
// file. The slice aliases the reader's memory and is valid until Close.
func (r *Reader) TensorF32(name string) ([]float32, error) {
	desc, ok := r.tensors[name]
	if !ok {
		return nil, fmt.Errorf("tensor not found: %s", name)
	}
	if desc.DType != DTypeF32 {
		return nil, fmt.Errorf("tensor %s is not F32: %s", name, desc.DType)
	}

	start := r.dataOff + desc.Offset
	end := start + desc.Size
	if start < 0 || end > int64(len(r.data)) {
		return nil, fmt.Errorf("tensor %s: data out of range", name)
	}
	n := desc.NumElements()
	if int64(n*4) != desc.Size {
		return nil, fmt.Errorf("tensor %s: size %d does not match shape", name, desc.Size)
	}
	if n == 0 {
		return nil, nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&r.data[start])), n), nil
}
