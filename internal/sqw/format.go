// Package sqw reads and writes SQW model weight containers.
//
// An SQW file is a flat binary container: header, string-keyed metadata,
// tensor descriptor table, then an aligned tensor data section. All
// integers are little-endian.
package sqw

import (
	"encoding/binary"
	"fmt"
)

const (
	// Magic is "SQWF" interpreted as a little-endian uint32.
	Magic uint32 = 0x46575153

	// Version is the current container version.
	Version uint32 = 1

	// Alignment of the tensor data section.
	dataAlign = 32
)

var byteOrder = binary.LittleEndian

// DType identifies a tensor element type.
type DType uint32

const (
	DTypeF32 DType = 0
)

func (d DType) String() string {
	switch d {
	case DTypeF32:
		return "F32"
	default:
		return fmt.Sprintf("DType(%d)", uint32(d))
	}
}

// elemSize returns the byte size of one element.
func (d DType) elemSize() int {
	switch d {
	case DTypeF32:
		return 4
	default:
		return 0
	}
}

// MetaType identifies a metadata value type.
type MetaType uint32

const (
	MetaString MetaType = 0
	MetaUint32 MetaType = 1
	MetaFloat32 MetaType = 2
)

// TensorDesc describes a tensor and its location in the data section.
type TensorDesc struct {
	Name   string
	DType  DType
	Shape  []int
	Offset int64 // offset into the data section
	Size   int64 // size in bytes
}

// NumElements returns the total element count of the tensor.
func (d *TensorDesc) NumElements() int {
	n := 1
	for _, s := range d.Shape {
		n *= s
	}
	return n
}

func align(n int64) int64 {
	return (n + dataAlign - 1) / dataAlign * dataAlign
}
