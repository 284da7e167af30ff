//go:build amd64

package kernels

import "golang.org/x/sys/cpu"

// CPU feature flags
var (
	hasAVX2   = cpu.X86.HasAVX2
	hasAVX512 = cpu.X86.HasAVX512F
)

// matmulBlock is the tiling block size for MatMulF32. Wider vector units
// sustain larger tiles before the working set falls out of L1.
var matmulBlock = pickMatmulBlock()

func pickMatmulBlock() int {
	switch {
	case hasAVX512:
		return 32
	case hasAVX2:
		return 16
	default:
		return 8
	}
}
