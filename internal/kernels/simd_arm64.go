//go:build arm64

package kernels

import "golang.org/x/sys/cpu"

// CPU feature flags for ARM64
var (
	hasNEON = cpu.ARM64.HasASIMD // always available on ARM64
)

// matmulBlock is the tiling block size for MatMulF32.
var matmulBlock = pickMatmulBlock()

func pickMatmulBlock() int {
	if hasNEON {
		return 16
	}
	return 8
}
