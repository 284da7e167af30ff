//go:build !amd64 && !arm64

package kernels

// Conservative tiling on platforms without detected vector units.
var matmulBlock = 8
