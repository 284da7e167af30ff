// Package kernels provides pure-Go math kernels for signal inference.
package kernels

import "math"

// Conv1D computes a 1-D convolution over a channel-major signal.
// src is [inCh * srcLen] (channel-major: channel c occupies
// src[c*srcLen : (c+1)*srcLen]), weight is [outCh][inCh][k] flattened,
// bias is [outCh]. dst must hold [outCh * OutLen(srcLen, k, stride, pad)].
// Samples outside the signal are treated as zero.
func Conv1D(dst, src, weight, bias []float32, inCh, outCh, k, stride, pad, srcLen int) {
	outLen := OutLen(srcLen, k, stride, pad)
	for oc := 0; oc < outCh; oc++ {
		wBase := oc * inCh * k
		dBase := oc * outLen
		for t := 0; t < outLen; t++ {
			start := t*stride - pad
			sum := bias[oc]
			for ic := 0; ic < inCh; ic++ {
				sBase := ic * srcLen
				wRow := wBase + ic*k
				// Clip the tap range instead of branching per tap.
				j0 := 0
				if start < 0 {
					j0 = -start
				}
				j1 := k
				if start+k > srcLen {
					j1 = srcLen - start
				}
				for j := j0; j < j1; j++ {
					sum += src[sBase+start+j] * weight[wRow+j]
				}
			}
			dst[dBase+t] = sum
		}
	}
}

// OutLen returns the output length of a 1-D convolution.
func OutLen(srcLen, k, stride, pad int) int {
	n := (srcLen+2*pad-k)/stride + 1
	if n < 0 {
		return 0
	}
	return n
}

// MatMulF32 computes dst = input @ weight.T with cache-aware blocking.
// weight: [outDim, inDim], input: [batch, inDim], dst: [batch, outDim].
// The block size is selected per CPU in the simd_* files.
func MatMulF32(dst, weight, input []float32, batch, inDim, outDim int) {
	for i := range dst[:batch*outDim] {
		dst[i] = 0
	}

	bs := matmulBlock
	for i0 := 0; i0 < batch; i0 += bs {
		i1 := minInt(i0+bs, batch)
		for j0 := 0; j0 < outDim; j0 += bs {
			j1 := minInt(j0+bs, outDim)
			for k0 := 0; k0 < inDim; k0 += bs {
				k1 := minInt(k0+bs, inDim)
				for i := i0; i < i1; i++ {
					inputBase := i * inDim
					for j := j0; j < j1; j++ {
						weightBase := j * inDim
						sum := float32(0)
						for k := k0; k < k1; k++ {
							sum += input[inputBase+k] * weight[weightBase+k]
						}
						dst[i*outDim+j] += sum
					}
				}
			}
		}
	}
}

// AddBias adds bias (length dim) to every row of a [rows, dim] matrix.
func AddBias(dst, bias []float32, rows, dim int) {
	for r := 0; r < rows; r++ {
		base := r * dim
		for i := 0; i < dim; i++ {
			dst[base+i] += bias[i]
		}
	}
}

// SiLU applies the SiLU (Swish) activation in place.
// SiLU(x) = x * sigmoid(x) = x / (1 + exp(-x))
func SiLU(v []float32) {
	for i, x := range v {
		sigmoid := float32(1.0 / (1.0 + math.Exp(float64(-x))))
		v[i] = x * sigmoid
	}
}

// LogSoftmax computes log(softmax(src)) into dst for one row of n scores.
// Uses the max-shift form for numerical stability.
func LogSoftmax(dst, src []float32, n int) {
	maxVal := src[0]
	for i := 1; i < n; i++ {
		if src[i] > maxVal {
			maxVal = src[i]
		}
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Exp(float64(src[i] - maxVal))
	}
	logSum := float32(math.Log(sum))
	for i := 0; i < n; i++ {
		dst[i] = src[i] - maxVal - logSum
	}
}

// ArgMax returns the index of the largest value in v.
// Ties resolve to the lowest index.
func ArgMax(v []float32) int {
	best := 0
	bestVal := v[0]
	for i := 1; i < len(v); i++ {
		if v[i] > bestVal {
			best = i
			bestVal = v[i]
		}
	}
	return best
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
