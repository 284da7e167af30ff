package kernels

import (
	"math"
	"testing"
)

func TestConv1DIdentity(t *testing.T) {
	// Single channel, k=1, stride=1: convolution with weight [1] and zero
	// bias must reproduce the input.
	src := []float32{1, 2, 3, 4, 5}
	dst := make([]float32, 5)
	Conv1D(dst, src, []float32{1}, []float32{0}, 1, 1, 1, 1, 0, 5)
	for i := range src {
		if dst[i] != src[i] {
			t.Errorf("dst[%d] = %f, expected %f", i, dst[i], src[i])
		}
	}
}

func TestConv1DStride(t *testing.T) {
	// k=2, stride=2, weight [1,1]: pairwise sums.
	src := []float32{1, 2, 3, 4, 5, 6}
	dst := make([]float32, OutLen(6, 2, 2, 0))
	Conv1D(dst, src, []float32{1, 1}, []float32{0}, 1, 1, 2, 2, 0, 6)
	expected := []float32{3, 7, 11}
	if len(dst) != len(expected) {
		t.Fatalf("out len = %d, expected %d", len(dst), len(expected))
	}
	for i, v := range expected {
		if dst[i] != v {
			t.Errorf("dst[%d] = %f, expected %f", i, dst[i], v)
		}
	}
}

func TestConv1DPadding(t *testing.T) {
	// k=3, pad=1: output length equals input length, edges see zeros.
	src := []float32{1, 1, 1, 1}
	dst := make([]float32, OutLen(4, 3, 1, 1))
	Conv1D(dst, src, []float32{1, 1, 1}, []float32{0}, 1, 1, 3, 1, 1, 4)
	expected := []float32{2, 3, 3, 2}
	for i, v := range expected {
		if dst[i] != v {
			t.Errorf("dst[%d] = %f, expected %f", i, dst[i], v)
		}
	}
}

func TestConv1DMultiChannel(t *testing.T) {
	// Two input channels, one output channel, k=1: channel sum with bias.
	src := []float32{
		1, 2, 3, // channel 0
		10, 20, 30, // channel 1
	}
	dst := make([]float32, 3)
	weight := []float32{1, 1} // [outCh=1][inCh=2][k=1]
	Conv1D(dst, src, weight, []float32{0.5}, 2, 1, 1, 1, 0, 3)
	expected := []float32{11.5, 22.5, 33.5}
	for i, v := range expected {
		if math.Abs(float64(dst[i]-v)) > 1e-6 {
			t.Errorf("dst[%d] = %f, expected %f", i, dst[i], v)
		}
	}
}

func TestMatMulF32(t *testing.T) {
	// input [2,3] @ weight[2,3].T = [2,2]
	input := []float32{
		1, 2, 3,
		4, 5, 6,
	}
	weight := []float32{
		7, 9, 11,
		8, 10, 12,
	}
	expected := []float32{
		1*7 + 2*9 + 3*11, 1*8 + 2*10 + 3*12,
		4*7 + 5*9 + 6*11, 4*8 + 5*10 + 6*12,
	}

	dst := make([]float32, 4)
	MatMulF32(dst, weight, input, 2, 3, 2)
	for i, v := range expected {
		if math.Abs(float64(dst[i]-v)) > 1e-5 {
			t.Errorf("MatMulF32: dst[%d] = %f, expected %f", i, dst[i], v)
		}
	}
}

func TestMatMulF32LargerThanBlock(t *testing.T) {
	// Exercise the blocked loops with dims > matmulBlock against a naive
	// reference.
	const batch, inDim, outDim = 3, 70, 40
	input := make([]float32, batch*inDim)
	weight := make([]float32, outDim*inDim)
	for i := range input {
		input[i] = float32(i%13) - 6
	}
	for i := range weight {
		weight[i] = float32(i%7) - 3
	}

	dst := make([]float32, batch*outDim)
	MatMulF32(dst, weight, input, batch, inDim, outDim)

	for i := 0; i < batch; i++ {
		for j := 0; j < outDim; j++ {
			var want float32
			for k := 0; k < inDim; k++ {
				want += input[i*inDim+k] * weight[j*inDim+k]
			}
			got := dst[i*outDim+j]
			if math.Abs(float64(got-want)) > 1e-3 {
				t.Fatalf("dst[%d,%d] = %f, expected %f", i, j, got, want)
			}
		}
	}
}

func TestSiLU(t *testing.T) {
	v := []float32{0}
	SiLU(v)
	if v[0] != 0 {
		t.Errorf("SiLU(0) = %f, expected 0", v[0])
	}

	v = []float32{10}
	SiLU(v)
	// For large x, SiLU(x) ≈ x.
	if math.Abs(float64(v[0]-10)) > 1e-3 {
		t.Errorf("SiLU(10) = %f, expected ~10", v[0])
	}
}

func TestLogSoftmax(t *testing.T) {
	src := []float32{1, 2, 3, 4}
	dst := make([]float32, 4)
	LogSoftmax(dst, src, 4)

	// exp of outputs must sum to 1.
	var sum float64
	for _, v := range dst {
		sum += math.Exp(float64(v))
	}
	if math.Abs(sum-1.0) > 1e-5 {
		t.Errorf("sum(exp(logsoftmax)) = %f, expected 1.0", sum)
	}

	// Monotonic: larger input, larger output.
	for i := 0; i < len(dst)-1; i++ {
		if dst[i] >= dst[i+1] {
			t.Errorf("logsoftmax not monotonic at %d: %f >= %f", i, dst[i], dst[i+1])
		}
	}
}

func TestLogSoftmaxExtremeValues(t *testing.T) {
	src := []float32{1000, -1000, 0, 500}
	dst := make([]float32, 4)
	LogSoftmax(dst, src, 4)
	for i, v := range dst {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 1) {
			t.Errorf("dst[%d] = %f, expected finite or -inf", i, v)
		}
	}
	if math.Abs(float64(dst[0])) > 1e-5 {
		t.Errorf("dominant score should have log-prob ~0, got %f", dst[0])
	}
}

func TestArgMax(t *testing.T) {
	cases := []struct {
		v    []float32
		want int
	}{
		{[]float32{1, 2, 3}, 2},
		{[]float32{3, 2, 1}, 0},
		{[]float32{1, 3, 2}, 1},
		{[]float32{2, 2, 2}, 0}, // ties resolve low
	}
	for _, c := range cases {
		if got := ArgMax(c.v); got != c.want {
			t.Errorf("ArgMax(%v) = %d, expected %d", c.v, got, c.want)
		}
	}
}
