package model

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/strand-bio/squall/internal/sqw"
)

// Default topology written by WriteRandom.
const (
	defaultConv1Ch = 4
	defaultConv1K  = 5
	defaultConv2Ch = 16
	defaultConv2K  = 5
	defaultStride  = 5

	// DefaultAlphabet is blank followed by the four bases.
	DefaultAlphabet = "NACGT"
)

// WriteRandom writes a structurally valid model directory with seeded
// random weights. The repository ships no trained weights; this stands in
// for a real model in tests, benchmarks, and smoke runs.
func WriteRandom(dir string, seed int64) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	rng := rand.New(rand.NewSource(seed))
	heInit := func(n, fanIn int) []float32 {
		scale := float32(math.Sqrt(2 / float64(fanIn)))
		out := make([]float32, n)
		for i := range out {
			out[i] = float32(rng.NormFloat64()) * scale
		}
		return out
	}

	nsym := len(DefaultAlphabet)
	w := sqw.NewWriter(filepath.Join(dir, WeightsFile))
	w.SetMetaString("general.name", "squall-fast-random")
	w.SetMetaString("model.alphabet", DefaultAlphabet)
	w.SetMetaUint32("model.stride", defaultStride)

	type tensor struct {
		name  string
		shape []int
		fanIn int
	}
	for _, t := range []tensor{
		{"conv1.weight", []int{defaultConv1Ch, 1, defaultConv1K}, defaultConv1K},
		{"conv1.bias", []int{defaultConv1Ch}, defaultConv1Ch},
		{"conv2.weight", []int{defaultConv2Ch, defaultConv1Ch, defaultConv2K}, defaultConv1Ch * defaultConv2K},
		{"conv2.bias", []int{defaultConv2Ch}, defaultConv2Ch},
		{"fc.weight", []int{nsym, defaultConv2Ch}, defaultConv2Ch},
		{"fc.bias", []int{nsym}, defaultConv2Ch},
	} {
		n := 1
		for _, s := range t.shape {
			n *= s
		}
		if err := w.AddTensorF32(t.name, t.shape, heInit(n, t.fanIn)); err != nil {
			return err
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("write weights: %w", err)
	}
	return nil
}
