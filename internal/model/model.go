// Package model owns the pretrained basecalling network and its execution
// backends. The network maps one window of normalized signal to a matrix of
// per-time-step log-probabilities over {blank, A, C, G, T}.
package model

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/strand-bio/squall/internal/kernels"
	"github.com/strand-bio/squall/internal/sqw"
)

// WeightsFile is the container name inside a model directory.
const WeightsFile = "weights.sqw"

// Config holds network hyperparameters read from the weight container.
type Config struct {
	Name     string
	Alphabet string // symbol 0 is the blank
	Stride   int    // samples per output time-step

	conv1Ch, conv1K int
	conv2Ch, conv2K int
}

// NumSymbols returns the alphabet size including the blank.
func (c Config) NumSymbols() int { return len(c.Alphabet) }

// Network is a loaded basecalling model. The weight slices alias the
// memory-mapped container and stay valid until Close.
type Network struct {
	config Config
	reader *sqw.Reader

	conv1W, conv1B []float32
	conv2W, conv2B []float32
	fcW, fcB       []float32

	workspacePool *sync.Pool
}

type workspace struct {
	conv1  []float32
	conv2  []float32
	steps  []float32 // conv2 output transposed to [steps, channels]
	logits []float32
}

// Load opens the weight container under dir and wires up the network.
func Load(dir string) (*Network, error) {
	reader, err := sqw.Open(filepath.Join(dir, WeightsFile))
	if err != nil {
		return nil, fmt.Errorf("open weights: %w", err)
	}

	net, err := loadNetwork(reader)
	if err != nil {
		reader.Close()
		return nil, err
	}
	return net, nil
}

func loadNetwork(reader *sqw.Reader) (*Network, error) {
	cfg := Config{
		Name:     reader.MetaString("general.name", "unknown"),
		Alphabet: reader.MetaString("model.alphabet", "NACGT"),
		Stride:   int(reader.MetaUint32("model.stride", 5)),
	}
	if cfg.Stride <= 0 {
		return nil, fmt.Errorf("bad model stride %d", cfg.Stride)
	}
	if len(cfg.Alphabet) < 2 {
		return nil, fmt.Errorf("alphabet %q too small", cfg.Alphabet)
	}

	net := &Network{config: cfg, reader: reader}

	load := func(name string, dst *[]float32) error {
		data, err := reader.TensorF32(name)
		if err != nil {
			return fmt.Errorf("load %s: %w", name, err)
		}
		*dst = data
		return nil
	}
	for _, t := range []struct {
		name string
		dst  *[]float32
	}{
		{"conv1.weight", &net.conv1W},
		{"conv1.bias", &net.conv1B},
		{"conv2.weight", &net.conv2W},
		{"conv2.bias", &net.conv2B},
		{"fc.weight", &net.fcW},
		{"fc.bias", &net.fcB},
	} {
		if err := load(t.name, t.dst); err != nil {
			return nil, err
		}
	}

	// Derive layer geometry from tensor shapes.
	c1, ok := reader.GetTensor("conv1.weight")
	if !ok || len(c1.Shape) != 3 || c1.Shape[1] != 1 {
		return nil, fmt.Errorf("conv1.weight must be [ch, 1, k]")
	}
	net.config.conv1Ch, net.config.conv1K = c1.Shape[0], c1.Shape[2]
	if net.config.conv1K%2 == 0 {
		return nil, fmt.Errorf("conv1 kernel must be odd for same-length padding, got %d", net.config.conv1K)
	}

	c2, ok := reader.GetTensor("conv2.weight")
	if !ok || len(c2.Shape) != 3 || c2.Shape[1] != net.config.conv1Ch {
		return nil, fmt.Errorf("conv2.weight must be [ch, %d, k]", net.config.conv1Ch)
	}
	net.config.conv2Ch, net.config.conv2K = c2.Shape[0], c2.Shape[2]

	fc, ok := reader.GetTensor("fc.weight")
	if !ok || len(fc.Shape) != 2 || fc.Shape[1] != net.config.conv2Ch {
		return nil, fmt.Errorf("fc.weight must be [symbols, %d]", net.config.conv2Ch)
	}
	if fc.Shape[0] != net.config.NumSymbols() {
		return nil, fmt.Errorf("fc.weight has %d symbols, alphabet %q wants %d",
			fc.Shape[0], net.config.Alphabet, net.config.NumSymbols())
	}

	net.workspacePool = &sync.Pool{
		New: func() any { return &workspace{} },
	}
	return net, nil
}

// Close releases the mapped weight container.
func (n *Network) Close() error {
	if n.reader != nil {
		err := n.reader.Close()
		n.reader = nil
		return err
	}
	return nil
}

// Config returns the network configuration.
func (n *Network) Config() Config { return n.config }

// Steps returns the number of output time-steps for a window of srcLen
// samples.
func (n *Network) Steps(srcLen int) int {
	return kernels.OutLen(srcLen, n.config.conv2K, n.config.Stride, 0)
}

// forward runs one window through the network. The result's Start is left
// at zero; the runner attaches chunk offsets.
func (n *Network) forward(window []float32) ProbMatrix {
	cfg := &n.config
	nsym := cfg.NumSymbols()

	srcLen := len(window)
	steps := n.Steps(srcLen)
	if srcLen == 0 || steps <= 0 {
		return ProbMatrix{Symbols: nsym}
	}

	ws := n.workspacePool.Get().(*workspace)
	defer n.workspacePool.Put(ws)

	// conv1: 1 -> conv1Ch channels, stride 1, same-length padding.
	pad1 := cfg.conv1K / 2
	l1 := kernels.OutLen(srcLen, cfg.conv1K, 1, pad1)
	ws.conv1 = grow(ws.conv1, cfg.conv1Ch*l1)
	kernels.Conv1D(ws.conv1, window, n.conv1W, n.conv1B,
		1, cfg.conv1Ch, cfg.conv1K, 1, pad1, srcLen)
	kernels.SiLU(ws.conv1[:cfg.conv1Ch*l1])

	// conv2: downsampling layer, stride = model stride.
	l2 := kernels.OutLen(l1, cfg.conv2K, cfg.Stride, 0)
	ws.conv2 = grow(ws.conv2, cfg.conv2Ch*l2)
	kernels.Conv1D(ws.conv2, ws.conv1[:cfg.conv1Ch*l1], n.conv2W, n.conv2B,
		cfg.conv1Ch, cfg.conv2Ch, cfg.conv2K, cfg.Stride, 0, l1)
	kernels.SiLU(ws.conv2[:cfg.conv2Ch*l2])

	// Transpose channel-major conv output to [steps, channels] rows.
	ws.steps = grow(ws.steps, l2*cfg.conv2Ch)
	for c := 0; c < cfg.conv2Ch; c++ {
		base := c * l2
		for t := 0; t < l2; t++ {
			ws.steps[t*cfg.conv2Ch+c] = ws.conv2[base+t]
		}
	}

	// Per-step linear head and log-softmax.
	ws.logits = grow(ws.logits, l2*nsym)
	kernels.MatMulF32(ws.logits, n.fcW, ws.steps[:l2*cfg.conv2Ch], l2, cfg.conv2Ch, nsym)
	kernels.AddBias(ws.logits, n.fcB, l2, nsym)

	out := ProbMatrix{Steps: l2, Symbols: nsym, Data: make([]float32, l2*nsym)}
	for t := 0; t < l2; t++ {
		kernels.LogSoftmax(out.Data[t*nsym:(t+1)*nsym], ws.logits[t*nsym:(t+1)*nsym], nsym)
	}
	return out
}

func grow(buf []float32, n int) []float32 {
	if cap(buf) < n {
		return make([]float32, n)
	}
	return buf[:n]
}
