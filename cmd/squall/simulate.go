package main

import (
	"math/rand"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/strand-bio/squall/internal/sigio"
)

// simulateCommand writes a .sig file of synthetic reads for exercising
// the basecaller without real flow-cell data.
func simulateCommand() *cobra.Command {
	var (
		numReads   int
		readLength int
		seed       int64
	)

	cmd := &cobra.Command{
		Use:   "simulate [out.sig]",
		Short: "Write a signal file of synthetic reads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rng := rand.New(rand.NewSource(seed))
			w, err := sigio.CreateSig(args[0])
			if err != nil {
				return err
			}
			for i := 0; i < numReads; i++ {
				// Read lengths spread around the target so chunking
				// paths with and without a short tail both occur.
				n := readLength/2 + rng.Intn(readLength)
				if err := w.WriteRead(uuid.NewString(), syntheticSignal(rng, n)); err != nil {
					w.Close()
					return err
				}
			}
			if err := w.Close(); err != nil {
				return err
			}
			logger := stderrLogger()
			logger.Info().Str("file", args[0]).Int("reads", numReads).Msg("simulated reads written")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&numReads, "reads", "n", 100, "Number of reads to generate")
	flags.IntVarP(&readLength, "length", "l", 20000, "Target read length in samples")
	flags.Int64Var(&seed, "seed", 1, "Random seed")
	return cmd
}

// syntheticSignal models a pore current trace: a piecewise-constant level
// sequence with Gaussian noise, levels switching every few samples.
func syntheticSignal(rng *rand.Rand, n int) []float32 {
	out := make([]float32, n)
	level := 60 + 80*rng.Float32()
	for i := range out {
		if rng.Float32() < 0.12 {
			level = 60 + 80*rng.Float32()
		}
		out[i] = level + float32(rng.NormFloat64()*2.5)
	}
	return out
}
