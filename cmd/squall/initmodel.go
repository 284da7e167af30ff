package main

import (
	"github.com/spf13/cobra"

	"github.com/strand-bio/squall/internal/model"
)

// initModelCommand writes a structurally valid model directory with
// seeded random weights, for tests and benchmarks.
func initModelCommand() *cobra.Command {
	var seed int64

	cmd := &cobra.Command{
		Use:   "init-model [dir]",
		Short: "Write a random-weight model directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := model.WriteRandom(args[0], seed); err != nil {
				return err
			}
			logger := stderrLogger()
			logger.Info().Str("dir", args[0]).Int64("seed", seed).Msg("model written")
			return nil
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 42, "Weight initialization seed")
	return cmd
}
