// Command squall is a nanopore basecaller: it reads raw signal files,
// runs the model, and writes called reads as FASTQ or FASTA.
package main

import (
	"errors"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/strand-bio/squall/pkg/basecall"
)

var version = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:     "squall",
		Short:   "Nanopore signal basecaller",
		Version: version,
	}

	var verbose int
	root.PersistentFlags().IntVar(&verbose, "verbose", 1, "Log level (0-debug, 1-info, 2-warn, 3-error)")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		zerolog.SetGlobalLevel(zerolog.Level(verbose))
	}

	root.AddCommand(basecallerCommand())
	root.AddCommand(initModelCommand())
	root.AddCommand(simulateCommand())

	if err := root.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// Exit codes distinguish the error classes callers script against.
const (
	exitFailure       = 1
	exitInvalidConfig = 2
	exitBackend       = 3
)

func exitCode(err error) int {
	switch {
	case errors.Is(err, basecall.ErrInvalidConfig):
		return exitInvalidConfig
	case errors.Is(err, basecall.ErrBackendFailure):
		return exitBackend
	default:
		return exitFailure
	}
}

// stderrLogger builds the console logger the subcommands report through.
func stderrLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}
