package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/strand-bio/squall/internal/sigio"
	"github.com/strand-bio/squall/internal/writer"
	"github.com/strand-bio/squall/pkg/basecall"
)

// basecallerCommand builds the main subcommand: model directory plus a
// signal file in, FASTQ/FASTA out.
func basecallerCommand() *cobra.Command {
	var (
		threads    int
		batchSize  int
		chunkSize  int
		overlap    int
		device     string
		decoder    string
		runners    int
		outFile    string
		debugBreak int
		emitFastq  string
	)

	cmd := &cobra.Command{
		Use:   "basecaller [model-dir] [data-file]",
		Short: "Basecall raw signal to FASTQ",
		Long: `Basecall a raw signal file (.sig or .npz) using the model found in the
given directory. Output is FASTQ by default; use '-' to write to stdout.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fastq, err := parseYesNo(emitFastq)
			if err != nil {
				return err
			}
			if threads > 0 {
				runtime.GOMAXPROCS(threads)
			}
			return runBasecaller(args[0], args[1], basecallerConfig{
				batchSize:  batchSize,
				chunkSize:  chunkSize,
				overlap:    overlap,
				device:     device,
				decoder:    decoder,
				runners:    runners,
				outFile:    outFile,
				debugBreak: debugBreak,
				fastq:      fastq,
			})
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&threads, "threads", "t", 0, "CPU threads to use (0 = all)")
	flags.IntVarP(&batchSize, "batch-size", "K", 32, "Chunks per model call")
	flags.IntVarP(&chunkSize, "chunk-size", "c", 8000, "Chunk size in samples")
	flags.IntVarP(&overlap, "overlap", "p", 150, "Overlap between chunks in samples")
	flags.StringVarP(&device, "device", "x", "cpu", "Execution backend (cpu, parallel)")
	flags.StringVar(&decoder, "decoder", "greedy", "Decoder (greedy, fused)")
	flags.IntVarP(&runners, "num-runners", "r", 1, "Number of model runners")
	flags.StringVarP(&outFile, "out", "o", "-", "Output file ('-' for stdout, .gz compresses)")
	flags.IntVar(&debugBreak, "debug-break", 0, "Stop after this many batches (0 = run to completion)")
	flags.StringVar(&emitFastq, "emit-fastq", "yes", "Write FASTQ (yes) or FASTA (no)")

	return cmd
}

type basecallerConfig struct {
	batchSize  int
	chunkSize  int
	overlap    int
	device     string
	decoder    string
	runners    int
	outFile    string
	debugBreak int
	fastq      bool
}

func runBasecaller(modelDir, dataFile string, cfg basecallerConfig) error {
	log := stderrLogger()

	fmt.Fprintf(os.Stderr, "model: %s\n", modelDir)
	fmt.Fprintf(os.Stderr, "data: %s\n", dataFile)
	fmt.Fprintf(os.Stderr, "chunk size: %d, overlap: %d, batch size: %d\n",
		cfg.chunkSize, cfg.overlap, cfg.batchSize)
	fmt.Fprintf(os.Stderr, "device: %s, decoder: %s, runners: %d\n",
		cfg.device, cfg.decoder, cfg.runners)

	caller, err := basecall.Open(modelDir,
		basecall.WithChunkSize(cfg.chunkSize),
		basecall.WithOverlap(cfg.overlap),
		basecall.WithBatchSize(cfg.batchSize),
		basecall.WithRunners(cfg.runners),
		basecall.WithDevice(cfg.device),
		basecall.WithDecoder(cfg.decoder),
		basecall.WithDebugBreak(cfg.debugBreak),
		basecall.WithLogger(log),
	)
	if err != nil {
		return err
	}
	defer caller.Close()

	in, err := sigio.Open(dataFile)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := writer.New(cfg.outFile, cfg.fastq)
	if err != nil {
		return err
	}

	_, runErr := caller.Run(context.Background(), in, out)
	if closeErr := out.Close(); runErr == nil {
		runErr = closeErr
	}
	return runErr
}

func parseYesNo(v string) (bool, error) {
	switch v {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	default:
		return false, fmt.Errorf("invalid value %q (want yes or no)", v)
	}
}
