package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/ogzhanolguncu/product-stats/distributed"
	"github.com/ogzhanolguncu/product-stats/logger"
	"github.com/ogzhanolguncu/product-stats/map_reduce"
	"github.com/ogzhanolguncu/product-stats/sink"
)

func main() {
	var (
		nodes      = flag.Int("nodes", runtime.NumCPU(), "Number of worker nodes; reduce tasks get half of them")
		inputFile  = flag.String("input", "", "Input file of \"<product id> <price>\" lines")
		outputDir  = flag.String("output", "", "Output directory (cleared before the job runs)")
		logLevel   = flag.String("log-level", "INFO", "Log level: DEBUG, INFO, WARN or ERROR")
		sequential = flag.Bool("sequential", false, "Run map and reduce in a single goroutine")
	)
	flag.Parse()

	log := logger.New(*logLevel)
	start := time.Now()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, log, *nodes, *inputFile, *outputDir, *sequential); err != nil {
		log.Errorf("Job failed: %v", err)
		stop()
		os.Exit(exitCode(err))
	}

	fmt.Printf("Executed in %v seconds\n", time.Since(start).Seconds())
}

func run(ctx context.Context, log *logger.Logger, nodes int, inputFile, outputDir string, sequential bool) error {
	if inputFile == "" {
		return fmt.Errorf("%w: -input is required", map_reduce.ErrInvalidConfiguration)
	}
	if outputDir == "" {
		return fmt.Errorf("%w: -output is required", map_reduce.ErrInvalidConfiguration)
	}

	// Validate before touching the output directory.
	coordinator, err := distributed.NewCoordinator(distributed.Config{Nodes: nodes},
		&map_reduce.ProductPriceMapper{}, &map_reduce.StatsReducer{}, log)
	if err != nil {
		return err
	}

	f, err := os.Open(inputFile)
	if err != nil {
		return fmt.Errorf("%w: opening input: %w", map_reduce.ErrIO, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat input: %w", map_reduce.ErrIO, err)
	}
	input := io.NewSectionReader(f, 0, info.Size())

	out := sink.NewDirSink(outputDir, log)
	if err := out.Prepare(info.Size()); err != nil {
		return err
	}

	if sequential {
		return runSequential(ctx, input, out, nodes)
	}
	return coordinator.Run(ctx, input, out)
}

func runSequential(ctx context.Context, input *io.SectionReader, out sink.Sink, nodes int) error {
	started := time.Now()
	runner := map_reduce.NewRunner(&map_reduce.ProductPriceMapper{}, &map_reduce.StatsReducer{})
	results, err := runner.Run(ctx, input, input.Size())
	if err != nil {
		return err
	}

	manifest := sink.Manifest{
		Started:    started,
		Finished:   time.Now(),
		JobID:      uuid.NewString(),
		Nodes:      nodes,
		Splits:     1,
		Reducers:   1,
		Keys:       len(results),
		InputBytes: input.Size(),
	}
	lines := make([]string, len(results))
	for i, r := range results {
		lines[i] = r.String()
		manifest.Records += int64(r.Stats.Count)
	}
	return out.Commit(lines, manifest)
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, map_reduce.ErrInvalidConfiguration):
		return 2
	case errors.Is(err, map_reduce.ErrMalformedRecord):
		return 3
	case errors.Is(err, map_reduce.ErrIO):
		return 4
	default:
		return 1
	}
}
