package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/heapkit/heapkit/heap"
	"github.com/heapkit/heapkit/internal/stress"
)

var (
	stressConfig  string
	stressWorkers int
	stressOps     int
	stressSeed    int64
	stressMinSize string
	stressMaxSize string
	stressReserve string
	stressMmap    bool
	stressDump    bool
)

func init() {
	cmd := newStressCmd()
	cmd.Flags().StringVar(&stressConfig, "config", "", "YAML workload file (defaults apply when omitted)")
	cmd.Flags().IntVar(&stressWorkers, "workers", 0, "Override worker count (0 keeps the configured value)")
	cmd.Flags().IntVar(&stressOps, "ops", 0, "Override operations per worker (0 keeps the configured value)")
	cmd.Flags().Int64Var(&stressSeed, "seed", 0, "Override the RNG seed (0 keeps the configured value)")
	cmd.Flags().StringVar(&stressMinSize, "min-size", "", "Override the smallest block size (humanized: 16, 4KiB; empty keeps the configured value)")
	cmd.Flags().StringVar(&stressMaxSize, "max-size", "", "Override the largest block size (humanized: 512, 64KiB; empty keeps the configured value)")
	cmd.Flags().StringVar(&stressReserve, "reserve", "256MiB", "Segment reservation (humanized sizes: 4KiB, 64MiB, 1GB)")
	cmd.Flags().BoolVar(&stressMmap, "mmap", false, "Back the segment with an anonymous memory mapping")
	cmd.Flags().BoolVar(&stressDump, "dump", false, "Dump the block registry after the run")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run a randomized concurrent workload against a fresh heap",
		Long: `The stress command hammers a heap with concurrent workers performing a
randomized mix of allocations, zeroed allocations, resizes, and frees,
verifying block contents as it goes. It reports operation counts and
latency percentiles.

Example:
  heapctl stress
  heapctl stress --workers 8 --ops 10000
  heapctl stress --min-size 64 --max-size 8KiB
  heapctl stress --config workload.yml --reserve 1GiB --mmap
  heapctl stress --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress()
		},
	}
	return cmd
}

func runStress() error {
	cfg := stress.DefaultConfig()
	if stressConfig != "" {
		printVerbose("Loading workload: %s\n", stressConfig)
		loaded, err := stress.Load(stressConfig)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if stressWorkers > 0 {
		cfg.Workers = stressWorkers
	}
	if stressOps > 0 {
		cfg.Ops = stressOps
	}
	if stressSeed != 0 {
		cfg.Seed = stressSeed
	}
	if stressMinSize != "" {
		n, err := parseBlockSize("min-size", stressMinSize)
		if err != nil {
			return err
		}
		cfg.MinSize = n
	}
	if stressMaxSize != "" {
		n, err := parseBlockSize("max-size", stressMaxSize)
		if err != nil {
			return err
		}
		cfg.MaxSize = n
	}

	seg, err := newSegment(stressReserve, stressMmap)
	if err != nil {
		return err
	}
	defer closeSegment(seg)

	printVerbose("Running %d workers, %d ops each, seed %d\n", cfg.Workers, cfg.Ops, cfg.Seed)

	h := heap.New(seg)
	res, err := stress.Run(h, cfg)
	if err != nil {
		return err
	}

	if stressDump {
		if err := h.DumpState(os.Stdout); err != nil {
			return err
		}
	}

	if jsonOut {
		return res.ReportJSON(os.Stdout)
	}
	if quiet {
		return nil
	}
	return res.Report(os.Stdout)
}

// parseBlockSize decodes a humanized block-size flag into bytes,
// keeping it inside the single-block design limit.
func parseBlockSize(flag, value string) (int, error) {
	n, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", flag, value, err)
	}
	if n == 0 || n > uint64(heap.MaxBlockBytes) {
		return 0, fmt.Errorf("%s %s is outside the block size limit of %s",
			flag, value, humanize.Bytes(uint64(heap.MaxBlockBytes)))
	}
	return int(n), nil
}
