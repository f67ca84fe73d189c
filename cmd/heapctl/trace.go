package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/heapkit/heapkit/heap"
	"github.com/heapkit/heapkit/internal/trace"
)

var (
	traceReserve string
	traceMmap    bool
	traceDump    bool
)

func init() {
	cmd := newTraceCmd()
	cmd.Flags().StringVar(&traceReserve, "reserve", "64MiB", "Segment reservation (humanized sizes: 4KiB, 64MiB, 1GB)")
	cmd.Flags().BoolVar(&traceMmap, "mmap", false, "Back the segment with an anonymous memory mapping")
	cmd.Flags().BoolVar(&traceDump, "dump", false, "Dump the block registry after the last operation")
	rootCmd.AddCommand(cmd)
}

func newTraceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace <script>",
		Short: "Replay an allocation trace script against a fresh heap",
		Long: `The trace command parses an allocation script and replays it against a
fresh heap. Scripts bind allocations to numbered slots so later lines
can resize or free them; blank lines and # comments are skipped:

  alloc 1 64
  zalloc 2 16 8
  realloc 1 128
  free 1
  dump

Example:
  heapctl trace workload.txt
  heapctl trace workload.txt --reserve 4MiB --dump
  heapctl trace workload.txt --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(args)
		},
	}
	return cmd
}

func runTrace(args []string) error {
	scriptPath := args[0]

	printVerbose("Parsing trace: %s\n", scriptPath)

	f, err := os.Open(scriptPath)
	if err != nil {
		return fmt.Errorf("failed to open trace: %w", err)
	}
	ops, err := trace.Parse(f)
	f.Close()
	if err != nil {
		return err
	}
	printVerbose("Parsed %d operations\n", len(ops))

	seg, err := newSegment(traceReserve, traceMmap)
	if err != nil {
		return err
	}
	defer closeSegment(seg)

	h := heap.New(seg)
	sum, err := trace.Replay(h, ops, os.Stdout)
	if err != nil {
		return err
	}

	if traceDump {
		if err := h.DumpState(os.Stdout); err != nil {
			return err
		}
	}

	if jsonOut {
		return printJSON(struct {
			Summary *trace.Summary `json:"summary"`
			Stats   heap.Stats     `json:"stats"`
		}{sum, h.Stats()})
	}
	printInfo("trace: %d ops (%d alloc, %d zeroed, %d realloc, %d free, %d dump), %d slots live\n",
		sum.Ops, sum.Allocs, sum.Zeroed, sum.Reallocs, sum.Frees, sum.Dumps, sum.Live)
	return nil
}
