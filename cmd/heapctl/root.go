package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/heapkit/heapkit/brk"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	jsonOut bool
)

var rootCmd = &cobra.Command{
	Use:   "heapctl",
	Short: "Drive and inspect an sbrk-backed heap allocator",
	Long: `heapctl exercises a first-fit heap allocator built on a growable
byte segment. It replays allocation trace scripts, runs randomized
stress workloads, and dumps the resulting block registry.`,
	Version: "0.1.0",
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// segment is a brk.Segment the command owns and must close when done.
type segment interface {
	brk.Segment
	Close() error
}

// newSegment builds the backing segment from the shared --reserve and
// --mmap flags. The reserve string accepts humanized sizes (64MiB, 1GB).
func newSegment(reserve string, useMmap bool) (segment, error) {
	n, err := humanize.ParseBytes(reserve)
	if err != nil {
		return nil, fmt.Errorf("invalid reserve size %q: %w", reserve, err)
	}
	if n > brk.MaxSegmentBytes {
		return nil, fmt.Errorf("reserve %s exceeds the segment limit of %s",
			humanize.Bytes(n), humanize.Bytes(uint64(brk.MaxSegmentBytes)))
	}
	if useMmap {
		seg, err := brk.NewAnon(int64(n))
		if err != nil {
			return nil, fmt.Errorf("failed to map segment: %w", err)
		}
		return seg, nil
	}
	seg, err := brk.NewMem(int64(n))
	if err != nil {
		return nil, fmt.Errorf("failed to allocate segment: %w", err)
	}
	return seg, nil
}

// closeSegment releases seg, reporting rather than failing on error.
func closeSegment(seg segment) {
	if err := seg.Close(); err != nil {
		printError("closing segment: %v\n", err)
	}
}

// Output helpers. Commands print through these so --quiet and
// --verbose behave uniformly across trace and stress.

// printInfo writes to stdout unless --quiet.
func printInfo(format string, args ...any) {
	if quiet {
		return
	}
	fmt.Printf(format, args...)
}

// printVerbose writes to stdout only with --verbose.
func printVerbose(format string, args ...any) {
	if !verbose || quiet {
		return
	}
	fmt.Printf(format, args...)
}

// printError writes to stderr; --quiet never silences errors.
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
