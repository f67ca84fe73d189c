package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/heapkit/heapkit/brk"
	"github.com/heapkit/heapkit/cmd/heapwatch/logger"
	"github.com/heapkit/heapkit/heap"
	"github.com/heapkit/heapkit/internal/stress"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "YAML workload file")
		workers     = flag.Int("workers", 0, "override worker count (0 keeps the configured value)")
		ops         = flag.Int("ops", 0, "override operations per worker (0 keeps the configured value)")
		seed        = flag.Int64("seed", 0, "override the RNG seed (0 keeps the configured value)")
		reserve     = flag.String("reserve", "256MiB", "segment reservation (humanized sizes: 4KiB, 64MiB, 1GB)")
		useMmap     = flag.Bool("mmap", false, "back the segment with an anonymous memory mapping")
		debugLog    = flag.String("debug", "", "write a JSON debug log to this file")
		showVersion = flag.Bool("version", false, "print version information and exit")
	)
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Printf("heapwatch %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built: %s\n", date)
		return
	}

	// Initialize logger (must be before any logging calls)
	if err := logger.Init(*debugLog, slog.LevelDebug); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to init logging: %v\n", err)
	}

	cfg := stress.DefaultConfig()
	if *configPath != "" {
		loaded, err := stress.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *ops > 0 {
		cfg.Ops = *ops
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}

	seg, err := newSegment(*reserve, *useMmap)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger.Info("starting heapwatch",
		"reserve", *reserve, "mmap", *useMmap,
		"workers", cfg.Workers, "ops", cfg.Ops)

	m := NewModel(heap.New(seg), cfg)

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(), // Use alternate screen buffer
	)

	finalModel, err := p.Run()
	if err != nil {
		logger.Error("TUI error", "error", err)
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}

	// Quitting before the workload finishes leaves its goroutine running
	// against the segment, so only unmap once the run completed. Process
	// exit reclaims everything either way.
	if model, ok := finalModel.(Model); ok && model.done {
		if err := seg.Close(); err != nil {
			logger.Warn("error closing segment", "error", err)
		}
	}

	logger.Info("heapwatch exited normally")
}

// segment is a brk.Segment that must be closed when the program is done
// with it.
type segment interface {
	brk.Segment
	Close() error
}

// newSegment builds the backing segment from the --reserve and --mmap
// flags.
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

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: heapwatch [options]\n\n")
	fmt.Fprintf(os.Stderr, "Launches an interactive terminal UI that drives a randomized\n")
	fmt.Fprintf(os.Stderr, "allocation workload against a heap and shows the block registry\n")
	fmt.Fprintf(os.Stderr, "and counters live.\n\n")
	fmt.Fprintf(os.Stderr, "Keys:\n")
	fmt.Fprintf(os.Stderr, "  ↑/k, ↓/j    Scroll the block registry\n")
	fmt.Fprintf(os.Stderr, "  p           Pause/resume sampling\n")
	fmt.Fprintf(os.Stderr, "  d           Dump the registry to a file\n")
	fmt.Fprintf(os.Stderr, "  ?           Show help\n")
	fmt.Fprintf(os.Stderr, "  q           Quit\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nFor non-interactive runs, use the 'heapctl' command instead.\n")
}
