package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/heapkit/heapkit/cmd/heapwatch/logger"
	"github.com/heapkit/heapkit/heap"
	"github.com/heapkit/heapkit/internal/stress"
)

const (
	// tickInterval is how often the registry and counters are resampled
	// while the workload runs.
	tickInterval = 250 * time.Millisecond

	// maxBlockRows caps how many registry rows a snapshot copies out of
	// the heap per tick.
	maxBlockRows = 4096
)

// Model is the main application model
type Model struct {
	heap *heap.Heap
	cfg  stress.Config
	keys KeyMap

	width  int
	height int

	// Latest sampled heap state
	stats  heap.Stats
	blocks []heap.Block
	scroll int

	// Workload state
	paused  bool
	done    bool
	result  *stress.Result
	started time.Time

	// Help overlay
	showHelp bool

	// Status message for temporary feedback
	statusMessage string

	err error
}

// NewModel creates a new TUI model driving a workload against h
func NewModel(h *heap.Heap, cfg stress.Config) Model {
	m := Model{
		heap:    h,
		cfg:     cfg,
		keys:    DefaultKeyMap(),
		started: time.Now(),
	}
	m.snapshot()
	return m
}

// Init starts the workload and the sampling ticker
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		runWorkload(m.heap, m.cfg),
		tickCmd(),
	)
}

// snapshot copies the heap's counters and registry rows into the model.
// Both accessors lock the heap, so snapshots are consistent even while
// the workload is running.
func (m *Model) snapshot() {
	m.stats = m.heap.Stats()

	blocks := make([]heap.Block, 0, 64)
	if err := m.heap.Walk(func(b heap.Block) bool {
		blocks = append(blocks, b)
		return len(blocks) < maxBlockRows
	}); err != nil {
		m.err = err
		return
	}
	m.blocks = blocks

	if max := len(m.blocks) - 1; m.scroll > max {
		if max < 0 {
			max = 0
		}
		m.scroll = max
	}
}

// writeDump writes the current registry dump to a timestamped file in
// the working directory and returns its name.
func (m *Model) writeDump() (string, error) {
	name := fmt.Sprintf("heapwatch-%s.dump", time.Now().Format("20060102-150405"))
	f, err := os.Create(name)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := m.heap.DumpState(f); err != nil {
		return "", err
	}
	return name, nil
}

// Messages

// tickMsg drives periodic resampling of the heap
type tickMsg time.Time

// workloadDoneMsg is sent when the background workload finishes
type workloadDoneMsg struct {
	res *stress.Result
	err error
}

type clearStatusMsg struct{}

// tickCmd schedules the next sampling tick
func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// runWorkload runs the stress workload in the background and reports
// its result as a message
func runWorkload(h *heap.Heap, cfg stress.Config) tea.Cmd {
	return func() tea.Msg {
		logger.Info("workload starting", "workers", cfg.Workers, "ops", cfg.Ops, "seed", cfg.Seed)
		res, err := stress.Run(h, cfg)
		if err != nil {
			logger.Error("workload failed", "error", err)
		} else {
			logger.Info("workload finished", "elapsed", res.Elapsed)
		}
		return workloadDoneMsg{res: res, err: err}
	}
}
