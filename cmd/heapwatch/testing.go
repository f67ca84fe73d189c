package main

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/heapkit/heapkit/brk"
	"github.com/heapkit/heapkit/heap"
	"github.com/heapkit/heapkit/internal/stress"
)

// TestHelper drives the TUI model without a terminal. Tests inject
// messages by hand instead of running the background workload.
type TestHelper struct {
	t     *testing.T
	model Model
	heap  *heap.Heap
}

// NewTestHelper creates a helper around a fresh in-memory heap
func NewTestHelper(t *testing.T) *TestHelper {
	t.Helper()

	seg, err := brk.NewMem(1 << 20)
	if err != nil {
		t.Fatalf("failed to build segment: %v", err)
	}
	t.Cleanup(func() { seg.Close() })

	cfg := stress.DefaultConfig()
	cfg.Workers = 1
	cfg.Ops = 10

	h := heap.New(seg)
	return &TestHelper{
		t:     t,
		model: NewModel(h, cfg),
		heap:  h,
	}
}

// Alloc places a block on the helper's heap
func (h *TestHelper) Alloc(size int) heap.Ref {
	h.t.Helper()
	ref, _, err := h.heap.Allocate(size)
	if err != nil {
		h.t.Fatalf("failed to allocate %d bytes: %v", size, err)
	}
	return ref
}

// Free releases a block on the helper's heap
func (h *TestHelper) Free(ref heap.Ref) {
	h.t.Helper()
	if err := h.heap.Release(ref); err != nil {
		h.t.Fatalf("failed to release block: %v", err)
	}
}

// SendKey simulates a key press and returns any command it produced
func (h *TestHelper) SendKey(keyType tea.KeyType) tea.Cmd {
	msg := tea.KeyMsg{Type: keyType}
	updated, cmd := h.model.Update(msg)
	h.model = updated.(Model)
	return cmd
}

// SendKeyRune simulates a character key press
func (h *TestHelper) SendKeyRune(r rune) tea.Cmd {
	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
	updated, cmd := h.model.Update(msg)
	h.model = updated.(Model)
	return cmd
}

// SendWindowSize simulates a window resize
func (h *TestHelper) SendWindowSize(width, height int) {
	msg := tea.WindowSizeMsg{Width: width, Height: height}
	updated, _ := h.model.Update(msg)
	h.model = updated.(Model)
}

// Tick delivers a sampling tick and returns the follow-up command
func (h *TestHelper) Tick() tea.Cmd {
	updated, cmd := h.model.Update(tickMsg(time.Now()))
	h.model = updated.(Model)
	return cmd
}

// FinishWorkload delivers the workload completion message
func (h *TestHelper) FinishWorkload(res *stress.Result, err error) {
	updated, _ := h.model.Update(workloadDoneMsg{res: res, err: err})
	h.model = updated.(Model)
}

// GetModel returns the current model
func (h *TestHelper) GetModel() Model {
	return h.model
}

// GetView returns the rendered view
func (h *TestHelper) GetView() string {
	return h.model.View()
}
