package main

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/heapkit/heapkit/internal/stress"
)

// TestHelpToggle tests toggling the help overlay with '?'
func TestHelpToggle(t *testing.T) {
	helper := NewTestHelper(t)
	helper.SendWindowSize(120, 40)

	model := helper.GetModel()
	if model.showHelp {
		t.Fatal("Help should not be shown initially")
	}

	t.Log("Pressing '?' to show help")
	helper.SendKeyRune('?')

	model = helper.GetModel()
	if !model.showHelp {
		t.Error("Help should be shown after pressing '?'")
	}

	t.Log("Pressing '?' again to hide help")
	helper.SendKeyRune('?')

	model = helper.GetModel()
	if model.showHelp {
		t.Error("Help should be hidden after pressing '?' again")
	}
}

// TestHelpDismissWithEsc tests dismissing the help overlay with Esc
func TestHelpDismissWithEsc(t *testing.T) {
	helper := NewTestHelper(t)
	helper.SendWindowSize(120, 40)

	helper.SendKeyRune('?')
	if !helper.GetModel().showHelp {
		t.Fatal("Help should be shown")
	}

	t.Log("Pressing Esc to dismiss help")
	helper.SendKey(tea.KeyEsc)

	if helper.GetModel().showHelp {
		t.Error("Help should be dismissed after Esc")
	}
}

// TestHelpSwallowsOtherKeys tests that scrolling keys are ignored while
// the help overlay is up
func TestHelpSwallowsOtherKeys(t *testing.T) {
	helper := NewTestHelper(t)
	helper.SendWindowSize(120, 40)
	for i := 0; i < 5; i++ {
		helper.Alloc(32)
	}
	helper.Tick()

	helper.SendKeyRune('?')
	helper.SendKeyRune('j')
	helper.SendKeyRune('j')

	model := helper.GetModel()
	if !model.showHelp {
		t.Fatal("Help should still be shown")
	}
	if model.scroll != 0 {
		t.Errorf("Scroll should stay 0 while help is up, got %d", model.scroll)
	}
}

// TestQuitKey tests that 'q' produces a quit command
func TestQuitKey(t *testing.T) {
	helper := NewTestHelper(t)
	helper.SendWindowSize(120, 40)

	cmd := helper.SendKeyRune('q')
	if cmd == nil {
		t.Fatal("Quit key should produce a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Quit key should produce tea.Quit")
	}
}

// TestPauseToggle tests pausing and resuming sampling with 'p'
func TestPauseToggle(t *testing.T) {
	helper := NewTestHelper(t)
	helper.SendWindowSize(120, 40)

	helper.SendKeyRune('p')
	model := helper.GetModel()
	if !model.paused {
		t.Fatal("Model should be paused after 'p'")
	}
	if model.statusMessage == "" {
		t.Error("Pause should set a status message")
	}

	// A tick while paused must not resample the heap.
	before := model.stats
	helper.Alloc(64)
	helper.Tick()

	model = helper.GetModel()
	if model.stats != before {
		t.Error("Paused tick should not refresh stats")
	}

	helper.SendKeyRune('p')
	helper.Tick()

	model = helper.GetModel()
	if model.paused {
		t.Error("Model should resume after second 'p'")
	}
	if model.stats.LiveBlocks != 1 {
		t.Errorf("Resumed tick should see the allocation, got %d live blocks", model.stats.LiveBlocks)
	}
}

// TestScrollBounds tests that scrolling clamps to the block list
func TestScrollBounds(t *testing.T) {
	helper := NewTestHelper(t)
	helper.SendWindowSize(120, 40)

	for i := 0; i < 3; i++ {
		helper.Alloc(16)
	}
	helper.Tick()

	// Up at the top stays at the top.
	helper.SendKeyRune('k')
	if got := helper.GetModel().scroll; got != 0 {
		t.Errorf("Scroll should stay 0 at the top, got %d", got)
	}

	// Down stops at the last row.
	for i := 0; i < 10; i++ {
		helper.SendKeyRune('j')
	}
	if got := helper.GetModel().scroll; got != 2 {
		t.Errorf("Scroll should clamp to 2, got %d", got)
	}

	helper.SendKeyRune('g')
	if got := helper.GetModel().scroll; got != 0 {
		t.Errorf("'g' should jump to the top, got %d", got)
	}

	helper.SendKeyRune('G')
	if got := helper.GetModel().scroll; got != 2 {
		t.Errorf("'G' should jump to the bottom, got %d", got)
	}
}

// TestTickResamplesHeap tests that ticks pick up registry changes
func TestTickResamplesHeap(t *testing.T) {
	helper := NewTestHelper(t)
	helper.SendWindowSize(120, 40)

	ref := helper.Alloc(128)
	helper.Tick()

	model := helper.GetModel()
	if len(model.blocks) != 1 {
		t.Fatalf("Expected 1 block after tick, got %d", len(model.blocks))
	}
	if model.blocks[0].Ref != ref {
		t.Errorf("Snapshot block ref = %#x, want %#x", model.blocks[0].Ref, ref)
	}

	helper.Free(ref)
	helper.Tick()

	model = helper.GetModel()
	if len(model.blocks) != 0 {
		t.Errorf("Topmost release should empty the registry, got %d blocks", len(model.blocks))
	}
}

// TestWorkloadDoneStopsTicker tests that sampling stops once the
// workload reports completion
func TestWorkloadDoneStopsTicker(t *testing.T) {
	helper := NewTestHelper(t)
	helper.SendWindowSize(120, 40)

	res := &stress.Result{Config: stress.DefaultConfig()}
	helper.FinishWorkload(res, nil)

	model := helper.GetModel()
	if !model.done {
		t.Fatal("Model should be done after workloadDoneMsg")
	}
	if model.result != res {
		t.Error("Model should hold the workload result")
	}

	if cmd := helper.Tick(); cmd != nil {
		t.Error("Tick after completion should not reschedule")
	}
}

// TestViewRendersStats tests that the rendered view carries live state
func TestViewRendersStats(t *testing.T) {
	helper := NewTestHelper(t)
	helper.SendWindowSize(120, 40)

	helper.Alloc(64)
	helper.Alloc(256)
	helper.Tick()

	view := helper.GetView()
	if !strings.Contains(view, "Heap Watch") {
		t.Error("View should carry the header title")
	}
	if !strings.Contains(view, "allocated") {
		t.Error("View should list allocated blocks")
	}
}
