package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/heapkit/heapkit/heap"
)

// View renders the entire UI
func (m Model) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	// If help overlay is showing, render it
	if m.showHelp {
		return m.renderHelpOverlay()
	}

	header := m.renderHeader()
	content := m.renderContent()
	status := m.renderStatus()

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		status,
	)
}

// paneHeight is the interior height available to the two panes
func (m Model) paneHeight() int {
	// Header, status bar, borders, and margins eat 8 rows
	h := m.height - 8
	if h < 5 {
		h = 5
	}
	return h
}

// blockRowsVisible is how many registry rows fit in the blocks pane
func (m Model) blockRowsVisible() int {
	// Pane title and column header take 2 rows
	rows := m.paneHeight() - 2
	if rows < 1 {
		rows = 1
	}
	return rows
}

// renderHeader renders the header with the workload configuration
func (m Model) renderHeader() string {
	title := "Heap Watch"
	cfgLine := fmt.Sprintf("%d workers, %d ops each, seed %d, sizes %d..%d",
		m.cfg.Workers, m.cfg.Ops, m.cfg.Seed, m.cfg.MinSize, m.cfg.MaxSize)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		headerStyle.Render(title),
		lipgloss.NewStyle().Render("  "),
		configStyle.Render(cfgLine),
	)
}

// renderContent renders the stats pane and the block registry pane
func (m Model) renderContent() string {
	statsWidth := m.width / 3
	if statsWidth < 30 {
		statsWidth = 30
	}
	blocksWidth := m.width - statsWidth - 6
	if blocksWidth < 30 {
		blocksWidth = 30
	}
	paneH := m.paneHeight()

	stats := paneStyle.Width(statsWidth).Height(paneH).Render(m.renderStats())
	blocks := paneStyle.Width(blocksWidth).Height(paneH).Render(m.renderBlocks(blocksWidth))

	return lipgloss.JoinHorizontal(lipgloss.Top, stats, blocks)
}

// runState renders the workload state indicator
func (m Model) runState() string {
	switch {
	case m.done:
		return doneStyle.Render("DONE")
	case m.paused:
		return pausedStyle.Render("PAUSED")
	default:
		return runningStyle.Render("RUNNING")
	}
}

// renderStats renders the counter pane from the latest snapshot
func (m Model) renderStats() string {
	st := m.stats

	var b strings.Builder
	b.WriteString(paneTitleStyle.Render("Heap"))
	b.WriteString("\n\n")

	line := func(label, value string) {
		b.WriteString(statLabelStyle.Render(label))
		b.WriteString(statValueStyle.Render(value))
		b.WriteString("\n")
	}

	line("state", m.runState())
	line("break", fmt.Sprintf("%s (%s)", humanize.Bytes(uint64(st.Break)), humanize.Comma(st.Break)))
	line("blocks", fmt.Sprintf("%d live / %d free", st.LiveBlocks, st.FreeBlocks))
	line("live bytes", humanize.Bytes(uint64(st.LiveBytes)))
	line("free bytes", humanize.Bytes(uint64(st.FreeBytes)))
	line("allocs", fmt.Sprintf("%s (%s reused)", humanize.Comma(int64(st.AllocCalls)), humanize.Comma(int64(st.Reuses))))
	line("frees", fmt.Sprintf("%s (%s reclaimed)", humanize.Comma(int64(st.FreeCalls)), humanize.Comma(int64(st.Reclaims))))
	line("reallocs", humanize.Comma(int64(st.ReallocCalls)))
	line("zeroed", humanize.Comma(int64(st.ZeroedCalls)))
	line("grown", fmt.Sprintf("%s in %d grows", humanize.Bytes(uint64(st.GrowBytes)), st.Grows))
	line("reclaimed", humanize.Bytes(uint64(st.ReclaimedBytes)))

	if m.done && m.result != nil {
		total := m.result.Allocs + m.result.Zeroed + m.result.Reallocs + m.result.Frees
		b.WriteString("\n")
		line("elapsed", m.result.Elapsed.Round(time.Millisecond).String())
		line("ops/s", fmt.Sprintf("%.0f", float64(total)/m.result.Elapsed.Seconds()))
		line("nospace", humanize.Comma(int64(m.result.NoSpace)))
	} else {
		b.WriteString("\n")
		line("elapsed", time.Since(m.started).Round(time.Second).String())
	}

	return b.String()
}

// renderBlocks renders the scrollable registry pane
func (m Model) renderBlocks(width int) string {
	var b strings.Builder

	total := len(m.blocks)
	title := fmt.Sprintf("Block Registry (%s blocks)", humanize.Comma(int64(total)))
	if total == maxBlockRows {
		title = fmt.Sprintf("Block Registry (first %s blocks)", humanize.Comma(int64(total)))
	}
	b.WriteString(paneTitleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(blockHeaderStyle.Render(fmt.Sprintf("%-12s %-12s %-10s %s", "REF", "NEXT", "SIZE", "STATE")))
	b.WriteString("\n")

	rows := m.blockRowsVisible()
	start := m.scroll
	if start > total {
		start = total
	}
	end := start + rows
	if end > total {
		end = total
	}

	for _, blk := range m.blocks[start:end] {
		b.WriteString(m.renderBlockRow(blk, width))
		b.WriteString("\n")
	}

	if end < total {
		b.WriteString(statLabelStyle.Render(fmt.Sprintf("... %d more", total-end)))
	}

	return b.String()
}

func (m Model) renderBlockRow(blk heap.Block, width int) string {
	next := "-"
	if blk.Next != heap.NilRef {
		next = fmt.Sprintf("%#010x", blk.Next)
	}
	row := fmt.Sprintf("%#010x   %-12s %-10d ", blk.Ref, next, blk.Size)
	if blk.Free {
		return truncate(row, width) + blockFreeStyle.Render("free")
	}
	return truncate(row, width) + blockAllocStyle.Render("allocated")
}

// renderStatus renders the bottom status bar
func (m Model) renderStatus() string {
	// Show status message if set (takes priority over normal help)
	if m.statusMessage != "" {
		return statusStyle.Width(m.width).Render(m.statusMessage)
	}

	var help strings.Builder
	for i, binding := range m.keys.ShortHelp() {
		if i > 0 {
			help.WriteString(" │ ")
		}
		help.WriteString(helpStyle.Render(binding.Help().Key + ": " + binding.Help().Desc))
	}

	return statusStyle.Width(m.width).Render(help.String())
}

// renderHelpOverlay renders the help overlay
func (m Model) renderHelpOverlay() string {
	var helpContent strings.Builder

	helpContent.WriteString(helpTitleStyle.Render("Keyboard Shortcuts"))
	helpContent.WriteString("\n\n")

	for _, group := range m.keys.FullHelp() {
		for _, binding := range group {
			helpContent.WriteString(helpKeyStyle.Render(binding.Help().Key))
			helpContent.WriteString("  ")
			helpContent.WriteString(helpDescStyle.Render(binding.Help().Desc))
			helpContent.WriteString("\n")
		}
		helpContent.WriteString("\n")
	}

	helpContent.WriteString(statLabelStyle.Render("Press esc or ? to close"))

	return helpContent.String()
}
