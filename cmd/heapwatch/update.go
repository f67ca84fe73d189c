package main

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/heapkit/heapkit/cmd/heapwatch/logger"
)

// Update handles all messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// If help is showing, handle help keys
		if m.showHelp {
			if key.Matches(msg, m.keys.Esc) || key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Quit) {
				m.showHelp = false
				return m, nil
			}
			// Ignore other keys when help is showing
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.showHelp = true
			return m, nil

		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
			if m.paused {
				m.statusMessage = "Sampling paused"
			} else {
				m.statusMessage = "Sampling resumed"
			}
			logger.Debug("pause toggled", "paused", m.paused)
			return m, tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
				return clearStatusMsg{}
			})

		case key.Matches(msg, m.keys.Dump):
			path, err := m.writeDump()
			if err != nil {
				m.statusMessage = "Dump failed: " + err.Error()
				logger.Error("dump failed", "error", err)
			} else {
				m.statusMessage = "Registry dumped to " + path
				logger.Info("registry dumped", "path", path)
			}
			return m, tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
				return clearStatusMsg{}
			})

		case key.Matches(msg, m.keys.Up):
			if m.scroll > 0 {
				m.scroll--
			}
			return m, nil

		case key.Matches(msg, m.keys.Down):
			if m.scroll < len(m.blocks)-1 {
				m.scroll++
			}
			return m, nil

		case key.Matches(msg, m.keys.PageUp):
			m.scroll -= m.blockRowsVisible()
			if m.scroll < 0 {
				m.scroll = 0
			}
			return m, nil

		case key.Matches(msg, m.keys.PageDown):
			m.scroll += m.blockRowsVisible()
			if max := len(m.blocks) - 1; m.scroll > max {
				if max < 0 {
					max = 0
				}
				m.scroll = max
			}
			return m, nil

		case key.Matches(msg, m.keys.Home):
			m.scroll = 0
			return m, nil

		case key.Matches(msg, m.keys.End):
			if max := len(m.blocks) - 1; max > 0 {
				m.scroll = max
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		if m.done {
			// The heap is static once the workload is finished; stop
			// resampling.
			return m, nil
		}
		if !m.paused {
			m.snapshot()
		}
		return m, tickCmd()

	case workloadDoneMsg:
		m.done = true
		m.result = msg.res
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.snapshot()
		return m, nil

	case clearStatusMsg:
		m.statusMessage = ""
		return m, nil
	}

	return m, nil
}
