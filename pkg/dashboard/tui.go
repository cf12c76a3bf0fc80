/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/carverauto/backupradar/pkg/clock"
)

const filterWidth = 40

type viewMsg struct {
	view View
}

type tickMsg time.Time

type tuiStyles struct {
	title, label, help, ok, pending, critical, banner, info, app lipgloss.Style
}

func newTUIStyles() tuiStyles {
	return tuiStyles{
		title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaPink)).
			Bold(true),
		label: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaYellow)),
		help: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaComment)),
		ok: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaGreen)).
			Bold(true),
		pending: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaYellow)).
			Bold(true),
		critical: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaRed)).
			Bold(true),
		banner: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaForeground)).
			Background(lipgloss.Color(draculaRed)).
			Padding(0, 1),
		info: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaOrange)),
		app: lipgloss.NewStyle().
			Padding(1, 2).
			Foreground(lipgloss.Color(draculaForeground)),
	}
}

// Model is the bubbletea model of the terminal dashboard.
type Model struct {
	ctx       context.Context
	viewer    Viewer
	interval  time.Duration
	clock     clock.Clock
	view      View
	loading   bool
	filter    textinput.Model
	filtering bool
	styles    tuiStyles
}

// NewModel returns a model that reads viewer and re-reads it every
// interval. A nil clock uses wall time.
func NewModel(ctx context.Context, viewer Viewer, interval time.Duration, clk clock.Clock) *Model {
	if clk == nil {
		clk = clock.Real()
	}

	fi := textinput.New()
	fi.Placeholder = "filter by name or id"
	fi.Prompt = "/ "
	fi.Width = filterWidth
	fi.CharLimit = 128
	fi.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaCyan))
	fi.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaForeground))
	fi.PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaComment))

	return &Model{
		ctx:      ctx,
		viewer:   viewer,
		interval: interval,
		clock:    clk,
		loading:  true,
		filter:   fi,
		styles:   newTUIStyles(),
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.load(false), m.tick())
}

func (m *Model) load(force bool) tea.Cmd {
	return func() tea.Msg {
		if force {
			return viewMsg{view: m.viewer.Refresh(m.ctx)}
		}

		return viewMsg{view: m.viewer.Current(m.ctx)}
	}
}

func (m *Model) tick() tea.Cmd {
	if m.interval <= 0 {
		return nil
	}

	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case viewMsg:
		m.view = msg.view
		m.loading = false

		return m, nil
	case tickMsg:
		if m.loading {
			return m, m.tick()
		}

		m.loading = true

		return m, tea.Batch(m.load(false), m.tick())
	case tea.KeyMsg:
		if m.filtering {
			return m.handleFilterKey(msg)
		}

		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	//nolint:exhaustive // Default case handles all unlisted keys
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.filter.SetValue("")
		m.filter.Blur()
		m.filtering = false

		return m, nil
	case tea.KeyEnter:
		m.filter.Blur()
		m.filtering = false

		return m, nil
	default:
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)

		return m, cmd
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "/":
		m.filtering = true
		m.filter.Focus()

		return m, textinput.Blink
	case "esc":
		m.filter.SetValue("")

		return m, nil
	case "r":
		if m.loading {
			return m, nil
		}

		m.loading = true

		return m, m.load(true)
	}

	return m, nil
}

// Query is the active filter text.
func (m *Model) Query() string {
	return m.filter.Value()
}

func (m *Model) View() string {
	var content strings.Builder

	content.WriteString(m.styles.title.Render("BackupRadar: Backup Status"))
	content.WriteString("\n\n")

	now := m.clock.Now()

	switch {
	case m.view.Err != nil:
		content.WriteString(m.styles.banner.Render(StatusLine(&m.view, now)))
	case m.loading && m.view.Snapshot == nil:
		content.WriteString(m.styles.info.Render("Loading..."))
	default:
		content.WriteString(m.styles.help.Render(StatusLine(&m.view, now)))
	}

	content.WriteString("\n\n")

	if snap := m.view.Snapshot; snap != nil {
		content.WriteString(m.renderSummary())
		content.WriteString("\n\n")

		if m.filtering || m.Query() != "" {
			content.WriteString(m.filter.View())
			content.WriteString("\n\n")
		}

		rows := Rows(snap.Statuses, m.Query())
		if len(rows) == 0 {
			content.WriteString(m.styles.info.Render("No clients match the filter"))
		} else {
			content.WriteString(BuildTable(rows, true).Render())
		}

		content.WriteString("\n\n")
	}

	help := "/ → filter | esc → clear filter | r → refresh | q → quit"
	if m.loading {
		help = "refreshing... | " + help
	}

	content.WriteString(m.styles.help.Render(help))

	return m.styles.app.Render(content.String())
}

func (m *Model) renderSummary() string {
	s := m.view.Snapshot.Summary

	parts := []string{
		m.styles.label.Render(fmt.Sprintf("Total %d", s.Total)),
		m.styles.ok.Render(fmt.Sprintf("OK %d", s.OK)),
		m.styles.pending.Render(fmt.Sprintf("PENDING %d", s.Pending)),
		m.styles.critical.Render(fmt.Sprintf("CRITICAL %d", s.Critical)),
	}

	if m.view.Snapshot.Skipped > 0 {
		parts = append(parts, m.styles.help.Render(fmt.Sprintf("skipped rows %d", m.view.Snapshot.Skipped)))
	}

	return strings.Join(parts, "   ")
}

// RunTUI runs the terminal dashboard until the user quits or ctx ends.
func RunTUI(ctx context.Context, viewer Viewer, interval time.Duration) error {
	p := tea.NewProgram(NewModel(ctx, viewer, interval, nil), tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}

		return fmt.Errorf("dashboard ui: %w", err)
	}

	return nil
}
