// Package ui provides an interactive monitor for an announcement queue:
// type a line to enqueue it as an alert, watch the queue drain, toggle
// mute, and cancel in-flight speech. The bubbletea update loop doubles as
// the queue's single goroutine; its frame tick drives Queue.Step.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"

	"github.com/a11ykit/announce"
	"github.com/a11ykit/announce/queue"
)

const frameInterval = time.Second / 60

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	speakingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	entryStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

type tickMsg time.Time

// Model is the bubbletea model for the queue monitor.
type Model struct {
	queue *queue.Queue
	input textinput.Model

	width    int
	lastTick time.Time

	// Tasks delivers externally-produced work (dispatched platform
	// callbacks) into the update loop.
	Tasks chan func()
}

// NewModel creates a monitor for the given queue.
func NewModel(q *queue.Queue) Model {
	input := textinput.New()
	input.Placeholder = "type an alert and press enter"
	input.Focus()
	input.CharLimit = 200

	return Model{
		queue:    q,
		input:    input,
		lastTick: time.Now(),
		Tasks:    make(chan func(), 64),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tick())
}

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		now := time.Time(msg)
		dt := now.Sub(m.lastTick)
		m.lastTick = now

		// Drain dispatched platform callbacks on the update goroutine
		// before stepping, preserving the queue's threading contract.
		for {
			select {
			case task := <-m.Tasks:
				task()
				continue
			default:
			}
			break
		}
		m.queue.Step(dt)
		return m, tick()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text != "" {
				m.queue.AddToBack(announce.Text(text))
				m.input.Reset()
			}
			return m, nil
		case "ctrl+s":
			m.queue.SetMuted(!m.queue.Muted())
			return m, nil
		case "ctrl+x":
			m.queue.Cancel()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("announcement queue"))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("speaking: "))
	if u := m.queue.Announcing(); u != nil {
		text := u.AlertText(nil, false)
		b.WriteString(speakingStyle.Render(truncate.StringWithTail(text, uint(width-12), "…")))
	} else {
		b.WriteString(labelStyle.Render("—"))
	}
	b.WriteString("\n")

	b.WriteString(labelStyle.Render(fmt.Sprintf("queued: %d", m.queue.Length())))
	if m.queue.Muted() {
		b.WriteString("  ")
		b.WriteString(mutedStyle.Render("[muted]"))
	}
	if !m.queue.Enabled() {
		b.WriteString("  ")
		b.WriteString(mutedStyle.Render("[disabled]"))
	}
	b.WriteString("\n\n")

	for i, e := range m.queue.Entries() {
		if i >= 8 {
			b.WriteString(labelStyle.Render(fmt.Sprintf("  … %d more\n", m.queue.Length()-i)))
			break
		}
		text := e.Utterance.AlertText(nil, false)
		age := humanize.RelTime(time.Now().Add(-e.TimeInQueue), time.Now(), "in queue", "")
		line := fmt.Sprintf("  %s %s",
			runewidth.FillRight(truncate.StringWithTail(text, uint(width/2), "…"), width/2),
			labelStyle.Render(age))
		b.WriteString(entryStyle.Render(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter: announce · ctrl+s: mute · ctrl+x: cancel · esc: quit"))
	return b.String()
}

// Run starts the monitor and blocks until it exits.
func Run(q *queue.Queue) (Model, error) {
	m := NewModel(q)
	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return m, fmt.Errorf("running monitor: %w", err)
	}
	if fm, ok := final.(Model); ok {
		return fm, nil
	}
	return m, nil
}
