// Package confirmwatch provides an interactive terminal UI for resolving
// pending confirmation requests, built on Bubble Tea.
package confirmwatch

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mymolt/mymolt/internal/confirmation"
)

var (
	colorTool      = lipgloss.Color("#88C0D0")
	colorSelected  = lipgloss.Color("#7D56F4")
	colorSubtle    = lipgloss.Color("#666666")
	colorApprove   = lipgloss.Color("#A3BE8C")
	colorDeny      = lipgloss.Color("#FF6B6B")

	toolStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorTool)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorSelected)
	subtleStyle   = lipgloss.NewStyle().Foreground(colorSubtle)
	helpStyle     = lipgloss.NewStyle().Foreground(colorSubtle)
)

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Approve key.Binding
	Deny    key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("up/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("dn/j", "down")),
	Approve: key.NewBinding(key.WithKeys("y", "enter"), key.WithHelp("y/enter", "approve")),
	Deny:    key.NewBinding(key.WithKeys("n", "d"), key.WithHelp("n/d", "deny")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func matchesBinding(msg tea.KeyMsg, binding key.Binding) bool {
	for _, k := range binding.Keys() {
		if msg.String() == k {
			return true
		}
	}
	return false
}

// requestMsg carries a freshly broadcast confirmation request into the
// Bubble Tea event loop.
type requestMsg confirmation.Request

// Model is the root Bubble Tea model for the confirmation watcher.
type Model struct {
	gate     *confirmation.Gate
	sub      <-chan confirmation.Request
	cancel   func()
	pending  []confirmation.Request
	cursor   int
	lastNote string
	width    int
}

// New creates a confirmation watcher model subscribed to gate.
func New(gate *confirmation.Gate) *Model {
	sub, cancel := gate.Subscribe()
	return &Model{
		gate:    gate,
		sub:     sub,
		cancel:  cancel,
		pending: gate.GetPending(),
		width:   80,
	}
}

func (m *Model) Init() tea.Cmd {
	return m.waitForRequest()
}

func (m *Model) waitForRequest() tea.Cmd {
	return func() tea.Msg {
		req := <-m.sub
		return requestMsg(req)
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case requestMsg:
		m.pending = m.gate.GetPending()
		return m, m.waitForRequest()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case matchesBinding(msg, keys.Quit):
		m.cancel()
		return m, tea.Quit

	case matchesBinding(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case matchesBinding(msg, keys.Down):
		if m.cursor < len(m.pending)-1 {
			m.cursor++
		}

	case matchesBinding(msg, keys.Approve):
		m.resolve(true)

	case matchesBinding(msg, keys.Deny):
		m.resolve(false)
	}
	return m, nil
}

func (m *Model) resolve(approved bool) {
	if len(m.pending) == 0 {
		return
	}
	req := m.pending[m.cursor]
	if err := m.gate.Resolve(req.ID, approved); err != nil {
		m.lastNote = err.Error()
		return
	}
	if approved {
		m.lastNote = "approved " + req.Tool
	} else {
		m.lastNote = "denied " + req.Tool
	}
	m.pending = m.gate.GetPending()
	if m.cursor >= len(m.pending) {
		m.cursor = len(m.pending) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) View() string {
	var out string
	out += toolStyle.Render("MyMolt confirmation watcher") + "\n\n"

	if len(m.pending) == 0 {
		out += subtleStyle.Render("no pending requests") + "\n"
	}
	for i, req := range m.pending {
		line := req.Tool + ": " + req.Summary
		if i == m.cursor {
			out += selectedStyle.Render("> "+line) + "\n"
		} else {
			out += "  " + line + "\n"
		}
	}

	if m.lastNote != "" {
		out += "\n" + subtleStyle.Render(m.lastNote) + "\n"
	}

	out += "\n" + helpStyle.Render("y/enter approve · n/d deny · j/k move · q quit") + "\n"
	return out
}
