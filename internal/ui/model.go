// Package ui is the Bubbletea terminal interface: the approval queue, the
// activity log, connection indicators and the chat line to the assistant.
package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mixmate/mixmate/internal/agent"
	"github.com/mixmate/mixmate/internal/approval"
)

// maxLogLines bounds the activity and chat panels.
const maxLogLines = 200

// Model is the Bubbletea model for the live session view.
type Model struct {
	queue  *approval.Queue
	onChat func(message string)

	status     string
	connection agent.ConnectionStatus
	pending    []approval.QueuedAction
	logLines   []string
	chatLines  []string

	cursor    int
	chatFocus bool
	chatInput string

	width  int
	height int
}

// NewModel builds the session view. onChat receives submitted chat
// messages; it must not block.
func NewModel(queue *approval.Queue, onChat func(string)) Model {
	return Model{
		queue:  queue,
		onChat: onChat,
		status: "Starting",
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case LogMsg:
		m.logLines = appendBounded(m.logLines, msg.Line)
		return m, nil

	case ChatMsg:
		m.chatLines = appendBounded(m.chatLines, "assistant: "+msg.Text)
		return m, nil

	case StatusMsg:
		m.status = msg.Text
		return m, nil

	case ConnectionMsg:
		m.connection = msg.Status
		return m, nil

	case PendingMsg:
		m.pending = msg.Pending
		if m.cursor >= len(m.pending) {
			m.cursor = len(m.pending) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.chatFocus {
		return m.handleChatKey(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.pending)-1 {
			m.cursor++
		}

	case "a", "y":
		if m.queue.Approve(m.cursor) {
			m.refreshPending()
		}

	case "r", "n":
		if m.queue.Reject(m.cursor) {
			m.refreshPending()
		}

	case "A":
		m.queue.ApproveAll()
		m.refreshPending()

	case "R":
		m.queue.RejectAll()
		m.refreshPending()

	case "tab", "/":
		m.chatFocus = true
	}
	return m, nil
}

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyTab:
		m.chatFocus = false
		return m, nil

	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyEnter:
		if m.chatInput != "" {
			m.chatLines = appendBounded(m.chatLines, "you: "+m.chatInput)
			if m.onChat != nil {
				m.onChat(m.chatInput)
			}
			m.chatInput = ""
		}
		m.chatFocus = false
		return m, nil

	case tea.KeyBackspace:
		if len(m.chatInput) > 0 {
			m.chatInput = m.chatInput[:len(m.chatInput)-1]
		}
		return m, nil

	case tea.KeyRunes:
		m.chatInput += string(msg.Runes)
		return m, nil

	case tea.KeySpace:
		m.chatInput += " "
		return m, nil
	}
	return m, nil
}

func (m *Model) refreshPending() {
	m.pending = m.queue.Pending()
	if m.cursor >= len(m.pending) {
		m.cursor = len(m.pending) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func appendBounded(lines []string, line string) []string {
	lines = append(lines, line)
	if len(lines) > maxLogLines {
		lines = lines[len(lines)-maxLogLines:]
	}
	return lines
}

func describePending(entry approval.QueuedAction) string {
	urgency := entry.Action.Urgency.String()
	return fmt.Sprintf("[%s] %s — %s", urgency, entry.Action.Describe(), entry.Action.Reason)
}
