package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#005FAF"))

	statusOkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00AA00")).
			Bold(true)

	statusBadStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AA0000")).
			Bold(true)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00AAAA")).
			MarginTop(1)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#005FAF"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)
)

// View implements tea.Model.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("MixMate 🎚"))
	sb.WriteString("  ")
	if m.status == "DISCONNECTED" {
		sb.WriteString(statusBadStyle.Render(m.status))
	} else {
		sb.WriteString(statusOkStyle.Render(m.status))
	}
	sb.WriteString("  ")
	sb.WriteString(dimStyle.Render(m.connectionSummary()))
	sb.WriteString("\n")

	sb.WriteString(sectionStyle.Render(fmt.Sprintf("Pending approval (%d)", len(m.pending))))
	sb.WriteString("\n")
	if len(m.pending) == 0 {
		sb.WriteString(dimStyle.Render("  nothing waiting"))
		sb.WriteString("\n")
	}
	for i, entry := range m.pending {
		line := "  " + describePending(entry)
		if i == m.cursor && !m.chatFocus {
			line = selectedStyle.Render("> " + describePending(entry))
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	sb.WriteString(sectionStyle.Render("Activity"))
	sb.WriteString("\n")
	for _, line := range tail(m.logLines, m.logPanelHeight()) {
		sb.WriteString("  ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	if len(m.chatLines) > 0 || m.chatFocus {
		sb.WriteString(sectionStyle.Render("Chat"))
		sb.WriteString("\n")
		for _, line := range tail(m.chatLines, 5) {
			sb.WriteString("  ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}

	if m.chatFocus {
		sb.WriteString("\n> ")
		sb.WriteString(m.chatInput)
		sb.WriteString("▌\n")
		sb.WriteString(helpStyle.Render("enter send · esc cancel"))
	} else {
		sb.WriteString("\n")
		sb.WriteString(helpStyle.Render(
			"↑/↓ select · a approve · r reject · A approve all · R reject all · tab chat · q quit"))
	}
	sb.WriteString("\n")

	return sb.String()
}

func (m Model) connectionSummary() string {
	parts := make([]string, 0, 3)

	console := "console ✗"
	if m.connection.ConsoleConnected {
		console = "console ✓ " + m.connection.ConsoleModel
	}
	parts = append(parts, console)

	if m.connection.AudioConnected {
		parts = append(parts, fmt.Sprintf("audio ✓ %s %dch",
			m.connection.AudioBackend, m.connection.AudioChannels))
	} else {
		parts = append(parts, "audio: console meters")
	}

	if m.connection.LLMConnected {
		parts = append(parts, "llm ✓")
	}

	return strings.Join(parts, " · ")
}

// logPanelHeight sizes the activity panel from the terminal height,
// leaving room for the other panels.
func (m Model) logPanelHeight() int {
	h := m.height - len(m.pending) - 12
	if h < 5 {
		return 5
	}
	if h > 30 {
		return 30
	}
	return h
}

func tail(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}
