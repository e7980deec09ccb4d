package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mixmate/mixmate/internal/agent"
	"github.com/mixmate/mixmate/internal/approval"
)

// Publisher adapts agent events onto the Bubbletea program. The agent's
// loops call these from their own goroutines; p.Send is safe for that.
type Publisher struct {
	program *tea.Program
	queue   *approval.Queue
}

// NewPublisher wires a program and the approval queue.
func NewPublisher(program *tea.Program, queue *approval.Queue) *Publisher {
	return &Publisher{program: program, queue: queue}
}

func (p *Publisher) Log(line string) {
	p.program.Send(LogMsg{Line: line})
}

func (p *Publisher) ChatResponse(text string) {
	p.program.Send(ChatMsg{Text: text})
}

func (p *Publisher) Status(text string) {
	p.program.Send(StatusMsg{Text: text})
}

func (p *Publisher) Connection(status agent.ConnectionStatus) {
	p.program.Send(ConnectionMsg{Status: status})
}

func (p *Publisher) PendingChanged() {
	p.program.Send(PendingMsg{Pending: p.queue.Pending()})
}
