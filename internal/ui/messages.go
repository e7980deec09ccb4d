package ui

import (
	"github.com/mixmate/mixmate/internal/agent"
	"github.com/mixmate/mixmate/internal/approval"
)

// LogMsg appends a line to the activity log panel.
type LogMsg struct {
	Line string
}

// ChatMsg appends an assistant reply to the chat panel.
type ChatMsg struct {
	Text string
}

// StatusMsg updates the one-line agent status.
type StatusMsg struct {
	Text string
}

// ConnectionMsg refreshes the connectivity indicators.
type ConnectionMsg struct {
	Status agent.ConnectionStatus
}

// PendingMsg replaces the approval-queue view contents.
type PendingMsg struct {
	Pending []approval.QueuedAction
}
