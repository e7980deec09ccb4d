// Package memory keeps the rolling session log that feeds LLM context:
// recent actions and their fates, observations, engineer instructions and
// periodic mix snapshots.
package memory

import (
	"strconv"
	"sync"
	"time"

	"github.com/mixmate/mixmate/internal/action"
)

// EntryType tags what a memory entry records.
type EntryType int

const (
	ActionTaken    EntryType = iota // we changed something
	ActionRejected                  // approval queue rejected it
	Observation                     // LLM noted something
	EngOverride                     // engineer manually changed something
	EngInstruction                  // engineer typed a chat instruction
	MixSnapshot                     // periodic mix state dump
)

func (t EntryType) String() string {
	switch t {
	case ActionTaken:
		return "action_taken"
	case ActionRejected:
		return "action_rejected"
	case Observation:
		return "observation"
	case EngOverride:
		return "engineer_override"
	case EngInstruction:
		return "engineer_instruction"
	case MixSnapshot:
		return "snapshot"
	}
	return "unknown"
}

// Entry is one record in the session log.
type Entry struct {
	Timestamp time.Time
	Type      EntryType
	Action    action.MixAction
	Context   map[string]any // mix state at time of entry, if captured
	Note      string
}

// Session is the bounded FIFO log. Entries beyond the bound evict oldest
// first.
type Session struct {
	mu         sync.RWMutex
	maxEntries int
	entries    []Entry
}

// NewSession builds a log bounded to maxEntries (defaults to 100 when
// non-positive).
func NewSession(maxEntries int) *Session {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	return &Session{maxEntries: maxEntries}
}

// RecordAction logs an executed action with its mix context.
func (s *Session) RecordAction(a action.MixAction, context map[string]any) {
	s.append(Entry{
		Timestamp: time.Now(),
		Type:      ActionTaken,
		Action:    a,
		Context:   context,
		Note:      a.Describe(),
	})
}

// RecordRejection logs a rejected action and the reason.
func (s *Session) RecordRejection(a action.MixAction, reason string) {
	s.append(Entry{
		Timestamp: time.Now(),
		Type:      ActionRejected,
		Action:    a,
		Note:      "Rejected: " + reason,
	})
}

// RecordObservation logs an LLM observation.
func (s *Session) RecordObservation(note string) {
	obs := action.MixAction{Kind: action.Observation, Reason: note}
	s.append(Entry{
		Timestamp: time.Now(),
		Type:      Observation,
		Action:    obs,
		Note:      note,
	})
}

// RecordEngineerOverride logs a manual change the engineer made.
func (s *Session) RecordEngineerOverride(channel int, what string) {
	s.append(Entry{
		Timestamp: time.Now(),
		Type:      EngOverride,
		Action:    action.MixAction{Channel: channel, Reason: what},
		Note:      "Engineer override ch" + strconv.Itoa(channel) + ": " + what,
	})
}

// RecordInstruction logs a chat instruction from the engineer.
func (s *Session) RecordInstruction(instruction string) {
	s.append(Entry{
		Timestamp: time.Now(),
		Type:      EngInstruction,
		Action:    action.MixAction{Kind: action.Observation, Reason: instruction},
		Note:      instruction,
	})
}

// RecordSnapshot logs a periodic mix state dump.
func (s *Session) RecordSnapshot(mixState map[string]any) {
	s.append(Entry{
		Timestamp: time.Now(),
		Type:      MixSnapshot,
		Context:   mixState,
		Note:      "Mix snapshot",
	})
}

// ActiveInstructions returns up to max of the most recent engineer
// instructions, oldest first.
func (s *Session) ActiveInstructions(max int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var reversed []string
	for i := len(s.entries) - 1; i >= 0 && len(reversed) < max; i-- {
		if s.entries[i].Type == EngInstruction {
			reversed = append(reversed, s.entries[i].Note)
		}
	}
	out := make([]string, len(reversed))
	for i, v := range reversed {
		out[len(reversed)-1-i] = v
	}
	return out
}

// BuildContext serialises the most recent maxRecent entries for the LLM
// prompt. seconds_ago is derived at read time.
func (s *Session) BuildContext(maxRecent int) []map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := len(s.entries) - maxRecent
	if start < 0 {
		start = 0
	}

	now := time.Now()
	ctx := make([]map[string]any, 0, len(s.entries)-start)
	for _, e := range s.entries[start:] {
		entry := map[string]any{
			"seconds_ago": int(now.Sub(e.Timestamp).Seconds()),
			"note":        e.Note,
			"type":        e.Type.String(),
		}
		switch e.Type {
		case ActionTaken, ActionRejected:
			entry["action"] = string(e.Action.ToJSON())
		case EngOverride:
			entry["channel"] = e.Action.Channel
		case EngInstruction:
			entry["instruction"] = e.Note
		}
		ctx = append(ctx, entry)
	}
	return ctx
}

// Entries returns a copy of the whole log, oldest first. Used by the
// session report.
func (s *Session) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), s.entries...)
}

// Size reports the current entry count.
func (s *Session) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Session) append(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	if excess := len(s.entries) - s.maxEntries; excess > 0 {
		s.entries = append(s.entries[:0], s.entries[excess:]...)
	}
}
