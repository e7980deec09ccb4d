package agent

// Events is what the supervisor publishes to the UI layer. Implementations
// must not block: callbacks arrive from the DSP, LLM and executor loops.
type Events interface {
	// Log appends one line to the activity log.
	Log(line string)
	// ChatResponse delivers a conversational LLM reply.
	ChatResponse(text string)
	// Status updates the one-line agent status ("Running", "DISCONNECTED").
	Status(text string)
	// Connection publishes the connectivity indicator block.
	Connection(status ConnectionStatus)
	// PendingChanged signals that the approval queue contents moved.
	PendingChanged()
}

// NopEvents discards everything; used in headless mode and tests.
type NopEvents struct{}

func (NopEvents) Log(string)                 {}
func (NopEvents) ChatResponse(string)        {}
func (NopEvents) Status(string)              {}
func (NopEvents) Connection(ConnectionStatus) {}
func (NopEvents) PendingChanged()            {}
