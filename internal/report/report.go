package report

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mixmate/mixmate/internal/discovery"
	"github.com/mixmate/mixmate/internal/memory"
)

// SessionData collects everything the session report shows.
type SessionData struct {
	StartTime time.Time
	EndTime   time.Time

	ConsoleModel string
	ChannelCount int
	BusCount     int
	Genre        string
	ApprovalMode string
	AudioBackend string

	Profiles []discovery.ChannelProfile
	History  []memory.Entry

	LLMCalls      int
	LLMFailures   int
	LLMAvgLatency time.Duration
	Decisions     int
}

// Generate writes the session report to path.
func Generate(path string, data SessionData) error {
	var sb strings.Builder

	sb.WriteString("MixMate Session Report\n")
	sb.WriteString("======================\n\n")

	sb.WriteString(fmt.Sprintf("Started:   %s\n", data.StartTime.Format(time.RFC1123)))
	sb.WriteString(fmt.Sprintf("Ended:     %s\n", data.EndTime.Format(time.RFC1123)))
	sb.WriteString(fmt.Sprintf("Duration:  %s\n", data.EndTime.Sub(data.StartTime).Round(time.Second)))
	sb.WriteString(fmt.Sprintf("Console:   %s (%d ch, %d bus)\n",
		data.ConsoleModel, data.ChannelCount, data.BusCount))
	if data.Genre != "" {
		sb.WriteString(fmt.Sprintf("Genre:     %s\n", data.Genre))
	}
	sb.WriteString(fmt.Sprintf("Approval:  %s\n", data.ApprovalMode))
	if data.AudioBackend != "" {
		sb.WriteString(fmt.Sprintf("Audio:     %s\n", data.AudioBackend))
	}
	sb.WriteString("\n")

	sb.WriteString("Channel Map\n")
	sb.WriteString("-----------\n")
	sb.WriteString(channelMapTable(data.Profiles))
	sb.WriteString("\n")

	sb.WriteString("Decision Engine\n")
	sb.WriteString("---------------\n")
	sb.WriteString(fmt.Sprintf("LLM calls:        %d (%d failed)\n", data.LLMCalls, data.LLMFailures))
	if data.LLMCalls > 0 {
		sb.WriteString(fmt.Sprintf("Average latency:  %s\n", data.LLMAvgLatency.Round(time.Millisecond)))
	}
	sb.WriteString(fmt.Sprintf("Recorded approve/reject decisions: %d\n", data.Decisions))
	sb.WriteString("\n")

	if len(data.History) > 0 {
		sb.WriteString("Action History\n")
		sb.WriteString("--------------\n")
		for _, e := range data.History {
			sb.WriteString(fmt.Sprintf("%s  %-20s  %s\n",
				e.Timestamp.Format("15:04:05"), e.Type.String(), e.Note))
		}
		sb.WriteString("\n")
	}

	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

// channelMapTable renders the discovered channel map. Channels with no
// name and no signal are omitted.
func channelMapTable(profiles []discovery.ChannelProfile) string {
	t := &Table{Headers: []string{"Role", "Conf", "RMS", "Crest", "Pair"}}

	for _, p := range profiles {
		if p.ConsoleName == "" && !p.Fingerprint.HasSignal {
			continue
		}
		name := p.ConsoleName
		if name == "" {
			name = "(unnamed)"
		}
		pair := missingValue
		if p.StereoPair != 0 {
			pair = fmt.Sprintf("ch%d", p.StereoPair)
		}
		t.AddRow(
			fmt.Sprintf("ch%02d %s", p.Index, name),
			p.Role.String(),
			p.Confidence.String(),
			formatDB(p.Fingerprint.AverageRMS, 1),
			formatMetric(p.Fingerprint.CrestFactor, 1),
			pair,
		)
	}

	if len(t.Rows) == 0 {
		return "(no active channels)\n"
	}
	return t.String()
}
