package llm

import (
	"encoding/json"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/mixmate/mixmate/internal/action"
)

// ParseActions extracts mix actions from a raw model response. Models
// wrap JSON in prose and markdown fences, so the parser hunts for the
// outermost array and decodes each element independently: one malformed
// entry becomes a NoAction without sinking the rest.
func ParseActions(response string) []action.MixAction {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start < 0 || end <= start {
		log.Warn("LLM response contains no JSON array")
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(response[start:end+1]), &raw); err != nil {
		log.WithError(err).Error("failed to parse LLM actions")
		return nil
	}

	actions := make([]action.MixAction, 0, len(raw))
	for _, item := range raw {
		actions = append(actions, action.FromJSON(item))
	}
	return actions
}

// ChatResponse is the parsed form of a chat-mode reply.
type ChatResponse struct {
	Reply   string
	Actions []action.MixAction
}

// ParseChatResponse decodes a chat reply. When the response isn't the
// expected JSON object, the whole text (truncated) is treated as the
// conversational reply.
func ParseChatResponse(response string) ChatResponse {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start >= 0 && end > start {
		var parsed struct {
			Reply   string            `json:"reply"`
			Actions []json.RawMessage `json:"actions"`
		}
		if err := json.Unmarshal([]byte(response[start:end+1]), &parsed); err == nil {
			cr := ChatResponse{Reply: parsed.Reply}
			for _, item := range parsed.Actions {
				cr.Actions = append(cr.Actions, action.FromJSON(item))
			}
			return cr
		}
	}

	reply := response
	if len(reply) > 200 {
		reply = reply[:200]
	}
	return ChatResponse{Reply: reply}
}
