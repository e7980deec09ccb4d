package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/mixmate/mixmate/internal/action"
)

// Engine is the production decision engine. It prefers Anthropic and
// falls back to Ollama (or the reverse in Ollama-primary mode); a tick
// whose backends all fail yields no actions and the loop carries on.
type Engine struct {
	cfg     Config
	client  *http.Client
	prompts promptFiles

	statsMu      sync.Mutex
	totalCalls   int
	failedCalls  int
	totalLatency time.Duration
}

// NewEngine builds an engine from the config, loading prompt files when a
// prompt directory is configured.
func NewEngine(cfg Config) *Engine {
	e := &Engine{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.PromptDir != "" {
		if err := e.LoadPromptFiles(); err != nil {
			log.WithError(err).Warn("prompt directory unusable — using built-in prompt")
		}
	}
	return e
}

// LoadPromptFiles (re)loads the prompt overlay from the configured
// directory. Safe to call at runtime, e.g. after a genre change.
func (e *Engine) LoadPromptFiles() error {
	pf, err := loadPromptFiles(e.cfg.PromptDir, e.cfg.ActiveGenre)
	if err != nil {
		return err
	}
	e.prompts = pf
	log.WithField("dir", e.cfg.PromptDir).Info("loaded prompt files")
	return nil
}

// HasLoadedPrompts reports whether file-based prompts are active.
func (e *Engine) HasLoadedPrompts() bool { return e.prompts.loaded() }

// DecideMixActions asks the engine what to adjust given the mix state and
// session context.
func (e *Engine) DecideMixActions(mixState, sessionContext any) ([]action.MixAction, error) {
	prompt, err := json.Marshal(map[string]any{
		"mix_state":      mixState,
		"recent_history": sessionContext,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal mix prompt: %w", err)
	}

	response, err := e.CallRaw(e.prompts.systemPrompt(), string(prompt))
	if err != nil {
		return nil, err
	}
	return ParseActions(response), nil
}

// CallRaw sends one prompt through the configured backend chain and
// returns the raw text response.
func (e *Engine) CallRaw(systemPrompt, userMessage string) (string, error) {
	start := time.Now()

	var response string
	var err error
	if e.cfg.OllamaPrimary {
		response, err = e.callOllama(systemPrompt, userMessage)
		if err != nil && e.cfg.AnthropicAPIKey != "" {
			log.WithError(err).Warn("Ollama call failed — trying Anthropic")
			response, err = e.callAnthropic(systemPrompt, userMessage)
		}
	} else {
		if e.cfg.AnthropicAPIKey != "" {
			response, err = e.callAnthropic(systemPrompt, userMessage)
		} else {
			err = fmt.Errorf("no Anthropic API key configured")
		}
		if err != nil && e.cfg.UseFallback {
			log.WithError(err).Warn("Anthropic call failed — trying Ollama")
			response, err = e.callOllama(systemPrompt, userMessage)
		}
	}

	elapsed := time.Since(start)
	e.statsMu.Lock()
	e.totalCalls++
	e.totalLatency += elapsed
	if err != nil {
		e.failedCalls++
	}
	e.statsMu.Unlock()

	if err != nil {
		return "", fmt.Errorf("all LLM backends failed: %w", err)
	}
	log.WithFields(log.Fields{
		"latency": elapsed, "chars": len(response),
	}).Debug("LLM response")
	return response, nil
}

// anthropicRequest is the Messages API request body.
type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (e *Engine) callAnthropic(systemPrompt, userMessage string) (string, error) {
	body, err := json.Marshal(anthropicRequest{
		Model:       e.cfg.AnthropicModel,
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
		System:      systemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: userMessage}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	baseURL := e.cfg.AnthropicBaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	req, err := http.NewRequest(http.MethodPost,
		baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-api-key", e.cfg.AnthropicAPIKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("content-type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("anthropic request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic API error %d: %.200s", resp.StatusCode, data)
	}

	var ar anthropicResponse
	if err := json.Unmarshal(data, &ar); err != nil {
		return "", fmt.Errorf("parse anthropic response: %w", err)
	}
	if len(ar.Content) == 0 {
		return string(data), nil
	}
	return ar.Content[0].Text, nil
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	Stream  bool           `json:"stream"`
	System  string         `json:"system"`
	Prompt  string         `json:"prompt"`
	Options map[string]any `json:"options"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

func (e *Engine) callOllama(systemPrompt, userMessage string) (string, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:  e.cfg.OllamaModel,
		Stream: false,
		System: systemPrompt,
		Prompt: userMessage,
		Options: map[string]any{
			"temperature": e.cfg.Temperature,
			"num_predict": e.cfg.MaxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	// Local models can be slow — give them a generous read window.
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Post(e.cfg.OllamaHost+"/api/generate",
		"application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama API error %d", resp.StatusCode)
	}

	var or ollamaResponse
	if err := json.Unmarshal(data, &or); err != nil {
		return "", fmt.Errorf("parse ollama response: %w", err)
	}
	return or.Response, nil
}

// Stats reports call counters and the average latency.
func (e *Engine) Stats() (total, failed int, avgLatency time.Duration) {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	if e.totalCalls > 0 {
		avgLatency = e.totalLatency / time.Duration(e.totalCalls)
	}
	return e.totalCalls, e.failedCalls, avgLatency
}

// ChatSystemPrompt returns the prompt used for free-text engineer chat.
func ChatSystemPrompt() string { return chatSystemPrompt }
