package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	defaultAnthropicBase = "https://api.anthropic.com/v1"
	anthropicVersion     = "2023-06-01"
	anthropicMaxTokens   = 4096
)

// anthropicProvider calls the Anthropic messages API. The API differs from
// the frontend's message shape in two ways handled here: system-role messages
// go into a separate top-level system parameter, and there is no field for
// structured action payloads, so those are serialized into the owning
// message's text.
type anthropicProvider struct {
	baseURL string
	client  *http.Client
}

// NewAnthropic returns the Anthropic provider variant. An empty baseURL
// selects the public API endpoint; a nil client gets the default timeout.
func NewAnthropic(baseURL string, client *http.Client) Provider {
	if baseURL == "" {
		baseURL = defaultAnthropicBase
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &anthropicProvider{baseURL: baseURL, client: client}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
	System    string             `json:"system,omitempty"`
}

// anthropicError is the error shape Anthropic embeds in non-2xx bodies.
type anthropicError struct {
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// normalize splits the frontend message list into the Anthropic wire form.
// System messages are concatenated in order, separated by a blank line, into
// a single system instruction. Action payloads are appended to their
// message's content; role and ordering of the remaining messages are
// preserved.
func normalize(messages []Message) (string, []anthropicMessage) {
	var systemParts []string
	wire := make([]anthropicMessage, 0, len(messages))

	for _, m := range messages {
		if m.Role == "system" {
			systemParts = append(systemParts, m.Content)
			continue
		}

		content := m.Content
		if len(m.Actions) > 0 && string(m.Actions) != "null" {
			content += "\n\n" + string(m.Actions)
		}
		wire = append(wire, anthropicMessage{Role: m.Role, Content: content})
	}

	return strings.Join(systemParts, "\n\n"), wire
}

func (p *anthropicProvider) Send(ctx context.Context, model, apiKey string, messages []Message) (json.RawMessage, error) {
	system, wire := normalize(messages)

	body := anthropicRequest{
		Model:     model,
		MaxTokens: anthropicMaxTokens,
		Messages:  wire,
		System:    system,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("chat: marshal anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/messages", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("chat: create anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat: anthropic request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("chat: read anthropic response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr anthropicError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != nil {
			return nil, fmt.Errorf("chat: anthropic API error (%s): %s", apiErr.Error.Type, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("chat: anthropic API returned HTTP %d", resp.StatusCode)
	}

	return json.RawMessage(respBody), nil
}
