package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const defaultOpenAIBase = "https://api.openai.com/v1"

// openAIProvider calls the OpenAI chat completions API. Messages are passed
// through unmodified, including any actions payloads, because the API accepts
// the frontend's message shape as-is.
type openAIProvider struct {
	baseURL string
	client  *http.Client
}

// NewOpenAI returns the OpenAI provider variant. An empty baseURL selects
// the public API endpoint; a nil client gets the default timeout.
func NewOpenAI(baseURL string, client *http.Client) Provider {
	if baseURL == "" {
		baseURL = defaultOpenAIBase
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &openAIProvider{baseURL: baseURL, client: client}
}

type openAIRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// openAIError is the error shape OpenAI embeds in non-2xx bodies.
type openAIError struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (p *openAIProvider) Send(ctx context.Context, model, apiKey string, messages []Message) (json.RawMessage, error) {
	body := openAIRequest{Model: model, Messages: messages}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("chat: marshal openai request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("chat: create openai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat: openai request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("chat: read openai response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr openAIError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != nil {
			return nil, fmt.Errorf("chat: openai API error (%s): %s", apiErr.Error.Type, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("chat: openai API returned HTTP %d", resp.StatusCode)
	}

	return json.RawMessage(respBody), nil
}
