// Package chat dispatches a resolved (provider, model, credential) and a
// message list to the matching LLM provider and normalizes the result
// envelope.
//
// The provider set is closed: each supported provider id maps to one variant
// implementing Provider, selected by a single lookup. Provider-specific
// message shaping (notably Anthropic's separate system parameter) lives
// inside its variant.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/yacchin1205/jupyter-mynerva/internal/mynerva/catalog"
)

// ErrMissingCredential is returned when no API key could be resolved for the
// selected provider. It maps to a server-configuration error, not a bad
// request.
var ErrMissingCredential = errors.New("chat: API key not configured")

const defaultTimeout = 120 * time.Second

// Message is a single chat turn as received from the frontend. Actions is an
// optional structured payload of assistant-proposed actions; its JSON is
// forwarded verbatim where the provider allows it.
type Message struct {
	Role    string          `json:"role"`
	Content string          `json:"content"`
	Actions json.RawMessage `json:"actions,omitempty"`
}

// Result is the normalized response envelope: the provider id that served
// the call and the provider's raw JSON response body.
type Result struct {
	Provider string          `json:"provider"`
	Response json.RawMessage `json:"response"`
}

// Provider is the capability each variant implements.
type Provider interface {
	// Send performs one chat completion call and returns the provider's
	// raw JSON response body.
	Send(ctx context.Context, model, apiKey string, messages []Message) (json.RawMessage, error)
}

// Dispatcher routes a send to the variant registered for the provider id.
type Dispatcher struct {
	providers map[string]Provider
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithProvider registers (or replaces) the variant for a provider id.
// Used by tests to point a variant at a stub endpoint.
func WithProvider(id string, p Provider) Option {
	return func(d *Dispatcher) {
		d.providers[id] = p
	}
}

// NewDispatcher creates a Dispatcher with the two built-in variants sharing
// one HTTP client.
func NewDispatcher(opts ...Option) *Dispatcher {
	client := &http.Client{Timeout: defaultTimeout}
	d := &Dispatcher{providers: map[string]Provider{
		catalog.OpenAI:    NewOpenAI("", client),
		catalog.Anthropic: NewAnthropic("", client),
	}}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Send resolves the provider variant and performs the call.
//
// A missing credential fails before the provider lookup (matching the order
// callers surface errors in: server misconfiguration first, then bad
// request).
func (d *Dispatcher) Send(ctx context.Context, providerID, model, apiKey string, messages []Message) (Result, error) {
	if apiKey == "" {
		return Result{}, ErrMissingCredential
	}

	p, ok := d.providers[providerID]
	if !ok {
		return Result{}, &catalog.UnknownProviderError{ID: providerID}
	}

	response, err := p.Send(ctx, model, apiKey, messages)
	if err != nil {
		return Result{}, err
	}

	return Result{Provider: providerID, Response: response}, nil
}
