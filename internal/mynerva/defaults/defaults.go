// Package defaults captures environment-supplied fallback credentials at
// process start and resolves which provider/model to use when no saved
// configuration exists.
//
// The secret variables are read exactly once and erased from the process
// environment immediately, so they cannot leak into child processes or later
// env dumps. The captured set is immutable for the lifetime of the process.
package defaults

import (
	"github.com/yacchin1205/jupyter-mynerva/common/environment"
	"github.com/yacchin1205/jupyter-mynerva/internal/mynerva/catalog"
)

// Environment variable names consumed at startup.
const (
	OpenAIKeyEnv       = "OPENAI_API_KEY"
	AnthropicKeyEnv    = "ANTHROPIC_API_KEY"
	DefaultProviderEnv = "MYNERVA_DEFAULT_PROVIDER"
	DefaultModelEnv    = "MYNERVA_DEFAULT_MODEL"
)

// Credentials is the immutable set of environment-derived defaults.
type Credentials struct {
	openaiKey    string
	anthropicKey string
	provider     string
	model        string
}

// Capture reads the default-credential environment variables once and unsets
// the two secret ones. Call it exactly once, early in main, before anything
// can spawn a subprocess.
func Capture() *Credentials {
	openaiKey, _ := environment.Take(OpenAIKeyEnv)
	anthropicKey, _ := environment.Take(AnthropicKeyEnv)

	return &Credentials{
		openaiKey:    openaiKey,
		anthropicKey: anthropicKey,
		provider:     environment.StringOr(DefaultProviderEnv, ""),
		model:        environment.StringOr(DefaultModelEnv, ""),
	}
}

// Fixed builds a credential set from explicit values, bypassing the
// environment. Intended for tests and for callers that already hold the
// values.
func Fixed(openaiKey, anthropicKey, provider, model string) *Credentials {
	return &Credentials{
		openaiKey:    openaiKey,
		anthropicKey: anthropicKey,
		provider:     provider,
		model:        model,
	}
}

// CredentialFor returns the captured API key for a provider id, if any.
func (c *Credentials) CredentialFor(provider string) (string, bool) {
	switch provider {
	case catalog.OpenAI:
		return c.openaiKey, c.openaiKey != ""
	case catalog.Anthropic:
		return c.anthropicKey, c.anthropicKey != ""
	default:
		return "", false
	}
}

// Selection is a resolved default provider/model pair.
type Selection struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Resolve decides which provider/model the environment defaults select.
//
// Policy, evaluated in order:
//  1. Neither provider has a credential: no defaults (ok=false).
//  2. Exactly one provider has a credential: that provider.
//  3. Both have credentials: the explicit default-provider variable is
//     mandatory. Absent, resolution is ambiguous and yields ok=false; set to
//     an id outside the catalog it is an UnknownProviderError.
//
// The model is the explicit default-model variable when set, otherwise the
// provider's first catalog model.
func (c *Credentials) Resolve(cat *catalog.Catalog) (Selection, bool, error) {
	hasOpenAI := c.openaiKey != ""
	hasAnthropic := c.anthropicKey != ""

	var provider string
	switch {
	case !hasOpenAI && !hasAnthropic:
		return Selection{}, false, nil
	case hasOpenAI && !hasAnthropic:
		provider = catalog.OpenAI
	case hasAnthropic && !hasOpenAI:
		provider = catalog.Anthropic
	default:
		if c.provider == "" {
			// Both credentials present with no explicit choice: treat
			// defaults as unavailable rather than guessing.
			return Selection{}, false, nil
		}
		if !cat.Has(c.provider) {
			return Selection{}, false, &catalog.UnknownProviderError{ID: c.provider}
		}
		provider = c.provider
	}

	model := c.model
	if model == "" {
		model = cat.FirstModelFor(provider)
	}

	return Selection{Provider: provider, Model: model}, true, nil
}
