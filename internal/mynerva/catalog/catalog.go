// Package catalog holds the static registry of supported chat providers and
// the models each one offers. The registry is fixed at build time and never
// mutated; the frontend renders it as the provider/model picker.
package catalog

import "fmt"

// Entry describes one supported provider.
type Entry struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	Models      []string `json:"models"`
}

// Provider ids known to the registry.
const (
	OpenAI    = "openai"
	Anthropic = "anthropic"
)

// UnknownProviderError reports a provider id that is not in the registry,
// whether it came from a request, a stored config, or an environment default.
type UnknownProviderError struct {
	ID string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider: %s", e.ID)
}

// Catalog is an ordered, read-only set of provider entries.
type Catalog struct {
	entries []Entry
}

// Builtin returns the registry of providers this build supports. Model lists
// are ordered by preference; the first model is the default for its provider.
func Builtin() *Catalog {
	return &Catalog{entries: []Entry{
		{
			ID:          OpenAI,
			DisplayName: "OpenAI",
			Models: []string{
				"gpt-5.2",
				"gpt-5-mini",
				"gpt-5-nano",
				"gpt-4.1",
				"gpt-4.1-mini",
				"gpt-4.1-nano",
			},
		},
		{
			ID:          Anthropic,
			DisplayName: "Anthropic",
			Models: []string{
				"claude-sonnet-4-5-20250929",
				"claude-haiku-4-5-20251001",
				"claude-opus-4-5-20251101",
				"claude-sonnet-4-20250514",
				"claude-opus-4-1-20250805",
			},
		},
	}}
}

// List returns all entries in registry order.
func (c *Catalog) List() []Entry {
	return c.entries
}

// Has reports whether the given provider id is in the registry.
func (c *Catalog) Has(id string) bool {
	for _, e := range c.entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

// ModelsFor returns the ordered model list for a provider id, or an empty
// slice for an unknown id.
func (c *Catalog) ModelsFor(id string) []string {
	for _, e := range c.entries {
		if e.ID == id {
			return e.Models
		}
	}
	return []string{}
}

// FirstModelFor returns the preferred (first) model for a provider id, or the
// empty string for an unknown id.
func (c *Catalog) FirstModelFor(id string) string {
	models := c.ModelsFor(id)
	if len(models) == 0 {
		return ""
	}
	return models[0]
}
