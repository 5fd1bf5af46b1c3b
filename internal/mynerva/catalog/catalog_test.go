package catalog_test

import (
	"testing"

	"github.com/yacchin1205/jupyter-mynerva/internal/mynerva/catalog"
)

func TestBuiltin_Entries(t *testing.T) {
	cat := catalog.Builtin()

	entries := cat.List()
	if len(entries) != 2 {
		t.Fatalf("List returned %d entries, want 2", len(entries))
	}
	if entries[0].ID != catalog.OpenAI || entries[1].ID != catalog.Anthropic {
		t.Errorf("unexpected registry order: %q, %q", entries[0].ID, entries[1].ID)
	}

	for _, e := range entries {
		if e.DisplayName == "" {
			t.Errorf("entry %q has no display name", e.ID)
		}
		if len(e.Models) == 0 {
			t.Errorf("entry %q has no models", e.ID)
		}
	}
}

func TestModelsFor(t *testing.T) {
	cat := catalog.Builtin()

	openai := cat.ModelsFor(catalog.OpenAI)
	if len(openai) == 0 || openai[0] != "gpt-5.2" {
		t.Errorf("openai models = %v, want gpt-5.2 first", openai)
	}

	anthropic := cat.ModelsFor(catalog.Anthropic)
	if len(anthropic) == 0 || anthropic[0] != "claude-sonnet-4-5-20250929" {
		t.Errorf("anthropic models = %v, want claude-sonnet-4-5-20250929 first", anthropic)
	}

	unknown := cat.ModelsFor("gemini")
	if unknown == nil {
		t.Error("ModelsFor unknown id returned nil, want empty slice")
	}
	if len(unknown) != 0 {
		t.Errorf("ModelsFor unknown id = %v, want empty", unknown)
	}
}

func TestHasAndFirstModelFor(t *testing.T) {
	cat := catalog.Builtin()

	if !cat.Has(catalog.OpenAI) || !cat.Has(catalog.Anthropic) {
		t.Error("Has should be true for built-in providers")
	}
	if cat.Has("gemini") {
		t.Error("Has(\"gemini\") = true, want false")
	}

	if got := cat.FirstModelFor(catalog.Anthropic); got != "claude-sonnet-4-5-20250929" {
		t.Errorf("FirstModelFor(anthropic) = %q", got)
	}
	if got := cat.FirstModelFor("gemini"); got != "" {
		t.Errorf("FirstModelFor unknown = %q, want empty", got)
	}
}

func TestUnknownProviderError(t *testing.T) {
	err := &catalog.UnknownProviderError{ID: "gemini"}
	if err.Error() != "unknown provider: gemini" {
		t.Errorf("Error() = %q", err.Error())
	}
}
