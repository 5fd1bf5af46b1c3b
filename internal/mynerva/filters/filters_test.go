package filters_test

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/yacchin1205/jupyter-mynerva/internal/mynerva/filters"
)

func writeFilterFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "filters.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write filter file: %v", err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	entries, err := filters.Load(filepath.Join(t.TempDir(), "no-such-file.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("defaults = %+v, want 2 entries", entries)
	}

	ip := regexp.MustCompile(entries[0].Pattern)
	if !ip.MatchString("connect to 192.168.1.10 now") {
		t.Error("default IPv4 pattern did not match a literal address")
	}
	if ip.MatchString("version 999.999.999.999") {
		t.Error("default IPv4 pattern matched an out-of-range literal")
	}

	domain := regexp.MustCompile(entries[1].Pattern)
	if !domain.MatchString("see internal.example.com for details") {
		t.Error("default domain pattern did not match a hostname")
	}

	for i, e := range entries {
		if e.Label == "" {
			t.Errorf("default entry %d has no label", i)
		}
	}
}

func TestLoad_ValidFile(t *testing.T) {
	path := writeFilterFile(t, `
filters:
  - pattern: '\bAKIA[0-9A-Z]{16}\b'
    label: "[aws-key]"
  - pattern: '[0-9]{3}-[0-9]{2}-[0-9]{4}'
    label: "[ssn]"
`)

	entries, err := filters.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %+v, want 2", entries)
	}
	if entries[0].Label != "[aws-key]" || entries[1].Label != "[ssn]" {
		t.Errorf("labels = %q, %q", entries[0].Label, entries[1].Label)
	}
}

func TestLoad_EmptyFilterList(t *testing.T) {
	path := writeFilterFile(t, "filters: []\n")

	entries, err := filters.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// An explicit empty list means "no filtering", not "use defaults".
	if entries == nil || len(entries) != 0 {
		t.Errorf("entries = %+v, want empty list", entries)
	}
}

func TestLoad_MalformedEntries(t *testing.T) {
	cases := []struct {
		name       string
		content    string
		wantIndex  int
		wantReason string
	}{
		{
			name: "missing label",
			content: `
filters:
  - pattern: 'first'
    label: "[ok]"
  - pattern: 'second'
`,
			wantIndex:  1,
			wantReason: "missing label",
		},
		{
			name: "missing pattern",
			content: `
filters:
  - label: "[orphan]"
`,
			wantIndex:  0,
			wantReason: "missing pattern",
		},
		{
			name: "pattern does not compile",
			content: `
filters:
  - pattern: '([unclosed'
    label: "[bad]"
`,
			wantIndex: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFilterFile(t, tc.content)

			_, err := filters.Load(path)
			var cfgErr *filters.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Load error = %v, want ConfigError", err)
			}
			if cfgErr.Index != tc.wantIndex {
				t.Errorf("Index = %d, want %d", cfgErr.Index, tc.wantIndex)
			}
			if tc.wantReason != "" && cfgErr.Reason != tc.wantReason {
				t.Errorf("Reason = %q, want %q", cfgErr.Reason, tc.wantReason)
			}
		})
	}
}

func TestLoad_NotYAML(t *testing.T) {
	path := writeFilterFile(t, "\t{this is not yaml")
	if _, err := filters.Load(path); err == nil {
		t.Fatal("Load of malformed YAML succeeded")
	}
}
