// Package filters loads the privacy-filter table applied by the frontend
// before message text leaves the notebook.
//
// Filters live in an optional user-level YAML file. Loading is all-or-nothing:
// a single malformed entry fails the whole load so a partially-filtered
// session can never look fully filtered.
package filters

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Entry is one filter rule: text matching Pattern is replaced by Label.
type Entry struct {
	Pattern string `json:"pattern" yaml:"pattern"`
	Label   string `json:"label" yaml:"label"`
}

// ConfigError reports a malformed filter file, naming the offending entry.
type ConfigError struct {
	Index  int
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("filters: entry %d: %s", e.Index, e.Reason)
}

// fileDoc is the YAML shape of the filter config file.
type fileDoc struct {
	Filters []Entry `yaml:"filters"`
}

// Defaults returns the built-in filter set used when no config file exists:
// an IPv4-literal matcher and a domain-name matcher.
func Defaults() []Entry {
	return []Entry{
		{
			Pattern: `\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`,
			Label:   "[ip-address]",
		},
		{
			Pattern: `\b(?:[a-zA-Z0-9-]+\.)+[a-zA-Z]{2,}\b`,
			Label:   "[domain]",
		},
	}
}

// Load reads the filter table from path. A missing file yields the built-in
// defaults. Every entry must carry both fields and a compiling pattern, or
// the whole load fails with a ConfigError naming the entry.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Defaults(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("filters: read %s: %w", path, err)
	}

	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("filters: parse %s: %w", path, err)
	}

	for i, entry := range doc.Filters {
		if entry.Pattern == "" {
			return nil, &ConfigError{Index: i, Reason: "missing pattern"}
		}
		if entry.Label == "" {
			return nil, &ConfigError{Index: i, Reason: "missing label"}
		}
		if _, err := regexp.Compile(entry.Pattern); err != nil {
			return nil, &ConfigError{Index: i, Reason: fmt.Sprintf("invalid pattern: %v", err)}
		}
	}

	if doc.Filters == nil {
		doc.Filters = []Entry{}
	}
	return doc.Filters, nil
}
