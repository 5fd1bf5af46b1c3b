// Package config persists the active provider/model/credential selection as a
// single JSON document, encrypting the API key at rest when a secret key is
// configured.
//
// The document is replaced wholesale on every save (no merge) and the store
// accepts last-writer-wins races; there is exactly one local user.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/yacchin1205/jupyter-mynerva/common/crypto"
	"github.com/yacchin1205/jupyter-mynerva/internal/mynerva/catalog"
	"github.com/yacchin1205/jupyter-mynerva/internal/mynerva/defaults"
)

// Built-in fallback returned when no config exists and the environment
// supplies no defaults.
const (
	DefaultProvider = catalog.OpenAI
	DefaultModel    = "gpt-5.2"
)

//go:embed schema.json
var schemaJSON string

// configSchema validates incoming config documents before they are persisted.
var configSchema = jsonschema.MustCompileString("config.schema.json", schemaJSON)

// Config is the in-memory form of the configuration document. APIKey is
// always plaintext here; encryption happens only at the storage boundary.
type Config struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	APIKey     string `json:"apiKey"`
	UseDefault bool   `json:"useDefault,omitempty"`
}

// Store reads and writes the configuration document.
type Store struct {
	path     string
	cipher   *crypto.Cipher
	defaults *defaults.Credentials
	catalog  *catalog.Catalog
}

// NewStore creates a Store persisting to path. The parent directory is
// created lazily on first write.
func NewStore(path string, cipher *crypto.Cipher, creds *defaults.Credentials, cat *catalog.Catalog) *Store {
	return &Store{path: path, cipher: cipher, defaults: creds, catalog: cat}
}

// Load returns the active configuration.
//
// When the document exists on disk it is parsed and its API key decrypted
// (a marked key with no secret configured surfaces crypto.ErrMissingSecret).
// When it does not exist and the environment defaults resolve, a config with
// UseDefault=true is synthesized and persisted immediately so subsequent
// loads are stable. Otherwise the built-in fallback is returned without
// persisting anything.
func (s *Store) Load() (Config, error) {
	data, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		var cfg Config
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", s.path, err)
		}
		key, err := s.cipher.Reveal(crypto.ParseStored(cfg.APIKey))
		if err != nil {
			return Config{}, err
		}
		cfg.APIKey = key
		return cfg, nil

	case os.IsNotExist(err):
		sel, ok, rerr := s.defaults.Resolve(s.catalog)
		if rerr != nil {
			return Config{}, rerr
		}
		if !ok {
			return Config{Provider: DefaultProvider, Model: DefaultModel, APIKey: ""}, nil
		}
		cfg := Config{Provider: sel.Provider, Model: sel.Model, APIKey: "", UseDefault: true}
		if err := s.Save(cfg); err != nil {
			return Config{}, err
		}
		return cfg, nil

	default:
		return Config{}, fmt.Errorf("config: read %s: %w", s.path, err)
	}
}

// Save encrypts the API key and replaces the document on disk. The prior
// content, if any, is discarded entirely.
func (s *Store) Save(cfg Config) error {
	stored, err := s.cipher.Encrypt(cfg.APIKey)
	if err != nil {
		return err
	}
	cfg.APIKey = stored

	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", s.path, err)
	}
	return nil
}

// ParseDocument validates a raw JSON config document against the schema and
// decodes it. It is the entry point for caller-supplied documents (the POST
// config body); Load/Save trust their own output and skip it.
func ParseDocument(data []byte) (Config, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return Config{}, fmt.Errorf("config: parse document: %w", err)
	}

	if err := configSchema.Validate(doc); err != nil {
		return Config{}, fmt.Errorf("config: invalid document: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode document: %w", err)
	}
	return cfg, nil
}
