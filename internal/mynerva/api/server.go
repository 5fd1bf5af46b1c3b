// Package api exposes the mynerva HTTP surface: provider discovery, config
// read/write, chat dispatch, and session CRUD.
//
// The handlers are a thin dispatcher over the core packages; they marshal
// JSON, map errors to statuses, and nothing else. Every error response is a
// {"error": "..."} body with a non-2xx status, and credential material never
// reaches a response or a log line.
package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yacchin1205/jupyter-mynerva/common/crypto"
	"github.com/yacchin1205/jupyter-mynerva/common/redact"
	"github.com/yacchin1205/jupyter-mynerva/internal/mynerva/catalog"
	"github.com/yacchin1205/jupyter-mynerva/internal/mynerva/chat"
	"github.com/yacchin1205/jupyter-mynerva/internal/mynerva/config"
	"github.com/yacchin1205/jupyter-mynerva/internal/mynerva/defaults"
	"github.com/yacchin1205/jupyter-mynerva/internal/mynerva/filters"
	"github.com/yacchin1205/jupyter-mynerva/internal/mynerva/session"
)

// Config holds options for creating a Server.
type Config struct {
	// Token authenticates every request. Required.
	Token string

	// FiltersPath is the privacy-filter config file location.
	FiltersPath string
}

// Server handles the mynerva HTTP routes.
type Server struct {
	token       string
	filtersPath string

	catalog    *catalog.Catalog
	creds      *defaults.Credentials
	cipher     *crypto.Cipher
	config     *config.Store
	sessions   session.Store
	dispatcher *chat.Dispatcher
}

// New creates a Server over the given core components.
func New(cfg Config, cat *catalog.Catalog, creds *defaults.Credentials, cipher *crypto.Cipher,
	configStore *config.Store, sessions session.Store, dispatcher *chat.Dispatcher) *Server {
	return &Server{
		token:       cfg.Token,
		filtersPath: cfg.FiltersPath,
		catalog:     cat,
		creds:       creds,
		cipher:      cipher,
		config:      configStore,
		sessions:    sessions,
		dispatcher:  dispatcher,
	}
}

// RegisterRoutes adds the mynerva routes to the given mux:
//
//   - GET  /mynerva/providers     — provider registry, defaults, filters
//   - GET  /mynerva/config        — current (decrypted) configuration
//   - POST /mynerva/config        — replace the configuration
//   - POST /mynerva/chat          — dispatch a message list to the LLM
//   - GET  /mynerva/sessions      — list sessions
//   - POST /mynerva/sessions      — create a session
//   - GET/PUT/DELETE /mynerva/sessions/{id}
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/mynerva/providers", s.authenticated(s.handleProviders))
	mux.Handle("/mynerva/config", s.authenticated(s.handleConfig))
	mux.Handle("/mynerva/chat", s.authenticated(s.handleChat))
	mux.Handle("/mynerva/sessions", s.authenticated(s.handleSessions))
	mux.Handle("/mynerva/sessions/", s.authenticated(s.handleSession))
}

// authenticated wraps a handler with bearer/token authentication.
func (s *Server) authenticated(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" || !validToken(r.Header.Get("Authorization"), s.token) {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		h(w, r)
	})
}

// validToken accepts "token <t>" (Jupyter convention) and "Bearer <t>".
func validToken(header, want string) bool {
	value, ok := strings.CutPrefix(header, "token ")
	if !ok {
		value, ok = strings.CutPrefix(header, "Bearer ")
	}
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(value), []byte(want)) == 1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// providersResponse is the JSON body returned by GET /mynerva/providers.
type providersResponse struct {
	Providers  []catalog.Entry     `json:"providers"`
	Encryption bool                `json:"encryption"`
	Defaults   *defaults.Selection `json:"defaults"`
	Filters    []filters.Entry     `json:"filters"`
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// A malformed filter file blocks the whole response. Degrading to a
	// partial filter set would silently disable the user's privacy rules.
	filterSet, err := filters.Load(s.filtersPath)
	if err != nil {
		slog.Error("mynerva: load filters", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := providersResponse{
		Providers:  s.catalog.List(),
		Encryption: s.cipher.Configured(),
		Filters:    filterSet,
	}

	sel, ok, err := s.creds.Resolve(s.catalog)
	if err != nil {
		slog.Error("mynerva: resolve defaults", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ok {
		resp.Defaults = &sel
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cfg, err := s.config.Load()
		if err != nil {
			slog.Error("mynerva: load config", "err", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, cfg)

	case http.MethodPost:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "read body: "+err.Error())
			return
		}
		cfg, err := config.ParseDocument(body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.config.Save(cfg); err != nil {
			slog.Error("mynerva: save config", "err", redact.Error(err, cfg.APIKey))
			writeError(w, http.StatusInternalServerError, "failed to save configuration")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// chatRequest is the JSON body accepted by POST /mynerva/chat.
type chatRequest struct {
	Messages []chat.Message `json:"messages"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	cfg, err := s.config.Load()
	if err != nil {
		slog.Error("mynerva: load config for chat", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	provider := cfg.Provider
	if provider == "" {
		provider = config.DefaultProvider
	}
	model := cfg.Model
	if model == "" {
		model = config.DefaultModel
	}

	apiKey := cfg.APIKey
	if cfg.UseDefault || apiKey == "" {
		if key, ok := s.creds.CredentialFor(provider); ok {
			apiKey = key
		}
	}

	result, err := s.dispatcher.Send(r.Context(), provider, model, apiKey, req.Messages)
	if err != nil {
		var unknown *catalog.UnknownProviderError
		switch {
		case errors.Is(err, chat.ErrMissingCredential):
			writeError(w, http.StatusInternalServerError, "API key not configured")
		case errors.As(err, &unknown):
			writeError(w, http.StatusBadRequest, unknown.Error())
		default:
			slog.Error("mynerva: chat dispatch", "provider", provider, "err", redact.Error(err, apiKey))
			writeError(w, http.StatusBadGateway, redact.Error(err, apiKey))
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		result, err := s.sessions.List(r.Context())
		if err != nil {
			slog.Error("mynerva: list sessions", "err", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, result)

	case http.MethodPost:
		id, err := s.sessions.Create(r.Context())
		if err != nil {
			slog.Error("mynerva: create session", "err", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/mynerva/sessions/")
	if id == "" || strings.Contains(id, "/") || strings.Contains(id, "..") {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		doc, err := s.sessions.Get(r.Context(), id)
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		if err != nil {
			slog.Error("mynerva: get session", "id", id, "err", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, doc)

	case http.MethodPut:
		var doc session.Document
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		stored, err := s.sessions.Put(r.Context(), id, doc)
		if err != nil {
			slog.Error("mynerva: put session", "id", id, "err", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, stored)

	case http.MethodDelete:
		deleted, err := s.sessions.Delete(r.Context(), id)
		if err != nil {
			slog.Error("mynerva: delete session", "id", id, "err", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !deleted {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
