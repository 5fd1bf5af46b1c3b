// Command mynerva runs the backend for the Mynerva notebook chat extension:
// provider discovery, configuration with encrypted-at-rest API keys, chat
// dispatch, and session persistence.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/yacchin1205/jupyter-mynerva/common/crypto"
	"github.com/yacchin1205/jupyter-mynerva/common/environment"
	"github.com/yacchin1205/jupyter-mynerva/common/version"
	"github.com/yacchin1205/jupyter-mynerva/internal/mynerva/api"
	"github.com/yacchin1205/jupyter-mynerva/internal/mynerva/catalog"
	"github.com/yacchin1205/jupyter-mynerva/internal/mynerva/chat"
	"github.com/yacchin1205/jupyter-mynerva/internal/mynerva/config"
	"github.com/yacchin1205/jupyter-mynerva/internal/mynerva/defaults"
	"github.com/yacchin1205/jupyter-mynerva/internal/mynerva/session"
)

func main() {
	fmt.Printf("Mynerva backend %s\n\n", version.Info())

	token, ok := environment.String("MYNERVA_TOKEN")
	if err := run(token, ok); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(token string, tokenSet bool) error {
	if !tokenSet || token == "" {
		return errors.New("MYNERVA_TOKEN is required")
	}

	// Capture environment defaults before anything can spawn a subprocess;
	// this also erases the secret variables from the environment.
	creds := defaults.Capture()

	dir := environment.StringOr("MYNERVA_DIR", "")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".mynerva")
	}

	cat := catalog.Builtin()
	cipher := crypto.NewCipher(nil) // lazy MYNERVA_SECRET_KEY lookup
	configStore := config.NewStore(filepath.Join(dir, "config.json"), cipher, creds, cat)

	var sessions session.Store
	switch backend := environment.StringOr("MYNERVA_SESSION_BACKEND", "file"); backend {
	case "file":
		sessions = session.NewFileStore(filepath.Join(dir, "sessions"))
	case "sqlite":
		store, err := session.NewSQLiteStore(filepath.Join(dir, "sessions.db"))
		if err != nil {
			return err
		}
		defer store.Close()
		sessions = store
	default:
		return fmt.Errorf("unknown MYNERVA_SESSION_BACKEND %q (want file or sqlite)", backend)
	}

	server := api.New(api.Config{
		Token:       token,
		FiltersPath: filepath.Join(dir, "filters.yaml"),
	}, cat, creds, cipher, configStore, sessions, chat.NewDispatcher())

	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	addr := environment.StringOr("MYNERVA_LISTEN_ADDR", ":8888")
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("mynerva: listening", "addr", addr, "dir", dir, "encryption", cipher.Configured())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		slog.Info("mynerva: shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}
