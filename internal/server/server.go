// package server contains middleware & handlers for the development UDJ server
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/udj/internal/shared"
	"golang.org/x/time/rate"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Routes() []string                                 // Routes lists the registered "METHOD /path" routes
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// New builds the router for store with recovery, logging and per-client rate limiting applied to every route.
func New(store *Store, cfg shared.ServerConfig, logger *log.Logger) *BasicRouter {
	router := NewBasicRouter()
	router.Use(
		Recover(logger),
		Logging(logger),
		NewRateLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst).Limit,
	)

	router.Handle(http.MethodPost, "/auth", &AuthHandler{store: store})
	router.Handle(http.MethodPost, "/playlist", &PlaylistHandler{store: store, logger: logger})
	router.Handle(http.MethodPost, "/library", &LibraryHandler{store: store})
	router.Handle(http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ok"}`)
	}))
	return router
}

// ListenAndServe logs the router's routes and serves it on addr until ctx is canceled, then shuts down gracefully.
func ListenAndServe(ctx context.Context, addr string, router Router, logger *log.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	for _, route := range router.Routes() {
		logger.Info("route registered", "route", route)
	}
	logger.Info("server listening", "addr", addr)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		logger.Info("server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	}
}
