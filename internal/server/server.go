// package server contains the token backend that hands platform credentials to porter clients
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/porter/internal/shared"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an http.Handler that knows which paths it serves.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router registers handlers behind a shared middleware stack.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

const shutdownTimeout = 5 * time.Second

// Opts configures [New].
type Opts struct {
	Host    string
	Port    int
	APIKey  string
	Tokens  *TokenHandler
	Metrics *Metrics
	Logger  *log.Logger
}

// Server is the token backend.
type Server struct {
	addr    string
	router  *BasicRouter
	metrics *Metrics
	logger  *log.Logger
}

// New builds the token backend router.
//
// /health and /metrics are public; /token/* requires the API key when one is configured.
func New(opts Opts) *Server {
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	if opts.Tokens == nil {
		opts.Tokens = NewTokenHandler(TokenHandlerOpts{Metrics: opts.Metrics, Logger: opts.Logger})
	}

	public := NewBasicRouter()
	public.Use(Recoverer(opts.Logger), RequestLogger(opts.Logger), opts.Metrics.Middleware())
	public.Handle(http.MethodGet, "/health", http.HandlerFunc(health))
	public.Handle(http.MethodGet, "/metrics", opts.Metrics.Handler())

	private := NewBasicRouter()
	private.Use(Recoverer(opts.Logger), RequestLogger(opts.Logger), opts.Metrics.Middleware(), RequireAPIKey(opts.APIKey))
	private.Handler(opts.Tokens)
	public.Mount(private, opts.Tokens.Routes()...)

	return &Server{
		addr:    net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
		router:  public,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.addr
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("token backend listening", "addr", s.addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err, ok := <-serverErrors:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("error shutting down server", "error", err)
		return err
	}
	s.logger.Info("token backend stopped")
	return nil
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
