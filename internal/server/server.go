package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/christopherklint97/planr/internal/ai"
	"github.com/christopherklint97/planr/internal/api"
	"github.com/christopherklint97/planr/internal/config"
	"github.com/christopherklint97/planr/internal/ratelimit"
)

const Version = "1.0.0"

type Server struct {
	cfg      *config.Config
	provider ai.Provider
	limiter  ratelimit.Limiter
	logger   *slog.Logger
	now      func() time.Time
}

func New(cfg *config.Config, provider ai.Provider, limiter ratelimit.Limiter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		cfg:      cfg,
		provider: provider,
		limiter:  limiter,
		logger:   logger,
		now:      time.Now,
	}
}

// Handler returns the full middleware-wrapped route tree.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(api.PathHealth, s.handleHealth)
	mux.HandleFunc(api.PathPlan, s.handlePlan)
	mux.HandleFunc(api.PathConfig, s.handleConfig)
	mux.HandleFunc(api.PathIndex, s.handleIndex)
	mux.HandleFunc(api.PathIndex+"/", s.handleAPIFallback)
	mux.HandleFunc("/", s.handleRoot)

	var h http.Handler = mux
	h = s.cors(h)
	h = s.logRequests(h)
	h = requestID(h)
	return h
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("server listening",
			"addr", addr,
			"environment", s.cfg.Server.Environment,
			"provider", s.provider.Name(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listening on %s: %w", addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
