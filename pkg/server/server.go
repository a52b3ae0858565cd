package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scholarag/scholarag/pkg/agent"
	"github.com/scholarag/scholarag/pkg/config"
	"github.com/scholarag/scholarag/pkg/store"
)

// Server is the HTTP front of the agent: the streaming endpoint plus
// conversation management.
type Server struct {
	config  *config.ServerConfig
	agent   *agent.Service
	store   *store.Store
	logger  *slog.Logger
	httpSrv *http.Server
}

func New(cfg *config.ServerConfig, agentService *agent.Service, st *store.Store) *Server {
	s := &Server{
		config: cfg,
		agent:  agentService,
		store:  st,
		logger: slog.Default().With("component", "server"),
	}

	s.httpSrv = &http.Server{
		Addr:        cfg.Address(),
		Handler:     s.routes(),
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Second,
		// No WriteTimeout: SSE responses stay open for the whole run.
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Post("/stream", s.handleStream)
	r.Get("/conversations", s.handleListConversations)
	r.Get("/conversations/{sessionID}", s.handleGetConversation)
	r.Delete("/conversations/{sessionID}", s.handleDeleteConversation)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// ListenAndServe blocks until the server stops or ctx is cancelled, then
// drains in-flight requests within the configured shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.httpSrv.Addr)
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			time.Duration(s.config.ShutdownTimeout)*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
			)
		})
	}
}
