// Package aiserver is the MULTIVAC relay: a websocket endpoint that turns a
// chat request into an LLM prompt and streams the answer back token by token.
package aiserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ziadkadry99/telewiki/internal/guestbook"
	"github.com/ziadkadry99/telewiki/internal/llm"
)

// Config holds relay configuration.
type Config struct {
	Port      int
	AuthToken string
	Model     string
	CertFile  string // TLS is enabled when both CertFile and KeyFile are set
	KeyFile   string
	AllowAll  bool // allow all CORS origins
}

// WebSearcher answers a question from the web when the model cannot.
type WebSearcher interface {
	Lookup(ctx context.Context, searchQuery, question string) string
}

// Server serves the /ai websocket and the guestbook API.
type Server struct {
	cfg        Config
	provider   llm.Provider
	searcher   WebSearcher
	guestbook  *guestbook.Store
	logger     *zap.Logger
	router     chi.Router
	httpServer *http.Server
}

// New creates a relay server. searcher and store may be nil.
func New(cfg Config, provider llm.Provider, searcher WebSearcher, store *guestbook.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:       cfg,
		provider:  provider,
		searcher:  searcher,
		guestbook: store,
		logger:    logger,
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/ai", s.handleAI)

	if s.guestbook != nil {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			guestbook.RegisterRoutes(r, s.guestbook)
		})
	}

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port, with TLS when a
// certificate is configured.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	var err error
	if s.cfg.CertFile != "" && s.cfg.KeyFile != "" {
		s.logger.Info("AI server listening", zap.String("addr", addr), zap.String("scheme", "wss"))
		err = s.httpServer.ListenAndServeTLS(s.cfg.CertFile, s.cfg.KeyFile)
	} else {
		s.logger.Info("AI server listening", zap.String("addr", addr), zap.String("scheme", "ws"))
		err = s.httpServer.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
