// Package api exposes the retrieval engine and answer orchestrator over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/nickcecere/lrag/internal/config"
	"github.com/nickcecere/lrag/internal/embeddings"
	"github.com/nickcecere/lrag/internal/llm"
	"github.com/nickcecere/lrag/internal/search"
)

// Server holds the collaborators the HTTP handlers call into.
// Handlers only translate requests; retrieval logic stays in the searcher.
type Server struct {
	searcher *search.Searcher
	qa       *llm.QAService
	embedder embeddings.Service
	opts     Options
}

// Options configures the HTTP adapter.
type Options struct {
	// TopK is the number of passages retrieved for chat and search requests
	// that do not set one.
	TopK int

	// MinScore is the default search score threshold.
	MinScore float64

	// RequestTimeout bounds each request, including the generation call.
	RequestTimeout time.Duration

	// AllowedOrigins for CORS. Empty allows any localhost origin.
	AllowedOrigins []string
}

// OptionsFromConfig builds Options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		TopK:           cfg.Search.TopK,
		MinScore:       cfg.Search.MinScore,
		RequestTimeout: cfg.Server.WriteTimeout,
	}
}

// NewServer creates a new HTTP adapter.
func NewServer(searcher *search.Searcher, qa *llm.QAService, embedder embeddings.Service, opts Options) *Server {
	if opts.TopK == 0 {
		opts.TopK = search.DefaultTopK
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = config.DefaultWriteTimeout
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}

	return &Server{
		searcher: searcher,
		qa:       qa,
		embedder: embedder,
		opts:     opts,
	}
}

// Handler returns the router with all routes and middleware installed.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.opts.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Post("/search", s.handleSearch)
		r.Post("/documents", s.handleIngest)
	})

	r.Post("/v1/embeddings", s.handleEmbeddings)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}

// HTTPServer wraps Handler in an http.Server configured from cfg.
func (s *Server) HTTPServer(cfg config.ServerConfig) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}
}

// requestLogger logs each request through the application logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			log.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
