package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/custodia-labs/sercha-chat/internal/logger"
)

// MaxUploadSize bounds a multipart document upload.
const MaxUploadSize = 32 << 20

// Server is the HTTP API.
type Server struct {
	ports   *Ports
	origins []string
	router  chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithAllowedOrigins sets the origins allowed by CORS. "*" allows any.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// NewServer creates an API server with the given ports.
func NewServer(ports *Ports, opts ...Option) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{ports: ports, origins: []string{"*"}}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors(s.origins))

	r.Get("/healthz", s.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/documents", func(r chi.Router) {
			r.Get("/", s.listDocuments)
			r.Post("/", s.uploadDocument)
			r.Post("/reprocess", s.reprocessDocuments)
			r.Get("/types", s.listFileTypes)
			r.Get("/{id}", s.getDocument)
			r.Delete("/{id}", s.deleteDocument)
		})
		r.Get("/stats", s.stats)
		r.Post("/retrieve", s.retrieve)
		r.Post("/augment", s.augment)
		r.Get("/tools", s.listTools)
		r.Post("/tools/run", s.runTools)
		r.Post("/chat", s.chat)
		r.Get("/chat/history", s.chatHistory)
		r.Post("/chat/reset", s.chatReset)
	})

	return r
}

// Handler returns the API's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("API server shutdown: %v", err)
		}
	}()

	logger.Info("API server listening on %s", addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
