// Package server assembles the gateway's HTTP surface.
package server

import (
	"log/slog"
	"net/http"

	"github.com/echolabs-ai/echotwin/pkg/gateway/config"
	"github.com/echolabs-ai/echotwin/pkg/gateway/handlers"
	"github.com/echolabs-ai/echotwin/pkg/gateway/mw"
	"github.com/echolabs-ai/echotwin/pkg/pipeline"
	"github.com/echolabs-ai/echotwin/pkg/store"
	"github.com/echolabs-ai/echotwin/pkg/voices"
)

// Deps are the wired collaborators the server routes to.
type Deps struct {
	Service       *pipeline.Service
	Conversations store.ConversationStore
	Blobs         store.BlobStore
	Registry      *voices.Registry
}

// Server routes gateway requests to handlers.
type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux
	deps   Deps
}

// New builds the route table.
func New(cfg config.Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		logger: logger,
		mux:    http.NewServeMux(),
		deps:   deps,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("/healthz", handlers.HealthHandler{})

	s.mux.Handle("/v1/conversations", handlers.ConversationsHandler{
		Conversations: s.deps.Conversations,
		Blobs:         s.deps.Blobs,
		Registry:      s.deps.Registry,
		Logger:        s.logger,
	})
	s.mux.Handle("/v1/conversations/{id}", handlers.ConversationHandler{
		Conversations: s.deps.Conversations,
		Blobs:         s.deps.Blobs,
		Registry:      s.deps.Registry,
		Logger:        s.logger,
	})
	s.mux.Handle("/v1/conversations/{id}/turns", handlers.TurnsHandler{
		Service:       s.deps.Service,
		MaxAudioBytes: s.cfg.MaxAudioBytes,
	})
	s.mux.Handle("/v1/conversations/{id}/audio/{blobID}", handlers.AudioHandler{
		Blobs:  s.deps.Blobs,
		Logger: s.logger,
	})
	s.mux.Handle("/v1/transcriptions", handlers.TranscriptionsHandler{
		Service:       s.deps.Service,
		MaxAudioBytes: s.cfg.MaxAudioBytes,
	})
	s.mux.Handle("/v1/voices", handlers.VoicesHandler{
		Registry: s.deps.Registry,
	})
}

// Handler wraps the route table in the middleware stack.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.Auth(s.cfg, h)
	h = mw.CORS(s.cfg, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.Recover(s.logger, h)
	h = mw.RequestID(h)
	return h
}
