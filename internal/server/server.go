package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server wraps the HTTP server.
type Server struct {
	http *http.Server
	log  *zap.Logger
}

// New creates a server for the given router.
func New(router *gin.Engine, host, port string, log *zap.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:    host + ":" + port,
			Handler: router,
			// No write timeout: the chat relay holds a response open
			// for as long as the provider streams.
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Start begins serving and blocks until the listener stops.
func (s *Server) Start() error {
	s.log.Info("starting server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}
