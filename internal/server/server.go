package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

const readHeaderTimeout = 10 * time.Second

// WebServer owns the HTTP listener for the router.
type WebServer struct {
	http            *http.Server
	shutdownTimeout time.Duration
}

func NewWebServer(addr string, handler http.Handler, shutdownTimeout time.Duration) *WebServer {
	return &WebServer{
		http: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		shutdownTimeout: shutdownTimeout,
	}
}

// Start blocks until the listener fails or Stop is called. A clean stop
// returns nil.
func (s *WebServer) Start() error {
	slog.Info("[WebServer] Listening", slog.String("addr", s.http.Addr))
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop drains in-flight requests for up to the shutdown timeout.
func (s *WebServer) Stop() error {
	slog.Info("[WebServer] Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		slog.Error("[WebServer] Shutdown failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}
