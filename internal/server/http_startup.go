package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

const shutdownTimeout = 30 * time.Second

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	srv := s.setupHTTPServer()
	if err := s.configureTLS(srv); err != nil {
		return err
	}
	s.displayServerInfo()
	defer s.cleanupRateLimiter()

	return s.serve(ctx, srv)
}

func (s *Server) setupHTTPServer() *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort(s.Host, s.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.ReadTimeout,
		ReadTimeout:       s.ReadTimeout,
		WriteTimeout:      s.WriteTimeout,
		IdleTimeout:       s.IdleTimeout,
	}
}

func (s *Server) serve(ctx context.Context, srv *http.Server) error {
	failed := make(chan error, 1)
	go func() {
		tls := srv.TLSConfig != nil
		s.Logger.Info("HTTP server listening", "address", srv.Addr, "tls", tls)

		var err error
		if tls {
			// certificates live in TLSConfig
			err = srv.ListenAndServeTLS("", "")
		} else {
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
	}()

	select {
	case err := <-failed:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.Logger.Info("Shutting down HTTP server", "cause", context.Cause(ctx))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Graceful shutdown timed out, closing connections")
		return srv.Close()
	}
	s.Logger.Info("HTTP server stopped")
	return nil
}

func (s *Server) cleanupRateLimiter() {
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
	}
}
