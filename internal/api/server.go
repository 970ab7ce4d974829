// Gatewatch - Real-Time Gatecamp Intelligence for New Eden
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatewatch

// Package api exposes the read-only HTTP surface: activity queries,
// watchlist sweeps, health, and Prometheus metrics. All writes enter
// through the feed; there are no mutating endpoints.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/gatewatch/internal/config"
	"github.com/tomtom215/gatewatch/internal/logging"
)

const shutdownGrace = 10 * time.Second

// Server wraps the HTTP listener as a supervised service.
type Server struct {
	srv  *http.Server
	addr string
}

// NewServer builds the HTTP server around the given handler.
func NewServer(cfg config.ServerConfig, handler http.Handler) *Server {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       cfg.Timeout,
			WriteTimeout:      cfg.Timeout,
			IdleTimeout:       2 * cfg.Timeout,
		},
	}
}

// String implements suture.Service for supervisor logging.
func (s *Server) String() string { return "http-server" }

// Serve runs the listener until the context is cancelled, then drains
// in-flight requests.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.addr).Msg("HTTP server listening")
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return ctx.Err()
	}
}
