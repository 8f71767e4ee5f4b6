// Package server accepts client TCP connections and runs, per client, the
// join handshake and the packet sender and receiver.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/netpac/internal/config"
	"github.com/vovakirdan/netpac/internal/game"
	"github.com/vovakirdan/netpac/internal/metrics"
	"github.com/vovakirdan/netpac/internal/protocol"
	"github.com/vovakirdan/netpac/internal/session"
)

var (
	// ErrProtocolViolation is returned when a client sends a packet that is
	// not allowed at that point of the conversation.
	ErrProtocolViolation = errors.New("server: protocol violation")

	// ErrPeerClosed is returned when a client closes the connection.
	ErrPeerClosed = errors.New("server: peer closed")

	// ErrQuit is returned when a client leaves with a Quit packet.
	ErrQuit = errors.New("server: client quit")
)

// Config holds configuration for the game server.
type Config struct {
	// Address is the host:port to listen on (e.g., ":8888").
	Address string

	// Rules are the game rules; the server uses the tick and network parts.
	Rules config.Rules

	// PayloadGrace is how long a chat payload may trail its header.
	PayloadGrace time.Duration
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Address:      ":8888",
		Rules:        config.DefaultRules(),
		PayloadGrace: protocol.DefaultPayloadGrace,
	}
}

// Server owns the listener and the per-connection goroutines.
type Server struct {
	config     Config
	registry   *session.Registry
	controller *game.Controller
	logger     *log.Logger
	metrics    *metrics.Metrics
	notifier   game.Notifier // Optional, can be nil

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup

	// joinMu orders roster announcements between concurrent joins.
	joinMu sync.Mutex
}

// New creates a server. Call Listen and then Serve.
func New(cfg Config, registry *session.Registry, controller *game.Controller, logger *log.Logger) *Server {
	return &Server{
		config:     cfg,
		registry:   registry,
		controller: controller,
		logger:     logger,
	}
}

// SetMetrics sets the counters updated by the server.
func (s *Server) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// SetNotifier sets the optional event notifier.
func (s *Server) SetNotifier(n game.Notifier) {
	s.notifier = n
}

// Listen binds the configured address.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("cannot listen on %s: %w", s.config.Address, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until ctx is cancelled, then waits for every
// connection to finish. Sessions are closed through ctx.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return errors.New("server: Serve called before Listen")
	}

	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stop()

	s.logger.Info("accepting connections", "address", ln.Addr().String())

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			// Back off on repeated accept errors
			if delay == 0 {
				delay = 5 * time.Millisecond
			} else {
				delay = min(2*delay, time.Second)
			}
			s.logger.Warn("accept failed", "error", err, "retry_in", delay)
			time.Sleep(delay)
			continue
		}
		delay = 0

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}

	s.wg.Wait()
	return nil
}

// ListenAndServe binds the address and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}
