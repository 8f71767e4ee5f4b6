package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/netpac/internal/game"
	"github.com/vovakirdan/netpac/internal/protocol"
	"github.com/vovakirdan/netpac/internal/session"
)

// handleConn runs one connection from the Join handshake to disconnect.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	s.metrics.IncAccepted()
	sess := s.registry.Allocate(ctx, conn, s.config.Rules.Network.WriteTimeout)
	defer sess.Close()

	logger := s.logger.With("id", sess.ID, "remote", sess.RemoteAddr)
	rd := protocol.NewReader(conn, protocol.WithPayloadGrace(conn, s.config.PayloadGrace))

	join, err := s.awaitJoin(conn, rd)
	if err != nil {
		s.metrics.IncRejectedOther()
		if errors.Is(err, ErrProtocolViolation) || errors.Is(err, protocol.ErrMalformedPacket) {
			_ = sess.Send(&protocol.Ack{Code: protocol.AckOther})
		}
		logger.Debug("handshake failed", "error", err)
		return
	}

	if !s.admit(sess, join, logger) {
		return
	}

	go s.runSender(sess, logger)
	reason := s.runReceiver(sess, rd, logger)
	s.drop(sess, reason, logger)
}

// awaitJoin reads the first packet, which must be a Join.
func (s *Server) awaitJoin(conn net.Conn, rd *protocol.Reader) (*protocol.Join, error) {
	if t := s.config.Rules.Network.JoinTimeout; t > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(t))
	}
	p, err := rd.ReadPacket()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrPeerClosed
		}
		return nil, fmt.Errorf("reading join: %w", err)
	}
	join, ok := p.(*protocol.Join)
	if !ok {
		return nil, fmt.Errorf("%w: expected Join, got %s", ErrProtocolViolation, p.Type())
	}
	return join, nil
}

// admit registers the session and announces it. It reports false if the
// join was rejected; the caller then closes the connection.
func (s *Server) admit(sess *session.Session, join *protocol.Join, logger *log.Logger) bool {
	name := protocol.SanitizeName(join.Name)
	if err := s.registry.Admit(sess, name); err != nil {
		code := ackCode(err)
		switch code {
		case protocol.AckNameInUse:
			s.metrics.IncRejectedNameInUse()
		case protocol.AckServerFull:
			s.metrics.IncRejectedServerFull()
		default:
			s.metrics.IncRejectedOther()
		}
		_ = sess.Send(&protocol.Ack{Code: code})
		logger.Info("join rejected", "name", name, "reason", err)
		return false
	}

	if err := sess.Send(&protocol.Ack{Code: sess.ID}); err != nil {
		s.registry.Remove(sess)
		logger.Debug("ack not delivered", "error", err)
		return false
	}

	// Tell the newcomer who is already here, then tell everyone else.
	// The session only becomes ready afterwards, so both announcements
	// precede any Start or broadcast it receives. Peers that are not ready
	// yet announce themselves once they hold joinMu, and by then this
	// session is ready to hear it.
	s.joinMu.Lock()
	for _, peer := range s.registry.Sessions() {
		if peer == sess || !peer.Ready() {
			continue
		}
		if err := sess.Send(&protocol.Joined{ID: peer.ID, Name: peer.Name()}); err != nil {
			break
		}
	}
	_ = s.registry.Broadcast(&protocol.Joined{ID: sess.ID, Name: name}, sess)
	sess.SetReady()
	s.joinMu.Unlock()

	s.metrics.IncAdmitted()
	logger.Info("player joined", "name", name, "players", s.registry.Count())
	if s.notifier != nil {
		s.notifier.Notify(game.EventPlayerJoined, map[string]any{"id": sess.ID, "name": name})
	}

	s.controller.Enter(sess)
	return true
}

// drop removes the session, which tells the remaining players, and closes
// its connection. It is safe to call more than once.
func (s *Server) drop(sess *session.Session, reason error, logger *log.Logger) {
	removed := s.registry.Remove(sess)
	sess.Close()
	if !removed {
		return
	}

	s.metrics.IncDisconnects()
	if errors.Is(reason, ErrQuit) || errors.Is(reason, ErrPeerClosed) {
		logger.Info("player left", "name", sess.Name(), "reason", reason)
	} else {
		logger.Warn("player dropped", "name", sess.Name(), "error", reason)
	}
	if s.notifier != nil {
		s.notifier.Notify(game.EventPlayerLeft, map[string]any{"id": sess.ID, "name": sess.Name()})
	}
}

func ackCode(err error) int32 {
	switch {
	case errors.Is(err, session.ErrNameInUse):
		return protocol.AckNameInUse
	case errors.Is(err, session.ErrServerFull):
		return protocol.AckServerFull
	default:
		return protocol.AckOther
	}
}
