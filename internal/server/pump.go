package server

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/netpac/internal/maps"
	"github.com/vovakirdan/netpac/internal/protocol"
	"github.com/vovakirdan/netpac/internal/session"
)

// runSender pushes Map and Players snapshots every tick, and Score every
// ScoreEvery ticks, while the session is streaming a round.
func (s *Server) runSender(sess *session.Session, logger *log.Logger) {
	ticker := time.NewTicker(s.config.Rules.Tick.Period)
	defer ticker.Stop()

	n := 0
	for {
		select {
		case <-sess.Done():
			return
		case <-ticker.C:
		}

		gen := sess.Stream()
		if gen == 0 {
			n = 0
			continue
		}
		n++

		packets := s.snapshot(s.controller.CurrentMap(), n%s.config.Rules.Tick.ScoreEvery == 0)
		if _, err := sess.SendStream(gen, packets...); err != nil {
			// The failed write closed the session; the receiver drops it.
			logger.Debug("snapshot not delivered", "error", err)
			return
		}
	}
}

// snapshot builds the grid packet and one consistent view of every
// active player. Each packet is taken under its own lock, so no packet
// mixes two ticks.
func (s *Server) snapshot(m *maps.Map, withScores bool) []protocol.Packet {
	var players protocol.Players
	var scores protocol.Score

	grid := m.Packet()
	s.registry.ForEachActive(func(p *session.Session) {
		players.Players = append(players.Players, protocol.PlayerState{
			ID:    p.ID,
			X:     float32(p.X),
			Y:     float32(p.Y),
			State: p.State,
			Role:  p.Role,
		})
		if withScores {
			scores.Entries = append(scores.Entries, protocol.ScoreEntry{
				Score: int32(p.Score), //nolint:gosec // scores stay far below 2^31
				ID:    p.ID,
			})
		}
	})

	packets := []protocol.Packet{grid, &players}
	if withScores {
		packets = append(packets, &scores)
	}
	return packets
}

// runReceiver reads client packets until the client leaves or fails.
// The returned error says why.
func (s *Server) runReceiver(sess *session.Session, rd *protocol.Reader, logger *log.Logger) error {
	conn := sess.Conn()
	idle := s.config.Rules.Network.IdleTimeout

	for {
		if idle > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(idle))
		} else {
			_ = conn.SetReadDeadline(time.Time{})
		}

		p, err := rd.ReadPacket()
		if err != nil {
			switch {
			case errors.Is(err, protocol.ErrMessageTooLong), errors.Is(err, protocol.ErrLengthMismatch):
				s.metrics.IncDropped()
				logger.Warn("message discarded", "error", err)
				continue
			case errors.Is(err, protocol.ErrIdle) && sess.Stream() != 0:
				// Holding one direction needs no packets; a player in a
				// running round is never idle.
				continue
			case errors.Is(err, io.EOF):
				return ErrPeerClosed
			default:
				return err
			}
		}

		switch pkt := p.(type) {
		case *protocol.Move:
			s.registry.SetIntent(sess, pkt.Direction)

		case *protocol.Message:
			text := protocol.SanitizeMessage(pkt.Text)
			if text == "" {
				continue
			}
			s.metrics.IncChat()
			logger.Debug("chat", "name", sess.Name(), "text", text)
			_ = s.registry.Broadcast(&protocol.Message{SenderID: sess.ID, Text: text}, nil)

		case *protocol.Quit:
			return ErrQuit

		default:
			return fmt.Errorf("%w: unexpected %s", ErrProtocolViolation, p.Type())
		}
	}
}
