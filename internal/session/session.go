// Package session tracks connected players: their connection, their write
// path and the game attributes the controller mutates every tick.
package session

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vovakirdan/netpac/internal/core"
	"github.com/vovakirdan/netpac/internal/protocol"
)

// Session is the server-side record of one connected player.
//
// The game attributes below the divider are only read or written while
// holding the owning Registry's lock (through Registry.Update or
// Registry.View).
type Session struct {
	ID         int32
	RemoteAddr string

	name     string
	conn     net.Conn
	ctx      context.Context
	cancel   context.CancelFunc
	admitted atomic.Bool
	ready    atomic.Bool

	writeMu      sync.Mutex
	writeTimeout time.Duration
	stream       atomic.Uint64 // Round generation being streamed, 0 when idle

	// Game attributes, valid while Active.
	Role      core.Role
	State     core.VitalState
	Intent    core.Direction
	X, Y      float64
	Score     int
	BuffTicks int
	Active    bool
}

// New creates a session around conn. The session is closed when parent is
// cancelled. writeTimeout bounds every write; zero disables it.
func New(parent context.Context, id int32, conn net.Conn, writeTimeout time.Duration) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		ID:           id,
		conn:         conn,
		ctx:          ctx,
		cancel:       cancel,
		writeTimeout: writeTimeout,
		Intent:       core.DirNone,
	}
	if conn != nil {
		s.RemoteAddr = conn.RemoteAddr().String()
		context.AfterFunc(ctx, func() {
			_ = conn.Close()
		})
	}
	return s
}

// Name returns the sanitized nickname. It is empty until admission.
func (s *Session) Name() string {
	return s.name
}

// Conn returns the underlying connection.
func (s *Session) Conn() net.Conn {
	return s.conn
}

// Context returns the session's lifetime context.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Done returns a channel that closes when the session ends.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Close ends the session and closes its connection.
// Safe to call multiple times.
func (s *Session) Close() {
	s.cancel()
}

// Closed reports whether the session has ended.
func (s *Session) Closed() bool {
	return s.ctx.Err() != nil
}

// Admitted reports whether the session holds a registry slot.
func (s *Session) Admitted() bool {
	return s.admitted.Load()
}

// SetReady marks the session as having received its Ack.
// Only ready sessions get broadcasts and take part in rounds.
func (s *Session) SetReady() {
	s.ready.Store(true)
}

// Ready reports whether the session has been acknowledged.
func (s *Session) Ready() bool {
	return s.ready.Load()
}

// Send encodes and writes one packet. A failed write closes the session.
func (s *Session) Send(p protocol.Packet) error {
	b, err := protocol.Encode(p)
	if err != nil {
		return err
	}
	return s.sendBytes(b)
}

func (s *Session) sendBytes(b []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.write(b)
}

// StartStream begins snapshot streaming for round generation gen.
// Callers send the round's Start packet first.
func (s *Session) StartStream(gen uint64) {
	s.stream.Store(gen)
}

// StopStream ends snapshot streaming. Callers send End afterwards, so no
// snapshot can follow it.
func (s *Session) StopStream() {
	s.stream.Store(0)
}

// Stream returns the round generation being streamed, or 0.
func (s *Session) Stream() uint64 {
	return s.stream.Load()
}

// SendStream writes snapshot packets built for round generation gen.
// Nothing is written if streaming stopped or moved to another round since
// the snapshot was taken; sent reports whether the packets went out.
func (s *Session) SendStream(gen uint64, packets ...protocol.Packet) (sent bool, err error) {
	var buf []byte
	for _, p := range packets {
		b, err := protocol.Encode(p)
		if err != nil {
			return false, err
		}
		buf = append(buf, b...)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if gen == 0 || s.stream.Load() != gen {
		return false, nil
	}
	if err := s.write(buf); err != nil {
		return false, err
	}
	return true, nil
}

// write must be called with writeMu held.
func (s *Session) write(b []byte) error {
	if s.writeTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if _, err := s.conn.Write(b); err != nil {
		s.Close()
		return err
	}
	return nil
}
