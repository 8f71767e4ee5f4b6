// Package client speaks the game protocol from the player side: it performs
// the join handshake, delivers incoming packets on a channel and sends moves,
// chat and quit.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/vovakirdan/netpac/internal/core"
	"github.com/vovakirdan/netpac/internal/protocol"
)

var (
	// ErrNameInUse is returned when the server already has a player by that name.
	ErrNameInUse = errors.New("client: name in use")

	// ErrServerFull is returned when every slot is taken.
	ErrServerFull = errors.New("client: server full")

	// ErrRejected is returned for any other refused join.
	ErrRejected = errors.New("client: join rejected")

	// ErrClosed is returned by sends after Close.
	ErrClosed = errors.New("client: closed")
)

// DefaultHandshakeTimeout bounds the wait for the join Ack.
const DefaultHandshakeTimeout = 10 * time.Second

// Client is one joined player connection.
type Client struct {
	conn net.Conn
	rd   *protocol.Reader
	id   int32
	name string

	writeMu sync.Mutex

	packets chan protocol.Packet
	done    chan struct{}
	once    sync.Once

	errMu sync.Mutex
	err   error
}

// Dial connects to addr and joins as name.
func Dial(ctx context.Context, addr, name string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}
	c, err := Join(conn, name, DefaultHandshakeTimeout)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// Join performs the handshake on an open connection and starts reading.
// The caller keeps ownership of conn if Join fails.
func Join(conn net.Conn, name string, timeout time.Duration) (*Client, error) {
	name = protocol.SanitizeName(name)

	if timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(timeout))
	}
	if _, err := conn.Write(protocol.MustEncode(&protocol.Join{Name: name})); err != nil {
		return nil, fmt.Errorf("client: sending join: %w", err)
	}

	rd := protocol.NewReader(conn)
	p, err := rd.ReadPacket()
	if err != nil {
		return nil, fmt.Errorf("client: waiting for ack: %w", err)
	}
	ack, ok := p.(*protocol.Ack)
	if !ok {
		return nil, fmt.Errorf("%w: expected Ack, got %s", ErrRejected, p.Type())
	}
	switch {
	case ack.Code == protocol.AckNameInUse:
		return nil, ErrNameInUse
	case ack.Code == protocol.AckServerFull:
		return nil, ErrServerFull
	case ack.Code < 0:
		return nil, fmt.Errorf("%w: code %d", ErrRejected, ack.Code)
	}
	_ = conn.SetDeadline(time.Time{})

	c := &Client{
		conn:    conn,
		rd:      rd,
		id:      ack.Code,
		name:    name,
		packets: make(chan protocol.Packet, 256),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// ID returns the ID the server assigned.
func (c *Client) ID() int32 { return c.id }

// Name returns the nickname as sent to the server.
func (c *Client) Name() string { return c.name }

// Packets delivers every packet after the Ack. It is closed when the
// connection ends; Err then reports why.
func (c *Client) Packets() <-chan protocol.Packet { return c.packets }

// Err returns the error that ended the read loop, or nil.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *Client) readLoop() {
	defer close(c.packets)
	for {
		p, err := c.rd.ReadPacket()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.errMu.Lock()
				c.err = err
				c.errMu.Unlock()
			}
			return
		}
		select {
		case c.packets <- p:
		case <-c.done:
			return
		}
	}
}

// Move sets the movement intent.
func (c *Client) Move(dir core.Direction) error {
	return c.send(&protocol.Move{SenderID: c.id, Direction: dir})
}

// Say sends a chat line.
func (c *Client) Say(text string) error {
	return c.send(&protocol.Message{SenderID: c.id, Text: text})
}

// Quit tells the server we are leaving and closes the connection.
func (c *Client) Quit() error {
	err := c.send(&protocol.Quit{SenderID: c.id})
	c.Close()
	return err
}

// Close closes the connection. It is safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

func (c *Client) send(p protocol.Packet) error {
	b, err := protocol.Encode(p)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err = c.conn.Write(b)
	return err
}
