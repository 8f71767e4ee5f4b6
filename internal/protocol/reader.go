package protocol

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"time"

	"github.com/vovakirdan/netpac/internal/core"
)

// DefaultPayloadGrace is how long a Reader with a deadline source waits for
// the rest of a Message payload before treating it as short.
const DefaultPayloadGrace = 50 * time.Millisecond

// ReadDeadliner is the part of net.Conn a Reader uses to bound payload waits.
type ReadDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// Reader decodes packets from a byte stream.
type Reader struct {
	br *bufio.Reader

	// Dimensions from the last Start packet, used to size Map packets.
	mapW, mapH int

	dl    ReadDeadliner
	grace time.Duration
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithPayloadGrace makes Message decoding require the payload to arrive
// within grace of its header. A payload that is still short afterwards is
// discarded with ErrLengthMismatch instead of blocking the stream.
// The grace deadline stays set on dl; callers reset it before the next read.
func WithPayloadGrace(dl ReadDeadliner, grace time.Duration) ReaderOption {
	return func(r *Reader) {
		r.dl = dl
		r.grace = grace
	}
}

// NewReader creates a packet reader over r.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	rd := &Reader{br: bufio.NewReaderSize(r, 4096)}
	for _, opt := range opts {
		opt(rd)
	}
	return rd
}

// ReadPacket reads the next packet. It returns io.EOF when the stream ends
// cleanly between packets, and an error wrapping ErrIdle when the read
// deadline passes before a packet starts.
func (r *Reader) ReadPacket() (Packet, error) {
	tag, err := r.br.ReadByte()
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, fmt.Errorf("%w: %w", ErrIdle, err)
		}
		return nil, err
	}

	switch PacketType(tag) {
	case TypeJoin:
		var name [NameSize]byte
		if err := r.full(name[:]); err != nil {
			return nil, err
		}
		return &Join{Name: cString(name[:])}, nil

	case TypeAck:
		code, err := r.int32()
		if err != nil {
			return nil, err
		}
		return &Ack{Code: code}, nil

	case TypeStart:
		var body [4]byte
		if err := r.full(body[:]); err != nil {
			return nil, err
		}
		r.mapW, r.mapH = int(body[0]), int(body[1])
		return &Start{Width: body[0], Height: body[1], SpawnX: body[2], SpawnY: body[3]}, nil

	case TypeEnd:
		return &End{}, nil

	case TypeMap:
		if r.mapW == 0 || r.mapH == 0 {
			return nil, fmt.Errorf("%w: map before start", ErrMalformedPacket)
		}
		tiles := make([]byte, r.mapW*r.mapH)
		if err := r.full(tiles); err != nil {
			return nil, err
		}
		return &Map{Width: r.mapW, Height: r.mapH, Tiles: tiles}, nil

	case TypePlayers:
		n, err := r.count(MaxPlayerEntries)
		if err != nil {
			return nil, err
		}
		body := make([]byte, n*playerEntrySize)
		if err := r.full(body); err != nil {
			return nil, err
		}
		players := make([]PlayerState, n)
		for i := range players {
			e := body[i*playerEntrySize:]
			players[i] = PlayerState{
				ID:    int32(binary.LittleEndian.Uint32(e[0:4])),
				X:     math.Float32frombits(binary.LittleEndian.Uint32(e[4:8])),
				Y:     math.Float32frombits(binary.LittleEndian.Uint32(e[8:12])),
				State: core.VitalState(e[12]),
				Role:  core.Role(e[13]),
			}
		}
		return &Players{Players: players}, nil

	case TypeScore:
		n, err := r.count(MaxScoreEntries)
		if err != nil {
			return nil, err
		}
		body := make([]byte, n*scoreEntrySize)
		if err := r.full(body); err != nil {
			return nil, err
		}
		entries := make([]ScoreEntry, n)
		for i := range entries {
			e := body[i*scoreEntrySize:]
			entries[i] = ScoreEntry{
				Score: int32(binary.LittleEndian.Uint32(e[0:4])),
				ID:    int32(binary.LittleEndian.Uint32(e[4:8])),
			}
		}
		return &Score{Entries: entries}, nil

	case TypeMove:
		var body [5]byte
		if err := r.full(body[:]); err != nil {
			return nil, err
		}
		dir := core.Direction(body[4])
		if !dir.Valid() {
			return nil, fmt.Errorf("%w: direction %d", ErrMalformedPacket, body[4])
		}
		return &Move{SenderID: int32(binary.LittleEndian.Uint32(body[0:4])), Direction: dir}, nil

	case TypeMessage:
		return r.message()

	case TypeQuit:
		id, err := r.int32()
		if err != nil {
			return nil, err
		}
		return &Quit{SenderID: id}, nil

	case TypeJoined:
		var body [4 + NameSize]byte
		if err := r.full(body[:]); err != nil {
			return nil, err
		}
		return &Joined{
			ID:   int32(binary.LittleEndian.Uint32(body[0:4])),
			Name: cString(body[4:]),
		}, nil

	case TypePlayerDisconnected:
		id, err := r.int32()
		if err != nil {
			return nil, err
		}
		return &PlayerDisconnected{ID: id}, nil

	default:
		r.discardBuffered()
		return nil, fmt.Errorf("%w: unknown type %d", ErrMalformedPacket, tag)
	}
}

func (r *Reader) message() (Packet, error) {
	var head [8]byte
	if err := r.full(head[:]); err != nil {
		return nil, err
	}
	sender := int32(binary.LittleEndian.Uint32(head[0:4]))
	length := int32(binary.LittleEndian.Uint32(head[4:8]))

	if length < 0 || int(length) > MaxMessageLength {
		r.discardBuffered()
		return nil, fmt.Errorf("%w: declared %d bytes", ErrMessageTooLong, length)
	}
	n := int(length)

	if r.dl != nil && r.br.Buffered() < n {
		if err := r.awaitPayload(n); err != nil {
			return nil, err
		}
	}

	payload := make([]byte, n)
	if err := r.full(payload); err != nil {
		return nil, err
	}
	return &Message{SenderID: sender, Text: cString(payload)}, nil
}

// awaitPayload waits up to the grace period for n bytes to be buffered.
func (r *Reader) awaitPayload(n int) error {
	if err := r.dl.SetReadDeadline(time.Now().Add(r.grace)); err != nil {
		return err
	}
	_, err := r.br.Peek(n)
	if err == nil {
		return nil
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		got := r.br.Buffered()
		r.discardBuffered()
		return fmt.Errorf("%w: declared %d bytes, received %d", ErrLengthMismatch, n, got)
	}
	return err
}

// count reads a 4-byte entry count and checks it against limit.
func (r *Reader) count(limit int) (int, error) {
	n, err := r.int32()
	if err != nil {
		return 0, err
	}
	if n < 0 || int(n) > limit {
		r.discardBuffered()
		return 0, fmt.Errorf("%w: entry count %d", ErrMalformedPacket, n)
	}
	return int(n), nil
}

func (r *Reader) int32() (int32, error) {
	var b [4]byte
	if err := r.full(b[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b[:])), nil
}

// full reads exactly len(b) bytes. A stream that ends inside a packet is
// reported as io.ErrUnexpectedEOF.
func (r *Reader) full(b []byte) error {
	_, err := io.ReadFull(r.br, b)
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

func (r *Reader) discardBuffered() {
	_, _ = r.br.Discard(r.br.Buffered())
}

// Decode decodes a single complete packet held in b. Map packets carry no
// length of their own and must be decoded with DecodeMap instead.
func Decode(b []byte) (Packet, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrMalformedPacket)
	}
	if PacketType(b[0]) == TypeMap {
		return nil, fmt.Errorf("%w: map needs dimensions", ErrMalformedPacket)
	}

	r := NewReader(bytes.NewReader(b))
	p, err := r.ReadPacket()
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: truncated %s", ErrMalformedPacket, PacketType(b[0]))
		}
		return nil, err
	}
	if rest := r.br.Buffered(); rest != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedPacket, rest)
	}
	return p, nil
}

// DecodeMap decodes a Map packet for a width x height grid.
func DecodeMap(b []byte, width, height int) (*Map, error) {
	if len(b) == 0 || PacketType(b[0]) != TypeMap {
		return nil, fmt.Errorf("%w: not a map packet", ErrMalformedPacket)
	}
	if len(b)-1 != width*height {
		return nil, fmt.Errorf("%w: map of %d bytes for %dx%d", ErrMalformedPacket, len(b)-1, width, height)
	}
	tiles := make([]byte, width*height)
	copy(tiles, b[1:])
	return &Map{Width: width, Height: height, Tiles: tiles}, nil
}
