// Package protocol implements the binary wire format spoken between the
// game server and its clients.
//
// Every packet starts with a one byte type tag followed by a fixed or
// length-prefixed body. Multi-byte integers are little-endian and positions
// are IEEE-754 float32, matching the byte order of the original clients.
package protocol

import (
	"errors"

	"github.com/vovakirdan/netpac/internal/core"
)

// PacketType is the leading tag byte of every packet.
type PacketType uint8

const (
	TypeJoin PacketType = iota
	TypeAck
	TypeStart
	TypeEnd
	TypeMap
	TypePlayers
	TypeScore
	TypeMove
	TypeMessage
	TypeQuit
	TypeJoined
	TypePlayerDisconnected
)

// String returns the packet type name.
func (t PacketType) String() string {
	switch t {
	case TypeJoin:
		return "Join"
	case TypeAck:
		return "Ack"
	case TypeStart:
		return "Start"
	case TypeEnd:
		return "End"
	case TypeMap:
		return "Map"
	case TypePlayers:
		return "Players"
	case TypeScore:
		return "Score"
	case TypeMove:
		return "Move"
	case TypeMessage:
		return "Message"
	case TypeQuit:
		return "Quit"
	case TypeJoined:
		return "Joined"
	case TypePlayerDisconnected:
		return "PlayerDisconnected"
	default:
		return "Unknown"
	}
}

// Size limits.
const (
	// MaxPacketSize bounds every packet except Map.
	MaxPacketSize = 1472

	// NameSize is the fixed width of a nickname field, NUL padded.
	NameSize = 20

	// MaxMapWidth and MaxMapHeight keep Start coordinates inside a signed byte.
	MaxMapWidth  = 127
	MaxMapHeight = 127

	// MaxMapPacketSize bounds the Map packet, which carries the whole grid.
	MaxMapPacketSize = 1 + MaxMapWidth*MaxMapHeight

	messageHeaderSize = 1 + 4 + 4
	playerEntrySize   = 4 + 4 + 4 + 1 + 1
	scoreEntrySize    = 4 + 4

	// MaxMessageLength is the largest payload a Message may declare,
	// terminating NUL included.
	MaxMessageLength = MaxPacketSize - messageHeaderSize

	// MaxPlayerEntries is how many entries fit in one Players packet.
	MaxPlayerEntries = (MaxPacketSize - 5) / playerEntrySize

	// MaxScoreEntries is how many entries fit in one Score packet.
	MaxScoreEntries = (MaxPacketSize - 5) / scoreEntrySize
)

// Ack codes for rejected joins. Non-negative codes are client IDs.
const (
	AckNameInUse  int32 = -1
	AckServerFull int32 = -2
	AckOther      int32 = -3
)

var (
	// ErrMalformedPacket is returned for an unknown tag or an invalid field.
	ErrMalformedPacket = errors.New("protocol: malformed packet")

	// ErrMessageTooLong is returned when a Message declares more than MaxMessageLength bytes.
	ErrMessageTooLong = errors.New("protocol: message too long")

	// ErrLengthMismatch is returned when a Message declares more bytes than were delivered with it.
	ErrLengthMismatch = errors.New("protocol: message length mismatch")

	// ErrIdle is returned when the read deadline passes between packets.
	// The stream is still at a packet boundary and may be read again.
	ErrIdle = errors.New("protocol: idle")

	// ErrPacketTooLarge is returned when encoding would exceed the size bound.
	ErrPacketTooLarge = errors.New("protocol: packet too large")
)

// Packet is implemented by every packet type.
type Packet interface {
	Type() PacketType
}

// Join is the first packet a client sends.
type Join struct {
	Name string
}

// Ack answers a Join. Code is the client ID or a negative Ack code.
type Ack struct {
	Code int32
}

// Start announces a round. It also fixes the size of following Map packets.
type Start struct {
	Width, Height  uint8
	SpawnX, SpawnY uint8
}

// End announces the end of a round.
type End struct{}

// Map carries the raw row-major grid.
type Map struct {
	Width, Height int
	Tiles         []byte
}

// PlayerState is one entry of a Players packet.
type PlayerState struct {
	ID    int32
	X, Y  float32
	State core.VitalState
	Role  core.Role
}

// Players carries the positions of every active player.
type Players struct {
	Players []PlayerState
}

// ScoreEntry is one entry of a Score packet.
type ScoreEntry struct {
	Score int32
	ID    int32
}

// Score carries the score of every active player.
type Score struct {
	Entries []ScoreEntry
}

// Move sets the sender's movement intent.
type Move struct {
	SenderID  int32
	Direction core.Direction
}

// Message is a chat line.
type Message struct {
	SenderID int32
	Text     string
}

// Quit is sent by a client that leaves on purpose.
type Quit struct {
	SenderID int32
}

// Joined announces a newly admitted player.
type Joined struct {
	ID   int32
	Name string
}

// PlayerDisconnected announces a departed player.
type PlayerDisconnected struct {
	ID int32
}

func (*Join) Type() PacketType               { return TypeJoin }
func (*Ack) Type() PacketType                { return TypeAck }
func (*Start) Type() PacketType              { return TypeStart }
func (*End) Type() PacketType                { return TypeEnd }
func (*Map) Type() PacketType                { return TypeMap }
func (*Players) Type() PacketType            { return TypePlayers }
func (*Score) Type() PacketType              { return TypeScore }
func (*Move) Type() PacketType               { return TypeMove }
func (*Message) Type() PacketType            { return TypeMessage }
func (*Quit) Type() PacketType               { return TypeQuit }
func (*Joined) Type() PacketType             { return TypeJoined }
func (*PlayerDisconnected) Type() PacketType { return TypePlayerDisconnected }
