package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encode serializes a packet into its wire form.
func Encode(p Packet) ([]byte, error) {
	b := []byte{byte(p.Type())}

	switch pk := p.(type) {
	case *Join:
		b = appendName(b, pk.Name)
	case *Ack:
		b = appendInt32(b, pk.Code)
	case *Start:
		b = append(b, pk.Width, pk.Height, pk.SpawnX, pk.SpawnY)
	case *End:
	case *Map:
		if len(pk.Tiles) != pk.Width*pk.Height {
			return nil, fmt.Errorf("%w: map has %d tiles for %dx%d", ErrMalformedPacket, len(pk.Tiles), pk.Width, pk.Height)
		}
		if 1+len(pk.Tiles) > MaxMapPacketSize {
			return nil, fmt.Errorf("%w: map of %d tiles", ErrPacketTooLarge, len(pk.Tiles))
		}
		b = append(b, pk.Tiles...)
	case *Players:
		if len(pk.Players) > MaxPlayerEntries {
			return nil, fmt.Errorf("%w: %d players", ErrPacketTooLarge, len(pk.Players))
		}
		b = appendInt32(b, int32(len(pk.Players)))
		for _, ps := range pk.Players {
			b = appendInt32(b, ps.ID)
			b = appendFloat32(b, ps.X)
			b = appendFloat32(b, ps.Y)
			b = append(b, byte(ps.State), byte(ps.Role))
		}
	case *Score:
		if len(pk.Entries) > MaxScoreEntries {
			return nil, fmt.Errorf("%w: %d scores", ErrPacketTooLarge, len(pk.Entries))
		}
		b = appendInt32(b, int32(len(pk.Entries)))
		for _, e := range pk.Entries {
			b = appendInt32(b, e.Score)
			b = appendInt32(b, e.ID)
		}
	case *Move:
		b = appendInt32(b, pk.SenderID)
		b = append(b, byte(pk.Direction))
	case *Message:
		if len(pk.Text)+1 > MaxMessageLength {
			return nil, fmt.Errorf("%w: message of %d bytes", ErrMessageTooLong, len(pk.Text))
		}
		b = appendInt32(b, pk.SenderID)
		b = appendInt32(b, int32(len(pk.Text)+1))
		b = append(b, pk.Text...)
		b = append(b, 0)
	case *Quit:
		b = appendInt32(b, pk.SenderID)
	case *Joined:
		b = appendInt32(b, pk.ID)
		b = appendName(b, pk.Name)
	case *PlayerDisconnected:
		b = appendInt32(b, pk.ID)
	default:
		return nil, fmt.Errorf("%w: cannot encode %T", ErrMalformedPacket, p)
	}

	return b, nil
}

// MustEncode is Encode for packets whose size is known to be valid.
func MustEncode(p Packet) []byte {
	b, err := Encode(p)
	if err != nil {
		panic(err)
	}
	return b
}

func appendInt32(b []byte, v int32) []byte {
	return binary.LittleEndian.AppendUint32(b, uint32(v))
}

func appendFloat32(b []byte, v float32) []byte {
	return binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
}

// appendName writes a NUL padded NameSize field, keeping at least one NUL.
func appendName(b []byte, name string) []byte {
	var field [NameSize]byte
	copy(field[:NameSize-1], name)
	return append(b, field[:]...)
}
