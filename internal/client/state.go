package client

import (
	"fmt"
	"sort"
	"time"

	"github.com/vovakirdan/netpac/internal/core"
	"github.com/vovakirdan/netpac/internal/protocol"
)

// MaxChatLines is how many chat lines State keeps.
const MaxChatLines = 50

// Player is what the client knows about one player.
type Player struct {
	ID     int32
	Name   string
	X, Y   float32
	State  core.VitalState
	Role   core.Role
	Score  int32
	Active bool // Listed in the latest Players packet
}

// ChatLine is one received chat message.
type ChatLine struct {
	From int32
	Name string
	Text string
	At   time.Time
}

// State is the client-side view of the game, built only from received
// packets. It is not safe for concurrent use.
type State struct {
	Self    int32
	Width   int
	Height  int
	Tiles   []byte
	Spawn   core.Cell
	InRound bool
	Rounds  int
	Players map[int32]*Player
	Chat    []ChatLine
}

// NewState creates an empty view for the player self. The server never
// announces a player to itself, so the own name is given here.
func NewState(self int32, name string) *State {
	return &State{
		Self:    self,
		Players: map[int32]*Player{self: {ID: self, Name: name}},
	}
}

// Apply folds one packet into the state.
func (s *State) Apply(p protocol.Packet) {
	switch p := p.(type) {
	case *protocol.Joined:
		s.player(p.ID).Name = p.Name

	case *protocol.PlayerDisconnected:
		delete(s.Players, p.ID)

	case *protocol.Start:
		s.InRound = true
		s.Rounds++
		s.Width, s.Height = int(p.Width), int(p.Height)
		s.Tiles = nil
		s.Spawn = core.Cell{X: int(p.SpawnX), Y: int(p.SpawnY)}
		for _, pl := range s.Players {
			pl.Active = false
			pl.Score = 0
		}

	case *protocol.End:
		s.InRound = false
		for _, pl := range s.Players {
			pl.Active = false
		}

	case *protocol.Map:
		s.Width, s.Height = p.Width, p.Height
		s.Tiles = append(s.Tiles[:0], p.Tiles...)

	case *protocol.Players:
		for _, pl := range s.Players {
			pl.Active = false
		}
		for _, e := range p.Players {
			pl := s.player(e.ID)
			pl.X, pl.Y = e.X, e.Y
			pl.State = e.State
			pl.Role = e.Role
			pl.Active = true
		}

	case *protocol.Score:
		for _, e := range p.Entries {
			s.player(e.ID).Score = e.Score
		}

	case *protocol.Message:
		s.Chat = append(s.Chat, ChatLine{
			From: p.SenderID,
			Name: s.player(p.SenderID).Name,
			Text: p.Text,
			At:   time.Now(),
		})
		if len(s.Chat) > MaxChatLines {
			s.Chat = s.Chat[len(s.Chat)-MaxChatLines:]
		}
	}
}

// player returns the entry for id, creating a placeholder if needed.
func (s *State) player(id int32) *Player {
	pl, ok := s.Players[id]
	if !ok {
		pl = &Player{ID: id, Name: fmt.Sprintf("#%d", id)}
		s.Players[id] = pl
	}
	return pl
}

// Me returns the own player.
func (s *State) Me() *Player {
	return s.player(s.Self)
}

// Tile returns the tile code at (x, y), or -1 outside the known map.
func (s *State) Tile(x, y int) int {
	if x < 0 || y < 0 || x >= s.Width || y >= s.Height || len(s.Tiles) != s.Width*s.Height {
		return -1
	}
	return int(s.Tiles[y*s.Width+x])
}

// Ranking returns players by score, highest first, ties by ID.
func (s *State) Ranking() []*Player {
	out := make([]*Player, 0, len(s.Players))
	for _, pl := range s.Players {
		out = append(out, pl)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out
}
