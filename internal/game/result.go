package game

import (
	"time"

	"github.com/google/uuid"

	"github.com/vovakirdan/netpac/internal/core"
)

// EndReason describes why a round ended.
type EndReason int

const (
	EndReasonNone         EndReason = iota
	EndReasonGhostsWin              // No living pacman left
	EndReasonPacmenWin              // No living ghost left
	EndReasonDotsCleared            // Every dot was eaten
	EndReasonNoPlayers              // Nobody alive is left in the round
	EndReasonShutdown               // Server stopping mid-round
)

// String returns a human-readable name for the reason.
func (r EndReason) String() string {
	switch r {
	case EndReasonGhostsWin:
		return "ghosts_win"
	case EndReasonPacmenWin:
		return "pacmen_win"
	case EndReasonDotsCleared:
		return "dots_cleared"
	case EndReasonNoPlayers:
		return "no_players"
	case EndReasonShutdown:
		return "shutdown"
	default:
		return "none"
	}
}

// MarshalText encodes the reason by name.
func (r EndReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Winner returns the winning role and whether there is one.
// Clearing the dots is a pacman win.
func (r EndReason) Winner() (core.Role, bool) {
	switch r {
	case EndReasonGhostsWin:
		return core.RoleGhost, true
	case EndReasonPacmenWin, EndReasonDotsCleared:
		return core.RolePacman, true
	default:
		return 0, false
	}
}

// PlayerResult is one player's line in a round result.
type PlayerResult struct {
	ID    int32     `json:"id"`
	Name  string    `json:"name"`
	Role  core.Role `json:"role"`
	Score int       `json:"score"`
	Dead  bool      `json:"dead"`
}

// RoundResult contains the outcome of a finished round.
type RoundResult struct {
	RoundID   uuid.UUID      `json:"round_id"`
	MapName   string         `json:"map"`
	Reason    EndReason      `json:"reason"`
	Ticks     uint64         `json:"ticks"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   time.Time      `json:"ended_at"`
	Players   []PlayerResult `json:"players"`
}

// WinnerRole returns the winning role name, or empty if nobody won.
func (r RoundResult) WinnerRole() string {
	if role, ok := r.Reason.Winner(); ok {
		return role.String()
	}
	return ""
}

// ResultSaver is an interface for saving round results.
// This allows the controller to save results without depending on the storage package.
type ResultSaver interface {
	SaveRoundResult(result RoundResult) error
}

// Notifier receives round and player events, for example to feed spectators.
type Notifier interface {
	Notify(kind string, payload any)
}

// Event kinds passed to Notifier.
const (
	EventRoundStarted = "round_started"
	EventRoundEnded   = "round_ended"
	EventScores       = "scores"
	EventPlayerJoined = "player_joined"
	EventPlayerLeft   = "player_left"
)
