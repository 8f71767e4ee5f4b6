// Package config provides YAML-based loading of the server's game rules.
// Rules are read once at startup and never renegotiated with clients.
package config

import (
	"errors"
	"fmt"
	"time"
)

// MaxPlayersLimit is the hard upper bound on the session slot table.
const MaxPlayersLimit = 64

// Rules contains every tunable of the simulation and the network layer.
type Rules struct {
	Tick     TickRules     `yaml:"tick"`
	Players  PlayerRules   `yaml:"players"`
	Movement MovementRules `yaml:"movement"`
	Buffs    BuffRules     `yaml:"buffs"`
	Respawn  RespawnRules  `yaml:"respawn"`
	Spawn    SpawnRules    `yaml:"spawn"`
	Scoring  ScoringRules  `yaml:"scoring"`
	Network  NetworkRules  `yaml:"network"`
}

// TickRules defines simulation and snapshot timing.
type TickRules struct {
	Period     time.Duration `yaml:"period"`      // Controller and sender tick period
	ScoreEvery int           `yaml:"score_every"` // Score snapshot every N sender ticks
	RoundGrace uint64        `yaml:"round_grace"` // Ticks before end conditions are checked
}

// PlayerRules defines capacity and role mix.
type PlayerRules struct {
	Min         int `yaml:"min"`          // Players needed to start a round
	Max         int `yaml:"max"`          // Slot table capacity
	GhostRatio  int `yaml:"ghost_ratio"`  // Ghost share of the Ghost:Pacman ratio
	PacmanRatio int `yaml:"pacman_ratio"` // Pacman share of the Ghost:Pacman ratio
}

// MovementRules defines how far a player moves per tick, in cells.
type MovementRules struct {
	Step float64 `yaml:"step"`
}

// BuffRules defines buff durations in ticks.
type BuffRules struct {
	PowerPellet        int `yaml:"power_pellet"`
	Invincibility      int `yaml:"invincibility"`
	SpawnInvincibility int `yaml:"spawn_invincibility"`
}

// RespawnRules defines how often powerups reappear, in ticks.
type RespawnRules struct {
	PowerPelletEvery   uint64 `yaml:"power_pellet_every"`
	InvincibilityEvery uint64 `yaml:"invincibility_every"`
}

// SpawnRules defines spawn placement.
type SpawnRules struct {
	Window int `yaml:"window"` // Chebyshev distance kept free of enemies
}

// ScoringRules defines point values.
type ScoringRules struct {
	Dot        int `yaml:"dot"`
	ScoreTile  int `yaml:"score_tile"`
	GhostKill  int `yaml:"ghost_kill"`  // Credited to a ghost that catches a pacman
	PacmanKill int `yaml:"pacman_kill"` // Credited to a powered pacman that eats a ghost
}

// NetworkRules defines connection timeouts. Zero disables a timeout.
type NetworkRules struct {
	JoinTimeout  time.Duration `yaml:"join_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// ErrInvalidRules is wrapped by every validation failure.
var ErrInvalidRules = errors.New("config: invalid rules")

// Validate checks that the rules describe a playable game.
func (r Rules) Validate() error {
	switch {
	case r.Tick.Period <= 0:
		return fmt.Errorf("%w: tick.period must be positive", ErrInvalidRules)
	case r.Tick.ScoreEvery <= 0:
		return fmt.Errorf("%w: tick.score_every must be positive", ErrInvalidRules)
	case r.Players.Max <= 0 || r.Players.Max > MaxPlayersLimit:
		return fmt.Errorf("%w: players.max must be in 1..%d", ErrInvalidRules, MaxPlayersLimit)
	case r.Players.Min <= 0 || r.Players.Min > r.Players.Max:
		return fmt.Errorf("%w: players.min must be in 1..players.max", ErrInvalidRules)
	case r.Players.GhostRatio < 0 || r.Players.PacmanRatio < 0 || r.Players.GhostRatio+r.Players.PacmanRatio == 0:
		return fmt.Errorf("%w: role ratios must be non-negative and not both zero", ErrInvalidRules)
	case r.Movement.Step <= 0 || r.Movement.Step > 1:
		return fmt.Errorf("%w: movement.step must be in (0, 1]", ErrInvalidRules)
	case r.Buffs.PowerPellet < 0 || r.Buffs.Invincibility < 0 || r.Buffs.SpawnInvincibility < 0:
		return fmt.Errorf("%w: buff durations must be non-negative", ErrInvalidRules)
	case r.Spawn.Window < 0:
		return fmt.Errorf("%w: spawn.window must be non-negative", ErrInvalidRules)
	case r.Network.JoinTimeout < 0 || r.Network.IdleTimeout < 0 || r.Network.WriteTimeout < 0:
		return fmt.Errorf("%w: timeouts must be non-negative", ErrInvalidRules)
	}
	return nil
}
