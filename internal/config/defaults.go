package config

import (
	_ "embed"
	"time"
)

//go:embed defaults/rules.yaml
var defaultRulesYAML []byte

// DefaultRules returns the built-in rules.
func DefaultRules() Rules {
	return Rules{
		Tick: TickRules{
			Period:     50 * time.Millisecond,
			ScoreEvery: 10,
			RoundGrace: 5,
		},
		Players: PlayerRules{
			Min:         2,
			Max:         8,
			GhostRatio:  1,
			PacmanRatio: 2,
		},
		Movement: MovementRules{
			Step: 0.25,
		},
		Buffs: BuffRules{
			PowerPellet:        160,
			Invincibility:      100,
			SpawnInvincibility: 60,
		},
		Respawn: RespawnRules{
			PowerPelletEvery:   600,
			InvincibilityEvery: 900,
		},
		Spawn: SpawnRules{
			Window: 3,
		},
		Scoring: ScoringRules{
			Dot:        1,
			ScoreTile:  10,
			GhostKill:  50,
			PacmanKill: 100,
		},
		Network: NetworkRules{
			JoinTimeout:  10 * time.Second,
			IdleTimeout:  5 * time.Minute,
			WriteTimeout: 2 * time.Second,
		},
	}
}
