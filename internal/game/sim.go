package game

import (
	"math/rand"

	"github.com/vovakirdan/netpac/internal/config"
	"github.com/vovakirdan/netpac/internal/core"
	"github.com/vovakirdan/netpac/internal/maps"
	"github.com/vovakirdan/netpac/internal/session"
)

// KillEvent records one player killing another.
type KillEvent struct {
	KillerID int32
	VictimID int32
	Role     core.Role // Killer's role
}

// PickupEvent records a Pacman consuming a tile.
type PickupEvent struct {
	PlayerID int32
	Cell     core.Cell
	Tile     maps.Tile
}

// RespawnEvent records a powerup reappearing.
type RespawnEvent struct {
	Cell core.Cell
	Tile maps.Tile
}

// StepResult contains what happened during one simulation step.
type StepResult struct {
	Tick     uint64
	Kills    []KillEvent
	Pickups  []PickupEvent
	Respawns []RespawnEvent
	Blocked  int // Moves reverted by a wall
}

// Sim advances the world one tick at a time. It holds no state of its own
// besides the rules and the random source; callers pass the sessions and
// the grid with the registry and map locks held.
type Sim struct {
	rules config.Rules
	rng   *rand.Rand
}

// NewSim creates a simulation with the given rules and random source.
func NewSim(rules config.Rules, rng *rand.Rand) *Sim {
	return &Sim{rules: rules, rng: rng}
}

// Step runs one tick over the active, living players in slot order:
//  1. Buff decay
//  2. Predation (ghosts catch Normal pacmen on the same cell)
//  3. Tile interaction (pacmen only)
//  4. Retaliation (powered pacmen eat ghosts on the same cell)
//  5. Movement
//
// Powerup respawn runs once after every player has been processed.
func (s *Sim) Step(tick uint64, players []*session.Session, g *maps.Grid) StepResult {
	res := StepResult{Tick: tick}

	for _, p := range players {
		if !p.Active || p.State == core.StateDead {
			continue
		}

		s.decayBuff(p)

		switch p.Role {
		case core.RoleGhost:
			s.predation(p, players, &res)
		case core.RolePacman:
			s.interact(p, g, &res)
			s.retaliation(p, players, &res)
		}

		if !s.move(p, g) {
			res.Blocked++
		}
	}

	s.respawn(tick, g, &res)
	return res
}

func (s *Sim) decayBuff(p *session.Session) {
	if !p.State.IsBuff() {
		return
	}
	p.BuffTicks--
	if p.BuffTicks <= 0 {
		p.BuffTicks = 0
		p.State = core.StateNormal
	}
}

func (s *Sim) predation(ghost *session.Session, players []*session.Session, res *StepResult) {
	cell := cellOf(ghost)
	for _, p := range players {
		if !p.Active || p.Role != core.RolePacman || p.State != core.StateNormal {
			continue
		}
		if cellOf(p) != cell {
			continue
		}
		p.State = core.StateDead
		p.Intent = core.DirNone
		ghost.Score += s.rules.Scoring.GhostKill
		res.Kills = append(res.Kills, KillEvent{KillerID: ghost.ID, VictimID: p.ID, Role: core.RoleGhost})
	}
}

func (s *Sim) interact(p *session.Session, g *maps.Grid, res *StepResult) {
	cell := cellOf(p)
	tile := g.At(cell)
	switch tile {
	case maps.TilePowerPellet:
		p.State = core.StatePowerPellet
		p.BuffTicks = s.rules.Buffs.PowerPellet
	case maps.TileInvincibility:
		p.State = core.StateInvincible
		p.BuffTicks = s.rules.Buffs.Invincibility
	case maps.TileScore:
		p.Score += s.rules.Scoring.ScoreTile
	case maps.TileDot:
		p.Score += s.rules.Scoring.Dot
	default:
		return
	}
	g.Take(cell)
	res.Pickups = append(res.Pickups, PickupEvent{PlayerID: p.ID, Cell: cell, Tile: tile})
}

func (s *Sim) retaliation(pac *session.Session, players []*session.Session, res *StepResult) {
	if pac.State != core.StatePowerPellet {
		return
	}
	cell := cellOf(pac)
	for _, p := range players {
		if !p.Active || p.Role != core.RoleGhost || p.State == core.StateDead {
			continue
		}
		if cellOf(p) != cell {
			continue
		}
		p.State = core.StateDead
		p.Intent = core.DirNone
		pac.Score += s.rules.Scoring.PacmanKill
		res.Kills = append(res.Kills, KillEvent{KillerID: pac.ID, VictimID: p.ID, Role: core.RolePacman})
	}
}

// move applies the pending intent by one step. A move whose destination
// cell is a wall, or off the grid, is reverted entirely.
func (s *Sim) move(p *session.Session, g *maps.Grid) bool {
	dx, dy := p.Intent.Delta()
	if dx == 0 && dy == 0 {
		return true
	}
	nx := p.X + dx*s.rules.Movement.Step
	ny := p.Y + dy*s.rules.Movement.Step
	if nx < 0 || ny < 0 || g.At(core.CellAt(nx, ny)) == maps.TileWall {
		return false
	}
	p.X, p.Y = nx, ny
	return true
}

func (s *Sim) respawn(tick uint64, g *maps.Grid, res *StepResult) {
	spawn := func(every uint64, tile maps.Tile) {
		if every == 0 || tick == 0 || tick%every != 0 {
			return
		}
		cell, ok := g.RandomCell(s.rng, maps.TileEmpty, maps.TileDot, maps.TileScore)
		if !ok {
			return
		}
		g.Set(cell, tile)
		res.Respawns = append(res.Respawns, RespawnEvent{Cell: cell, Tile: tile})
	}
	spawn(s.rules.Respawn.PowerPelletEvery, maps.TilePowerPellet)
	spawn(s.rules.Respawn.InvincibilityEvery, maps.TileInvincibility)
}

func cellOf(p *session.Session) core.Cell {
	return core.CellAt(p.X, p.Y)
}
