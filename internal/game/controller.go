// Package game runs the authoritative round loop: it starts rounds when
// enough players are ready, advances the simulation on a fixed tick, ends
// rounds and rotates maps.
package game

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/vovakirdan/netpac/internal/config"
	"github.com/vovakirdan/netpac/internal/core"
	"github.com/vovakirdan/netpac/internal/maps"
	"github.com/vovakirdan/netpac/internal/metrics"
	"github.com/vovakirdan/netpac/internal/protocol"
	"github.com/vovakirdan/netpac/internal/session"
)

// Controller is the single game loop. Its state changes are serialized by
// mu; the lock order is Controller.mu, then the registry, then the map.
type Controller struct {
	rules    config.Rules
	registry *session.Registry
	rotation *maps.Rotation
	sim      *Sim
	logger   *log.Logger

	metrics  *metrics.Metrics
	saver    ResultSaver // Optional, can be nil
	notifier Notifier    // Optional, can be nil
	saves    sync.WaitGroup

	mu         sync.Mutex
	started    atomic.Bool
	current    atomic.Pointer[maps.Map]
	tick       uint64
	generation uint64
	roundID    uuid.UUID
	startedAt  time.Time
}

// NewController creates a controller playing the rotation's current map.
func NewController(rules config.Rules, registry *session.Registry, rotation *maps.Rotation, logger *log.Logger) *Controller {
	c := &Controller{
		rules:    rules,
		registry: registry,
		rotation: rotation,
		sim:      NewSim(rules, rand.New(rand.NewSource(time.Now().UnixNano()))),
		logger:   logger,
	}
	c.current.Store(rotation.Current())
	return c
}

// SetResultSaver sets the optional round result saver.
func (c *Controller) SetResultSaver(saver ResultSaver) {
	c.saver = saver
}

// SetNotifier sets the optional event notifier.
func (c *Controller) SetNotifier(n Notifier) {
	c.notifier = n
}

// SetMetrics sets the counters updated by the loop.
func (c *Controller) SetMetrics(m *metrics.Metrics) {
	c.metrics = m
}

// SetRand replaces the random source used for powerup respawns.
func (c *Controller) SetRand(rng *rand.Rand) {
	c.sim = NewSim(c.rules, rng)
}

// GameStarted reports whether a round is in progress.
func (c *Controller) GameStarted() bool {
	return c.started.Load()
}

// CurrentMap returns the map being played or waited on.
func (c *Controller) CurrentMap() *maps.Map {
	return c.current.Load()
}

// Run ticks the game until ctx is cancelled. A round in progress is ended
// on the way out and pending result saves are waited for.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.rules.Tick.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			c.Step()
			c.metrics.AddTick(time.Since(start))

		case <-ctx.Done():
			c.mu.Lock()
			if c.started.Load() {
				c.endRound(EndReasonShutdown)
			}
			c.mu.Unlock()
			c.saves.Wait()
			return
		}
	}
}

// Step runs one controller tick: it either tries to start a round or
// advances the round in progress and checks whether it has ended.
func (c *Controller) Step() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started.Load() {
		c.tryStart()
		return
	}

	c.tick++
	m := c.current.Load()
	reason := EndReasonNone
	var res StepResult
	var scores []PlayerResult
	c.registry.Update(func(sessions []*session.Session) {
		m.Edit(func(g *maps.Grid) {
			res = c.sim.Step(c.tick, sessions, g)
			if c.tick >= c.rules.Tick.RoundGrace {
				reason = checkEnd(sessions, g)
			}
		})
		if c.notifier != nil && c.tick%uint64(c.rules.Tick.ScoreEvery) == 0 {
			scores = playerResults(sessions)
		}
	})

	for _, k := range res.Kills {
		c.logger.Debug("player killed", "killer", k.KillerID, "victim", k.VictimID, "by", k.Role)
	}
	for _, r := range res.Respawns {
		c.logger.Debug("powerup respawned", "tile", r.Tile, "x", r.Cell.X, "y", r.Cell.Y)
	}
	if scores != nil {
		c.notifier.Notify(EventScores, scores)
	}

	if reason != EndReasonNone {
		c.endRound(reason)
	}
}

// Enter brings a newly acknowledged session into the game. If a round is
// in progress the session is placed immediately and receives Start.
func (c *Controller) Enter(s *session.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started.Load() {
		return
	}

	m := c.current.Load()
	var start *protocol.Start
	c.registry.Update(func(sessions []*session.Session) {
		if s.Active || !s.Admitted() {
			return
		}
		m.View(func(g *maps.Grid) {
			start = c.activate(s, sessions, g)
		})
	})
	if start != nil {
		c.logger.Info("late join", "id", s.ID, "name", s.Name(), "role", s.Role)
		c.beginStream(s, start)
	}
}

// tryStart must be called with mu held.
func (c *Controller) tryStart() {
	ready := 0
	c.registry.View(func(sessions []*session.Session) {
		for _, s := range sessions {
			if s.Ready() && !s.Closed() {
				ready++
			}
		}
	})
	if ready < c.rules.Players.Min {
		return
	}

	m := c.current.Load()
	c.generation++
	c.roundID = uuid.New()
	c.startedAt = time.Now()
	c.tick = 0

	type pending struct {
		s     *session.Session
		start *protocol.Start
	}
	var starts []pending
	c.registry.Update(func(sessions []*session.Session) {
		m.View(func(g *maps.Grid) {
			for _, s := range sessions {
				if !s.Ready() || s.Closed() {
					continue
				}
				if start := c.activate(s, sessions, g); start != nil {
					starts = append(starts, pending{s: s, start: start})
				}
			}
		})
	})
	c.started.Store(true)

	for _, p := range starts {
		c.beginStream(p.s, p.start)
	}

	c.logger.Info("round started", "round", c.roundID, "map", m.Name(), "players", len(starts))
	if c.notifier != nil {
		c.notifier.Notify(EventRoundStarted, map[string]any{
			"round_id": c.roundID,
			"map":      m.Name(),
			"width":    m.Width(),
			"height":   m.Height(),
			"players":  len(starts),
		})
	}
}

// activate assigns a role and spawn to s. It must be called with the
// registry locked. It returns nil if no spawn could be found; the session
// then waits for the next round.
func (c *Controller) activate(s *session.Session, sessions []*session.Session, g *maps.Grid) *protocol.Start {
	index := 0
	for _, other := range sessions {
		if other.Active {
			index++
		}
	}
	role := AssignRole(index, c.rules.Players.GhostRatio, c.rules.Players.PacmanRatio)

	cell, err := FindSpawn(g, role, sessions, c.rules.Spawn.Window)
	if err != nil {
		c.logger.Warn("no spawn for player", "id", s.ID, "name", s.Name(), "role", role, "error", err)
		return nil
	}

	s.Role = role
	s.State = core.StateNormal
	s.BuffTicks = 0
	if role == core.RolePacman && c.rules.Buffs.SpawnInvincibility > 0 {
		s.State = core.StateInvincible
		s.BuffTicks = c.rules.Buffs.SpawnInvincibility
	}
	s.X, s.Y = float64(cell.X), float64(cell.Y)
	s.Intent = core.DirNone
	s.Score = 0
	s.Active = true

	return &protocol.Start{
		Width:  uint8(g.Width()),  //nolint:gosec // maps are limited to MaxMapWidth
		Height: uint8(g.Height()), //nolint:gosec // maps are limited to MaxMapHeight
		SpawnX: uint8(cell.X),     //nolint:gosec // inside the map
		SpawnY: uint8(cell.Y),     //nolint:gosec // inside the map
	}
}

// beginStream sends Start and then enables snapshots for this round.
func (c *Controller) beginStream(s *session.Session, start *protocol.Start) {
	if err := s.Send(start); err != nil {
		c.logger.Debug("start not delivered", "id", s.ID, "error", err)
		return
	}
	s.StartStream(c.generation)
}

// endRound must be called with mu held.
func (c *Controller) endRound(reason EndReason) {
	m := c.current.Load()
	result := RoundResult{
		RoundID:   c.roundID,
		MapName:   m.Name(),
		Reason:    reason,
		Ticks:     c.tick,
		StartedAt: c.startedAt,
		EndedAt:   time.Now(),
	}

	var ended []*session.Session
	c.registry.Update(func(sessions []*session.Session) {
		result.Players = playerResults(sessions)
		for _, s := range session.Active(sessions) {
			s.Active = false
			s.State = core.StateNormal
			s.BuffTicks = 0
			s.Intent = core.DirNone
			ended = append(ended, s)
		}
	})

	for _, s := range ended {
		s.StopStream()
		_ = s.Send(&protocol.End{})
	}

	m.Reset()
	next := c.rotation.Advance()
	c.current.Store(next)
	c.tick = 0
	c.started.Store(false)

	c.logger.Info("round ended",
		"round", result.RoundID,
		"reason", reason,
		"ticks", result.Ticks,
		"next_map", next.Name(),
	)
	c.metrics.IncRounds()
	if c.notifier != nil {
		c.notifier.Notify(EventRoundEnded, result)
	}

	if c.saver != nil {
		c.saves.Add(1)
		go func() {
			defer c.saves.Done()
			if err := c.saver.SaveRoundResult(result); err != nil {
				c.logger.Warn("could not save round result", "round", result.RoundID, "error", err)
			}
		}()
	}
}

// checkEnd must be called with the registry and map locked.
func checkEnd(sessions []*session.Session, g *maps.Grid) EndReason {
	var pacmen, ghosts int
	for _, s := range sessions {
		if !s.Active || s.State == core.StateDead {
			continue
		}
		if s.Role == core.RoleGhost {
			ghosts++
		} else {
			pacmen++
		}
	}

	switch {
	case pacmen == 0 && ghosts == 0:
		return EndReasonNoPlayers
	case pacmen == 0:
		return EndReasonGhostsWin
	case ghosts == 0:
		return EndReasonPacmenWin
	case g.Count(maps.TileDot) == 0:
		return EndReasonDotsCleared
	}
	return EndReasonNone
}

func playerResults(sessions []*session.Session) []PlayerResult {
	active := session.Active(sessions)
	out := make([]PlayerResult, 0, len(active))
	for _, s := range active {
		out = append(out, PlayerResult{
			ID:    s.ID,
			Name:  s.Name(),
			Role:  s.Role,
			Score: s.Score,
			Dead:  s.State == core.StateDead,
		})
	}
	return out
}
