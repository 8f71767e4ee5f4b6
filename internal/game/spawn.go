package game

import (
	"errors"

	"github.com/vovakirdan/netpac/internal/core"
	"github.com/vovakirdan/netpac/internal/maps"
	"github.com/vovakirdan/netpac/internal/session"
)

// ErrNoSpawnAvailable is returned when the map has no tile a player can stand on.
var ErrNoSpawnAvailable = errors.New("game: no spawn available")

// AssignRole returns the role for the player joining with index players
// already active. The mix follows ghostRatio:pacmanRatio exactly.
func AssignRole(index, ghostRatio, pacmanRatio int) core.Role {
	if index%(ghostRatio+pacmanRatio) < ghostRatio {
		return core.RoleGhost
	}
	return core.RolePacman
}

// spawnCheck is one relaxation level of the spawn search.
type spawnCheck struct {
	window     int  // Enemies must be farther than this; <0 disables the check
	occupancy  bool // Reject cells held by a same-role player
	allowEmpty bool // Accept Empty tiles as well as collectibles
}

// FindSpawn picks a spawn cell for role. Pacmen scan row-major from the
// top-left, ghosts from the bottom-right. The first pass requires a
// collectible tile with no living enemy within window (Chebyshev) and no
// same-role player on it. If nothing qualifies the window shrinks one step
// at a time to zero, then the enemy check is dropped, then the occupancy
// check, and finally Empty tiles are accepted too.
func FindSpawn(g *maps.Grid, role core.Role, players []*session.Session, window int) (core.Cell, error) {
	var checks []spawnCheck
	for w := window; w >= 0; w-- {
		checks = append(checks, spawnCheck{window: w, occupancy: true})
	}
	checks = append(checks,
		spawnCheck{window: -1, occupancy: true},
		spawnCheck{window: -1},
		spawnCheck{window: -1, allowEmpty: true},
	)

	for _, chk := range checks {
		if c, ok := scanSpawn(g, role, players, chk); ok {
			return c, nil
		}
	}
	return core.Cell{}, ErrNoSpawnAvailable
}

func scanSpawn(g *maps.Grid, role core.Role, players []*session.Session, chk spawnCheck) (core.Cell, bool) {
	w, h := g.Width(), g.Height()
	n := w * h
	for i := 0; i < n; i++ {
		idx := i
		if role == core.RoleGhost {
			idx = n - 1 - i
		}
		c := core.Cell{X: idx % w, Y: idx / w}
		if spawnable(g, c, role, players, chk) {
			return c, true
		}
	}
	return core.Cell{}, false
}

func spawnable(g *maps.Grid, c core.Cell, role core.Role, players []*session.Session, chk spawnCheck) bool {
	switch g.At(c) {
	case maps.TileWall:
		return false
	case maps.TileEmpty:
		if !chk.allowEmpty {
			return false
		}
	}

	for _, p := range players {
		if !p.Active || p.State == core.StateDead {
			continue
		}
		pc := cellOf(p)
		if chk.occupancy && p.Role == role && pc == c {
			return false
		}
		if chk.window >= 0 && p.Role != role && core.Chebyshev(pc, c) <= chk.window {
			return false
		}
	}
	return true
}
