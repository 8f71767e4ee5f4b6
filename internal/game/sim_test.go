package game

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/vovakirdan/netpac/internal/config"
	"github.com/vovakirdan/netpac/internal/core"
	"github.com/vovakirdan/netpac/internal/maps"
	"github.com/vovakirdan/netpac/internal/session"
)

func testRules() config.Rules {
	r := config.DefaultRules()
	r.Respawn.PowerPelletEvery = 0
	r.Respawn.InvincibilityEvery = 0
	r.Tick.RoundGrace = 1
	return r
}

func mustParse(t *testing.T, name, data string) *maps.Map {
	t.Helper()
	m, err := maps.Parse(name, []byte(data))
	if err != nil {
		t.Fatalf("Parse(%s) failed: %v", name, err)
	}
	return m
}

func newPlayer(id int32, role core.Role, x, y float64) *session.Session {
	s := session.New(context.Background(), id, nil, 0)
	s.Role = role
	s.State = core.StateNormal
	s.X, s.Y = x, y
	s.Active = true
	return s
}

func step(sim *Sim, tick uint64, m *maps.Map, players ...*session.Session) StepResult {
	var res StepResult
	m.Edit(func(g *maps.Grid) {
		res = sim.Step(tick, players, g)
	})
	return res
}

func TestWallCollisionKeepsPosition(t *testing.T) {
	tests := []struct {
		name   string
		x, y   float64
		intent core.Direction
	}{
		{"up into wall", 1, 1, core.DirUp},
		{"left into wall", 1, 1, core.DirLeft},
		{"right into wall", 1.75, 1, core.DirRight},
		{"down into wall", 1, 1.75, core.DirDown},
	}

	sim := NewSim(testRules(), rand.New(rand.NewSource(1)))
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := mustParse(t, "box", "222\n202\n222\n")
			p := newPlayer(1, core.RoleGhost, tc.x, tc.y)
			p.Intent = tc.intent

			res := step(sim, 1, m, p)
			if p.X != tc.x || p.Y != tc.y {
				t.Errorf("Position = (%v, %v), expected (%v, %v)", p.X, p.Y, tc.x, tc.y)
			}
			if res.Blocked != 1 {
				t.Errorf("Blocked = %d, expected 1", res.Blocked)
			}
		})
	}
}

func TestMovementOffGridIsBlocked(t *testing.T) {
	sim := NewSim(testRules(), rand.New(rand.NewSource(1)))
	m := mustParse(t, "open", "00\n00\n")
	p := newPlayer(1, core.RoleGhost, 0, 0)
	p.Intent = core.DirLeft

	step(sim, 1, m, p)
	if p.X != 0 || p.Y != 0 {
		t.Errorf("Player left the grid: (%v, %v)", p.X, p.Y)
	}
}

func TestMovementIntentPersists(t *testing.T) {
	sim := NewSim(testRules(), rand.New(rand.NewSource(1)))
	m := mustParse(t, "corridor", "00000\n")
	p := newPlayer(1, core.RoleGhost, 0, 0)
	p.Intent = core.DirRight

	for tick := uint64(1); tick <= 4; tick++ {
		step(sim, tick, m, p)
	}
	if p.X != 1 || p.Y != 0 {
		t.Errorf("Position after 4 ticks = (%v, %v), expected (1, 0)", p.X, p.Y)
	}
}

func TestTileConsumptionIsSingleUse(t *testing.T) {
	rules := testRules()
	tests := []struct {
		name      string
		tile      string
		wantScore int
		wantState core.VitalState
		wantBuff  int
	}{
		{"dot", "1", rules.Scoring.Dot, core.StateNormal, 0},
		{"score tile", "5", rules.Scoring.ScoreTile, core.StateNormal, 0},
		{"power pellet", "3", 0, core.StatePowerPellet, rules.Buffs.PowerPellet},
		{"invincibility", "4", 0, core.StateInvincible, rules.Buffs.Invincibility},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sim := NewSim(rules, rand.New(rand.NewSource(1)))
			m := mustParse(t, "one", "222\n2"+tc.tile+"2\n222\n")
			p := newPlayer(1, core.RolePacman, 1, 1)

			res := step(sim, 1, m, p)
			if p.Score != tc.wantScore || p.State != tc.wantState || p.BuffTicks != tc.wantBuff {
				t.Errorf("After pickup: score=%d state=%s buff=%d, expected %d %s %d",
					p.Score, p.State, p.BuffTicks, tc.wantScore, tc.wantState, tc.wantBuff)
			}
			if len(res.Pickups) != 1 {
				t.Errorf("Pickups = %d, expected 1", len(res.Pickups))
			}
			m.View(func(g *maps.Grid) {
				if got := g.At(core.Cell{X: 1, Y: 1}); got != maps.TileEmpty {
					t.Errorf("Tile after pickup = %s, expected Empty", got)
				}
			})

			res = step(sim, 2, m, p)
			if p.Score != tc.wantScore {
				t.Errorf("Score changed on second tick: %d", p.Score)
			}
			if len(res.Pickups) != 0 {
				t.Error("Tile yielded a second pickup")
			}
		})
	}
}

func TestGhostsDoNotConsumeTiles(t *testing.T) {
	sim := NewSim(testRules(), rand.New(rand.NewSource(1)))
	m := mustParse(t, "one", "1\n")
	g := newPlayer(1, core.RoleGhost, 0, 0)

	step(sim, 1, m, g)
	if m.Count(maps.TileDot) != 1 || g.Score != 0 {
		t.Error("A ghost consumed a dot")
	}
}

func TestPredation(t *testing.T) {
	rules := testRules()
	tests := []struct {
		name     string
		state    core.VitalState
		wantDead bool
	}{
		{"normal pacman is caught", core.StateNormal, true},
		{"invincible pacman survives", core.StateInvincible, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sim := NewSim(rules, rand.New(rand.NewSource(1)))
			m := mustParse(t, "open", "000\n000\n")
			ghost := newPlayer(1, core.RoleGhost, 1.5, 1.25)
			pac := newPlayer(2, core.RolePacman, 1, 1)
			pac.State = tc.state
			pac.BuffTicks = 10

			res := step(sim, 1, m, ghost, pac)
			dead := pac.State == core.StateDead
			if dead != tc.wantDead {
				t.Fatalf("Pacman dead = %v, expected %v", dead, tc.wantDead)
			}
			wantScore := 0
			if tc.wantDead {
				wantScore = rules.Scoring.GhostKill
				if len(res.Kills) != 1 || res.Kills[0].VictimID != pac.ID {
					t.Errorf("Kills = %+v, expected pacman kill", res.Kills)
				}
			}
			if ghost.Score != wantScore {
				t.Errorf("Ghost score = %d, expected %d", ghost.Score, wantScore)
			}
		})
	}
}

func TestRetaliation(t *testing.T) {
	rules := testRules()
	sim := NewSim(rules, rand.New(rand.NewSource(1)))
	m := mustParse(t, "open", "000\n")
	ghost := newPlayer(1, core.RoleGhost, 1, 0)
	pac := newPlayer(2, core.RolePacman, 1.25, 0)
	pac.State = core.StatePowerPellet
	pac.BuffTicks = 10

	step(sim, 1, m, ghost, pac)
	if ghost.State != core.StateDead {
		t.Fatal("Powered pacman should eat the ghost")
	}
	if pac.State != core.StatePowerPellet || pac.Score != rules.Scoring.PacmanKill {
		t.Errorf("Pacman state=%s score=%d, expected PowerPellet %d", pac.State, pac.Score, rules.Scoring.PacmanKill)
	}
}

func TestDeadPlayersAreSkipped(t *testing.T) {
	sim := NewSim(testRules(), rand.New(rand.NewSource(1)))
	m := mustParse(t, "dots", "11\n")
	p := newPlayer(1, core.RolePacman, 0, 0)
	p.State = core.StateDead
	p.Intent = core.DirRight

	step(sim, 1, m, p)
	if p.X != 0 || p.Score != 0 || m.Count(maps.TileDot) != 2 {
		t.Error("A dead player moved or ate")
	}
}

func TestBuffDecay(t *testing.T) {
	sim := NewSim(testRules(), rand.New(rand.NewSource(1)))
	m := mustParse(t, "open", "0\n")
	p := newPlayer(1, core.RolePacman, 0, 0)
	p.State = core.StateInvincible
	p.BuffTicks = 2

	step(sim, 1, m, p)
	if p.State != core.StateInvincible || p.BuffTicks != 1 {
		t.Fatalf("After one tick: %s/%d, expected Invincible/1", p.State, p.BuffTicks)
	}
	step(sim, 2, m, p)
	if p.State != core.StateNormal || p.BuffTicks != 0 {
		t.Errorf("After two ticks: %s/%d, expected Normal/0", p.State, p.BuffTicks)
	}
}

func TestPowerupRespawn(t *testing.T) {
	rules := testRules()
	rules.Respawn.PowerPelletEvery = 3
	rules.Respawn.InvincibilityEvery = 5
	sim := NewSim(rules, rand.New(rand.NewSource(42)))
	m := mustParse(t, "dots", "1111\n1221\n1111\n")

	for tick := uint64(1); tick <= 5; tick++ {
		res := step(sim, tick, m)
		want := 0
		if tick == 3 || tick == 5 {
			want = 1
		}
		if len(res.Respawns) != want {
			t.Errorf("Tick %d: %d respawns, expected %d", tick, len(res.Respawns), want)
		}
	}
	if m.Count(maps.TilePowerPellet) != 1 || m.Count(maps.TileInvincibility) != 1 {
		t.Errorf("Powerups on grid: pellet=%d invincibility=%d, expected 1 each",
			m.Count(maps.TilePowerPellet), m.Count(maps.TileInvincibility))
	}
	if m.Count(maps.TileWall) != 2 {
		t.Error("Respawn must not replace walls")
	}
}

func TestAssignRoleFollowsRatio(t *testing.T) {
	tests := []struct {
		ghosts, pacmen int
		want           string
	}{
		{1, 2, "GPPGPPGPP"},
		{2, 1, "GGPGGPGGP"},
		{1, 1, "GPGPGPGPG"},
		{0, 1, "PPPPPPPPP"},
	}

	for _, tc := range tests {
		got := make([]byte, len(tc.want))
		for i := range got {
			if AssignRole(i, tc.ghosts, tc.pacmen) == core.RoleGhost {
				got[i] = 'G'
			} else {
				got[i] = 'P'
			}
		}
		if string(got) != tc.want {
			t.Errorf("Ratio %d:%d gave %s, expected %s", tc.ghosts, tc.pacmen, got, tc.want)
		}
	}
}

func TestFindSpawn(t *testing.T) {
	open := "11111\n11111\n11111\n11111\n11111\n"
	tests := []struct {
		name    string
		grid    string
		role    core.Role
		others  []*session.Session
		window  int
		want    core.Cell
		wantErr error
	}{
		{name: "pacman top-left", grid: open, role: core.RolePacman, window: 3, want: core.Cell{X: 0, Y: 0}},
		{name: "ghost bottom-right", grid: open, role: core.RoleGhost, window: 3, want: core.Cell{X: 4, Y: 4}},
		{
			name:   "avoids enemy window",
			grid:   open,
			role:   core.RolePacman,
			others: []*session.Session{newPlayer(9, core.RoleGhost, 1, 1)},
			window: 1,
			want:   core.Cell{X: 3, Y: 0},
		},
		{
			name:   "window shrinks when nothing qualifies",
			grid:   open,
			role:   core.RolePacman,
			others: []*session.Session{newPlayer(9, core.RoleGhost, 1, 1)},
			window: 3,
			want:   core.Cell{X: 4, Y: 0},
		},
		{
			name:   "skips same-role cell",
			grid:   open,
			role:   core.RolePacman,
			others: []*session.Session{newPlayer(9, core.RolePacman, 0, 0)},
			window: 3,
			want:   core.Cell{X: 1, Y: 0},
		},
		{name: "skips empty tiles", grid: "000\n010\n000\n", role: core.RolePacman, window: 0, want: core.Cell{X: 1, Y: 1}},
		{name: "falls back to empty tiles", grid: "200\n000\n", role: core.RoleGhost, window: 3, want: core.Cell{X: 2, Y: 1}},
		{name: "walls only", grid: "222\n", role: core.RolePacman, window: 3, wantErr: ErrNoSpawnAvailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := mustParse(t, "spawn", tc.grid)
			var got core.Cell
			var err error
			m.View(func(g *maps.Grid) {
				got, err = FindSpawn(g, tc.role, tc.others, tc.window)
			})
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Errorf("FindSpawn() error = %v, expected %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindSpawn() failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("FindSpawn() = %v, expected %v", got, tc.want)
			}
		})
	}
}

func TestCheckEnd(t *testing.T) {
	tests := []struct {
		name    string
		grid    string
		players []*session.Session
		want    EndReason
	}{
		{
			name:    "both roles alive with dots",
			grid:    "1\n",
			players: []*session.Session{newPlayer(1, core.RoleGhost, 0, 0), newPlayer(2, core.RolePacman, 0, 0)},
			want:    EndReasonNone,
		},
		{
			name:    "dots cleared",
			grid:    "0\n",
			players: []*session.Session{newPlayer(1, core.RoleGhost, 0, 0), newPlayer(2, core.RolePacman, 0, 0)},
			want:    EndReasonDotsCleared,
		},
		{
			name:    "only ghosts left",
			grid:    "1\n",
			players: []*session.Session{newPlayer(1, core.RoleGhost, 0, 0)},
			want:    EndReasonGhostsWin,
		},
		{
			name:    "only pacmen left",
			grid:    "1\n",
			players: []*session.Session{newPlayer(1, core.RolePacman, 0, 0)},
			want:    EndReasonPacmenWin,
		},
		{name: "nobody left", grid: "1\n", want: EndReasonNoPlayers},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := mustParse(t, "end", tc.grid)
			var got EndReason
			m.View(func(g *maps.Grid) {
				got = checkEnd(tc.players, g)
			})
			if got != tc.want {
				t.Errorf("checkEnd() = %s, expected %s", got, tc.want)
			}
		})
	}
}
