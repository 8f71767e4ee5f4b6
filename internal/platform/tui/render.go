package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/netpac/internal/client"
	"github.com/vovakirdan/netpac/internal/core"
	"github.com/vovakirdan/netpac/internal/maps"
)

// cellWidth is how many terminal columns one map cell takes.
const cellWidth = 2

// palette maps screen colors to styles of one renderer.
type palette map[Color]lipgloss.Style

func newPalette(r *lipgloss.Renderer) palette {
	fg := func(c string) lipgloss.Style { return r.NewStyle().Foreground(lipgloss.Color(c)) }
	return palette{
		ColorDefault:       r.NewStyle(),
		ColorWall:          fg("4"),
		ColorDot:           fg("7"),
		ColorPowerPellet:   fg("13"),
		ColorInvincibility: fg("14"),
		ColorScore:         fg("11"),
		ColorPacman:        fg("3").Bold(true),
		ColorGhost:         fg("9").Bold(true),
		ColorSelf:          fg("10").Bold(true),
		ColorPowered:       fg("13").Bold(true),
		ColorInvincible:    fg("14").Bold(true),
		ColorDead:          fg("245"),
	}
}

// RenderScreen converts a Screen buffer to a styled string for display.
// Adjacent cells with the same color share one style run.
func RenderScreen(s *Screen, p palette) string {
	var sb strings.Builder
	sb.Grow(s.Width()*s.Height()*2 + s.Height())

	var run strings.Builder
	for y := range s.Height() {
		if y > 0 {
			sb.WriteRune('\n')
		}
		x := 0
		for x < s.Width() {
			_, start := s.Get(x, y)
			run.Reset()
			for x < s.Width() {
				r, c := s.Get(x, y)
				if c != start {
					break
				}
				run.WriteRune(r)
				x++
			}
			style, ok := p[start]
			if !ok {
				style = p[ColorDefault]
			}
			sb.WriteString(style.Render(run.String()))
		}
	}
	return sb.String()
}

// tileGlyph returns how a tile code is drawn.
func tileGlyph(code int) (rune, Color) {
	switch maps.Tile(code) {
	case maps.TileWall:
		return '█', ColorWall
	case maps.TileDot:
		return '·', ColorDot
	case maps.TilePowerPellet:
		return '●', ColorPowerPellet
	case maps.TileInvincibility:
		return '◆', ColorInvincibility
	case maps.TileScore:
		return '$', ColorScore
	default:
		return ' ', ColorDefault
	}
}

// playerGlyph returns how a player is drawn.
func playerGlyph(p *client.Player, self bool) (rune, Color) {
	r := 'C'
	if p.Role == core.RoleGhost {
		r = 'M'
	}
	switch {
	case p.State == core.StateDead:
		return 'x', ColorDead
	case self:
		return r, ColorSelf
	case p.State == core.StatePowerPellet:
		return r, ColorPowered
	case p.State == core.StateInvincible:
		return r, ColorInvincible
	case p.Role == core.RoleGhost:
		return r, ColorGhost
	default:
		return r, ColorPacman
	}
}

// DrawBoard draws the known map and every active player. The own player
// is drawn last so it is never hidden.
func DrawBoard(st *client.State) *Screen {
	s := NewScreen(st.Width*cellWidth, st.Height)
	for y := 0; y < st.Height; y++ {
		for x := 0; x < st.Width; x++ {
			r, c := tileGlyph(st.Tile(x, y))
			if maps.Tile(st.Tile(x, y)) == maps.TileWall {
				s.Set(x*cellWidth, y, r, c)
				s.Set(x*cellWidth+1, y, r, c)
				continue
			}
			s.Set(x*cellWidth, y, r, c)
		}
	}

	draw := func(p *client.Player) {
		cell := core.CellAt(float64(p.X), float64(p.Y))
		r, c := playerGlyph(p, p.ID == st.Self)
		s.Set(cell.X*cellWidth, cell.Y, r, c)
	}
	for _, p := range st.Ranking() {
		if p.Active && p.ID != st.Self {
			draw(p)
		}
	}
	if me := st.Me(); me.Active {
		draw(me)
	}
	return s
}
