package tui

import "strings"

// Color is a palette slot for a screen cell.
type Color uint8

const (
	ColorDefault Color = iota
	ColorWall
	ColorDot
	ColorPowerPellet
	ColorInvincibility
	ColorScore
	ColorPacman
	ColorGhost
	ColorSelf
	ColorPowered
	ColorInvincible
	ColorDead
)

type glyph struct {
	r rune
	c Color
}

// Screen is a 2D character buffer with a color per cell. Drawing is plain
// rune placement; styling happens once in RenderScreen.
type Screen struct {
	width  int
	height int
	cells  []glyph
}

// NewScreen creates a blank screen.
func NewScreen(width, height int) *Screen {
	s := &Screen{width: width, height: height, cells: make([]glyph, width*height)}
	s.Clear()
	return s
}

// Width returns the screen width in characters.
func (s *Screen) Width() int { return s.width }

// Height returns the screen height in characters.
func (s *Screen) Height() int { return s.height }

// Clear fills the screen with uncolored spaces.
func (s *Screen) Clear() {
	for i := range s.cells {
		s.cells[i] = glyph{r: ' '}
	}
}

// Set places a rune. Out-of-bounds coordinates are silently ignored.
func (s *Screen) Set(x, y int, r rune, c Color) {
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		return
	}
	s.cells[y*s.width+x] = glyph{r: r, c: c}
}

// Get returns the rune and color at a position, or an uncolored space
// outside the screen.
func (s *Screen) Get(x, y int) (rune, Color) {
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		return ' ', ColorDefault
	}
	g := s.cells[y*s.width+x]
	return g.r, g.c
}

// DrawText writes text starting at (x, y), clipped at the screen edge.
func (s *Screen) DrawText(x, y int, text string, c Color) {
	i := 0
	for _, r := range text {
		s.Set(x+i, y, r, c)
		i++
	}
}

// String returns the screen without colors, rows joined by newlines.
func (s *Screen) String() string {
	var sb strings.Builder
	sb.Grow(s.width*s.height + s.height)
	for y := 0; y < s.height; y++ {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for x := 0; x < s.width; x++ {
			sb.WriteRune(s.cells[y*s.width+x].r)
		}
	}
	return sb.String()
}
