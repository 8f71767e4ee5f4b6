// Package maps loads tile maps and tracks the grid of the map being played.
package maps

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/vovakirdan/netpac/internal/core"
	"github.com/vovakirdan/netpac/internal/protocol"
)

// Tile is the kind of a single grid cell. Values are the digits used in
// map files and the bytes sent in Map packets.
type Tile uint8

const (
	TileEmpty Tile = iota
	TileDot
	TileWall
	TilePowerPellet
	TileInvincibility
	TileScore
)

// Valid reports whether t is one of the six tile kinds.
func (t Tile) Valid() bool {
	return t <= TileScore
}

// String returns a human-readable name for the tile.
func (t Tile) String() string {
	switch t {
	case TileEmpty:
		return "Empty"
	case TileDot:
		return "Dot"
	case TileWall:
		return "Wall"
	case TilePowerPellet:
		return "PowerPellet"
	case TileInvincibility:
		return "Invincibility"
	case TileScore:
		return "Score"
	default:
		return "Unknown"
	}
}

// ErrMapTooLarge is returned for maps that do not fit the Start packet.
var ErrMapTooLarge = errors.New("maps: map too large")

// Map is a loaded map: an immutable name and size, the live grid, and the
// pristine grid captured at load time.
type Map struct {
	name   string
	width  int
	height int

	mu       sync.RWMutex
	tiles    []Tile
	pristine []Tile
}

// New creates a map from row-major tiles.
func New(name string, width, height int, tiles []Tile) (*Map, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyMap, name)
	}
	if width > protocol.MaxMapWidth || height > protocol.MaxMapHeight {
		return nil, fmt.Errorf("%w: %s is %dx%d, limit %dx%d",
			ErrMapTooLarge, name, width, height, protocol.MaxMapWidth, protocol.MaxMapHeight)
	}
	if len(tiles) != width*height {
		return nil, fmt.Errorf("maps: %s has %d tiles for %dx%d", name, len(tiles), width, height)
	}
	for i, t := range tiles {
		if !t.Valid() {
			return nil, &InvalidSymbolError{File: name, Row: i / width, Col: i % width, Symbol: byte('0' + t)}
		}
	}

	m := &Map{
		name:     name,
		width:    width,
		height:   height,
		tiles:    make([]Tile, len(tiles)),
		pristine: make([]Tile, len(tiles)),
	}
	copy(m.tiles, tiles)
	copy(m.pristine, tiles)
	return m, nil
}

// Name returns the map identity (its file name).
func (m *Map) Name() string { return m.name }

// Width returns the number of columns.
func (m *Map) Width() int { return m.width }

// Height returns the number of rows.
func (m *Map) Height() int { return m.height }

// Edit runs fn with exclusive access to the live grid.
func (m *Map) Edit(fn func(g *Grid)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&Grid{width: m.width, height: m.height, tiles: m.tiles})
}

// View runs fn with shared access to the live grid. fn must not modify it.
func (m *Map) View(fn func(g *Grid)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn(&Grid{width: m.width, height: m.height, tiles: m.tiles})
}

// Bytes returns a copy of the live grid in wire form.
func (m *Map) Bytes() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b := make([]byte, len(m.tiles))
	for i, t := range m.tiles {
		b[i] = byte(t)
	}
	return b
}

// Packet returns a Map packet holding the live grid.
func (m *Map) Packet() *protocol.Map {
	return &protocol.Map{Width: m.width, Height: m.height, Tiles: m.Bytes()}
}

// Reset restores the live grid from the pristine copy.
func (m *Map) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy(m.tiles, m.pristine)
}

// Pristine returns a copy of the grid as it was loaded.
func (m *Map) Pristine() []Tile {
	out := make([]Tile, len(m.pristine))
	copy(out, m.pristine)
	return out
}

// Tiles returns a copy of the live grid.
func (m *Map) Tiles() []Tile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Tile, len(m.tiles))
	copy(out, m.tiles)
	return out
}

// Count returns how many live cells hold tile t.
func (m *Map) Count(t Tile) int {
	var n int
	m.View(func(g *Grid) { n = g.Count(t) })
	return n
}

// Grid is a locked view of a map's live tiles, handed out by Edit and View.
type Grid struct {
	width, height int
	tiles         []Tile
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// At returns the tile at c. Cells outside the grid read as walls.
func (g *Grid) At(c core.Cell) Tile {
	if !c.In(g.width, g.height) {
		return TileWall
	}
	return g.tiles[c.Y*g.width+c.X]
}

// Set stores t at c. Cells outside the grid are ignored.
func (g *Grid) Set(c core.Cell, t Tile) {
	if !c.In(g.width, g.height) {
		return
	}
	g.tiles[c.Y*g.width+c.X] = t
}

// Take empties the cell at c and returns what it held.
func (g *Grid) Take(c core.Cell) Tile {
	t := g.At(c)
	if t != TileWall {
		g.Set(c, TileEmpty)
	}
	return t
}

// Count returns how many cells hold tile t.
func (g *Grid) Count(t Tile) int {
	n := 0
	for _, v := range g.tiles {
		if v == t {
			n++
		}
	}
	return n
}

// RandomCell picks a uniformly random cell whose tile is one of kinds.
func (g *Grid) RandomCell(rng *rand.Rand, kinds ...Tile) (core.Cell, bool) {
	var candidates []int
	for i, v := range g.tiles {
		for _, k := range kinds {
			if v == k {
				candidates = append(candidates, i)
				break
			}
		}
	}
	if len(candidates) == 0 {
		return core.Cell{}, false
	}
	i := candidates[rng.Intn(len(candidates))]
	return core.Cell{X: i % g.width, Y: i / g.width}, true
}
