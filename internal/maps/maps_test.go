package maps

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vovakirdan/netpac/internal/core"
)

const smallMap = "22222\n21052\n23142\n22222\n"

func TestParse(t *testing.T) {
	m, err := Parse("small", []byte(smallMap))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if m.Width() != 5 || m.Height() != 4 {
		t.Fatalf("Expected 5x4, got %dx%d", m.Width(), m.Height())
	}

	m.View(func(g *Grid) {
		checks := map[core.Cell]Tile{
			{X: 0, Y: 0}: TileWall,
			{X: 1, Y: 1}: TileDot,
			{X: 2, Y: 1}: TileEmpty,
			{X: 3, Y: 1}: TileScore,
			{X: 1, Y: 2}: TilePowerPellet,
			{X: 3, Y: 2}: TileInvincibility,
		}
		for c, want := range checks {
			if got := g.At(c); got != want {
				t.Errorf("At(%v) = %s, expected %s", c, got, want)
			}
		}
	})
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
		row     int
		col     int
	}{
		{name: "digit out of range", data: "222\n272\n", row: 1, col: 1},
		{name: "letter", data: "22x\n", row: 0, col: 2},
		{name: "space", data: "2 2\n", row: 0, col: 1},
		{name: "empty file", data: "\n\n", wantErr: ErrEmptyMap},
		{name: "too wide", data: strings.Repeat("1", 128) + "\n", wantErr: ErrMapTooLarge},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse("bad", []byte(tc.data))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Errorf("Expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			var symErr *InvalidSymbolError
			if !errors.As(err, &symErr) {
				t.Fatalf("Expected InvalidSymbolError, got %v", err)
			}
			if symErr.Row != tc.row || symErr.Col != tc.col || symErr.File != "bad" {
				t.Errorf("Error location = %s row %d col %d, expected row %d col %d",
					symErr.File, symErr.Row, symErr.Col, tc.row, tc.col)
			}
		})
	}
}

func TestParseRaggedAndCRLF(t *testing.T) {
	m, err := Parse("ragged", []byte("2222\r\n21\r\n2222\r\n"))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if m.Width() != 4 || m.Height() != 3 {
		t.Fatalf("Expected 4x3, got %dx%d", m.Width(), m.Height())
	}
	m.View(func(g *Grid) {
		if g.At(core.Cell{X: 3, Y: 1}) != TileWall {
			t.Error("Short rows should be padded with walls")
		}
	})
}

func TestResetRestoresPristine(t *testing.T) {
	m, err := Parse("small", []byte(smallMap))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	m.Edit(func(g *Grid) {
		if got := g.Take(core.Cell{X: 1, Y: 1}); got != TileDot {
			t.Errorf("Take() = %s, expected Dot", got)
		}
		if got := g.Take(core.Cell{X: 1, Y: 1}); got != TileEmpty {
			t.Errorf("Second Take() = %s, expected Empty", got)
		}
		g.Set(core.Cell{X: 2, Y: 1}, TilePowerPellet)
	})
	if m.Count(TileDot) != 1 {
		t.Errorf("Expected 1 dot left, got %d", m.Count(TileDot))
	}

	m.Reset()
	got := m.Tiles()
	want := m.Pristine()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Tile %d = %s after reset, expected %s", i, got[i], want[i])
		}
	}
}

func TestGridOutOfBoundsIsWall(t *testing.T) {
	m, _ := Parse("small", []byte(smallMap))
	m.Edit(func(g *Grid) {
		if g.At(core.Cell{X: -1, Y: 0}) != TileWall || g.At(core.Cell{X: 0, Y: 9}) != TileWall {
			t.Error("Out of bounds cells should read as walls")
		}
		if g.Take(core.Cell{X: 0, Y: 0}) != TileWall || g.At(core.Cell{X: 0, Y: 0}) != TileWall {
			t.Error("Take() must not clear walls")
		}
	})
}

func TestRandomCell(t *testing.T) {
	m, _ := Parse("small", []byte(smallMap))
	rng := rand.New(rand.NewSource(1))

	m.View(func(g *Grid) {
		for i := 0; i < 50; i++ {
			c, ok := g.RandomCell(rng, TileDot, TileEmpty)
			if !ok {
				t.Fatal("RandomCell() found nothing")
			}
			if tile := g.At(c); tile != TileDot && tile != TileEmpty {
				t.Fatalf("RandomCell() picked %s at %v", tile, c)
			}
		}
		if _, ok := g.RandomCell(rng, Tile(9)); ok {
			t.Error("RandomCell() should fail when no cell matches")
		}
	})
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	write := func(name, data string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("b.map", smallMap)
	write("a.map", "222\n212\n222\n")
	write(".hidden", "x")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadAll(dir)
	if err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Expected 2 maps, got %d", len(loaded))
	}
	if loaded[0].Name() != "a.map" || loaded[1].Name() != "b.map" {
		t.Errorf("Maps not sorted by name: %s, %s", loaded[0].Name(), loaded[1].Name())
	}

	write("c.map", "2y2\n")
	if _, err := LoadAll(dir); err == nil {
		t.Error("One invalid file should fail the whole load")
	}
}

func TestLoadAllErrors(t *testing.T) {
	if _, err := LoadAll(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, ErrDirectoryUnreadable) {
		t.Errorf("Expected ErrDirectoryUnreadable, got %v", err)
	}
	if _, err := LoadAll(t.TempDir()); !errors.Is(err, ErrNoMapsLoaded) {
		t.Errorf("Expected ErrNoMapsLoaded, got %v", err)
	}
}

func TestRotationWraps(t *testing.T) {
	a, _ := Parse("a", []byte("1\n"))
	b, _ := Parse("b", []byte("1\n"))
	r := NewRotation([]*Map{a, b})

	if r.Current() != a {
		t.Fatal("Rotation should start at the first map")
	}
	if r.Advance() != b || r.Current() != b {
		t.Error("Advance() should move to the second map")
	}
	if r.Advance() != a {
		t.Error("Advance() should wrap to the first map")
	}
}
