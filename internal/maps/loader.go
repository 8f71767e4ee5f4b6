package maps

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrDirectoryUnreadable is returned when the map directory cannot be listed.
	ErrDirectoryUnreadable = errors.New("maps: map directory unreadable")

	// ErrNoMapsLoaded is returned when a directory holds no map files.
	ErrNoMapsLoaded = errors.New("maps: no maps loaded")

	// ErrEmptyMap is returned for a file without any rows.
	ErrEmptyMap = errors.New("maps: empty map")
)

// InvalidSymbolError reports a character that is not a tile code.
type InvalidSymbolError struct {
	File   string
	Row    int
	Col    int
	Symbol byte
}

func (e *InvalidSymbolError) Error() string {
	return fmt.Sprintf("maps: invalid symbol %q in %s at row %d, col %d", e.Symbol, e.File, e.Row, e.Col)
}

// LoadAll loads every regular file in dir, sorted by file name.
// Any invalid file aborts the whole load.
func LoadAll(dir string) ([]*Map, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDirectoryUnreadable, dir, err)
	}

	var loaded []*Map
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		m, err := LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		loaded = append(loaded, m)
	}

	if len(loaded) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMapsLoaded, dir)
	}

	sort.Slice(loaded, func(i, j int) bool {
		return loaded[i].Name() < loaded[j].Name()
	})
	return loaded, nil
}

// LoadFile loads a single map file. The map is named after the file.
func LoadFile(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("maps: reading %s: %w", path, err)
	}
	return Parse(filepath.Base(path), data)
}

// Parse parses rows of single-digit tile codes. Width is the longest row;
// shorter rows are padded with walls. Trailing blank lines are ignored.
func Parse(name string, data []byte) (*Map, error) {
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyMap, name)
	}

	width := 0
	for _, line := range lines {
		width = max(width, len(line))
	}
	height := len(lines)

	tiles := make([]Tile, width*height)
	for row, line := range lines {
		for col := 0; col < width; col++ {
			if col >= len(line) {
				tiles[row*width+col] = TileWall
				continue
			}
			c := line[col]
			if c < '0' || c > '9' || !Tile(c-'0').Valid() {
				return nil, &InvalidSymbolError{File: name, Row: row, Col: col, Symbol: c}
			}
			tiles[row*width+col] = Tile(c - '0')
		}
	}

	return New(name, width, height, tiles)
}
