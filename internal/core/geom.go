// Package core provides fundamental types and utilities shared by the
// server packages. It has no external dependencies so that the simulation
// and the wire codec can agree on the same small vocabulary.
package core

// Cell is an integer grid coordinate. X is the column, Y is the row.
type Cell struct {
	X, Y int
}

// CellAt returns the cell containing the continuous position (x, y).
// Coordinates are truncated toward zero.
func CellAt(x, y float64) Cell {
	return Cell{X: int(x), Y: int(y)}
}

// In reports whether the cell lies inside a width x height grid.
func (c Cell) In(width, height int) bool {
	return c.X >= 0 && c.X < width && c.Y >= 0 && c.Y < height
}

// Chebyshev returns the chessboard distance between two cells.
func Chebyshev(a, b Cell) int {
	return max(Abs(a.X-b.X), Abs(a.Y-b.Y))
}

// Abs returns the absolute value of an integer.
func Abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

