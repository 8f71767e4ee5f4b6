package core

// Direction is a movement intent. The first four values are the wire codes
// used by Move packets; DirNone never appears on the wire.
type Direction uint8

const (
	DirUp Direction = iota
	DirDown
	DirRight
	DirLeft
	DirNone
)

// String returns a human-readable name for the direction.
func (d Direction) String() string {
	switch d {
	case DirUp:
		return "Up"
	case DirDown:
		return "Down"
	case DirRight:
		return "Right"
	case DirLeft:
		return "Left"
	case DirNone:
		return "None"
	default:
		return "Unknown"
	}
}

// Valid reports whether d is one of the four wire directions.
func (d Direction) Valid() bool {
	return d <= DirLeft
}

// Delta returns the unit step for the direction in grid axes.
// Up decreases Y because row 0 is the top of the map.
func (d Direction) Delta() (dx, dy float64) {
	switch d {
	case DirUp:
		return 0, -1
	case DirDown:
		return 0, 1
	case DirRight:
		return 1, 0
	case DirLeft:
		return -1, 0
	default:
		return 0, 0
	}
}
