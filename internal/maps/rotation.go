package maps

// Rotation cycles through maps in load order, wrapping after the last one.
// It is not safe for concurrent use; the game controller owns it.
type Rotation struct {
	maps []*Map
	idx  int
}

// NewRotation creates a rotation starting at the first map.
// It panics if maps is empty.
func NewRotation(maps []*Map) *Rotation {
	if len(maps) == 0 {
		panic("maps: rotation needs at least one map")
	}
	return &Rotation{maps: maps}
}

// Current returns the map being played.
func (r *Rotation) Current() *Map {
	return r.maps[r.idx]
}

// Advance moves to the next map and returns it.
func (r *Rotation) Advance() *Map {
	r.idx = (r.idx + 1) % len(r.maps)
	return r.maps[r.idx]
}

// Len returns the number of maps in the rotation.
func (r *Rotation) Len() int {
	return len(r.maps)
}
