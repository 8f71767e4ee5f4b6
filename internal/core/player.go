package core

// Role is the side a player takes in a round.
type Role uint8

const (
	RolePacman Role = iota
	RoleGhost
)

// String returns a human-readable name for the role.
func (r Role) String() string {
	switch r {
	case RolePacman:
		return "Pacman"
	case RoleGhost:
		return "Ghost"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the role by name.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Opponent returns the other role.
func (r Role) Opponent() Role {
	if r == RoleGhost {
		return RolePacman
	}
	return RoleGhost
}

// VitalState is a player's life state. Buff states expire after a tick count.
type VitalState uint8

const (
	StateNormal VitalState = iota
	StateDead
	StatePowerPellet
	StateInvincible
)

// String returns a human-readable name for the state.
func (s VitalState) String() string {
	switch s {
	case StateNormal:
		return "Normal"
	case StateDead:
		return "Dead"
	case StatePowerPellet:
		return "PowerPellet"
	case StateInvincible:
		return "Invincible"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the state by name.
func (s VitalState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsBuff reports whether the state is a timed buff.
func (s VitalState) IsBuff() bool {
	return s == StatePowerPellet || s == StateInvincible
}
