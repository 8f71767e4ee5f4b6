package session

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vovakirdan/netpac/internal/core"
	"github.com/vovakirdan/netpac/internal/protocol"
)

var (
	// ErrNameInUse is returned when an admitted session already holds the name.
	ErrNameInUse = errors.New("session: name in use")

	// ErrServerFull is returned when every slot is taken.
	ErrServerFull = errors.New("session: server full")

	// ErrInvalidName is returned for a name that is empty after sanitizing.
	ErrInvalidName = errors.New("session: invalid name")
)

// Registry is a fixed-capacity slot table of admitted sessions.
// Every read and write goes through a single lock.
type Registry struct {
	mu     sync.RWMutex
	slots  []*Session
	nextID atomic.Int32
}

// NewRegistry creates a registry with the given number of slots.
func NewRegistry(capacity int) *Registry {
	return &Registry{slots: make([]*Session, capacity)}
}

// Allocate creates a session with the next identity. The session is not in
// the slot table until Admit succeeds.
func (r *Registry) Allocate(ctx context.Context, conn net.Conn, writeTimeout time.Duration) *Session {
	return New(ctx, r.nextID.Add(1), conn, writeTimeout)
}

// Admit stores s in the first free slot under the given name.
// The name check and the capacity check happen in one critical section.
func (r *Registry) Admit(s *Session, name string) error {
	if name == "" {
		return ErrInvalidName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	free := -1
	for i, other := range r.slots {
		if other == nil {
			if free < 0 {
				free = i
			}
			continue
		}
		if other.name == name {
			return ErrNameInUse
		}
	}
	if free < 0 {
		return ErrServerFull
	}

	s.name = name
	s.admitted.Store(true)
	r.slots[free] = s
	return nil
}

// NameInUse reports whether an admitted session holds name.
func (r *Registry) NameInUse(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.slots {
		if s != nil && s.name == name {
			return true
		}
	}
	return false
}

// Remove frees the slot held by s and tells every remaining ready session.
// It reports false if s was not admitted, so removing twice is a no-op.
func (r *Registry) Remove(s *Session) bool {
	r.mu.Lock()
	removed := false
	for i, other := range r.slots {
		if other == s {
			r.slots[i] = nil
			removed = true
			break
		}
	}
	if removed {
		s.admitted.Store(false)
		s.Active = false
	}
	r.mu.Unlock()

	if removed {
		_ = r.Broadcast(&protocol.PlayerDisconnected{ID: s.ID}, nil)
	}
	return removed
}

// Get returns the admitted session with the given ID.
func (r *Registry) Get(id int32) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.slots {
		if s != nil && s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// Update runs fn with the registry locked exclusively. fn receives the
// admitted sessions in slot order and may mutate their game attributes.
// fn must not call back into the registry.
func (r *Registry) Update(fn func(sessions []*Session)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.occupied())
}

// View runs fn with the registry locked for reading.
// fn must not mutate sessions or call back into the registry.
func (r *Registry) View(fn func(sessions []*Session)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn(r.occupied())
}

// ForEachActive applies fn to every active session under the read lock.
// fn must not call back into the registry.
func (r *Registry) ForEachActive(fn func(s *Session)) {
	r.View(func(sessions []*Session) {
		for _, s := range Active(sessions) {
			fn(s)
		}
	})
}

// Active filters sessions down to those playing the current round,
// keeping slot order. Use it inside View or Update, where the lock is held.
func Active(sessions []*Session) []*Session {
	out := make([]*Session, 0, len(sessions))
	for _, s := range sessions {
		if s.Active {
			out = append(out, s)
		}
	}
	return out
}

// SetIntent stores the pending movement direction of s.
// The controller applies it on its next tick.
func (r *Registry) SetIntent(s *Session, dir core.Direction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.Intent = dir
}

// Sessions returns a copy of the admitted sessions in slot order.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.occupied()
}

// Count returns the number of admitted sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.slots {
		if s != nil {
			n++
		}
	}
	return n
}

// Capacity returns the number of slots.
func (r *Registry) Capacity() int {
	return len(r.slots)
}

// Broadcast sends p to every ready session except skip. Writes happen
// outside the lock; a failed write closes only the affected session.
func (r *Registry) Broadcast(p protocol.Packet, skip *Session) error {
	b, err := protocol.Encode(p)
	if err != nil {
		return err
	}
	for _, s := range r.Sessions() {
		if s == skip || !s.Ready() {
			continue
		}
		_ = s.sendBytes(b)
	}
	return nil
}

// occupied must be called with mu held.
func (r *Registry) occupied() []*Session {
	out := make([]*Session, 0, len(r.slots))
	for _, s := range r.slots {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}
