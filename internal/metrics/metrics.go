// Package metrics holds the server's runtime counters.
// All methods are safe on a nil *Metrics, which records nothing.
package metrics

import (
	"sync/atomic"
	"time"
)

// Metrics records key runtime counters for monitoring and debugging.
type Metrics struct {
	ConnectionsAccepted atomic.Int64
	Admitted            atomic.Int64
	RejectedNameInUse   atomic.Int64
	RejectedServerFull  atomic.Int64
	RejectedOther       atomic.Int64
	Disconnects         atomic.Int64
	RoundsPlayed        atomic.Int64
	ChatMessages        atomic.Int64
	MessagesDropped     atomic.Int64
	TickCount           atomic.Int64
	TotalTickNs         atomic.Int64
	Spectators          atomic.Int64 // Gauge
	SpectatorsDropped   atomic.Int64
}

// New creates an empty set of counters.
func New() *Metrics {
	return &Metrics{}
}

func (m *Metrics) IncAccepted() {
	if m != nil {
		m.ConnectionsAccepted.Add(1)
	}
}

func (m *Metrics) IncAdmitted() {
	if m != nil {
		m.Admitted.Add(1)
	}
}

func (m *Metrics) IncRejectedNameInUse() {
	if m != nil {
		m.RejectedNameInUse.Add(1)
	}
}

func (m *Metrics) IncRejectedServerFull() {
	if m != nil {
		m.RejectedServerFull.Add(1)
	}
}

func (m *Metrics) IncRejectedOther() {
	if m != nil {
		m.RejectedOther.Add(1)
	}
}

func (m *Metrics) IncDisconnects() {
	if m != nil {
		m.Disconnects.Add(1)
	}
}

func (m *Metrics) IncRounds() {
	if m != nil {
		m.RoundsPlayed.Add(1)
	}
}

func (m *Metrics) IncChat() {
	if m != nil {
		m.ChatMessages.Add(1)
	}
}

func (m *Metrics) IncDropped() {
	if m != nil {
		m.MessagesDropped.Add(1)
	}
}

// AddSpectators moves the spectator gauge by delta.
func (m *Metrics) AddSpectators(delta int64) {
	if m != nil {
		m.Spectators.Add(delta)
	}
}

func (m *Metrics) IncSpectatorsDropped() {
	if m != nil {
		m.SpectatorsDropped.Add(1)
	}
}

// AddTick records one controller tick and how long it took.
func (m *Metrics) AddTick(d time.Duration) {
	if m == nil {
		return
	}
	m.TickCount.Add(1)
	m.TotalTickNs.Add(d.Nanoseconds())
}

// Snapshot returns a read-only copy for HTTP output.
func (m *Metrics) Snapshot() map[string]any {
	if m == nil {
		return map[string]any{}
	}
	ticks := m.TickCount.Load()
	total := m.TotalTickNs.Load()
	var avgMs float64
	if ticks > 0 {
		avgMs = float64(total) / float64(ticks) / 1e6
	}
	return map[string]any{
		"connections_accepted": m.ConnectionsAccepted.Load(),
		"admitted":             m.Admitted.Load(),
		"rejected_name_in_use": m.RejectedNameInUse.Load(),
		"rejected_server_full": m.RejectedServerFull.Load(),
		"rejected_other":       m.RejectedOther.Load(),
		"disconnects":          m.Disconnects.Load(),
		"rounds_played":        m.RoundsPlayed.Load(),
		"chat_messages":        m.ChatMessages.Load(),
		"messages_dropped":     m.MessagesDropped.Load(),
		"tick_count":           ticks,
		"avg_tick_ms":          avgMs,
		"spectators":           m.Spectators.Load(),
		"spectators_dropped":   m.SpectatorsDropped.Load(),
	}
}
