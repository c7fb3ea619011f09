// Package state provides thread-safe storage of the shipment list shared by
// the feed loop, the telemetry poller and the views.
package state

import (
	"sync"
	"time"

	"github.com/litescript/ls-freight/internal/shipment"
)

// EventType represents the type of shipment list change.
type EventType string

const (
	EventAdded         EventType = "ADDED"
	EventStatusChanged EventType = "STATUS_CHANGED"
	EventRemoved       EventType = "REMOVED"
)

// Event represents a change between two shipment list updates.
type Event struct {
	Type       EventType       `json:"type"`
	Timestamp  time.Time       `json:"timestamp"`
	ShipmentID string          `json:"shipment_id"`
	OldStatus  shipment.Status `json:"old_status,omitempty"`
	NewStatus  shipment.Status `json:"new_status,omitempty"`
	Carrier    string          `json:"carrier,omitempty"`
}

// StatusChange is one point in a shipment's status history.
type StatusChange struct {
	Timestamp time.Time
	Status    shipment.Status
}

// Manager handles the shipment list with thread-safe access.
type Manager struct {
	mu sync.RWMutex

	// Current state
	current       []shipment.Shipment
	hasData       bool
	lastFetch     time.Time
	lastError     error
	fetchDuration time.Duration
	source        string

	// Previous statuses for event detection
	prev map[string]shipment.Shipment

	// Per-shipment status history
	history    map[string][]StatusChange
	maxHistory int

	// Event log (ring buffer)
	events       []Event
	maxEvents    int
	eventWriteAt int

	// Derived data
	statusCounts map[shipment.Status]int

	refreshInterval time.Duration
	now             func() time.Time
}

// Config holds configuration for the state manager.
type Config struct {
	MaxStatusHistory int
	MaxEvents        int
	RefreshInterval  time.Duration
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		MaxStatusHistory: 20,
		MaxEvents:        50,
		RefreshInterval:  30 * time.Second,
	}
}

// NewManager creates a new state manager.
func NewManager(cfg Config) *Manager {
	maxEvents := cfg.MaxEvents
	if maxEvents <= 0 {
		maxEvents = 50
	}
	maxHistory := cfg.MaxStatusHistory
	if maxHistory <= 0 {
		maxHistory = 20
	}
	return &Manager{
		maxHistory:      maxHistory,
		maxEvents:       maxEvents,
		events:          make([]Event, 0, maxEvents),
		refreshInterval: cfg.RefreshInterval,
		prev:            make(map[string]shipment.Shipment),
		history:         make(map[string][]StatusChange),
		statusCounts:    make(map[shipment.Status]int),
		now:             time.Now,
	}
}

// Update records the outcome of a fetch. On error the previous list is
// kept and only the error and timing are recorded.
func (m *Manager) Update(list []shipment.Shipment, source string, fetchDuration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.lastFetch = now
	m.lastError = err
	m.fetchDuration = fetchDuration

	if err != nil {
		return
	}

	m.detectEvents(list, now)

	m.current = append([]shipment.Shipment(nil), list...)
	m.hasData = true
	m.source = source

	m.statusCounts = make(map[shipment.Status]int)
	m.prev = make(map[string]shipment.Shipment, len(list))
	for _, s := range list {
		m.statusCounts[s.Status]++
		m.prev[s.ID] = s
	}
}

// detectEvents compares the new list with the previous one.
func (m *Manager) detectEvents(list []shipment.Shipment, now time.Time) {
	seen := make(map[string]bool, len(list))
	for _, s := range list {
		seen[s.ID] = true
		old, existed := m.prev[s.ID]

		switch {
		case !existed:
			m.addEvent(Event{
				Type:       EventAdded,
				Timestamp:  now,
				ShipmentID: s.ID,
				NewStatus:  s.Status,
				Carrier:    s.Carrier,
			})
			m.recordStatus(s.ID, s.Status, now)
		case old.Status != s.Status:
			m.addEvent(Event{
				Type:       EventStatusChanged,
				Timestamp:  now,
				ShipmentID: s.ID,
				OldStatus:  old.Status,
				NewStatus:  s.Status,
				Carrier:    s.Carrier,
			})
			m.recordStatus(s.ID, s.Status, now)
		}
	}

	for id, old := range m.prev {
		if seen[id] {
			continue
		}
		m.addEvent(Event{
			Type:       EventRemoved,
			Timestamp:  now,
			ShipmentID: id,
			OldStatus:  old.Status,
			Carrier:    old.Carrier,
		})
		delete(m.history, id)
	}
}

func (m *Manager) recordStatus(id string, status shipment.Status, now time.Time) {
	h := append(m.history[id], StatusChange{Timestamp: now, Status: status})
	if len(h) > m.maxHistory {
		h = h[len(h)-m.maxHistory:]
	}
	m.history[id] = h
}

// addEvent adds an event to the ring buffer.
func (m *Manager) addEvent(e Event) {
	if len(m.events) < m.maxEvents {
		m.events = append(m.events, e)
	} else {
		m.events[m.eventWriteAt] = e
		m.eventWriteAt = (m.eventWriteAt + 1) % m.maxEvents
	}
}

// Snapshot represents an immutable snapshot of current state.
type Snapshot struct {
	Shipments     []shipment.Shipment
	Source        string
	LastFetch     time.Time
	LastError     error
	FetchDuration time.Duration
	StatusCounts  map[shipment.Status]int
	Events        []Event
}

// Snapshot returns a consistent snapshot of current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[shipment.Status]int, len(m.statusCounts))
	for k, v := range m.statusCounts {
		counts[k] = v
	}

	list := make([]shipment.Shipment, len(m.current))
	copy(list, m.current)

	return Snapshot{
		Shipments:     list,
		Source:        m.source,
		LastFetch:     m.lastFetch,
		LastError:     m.lastError,
		FetchDuration: m.fetchDuration,
		StatusCounts:  counts,
		Events:        m.getEventsOrdered(),
	}
}

// IDs returns the ids of the current shipments in list order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, len(m.current))
	for i, s := range m.current {
		ids[i] = s.ID
	}
	return ids
}

// getEventsOrdered returns events in chronological order.
func (m *Manager) getEventsOrdered() []Event {
	if len(m.events) == 0 {
		return nil
	}

	if len(m.events) < m.maxEvents {
		result := make([]Event, len(m.events))
		copy(result, m.events)
		return result
	}

	result := make([]Event, m.maxEvents)
	for i := 0; i < m.maxEvents; i++ {
		idx := (m.eventWriteAt + i) % m.maxEvents
		result[i] = m.events[idx]
	}
	return result
}

// RecentEvents returns the last n events.
func (m *Manager) RecentEvents(n int) []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.getEventsOrdered()
	if len(all) <= n {
		return all
	}
	return all[len(all)-n:]
}

// StatusHistory returns a copy of the recorded statuses of a shipment.
func (m *Manager) StatusHistory(id string) []StatusChange {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.history[id]
	if !ok {
		return nil
	}
	out := make([]StatusChange, len(h))
	copy(out, h)
	return out
}

// RefreshInterval returns the configured refresh interval.
func (m *Manager) RefreshInterval() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refreshInterval
}

// SetRefreshInterval updates the refresh interval.
func (m *Manager) SetRefreshInterval(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshInterval = d
}

// HasData returns true if we have received at least one successful fetch.
func (m *Manager) HasData() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hasData
}
