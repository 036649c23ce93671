package trips

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openroad/dashcam/errors"
	"github.com/openroad/dashcam/logging"
)

// Manager owns the single active trip and writes finished trips to the
// store. It satisfies the shutdown sequencer's trip finalizer contract.
type Manager struct {
	store   Store
	labeler Labeler
	logger  *logging.Logger
	idGen   func() string

	mu        sync.Mutex
	active    *Trip
	last      *Position
	lastEnded string
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLabeler names trip end points after nearby landmarks.
func WithLabeler(labeler Labeler) ManagerOption {
	return func(m *Manager) {
		m.labeler = labeler
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithIDGenerator overrides trip ID generation (useful for testing).
func WithIDGenerator(gen func() string) ManagerOption {
	return func(m *Manager) {
		m.idGen = gen
	}
}

// NewManager creates a manager backed by the given store.
func NewManager(store Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store: store,
		idGen: uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logging.New()
	}
	m.logger = m.logger.WithComponent("trips")
	return m
}

// StartTrip begins a new trip. If a trip is already active its ID is
// returned unchanged; there is never more than one active trip.
func (m *Manager) StartTrip(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.active != nil {
		id := m.active.ID
		m.mu.Unlock()
		return id, nil
	}

	trip := &Trip{
		ID:        m.idGen(),
		StartedAt: time.Now(),
	}
	m.active = trip
	m.last = nil
	saved := *trip
	m.mu.Unlock()

	if err := m.store.Save(ctx, &saved); err != nil {
		return trip.ID, errors.New(errors.ErrCodeTripStore, "saving new trip",
			errors.WithCause(err), errors.WithComponent("trips"))
	}

	m.logger.Info("trip_started", map[string]interface{}{"trip": trip.ID})
	return trip.ID, nil
}

// AddWaypoint records a position report for the active trip.
func (m *Manager) AddWaypoint(ctx context.Context, lat, lon float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return ErrNoActiveTrip
	}

	pos := Position{Lat: lat, Lon: lon}
	if m.active.Start == nil {
		start := pos
		m.active.Start = &start
	}
	if m.last != nil {
		m.active.DistanceMeters += distanceMeters(*m.last, pos)
	}
	m.active.Waypoints++
	m.last = &pos
	return nil
}

// ActiveTrip reports the in-progress trip, if any.
func (m *Manager) ActiveTrip(_ context.Context) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return "", false, nil
	}
	return m.active.ID, true, nil
}

// EndTrip finalizes the active trip. When hasPosition is false the last
// reported waypoint stands in for the end position. Ending when no trip
// is active is a no-op returning the previously finalized trip's ID;
// ErrNoActiveTrip is returned only when no trip was ever recorded.
func (m *Manager) EndTrip(ctx context.Context, lat, lon float64, hasPosition bool) (string, error) {
	m.mu.Lock()
	if m.active == nil {
		id := m.lastEnded
		m.mu.Unlock()
		if id != "" {
			return id, nil
		}
		return "", ErrNoActiveTrip
	}

	trip := m.active
	trip.EndedAt = time.Now()

	var end *Position
	if hasPosition {
		end = &Position{Lat: lat, Lon: lon}
	} else if m.last != nil {
		last := *m.last
		end = &last
	}
	if end != nil {
		if m.last != nil && hasPosition {
			trip.DistanceMeters += distanceMeters(*m.last, *end)
		}
		trip.End = end
	}

	m.active = nil
	m.last = nil
	m.lastEnded = trip.ID
	m.mu.Unlock()

	if end != nil && m.labeler != nil {
		if name, ok := m.labeler.Nearest(end.Lat, end.Lon); ok {
			trip.Label = name
		}
	}

	if err := m.store.Save(ctx, trip); err != nil {
		return trip.ID, errors.New(errors.ErrCodeTripStore, "saving finished trip",
			errors.WithCause(err), errors.WithComponent("trips"))
	}

	m.logger.TripFinalized(trip.ID, trip.Duration(), trip.Label)
	return trip.ID, nil
}

// History returns up to limit finished trips, most recent first.
func (m *Manager) History(ctx context.Context, limit int) ([]*Trip, error) {
	return m.store.List(ctx, limit)
}
