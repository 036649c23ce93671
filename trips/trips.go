package trips

import (
	"context"
	"errors"
	"math"
	"time"
)

// Common errors.
var (
	ErrNoActiveTrip = errors.New("no active trip")
	ErrNotFound     = errors.New("trip not found")
)

// Position is a WGS84 coordinate.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Trip is one recorded drive.
type Trip struct {
	// ID uniquely identifies the trip.
	ID string `json:"id"`

	// StartedAt and EndedAt bound the trip. EndedAt is zero while the
	// trip is active.
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`

	// Start and End are the first and last known positions, when any
	// position was ever reported.
	Start *Position `json:"start,omitempty"`
	End   *Position `json:"end,omitempty"`

	// Waypoints is the number of position reports received.
	Waypoints int `json:"waypoints"`

	// DistanceMeters is the accumulated great-circle distance.
	DistanceMeters float64 `json:"distance_meters"`

	// Label names a landmark near the end position, when one matched.
	Label string `json:"label,omitempty"`
}

// Duration returns the trip length, using now for active trips.
func (t *Trip) Duration() time.Duration {
	if t.EndedAt.IsZero() {
		return time.Since(t.StartedAt)
	}
	return t.EndedAt.Sub(t.StartedAt)
}

// Active reports whether the trip has not been finalized yet.
func (t *Trip) Active() bool {
	return t.EndedAt.IsZero()
}

// Store persists trips.
type Store interface {
	// Save inserts the trip or replaces an existing one with the same ID.
	Save(ctx context.Context, trip *Trip) error

	// Get returns one trip by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Trip, error)

	// List returns up to limit trips, most recently started first.
	// limit <= 0 means no limit.
	List(ctx context.Context, limit int) ([]*Trip, error)

	// Close releases store resources.
	Close() error
}

// Labeler names a position after a nearby landmark. Implemented by the
// landmarks package.
type Labeler interface {
	Nearest(lat, lon float64) (name string, ok bool)
}

const earthRadiusMeters = 6371000

// distanceMeters is the haversine great-circle distance between two
// coordinates.
func distanceMeters(a, b Position) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
