package inventory

import (
	"errors"
	"fmt"
	"sync"

	"movemate/internal/catalog"
	"movemate/internal/transit"
)

var (
	ErrInsufficientSeats = errors.New("insufficient seats")
	ErrInvalidCount      = errors.New("seat count must be positive")
)

// Store owns the mutable occupancy of every route in a catalog.
// Reserve is the only operation that adds seats.
type Store struct {
	catalog *catalog.Catalog

	mu        sync.Mutex
	occupancy map[int]int // route id -> booked seats
}

func New(c *catalog.Catalog) *Store {
	s := &Store{
		catalog:   c,
		occupancy: make(map[int]int, c.Len()),
	}
	for _, r := range c.All() {
		s.occupancy[r.ID] = 0
	}
	return s
}

func (s *Store) Available(routeID int) (int, error) {
	r, err := s.catalog.Find(routeID)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available(r), nil
}

func (s *Store) Occupancy(routeID int) (int, error) {
	if _, err := s.catalog.Find(routeID); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.occupancy[routeID], nil
}

// available must be called with mu held.
func (s *Store) available(r transit.Route) int {
	left := r.Capacity - s.occupancy[r.ID]
	if left < 0 {
		panic(fmt.Sprintf("inventory: route %d occupancy %d exceeds capacity %d", r.ID, s.occupancy[r.ID], r.Capacity))
	}
	return left
}

// Reserve books count seats on the route if that many are free; otherwise
// the store is left untouched.
func (s *Store) Reserve(routeID, count int) error {
	if count <= 0 {
		return fmt.Errorf("reserve %d seats on route %d: %w", count, routeID, ErrInvalidCount)
	}
	r, err := s.catalog.Find(routeID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if left := s.available(r); count > left {
		return fmt.Errorf("reserve %d seats on route %d (%d left): %w", count, routeID, left, ErrInsufficientSeats)
	}
	s.occupancy[routeID] += count
	return nil
}

// Snapshot returns the occupancy of every route in catalog order.
func (s *Store) Snapshot() []transit.Entry {
	routes := s.catalog.All()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]transit.Entry, 0, len(routes))
	for _, r := range routes {
		out = append(out, transit.Entry{RouteID: r.ID, Occupancy: s.occupancy[r.ID]})
	}
	return out
}

type RestoreReport struct {
	Applied int
	Unknown []transit.Entry // route id not in the catalog
	Invalid []transit.Entry // occupancy outside [0, capacity]
}

// Restore overwrites occupancy from persisted entries. Entries for unknown
// routes or with out-of-range values are skipped and leave the route as is.
func (s *Store) Restore(entries []transit.Entry) RestoreReport {
	var rep RestoreReport
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		r, err := s.catalog.Find(e.RouteID)
		if err != nil {
			rep.Unknown = append(rep.Unknown, e)
			continue
		}
		if e.Occupancy < 0 || e.Occupancy > r.Capacity {
			rep.Invalid = append(rep.Invalid, e)
			continue
		}
		s.occupancy[e.RouteID] = e.Occupancy
		rep.Applied++
	}
	return rep
}
