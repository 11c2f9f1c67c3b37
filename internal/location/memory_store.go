package location

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type driverState struct {
	lat, lng float64
	hasFix   bool
	online   bool
}

// MemoryStore is an in-process location store. A linear haversine scan is
// fine at this scale; the Store interface lets the Redis geo index take over
// without touching the matcher.
type MemoryStore struct {
	mu      sync.RWMutex
	drivers map[uuid.UUID]*driverState
}

// NewMemoryStore creates an empty in-memory location store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{drivers: make(map[uuid.UUID]*driverState)}
}

func (s *MemoryStore) state(driverID uuid.UUID) *driverState {
	st, ok := s.drivers[driverID]
	if !ok {
		st = &driverState{}
		s.drivers[driverID] = st
	}
	return st
}

func (s *MemoryStore) SetOnline(ctx context.Context, driverID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state(driverID).online = true
	return nil
}

func (s *MemoryStore) SetOffline(ctx context.Context, driverID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drivers, driverID)
	return nil
}

func (s *MemoryStore) UpdateLocation(ctx context.Context, driverID uuid.UUID, lat, lng float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(driverID)
	st.lat, st.lng = lat, lng
	st.hasFix = true
	return nil
}

func (s *MemoryStore) NearbyDrivers(ctx context.Context, lat, lng, radiusKM float64, limit int) ([]Nearby, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var nearby []Nearby
	for id, st := range s.drivers {
		if !st.online || !st.hasFix {
			continue
		}
		dist := DistanceKM(lat, lng, st.lat, st.lng)
		if dist > radiusKM {
			continue
		}
		nearby = append(nearby, Nearby{DriverID: id, DistanceKM: dist})
	}

	sortNearby(nearby)
	if limit > 0 && len(nearby) > limit {
		nearby = nearby[:limit]
	}
	return nearby, nil
}

// sortNearby orders results nearest first, ties broken by driver id so the
// candidate order is deterministic.
func sortNearby(nearby []Nearby) {
	sort.Slice(nearby, func(i, j int) bool {
		if nearby[i].DistanceKM != nearby[j].DistanceKM {
			return nearby[i].DistanceKM < nearby[j].DistanceKM
		}
		return nearby[i].DriverID.String() < nearby[j].DriverID.String()
	})
}
