package memory

import (
	"context"
	"sync"

	"github.com/nichelabs/discovery-engine/internal/dedup"
	"github.com/nichelabs/discovery-engine/internal/discovery"
)

// RecordStore keeps canonical records in memory with the same normalized
// lookup keys the Postgres store indexes.
type RecordStore struct {
	mu      sync.RWMutex
	records map[string]discovery.BusinessRecord
	order   []string
}

// NewRecordStore constructs an empty RecordStore.
func NewRecordStore() *RecordStore {
	return &RecordStore{records: make(map[string]discovery.BusinessRecord)}
}

// FindByNamePostal looks up a record by normalized name key and ZIP5.
func (s *RecordStore) FindByNamePostal(_ context.Context, nameKey, postalCode string) (discovery.BusinessRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		rec := s.records[id]
		if dedup.NameKey(rec.Name) == nameKey && dedup.PostalKey(rec.PostalCode) == postalCode {
			return rec, true, nil
		}
	}
	return discovery.BusinessRecord{}, false, nil
}

// FindByAddress looks up a record by normalized address, city, and region.
func (s *RecordStore) FindByAddress(_ context.Context, addressKey, cityKey, regionKey string) (discovery.BusinessRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		rec := s.records[id]
		if dedup.AddressKey(rec.Address) == addressKey &&
			dedup.CityKey(rec.City) == cityKey &&
			dedup.CityKey(rec.Region) == regionKey {
			return rec, true, nil
		}
	}
	return discovery.BusinessRecord{}, false, nil
}

// FindByPhone looks up a record by normalized phone digits.
func (s *RecordStore) FindByPhone(_ context.Context, phoneKey string) (discovery.BusinessRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		rec := s.records[id]
		if dedup.PhoneKey(rec.Phone) == phoneKey {
			return rec, true, nil
		}
	}
	return discovery.BusinessRecord{}, false, nil
}

// FindNear returns records within radiusKm of a point, insertion order.
func (s *RecordStore) FindNear(_ context.Context, lat, lng, radiusKm float64) ([]discovery.BusinessRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []discovery.BusinessRecord
	for _, id := range s.order {
		rec := s.records[id]
		if discovery.HaversineKm(lat, lng, rec.Lat, rec.Lng) <= radiusKm {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Insert stores a new record.
func (s *RecordStore) Insert(_ context.Context, rec discovery.BusinessRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; !ok {
		s.order = append(s.order, rec.ID)
	}
	s.records[rec.ID] = rec
	return nil
}

// Update rewrites an existing record.
func (s *RecordStore) Update(_ context.Context, rec discovery.BusinessRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; !ok {
		return discovery.ErrRecordNotFound
	}
	s.records[rec.ID] = rec
	return nil
}

// Len reports the number of stored records.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
