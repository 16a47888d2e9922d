package doctor

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-process catalog used by tests and STORE_BACKEND=memory.
type MemoryStore struct {
	mu      sync.RWMutex
	doctors []Doctor
}

func NewMemoryStore(doctors ...Doctor) *MemoryStore {
	s := &MemoryStore{}
	for _, d := range doctors {
		s.Add(d)
	}
	return s
}

func (s *MemoryStore) Add(d Doctor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doctors = append(s.doctors, d)
	sort.SliceStable(s.doctors, func(i, j int) bool {
		return s.doctors[i].Name < s.doctors[j].Name
	})
}

func (s *MemoryStore) List(_ context.Context) ([]Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Doctor(nil), s.doctors...), nil
}

func (s *MemoryStore) Find(_ context.Context, q Query) ([]Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Doctor
	for _, d := range s.doctors {
		var candidate string
		switch q.Field {
		case FieldName:
			candidate = d.Name
		case FieldSpecialty:
			candidate = d.Specialty
		default:
			return nil, fmt.Errorf("doctor: unsupported field %q", q.Field)
		}
		if q.Mode.Match(candidate, q.Value) {
			result = append(result, d)
		}
	}
	return result, nil
}

func (s *MemoryStore) Specialties(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{}, len(s.doctors))
	var result []string
	for _, d := range s.doctors {
		if _, ok := seen[d.Specialty]; ok {
			continue
		}
		seen[d.Specialty] = struct{}{}
		result = append(result, d.Specialty)
	}
	sort.Strings(result)
	return result, nil
}
