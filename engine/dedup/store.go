package dedup

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Store is the candidate lookup contract fulfilled by the external
// persistence layer. Each query narrows the candidate set for one strategy.
type Store interface {
	// ByForeignID returns the entity carrying the given foreign-system
	// identifier, or nil when none exists.
	ByForeignID(ctx context.Context, system, id string) (*Entity, error)
	// ByAddress returns candidates whose normalized address shares at least
	// one token with the given address.
	ByAddress(ctx context.Context, address string) ([]*Entity, error)
	// ByName returns name-indexed candidates of the given kind.
	ByName(ctx context.Context, kind string) ([]*Entity, error)
	// ByPhoneOrEmail returns candidates matching the normalized phone or
	// email exactly.
	ByPhoneOrEmail(ctx context.Context, phone, email string) ([]*Entity, error)
	// ByParent returns candidates under the same parent/portfolio/building.
	ByParent(ctx context.Context, parentID string) ([]*Entity, error)
	// ByBuildingSince returns candidates in a building created at or after
	// the given time.
	ByBuildingSince(ctx context.Context, buildingID string, since time.Time) ([]*Entity, error)
}

// MemoryStore is an in-memory Store for tests and local runs. Production
// deployments plug in the external dimension-table store instead.
type MemoryStore struct {
	mu       sync.RWMutex
	entities []*Entity
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Add(entities ...*Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities = append(s.entities, entities...)
}

func (s *MemoryStore) ByForeignID(_ context.Context, system, id string) (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entities {
		if e.ForeignIDs[system] == id && id != "" {
			return e, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) ByAddress(_ context.Context, address string) ([]*Entity, error) {
	want := addressTokens(address)
	if len(want) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Entity
	for _, e := range s.entities {
		if e.Address == "" {
			continue
		}
		if overlaps(want, addressTokens(e.Address)) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) ByName(_ context.Context, kind string) ([]*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Entity
	for _, e := range s.entities {
		if e.Name == "" {
			continue
		}
		if kind != "" && e.Kind != kind {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *MemoryStore) ByPhoneOrEmail(_ context.Context, phone, email string) ([]*Entity, error) {
	phone = digitsOnly(phone)
	email = strings.ToLower(strings.TrimSpace(email))
	if phone == "" && email == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Entity
	for _, e := range s.entities {
		if phone != "" && digitsOnly(e.Phone) == phone {
			out = append(out, e)
			continue
		}
		if email != "" && strings.ToLower(strings.TrimSpace(e.Email)) == email {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) ByParent(_ context.Context, parentID string) ([]*Entity, error) {
	if parentID == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Entity
	for _, e := range s.entities {
		if e.ParentID == parentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) ByBuildingSince(_ context.Context, buildingID string, since time.Time) ([]*Entity, error) {
	if buildingID == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Entity
	for _, e := range s.entities {
		if e.BuildingID == buildingID && !e.CreatedAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func overlaps(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	for _, t := range b {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}
