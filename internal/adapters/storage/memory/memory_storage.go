// Package memory disponibiliza um storage em memória para desenvolvimento e
// testes, com as mesmas semânticas de expiração do backend Redis.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/SerpentAI/selenium-respectful/internal/core/domain"
	"github.com/SerpentAI/selenium-respectful/internal/core/ports"
)

// Storage coordena um único processo; ao contrário do backend Redis, não há
// estado compartilhado entre peers.
type Storage struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	realms map[string]domain.Realm
	leases map[string]map[string]time.Time
}

var _ ports.Storage = (*Storage)(nil)

func New(clock clockwork.Clock) *Storage {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Storage{
		clock:  clock,
		realms: make(map[string]domain.Realm),
		leases: make(map[string]map[string]time.Time),
	}
}

func (s *Storage) Close() error {
	return nil
}

func (s *Storage) PutRealm(_ context.Context, realm domain.Realm) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.realms[realm.Name]; ok {
		return false, nil
	}
	s.realms[realm.Name] = realm
	return true, nil
}

func (s *Storage) UpdateRealmFields(_ context.Context, name string, fields map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	realm, ok := s.realms[name]
	if !ok {
		return &domain.RealmNotFoundError{Realms: []string{name}}
	}
	if value, ok := fields[domain.FieldMaxRequests]; ok {
		realm.MaxRequests = value
	}
	if value, ok := fields[domain.FieldTimespan]; ok {
		realm.Timespan = time.Duration(value) * time.Second
	}
	s.realms[name] = realm
	return nil
}

func (s *Storage) GetRealm(_ context.Context, name string) (domain.Realm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	realm, ok := s.realms[name]
	if !ok {
		return domain.Realm{}, &domain.RealmNotFoundError{Realms: []string{name}}
	}
	return realm, nil
}

func (s *Storage) DeleteRealm(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.realms, name)
	return nil
}

func (s *Storage) ListRealms(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.realms))
	for name := range s.realms {
		names = append(names, name)
	}
	return names, nil
}

func (s *Storage) UnknownRealms(_ context.Context, names []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var missing []string
	for _, name := range names {
		if _, ok := s.realms[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

func (s *Storage) ActiveLeases(_ context.Context, realm string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return int64(s.pruneLocked(realm)), nil
}

func (s *Storage) IssueLease(_ context.Context, realm string, ttl time.Duration) (domain.Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.issueLocked(realm, ttl), nil
}

func (s *Storage) PurgeLeases(_ context.Context, realm string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.leases, realm)
	return nil
}

func (s *Storage) Admit(_ context.Context, requests []ports.LeaseRequest) ([]domain.Lease, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var saturated []string
	for _, request := range requests {
		if s.pruneLocked(request.Realm) >= request.Capacity {
			saturated = append(saturated, request.Realm)
		}
	}
	if len(saturated) > 0 {
		return nil, saturated, nil
	}

	leases := make([]domain.Lease, 0, len(requests))
	for _, request := range requests {
		leases = append(leases, s.issueLocked(request.Realm, request.TTL))
	}
	return leases, nil, nil
}

// pruneLocked drops expired leases of the realm and returns the live count.
// Callers must hold the mutex.
func (s *Storage) pruneLocked(realm string) int {
	now := s.clock.Now()
	for id, expiresAt := range s.leases[realm] {
		if !expiresAt.After(now) {
			delete(s.leases[realm], id)
		}
	}
	return len(s.leases[realm])
}

func (s *Storage) issueLocked(realm string, ttl time.Duration) domain.Lease {
	lease := domain.Lease{
		Realm:     realm,
		ID:        uuid.NewString(),
		ExpiresAt: s.clock.Now().Add(ttl),
	}
	if s.leases[realm] == nil {
		s.leases[realm] = make(map[string]time.Time)
	}
	s.leases[realm][lease.ID] = lease.ExpiresAt
	return lease
}
