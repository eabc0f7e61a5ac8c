// Package services implementa a lógica central de registro e admissão de realms.
package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/SerpentAI/selenium-respectful/internal/core/domain"
	"github.com/SerpentAI/selenium-respectful/internal/core/ports"
)

// RegistryService mantém as definições de realms e o índice global de nomes.
type RegistryService struct {
	storage ports.Storage
}

// NewRegistryService cria uma nova instância do serviço de registro.
func NewRegistryService(storage ports.Storage) (*RegistryService, error) {
	if storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	return &RegistryService{storage: storage}, nil
}

// Register inserts the realm definition if the name is absent. Re-registering
// an existing name is a no-op and never overwrites the stored quota.
func (s *RegistryService) Register(ctx context.Context, realm domain.Realm) error {
	if err := validateRealm(realm); err != nil {
		return err
	}
	_, err := s.storage.PutRealm(ctx, realm)
	return err
}

// RegisterMany applies Register to each entry in order. Entries are
// independent: a failure does not roll back realms already registered.
func (s *RegistryService) RegisterMany(ctx context.Context, realms []domain.Realm) error {
	var combined error
	for _, realm := range realms {
		if err := s.Register(ctx, realm); err != nil {
			combined = multierr.Append(combined, fmt.Errorf("realm %q: %w", realm.Name, err))
		}
	}
	return combined
}

// Update overwrites the recognized integer fields present in fields. Unknown
// names and non-integer values are ignored without error; integer values that
// would break a registered realm's invariants are rejected, the same bounds
// Register enforces.
func (s *RegistryService) Update(ctx context.Context, name string, fields map[string]any) error {
	if _, err := s.storage.GetRealm(ctx, name); err != nil {
		return err
	}

	recognized := make(map[string]int)
	if number, ok := intField(fields, domain.FieldMaxRequests); ok {
		if number < 0 {
			return fmt.Errorf("realm %q: max_requests must be non-negative", name)
		}
		recognized[domain.FieldMaxRequests] = number
	}
	if number, ok := intField(fields, domain.FieldTimespan); ok {
		if number < 1 {
			return fmt.Errorf("realm %q: timespan must be at least one second", name)
		}
		recognized[domain.FieldTimespan] = number
	}

	if len(recognized) == 0 {
		return nil
	}
	return s.storage.UpdateRealmFields(ctx, name, recognized)
}

func intField(fields map[string]any, key string) (int, bool) {
	value, present := fields[key]
	if !present {
		return 0, false
	}
	number, ok := value.(int)
	return number, ok
}

// Unregister removes the realm definition, its index entry and every
// outstanding lease together. Unknown realms are a no-op, not an error.
func (s *RegistryService) Unregister(ctx context.Context, name string) error {
	return multierr.Combine(
		s.storage.DeleteRealm(ctx, name),
		s.storage.PurgeLeases(ctx, name),
	)
}

// UnregisterMany applies Unregister to each name.
func (s *RegistryService) UnregisterMany(ctx context.Context, names []string) error {
	var combined error
	for _, name := range names {
		if err := s.Unregister(ctx, name); err != nil {
			combined = multierr.Append(combined, fmt.Errorf("realm %q: %w", name, err))
		}
	}
	return combined
}

// ListRegistered returns the current index of realm names, unordered.
func (s *RegistryService) ListRegistered(ctx context.Context) ([]string, error) {
	return s.storage.ListRealms(ctx)
}

// Get returns the stored definition, or RealmNotFoundError.
func (s *RegistryService) Get(ctx context.Context, name string) (domain.Realm, error) {
	return s.storage.GetRealm(ctx, name)
}

func validateRealm(realm domain.Realm) error {
	if realm.Name == "" {
		return fmt.Errorf("realm name is required")
	}
	if realm.MaxRequests < 0 {
		return fmt.Errorf("realm %q: max_requests must be non-negative", realm.Name)
	}
	if realm.Timespan < time.Second {
		return fmt.Errorf("realm %q: timespan must be at least one second", realm.Name)
	}
	return nil
}
