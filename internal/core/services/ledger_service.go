package services

import (
	"context"
	"fmt"

	"github.com/SerpentAI/selenium-respectful/internal/core/domain"
	"github.com/SerpentAI/selenium-respectful/internal/core/ports"
)

// LedgerService registra e conta leases (unidades de consumo de cota) por realm.
type LedgerService struct {
	storage ports.Storage
}

// NewLedgerService cria uma nova instância do serviço de leases.
func NewLedgerService(storage ports.Storage) (*LedgerService, error) {
	if storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	return &LedgerService{storage: storage}, nil
}

// ActiveCount returns the number of currently live leases for the realm.
// Unregistered realms simply count zero.
func (s *LedgerService) ActiveCount(ctx context.Context, realm string) (int64, error) {
	return s.storage.ActiveLeases(ctx, realm)
}

// IssueLease consumes one unit of the realm's quota. The lease TTL is the
// realm's own timespan and expiry is enforced by the store alone; no sweep
// or timer runs in-process.
func (s *LedgerService) IssueLease(ctx context.Context, realm string) (domain.Lease, error) {
	definition, err := s.storage.GetRealm(ctx, realm)
	if err != nil {
		return domain.Lease{}, err
	}
	return s.storage.IssueLease(ctx, realm, definition.Timespan)
}
