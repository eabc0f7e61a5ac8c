package services

import (
	"context"
	"fmt"

	"github.com/SerpentAI/selenium-respectful/internal/core/domain"
	"github.com/SerpentAI/selenium-respectful/internal/core/ports"
)

// AdmissionService decide, de forma tudo-ou-nada, se uma navegação pode
// consumir cota em todos os realms pedidos.
type AdmissionService struct {
	storage         ports.Storage
	navigator       ports.Navigator
	safetyThreshold int
}

var _ ports.Admitter = (*AdmissionService)(nil)

// NewAdmissionService cria uma nova instância do controlador de admissão.
func NewAdmissionService(storage ports.Storage, navigator ports.Navigator, safetyThreshold int) (*AdmissionService, error) {
	if storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if safetyThreshold < 0 {
		return nil, domain.NewConfigError("safety_threshold must be a non-negative integer, got %d", safetyThreshold)
	}
	return &AdmissionService{
		storage:         storage,
		navigator:       navigator,
		safetyThreshold: safetyThreshold,
	}, nil
}

// Admit grants the navigation only when every requested realm has headroom,
// issuing exactly one lease per realm and invoking the navigator exactly
// once. On denial no lease is issued anywhere, the navigator is not invoked
// and the returned RateLimitedError names the full saturated set.
func (s *AdmissionService) Admit(ctx context.Context, nav domain.Navigation) (domain.Decision, error) {
	if len(nav.Realms) == 0 {
		return domain.Decision{}, fmt.Errorf("at least one realm is required")
	}
	if s.navigator == nil {
		return domain.Decision{}, &domain.ActuatorValidationError{Reason: "no navigator was supplied"}
	}
	if nav.URL == "" {
		return domain.Decision{}, &domain.ActuatorValidationError{Reason: "navigation URL is required"}
	}
	// The threshold is re-checked on every use, not only at configuration load.
	if s.safetyThreshold < 0 {
		return domain.Decision{}, domain.NewConfigError("safety_threshold must be a non-negative integer, got %d", s.safetyThreshold)
	}

	// The request is a set of realms; a name repeated by the caller must
	// consume exactly one unit of that realm's quota.
	realms := dedupeRealms(nav.Realms)

	missing, err := s.storage.UnknownRealms(ctx, realms)
	if err != nil {
		return domain.Decision{}, err
	}
	if len(missing) > 0 {
		return domain.Decision{}, &domain.RealmNotFoundError{Realms: missing}
	}

	requests := make([]ports.LeaseRequest, 0, len(realms))
	for _, name := range realms {
		definition, err := s.storage.GetRealm(ctx, name)
		if err != nil {
			return domain.Decision{}, err
		}
		requests = append(requests, ports.LeaseRequest{
			Realm:    name,
			Capacity: definition.MaxRequests - s.safetyThreshold,
			TTL:      definition.Timespan,
		})
	}

	leases, saturated, err := s.storage.Admit(ctx, requests)
	if err != nil {
		return domain.Decision{}, err
	}
	if len(saturated) > 0 {
		return domain.Decision{Saturated: saturated}, &domain.RateLimitedError{Realms: saturated}
	}

	decision := domain.Decision{Granted: true, Leases: leases}
	if err := s.navigator.Get(ctx, nav.URL); err != nil {
		return decision, &domain.ActuatorError{Err: err}
	}
	return decision, nil
}

// Direct returns the ungated handle to the underlying navigator, for every
// operation that does not consume quota.
func (s *AdmissionService) Direct() ports.Navigator {
	return s.navigator
}

func dedupeRealms(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	unique := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		unique = append(unique, name)
	}
	return unique
}
