package services

import (
	"context"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/SerpentAI/selenium-respectful/internal/core/domain"
	"github.com/SerpentAI/selenium-respectful/internal/core/ports"
)

// Respectful acopla um navegador externo ao portão de admissão, expondo a
// única operação controlada por cota ao lado de um acesso direto para todo
// o resto.
type Respectful struct {
	gate      *GateService
	navigator ports.Navigator
}

// NewRespectful monta o controlador completo sobre um storage compartilhado
// e o navegador fornecido pelo chamador.
func NewRespectful(storage ports.Storage, navigator ports.Navigator, safetyThreshold int, policy RetryPolicy, clock clockwork.Clock, logger *zap.Logger) (*Respectful, error) {
	admission, err := NewAdmissionService(storage, navigator, safetyThreshold)
	if err != nil {
		return nil, err
	}
	gate, err := NewGateService(admission, policy, clock, logger)
	if err != nil {
		return nil, err
	}
	return &Respectful{gate: gate, navigator: navigator}, nil
}

// Get performs one gated navigation in fail-fast mode: denied admissions
// surface as RateLimitedError.
func (r *Respectful) Get(ctx context.Context, url string, realms ...string) (domain.Decision, error) {
	return r.gate.Admit(ctx, domain.Navigation{URL: url, Realms: realms})
}

// GetWaiting performs one gated navigation, waiting for capacity according
// to the gate's retry policy.
func (r *Respectful) GetWaiting(ctx context.Context, url string, realms ...string) (domain.Decision, error) {
	return r.gate.AdmitWait(ctx, domain.Navigation{URL: url, Realms: realms})
}

// Direct returns the ungated navigator handle.
func (r *Respectful) Direct() ports.Navigator {
	return r.navigator
}
