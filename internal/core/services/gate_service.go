package services

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/SerpentAI/selenium-respectful/internal/core/domain"
	"github.com/SerpentAI/selenium-respectful/internal/core/ports"
)

const defaultWaitInterval = time.Second

// RetryPolicy governa a espera por capacidade no modo bloqueante.
type RetryPolicy struct {
	// Interval between admission attempts. Defaults to one second.
	Interval time.Duration
	// Jitter, when positive, adds a random duration in [0, Jitter) to every
	// interval so that peers polling the same store do not wake in lockstep.
	Jitter time.Duration
	// Deadline, when positive, bounds the total wait. The last denial is
	// surfaced once it elapses. Zero means wait indefinitely (the caller's
	// context still cancels the wait).
	Deadline time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.Interval <= 0 {
		p.Interval = defaultWaitInterval
	}
	return p
}

// GateService envolve um Admitter com semântica de re-tentativa bloqueante.
type GateService struct {
	admitter ports.Admitter
	policy   RetryPolicy
	clock    clockwork.Clock
	logger   *zap.Logger
}

var _ ports.Admitter = (*GateService)(nil)

// NewGateService cria uma nova instância do portão de espera.
func NewGateService(admitter ports.Admitter, policy RetryPolicy, clock clockwork.Clock, logger *zap.Logger) (*GateService, error) {
	if admitter == nil {
		return nil, fmt.Errorf("admitter is required")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GateService{
		admitter: admitter,
		policy:   policy.withDefaults(),
		clock:    clock,
		logger:   logger,
	}, nil
}

// Admit is the fail-fast mode: a single attempt whose result or failure is
// returned unchanged.
func (g *GateService) Admit(ctx context.Context, nav domain.Navigation) (domain.Decision, error) {
	return g.admitter.Admit(ctx, nav)
}

// AdmitWait retries denied admissions until granted, the policy deadline
// elapses, or the context is cancelled. Only rate-limit denials are absorbed;
// every other failure propagates immediately without retry.
func (g *GateService) AdmitWait(ctx context.Context, nav domain.Navigation) (domain.Decision, error) {
	var deadline <-chan time.Time
	if g.policy.Deadline > 0 {
		deadline = g.clock.After(g.policy.Deadline)
	}

	for {
		decision, err := g.admitter.Admit(ctx, nav)
		if err == nil || !domain.IsRateLimited(err) {
			return decision, err
		}

		denial, _ := domain.AsRateLimited(err)
		interval := g.policy.Interval
		if g.policy.Jitter > 0 {
			interval += time.Duration(rand.Int63n(int64(g.policy.Jitter)))
		}
		g.logger.Debug("admission denied, waiting for capacity",
			zap.Strings("saturated_realms", denial.Realms),
			zap.Duration("interval", interval),
		)

		select {
		case <-ctx.Done():
			return domain.Decision{}, ctx.Err()
		case <-deadline:
			return decision, err
		case <-g.clock.After(interval):
		}
	}
}
