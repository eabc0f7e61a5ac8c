// Package ports define contratos que conectam o domínio a implementações externas.
package ports

import (
	"context"

	"github.com/SerpentAI/selenium-respectful/internal/core/domain"
)

// Admitter decide, em uma única tentativa, se uma navegação pode prosseguir.
type Admitter interface {
	Admit(ctx context.Context, nav domain.Navigation) (domain.Decision, error)
}

// Navigator is the external actuator gated by admission decisions. The core
// invokes it at most once per grant and never on a denial; whatever it
// returns propagates to the caller unchanged.
type Navigator interface {
	Get(ctx context.Context, url string) error
}
