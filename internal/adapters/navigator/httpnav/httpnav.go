// Package httpnav disponibiliza um Navigator de referência baseado em HTTP GET.
package httpnav

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/SerpentAI/selenium-respectful/internal/core/ports"
)

const defaultTimeout = 30 * time.Second

type Navigator struct {
	client *http.Client
}

var _ ports.Navigator = (*Navigator)(nil)

func New(client *http.Client) *Navigator {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Navigator{client: client}
}

// Get performs the navigation. Like a browser load, any response counts as a
// successful navigation; only transport-level failures surface as errors.
func (n *Navigator) Get(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building navigation request: %w", err)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
