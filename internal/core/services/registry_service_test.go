package services

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SerpentAI/selenium-respectful/internal/adapters/storage/memory"
	"github.com/SerpentAI/selenium-respectful/internal/core/domain"
)

func newTestRegistry(t *testing.T) (*RegistryService, *LedgerService, *memory.Storage, clockwork.FakeClock) {
	t.Helper()

	clock := clockwork.NewFakeClock()
	storage := memory.New(clock)

	registry, err := NewRegistryService(storage)
	require.NoError(t, err)
	ledger, err := NewLedgerService(storage)
	require.NoError(t, err)

	return registry, ledger, storage, clock
}

func TestRegistry_RegisterIsIdempotent(t *testing.T) {
	registry, _, _, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, registry.Register(ctx, domain.Realm{Name: "duckduckgo", MaxRequests: 100, Timespan: 300 * time.Second}))
	require.NoError(t, registry.Register(ctx, domain.Realm{Name: "duckduckgo", MaxRequests: 999, Timespan: 999 * time.Second}))

	realm, err := registry.Get(ctx, "duckduckgo")
	require.NoError(t, err)
	assert.Equal(t, 100, realm.MaxRequests)
	assert.Equal(t, 300*time.Second, realm.Timespan)
}

func TestRegistry_RegisterRejectsInvalidQuota(t *testing.T) {
	registry, _, _, _ := newTestRegistry(t)
	ctx := context.Background()

	assert.Error(t, registry.Register(ctx, domain.Realm{Name: "", MaxRequests: 1, Timespan: time.Second}))
	assert.Error(t, registry.Register(ctx, domain.Realm{Name: "a", MaxRequests: -1, Timespan: time.Second}))
	assert.Error(t, registry.Register(ctx, domain.Realm{Name: "a", MaxRequests: 1, Timespan: 0}))
}

func TestRegistry_RegisterManyAppliesEachEntry(t *testing.T) {
	registry, _, _, _ := newTestRegistry(t)
	ctx := context.Background()

	err := registry.RegisterMany(ctx, []domain.Realm{
		{Name: "one", MaxRequests: 1, Timespan: time.Second},
		{Name: "broken", MaxRequests: -5, Timespan: time.Second},
		{Name: "two", MaxRequests: 2, Timespan: time.Second},
	})
	require.Error(t, err, "the invalid entry must be reported")

	names, listErr := registry.ListRegistered(ctx)
	require.NoError(t, listErr)
	assert.ElementsMatch(t, []string{"one", "two"}, names, "valid entries on both sides of the failure must be applied")
}

func TestRegistry_UpdateIgnoresUnrecognizedFields(t *testing.T) {
	registry, _, _, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, registry.Register(ctx, domain.Realm{Name: "github", MaxRequests: 100, Timespan: 300 * time.Second}))

	err := registry.Update(ctx, "github", map[string]any{
		"max_requests": "not-a-number",
		"timespan":     "also-not",
		"unknown":      true,
	})
	require.NoError(t, err)

	realm, err := registry.Get(ctx, "github")
	require.NoError(t, err)
	assert.Equal(t, 100, realm.MaxRequests)
	assert.Equal(t, 300*time.Second, realm.Timespan)
}

func TestRegistry_UpdateAppliesIntegerFields(t *testing.T) {
	registry, _, _, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, registry.Register(ctx, domain.Realm{Name: "github", MaxRequests: 100, Timespan: 300 * time.Second}))

	err := registry.Update(ctx, "github", map[string]any{
		"max_requests": 50,
		"timespan":     60,
		"unknown":      7,
	})
	require.NoError(t, err)

	realm, err := registry.Get(ctx, "github")
	require.NoError(t, err)
	assert.Equal(t, 50, realm.MaxRequests)
	assert.Equal(t, 60*time.Second, realm.Timespan)
}

func TestRegistry_UpdateRejectsInvariantBreakingValues(t *testing.T) {
	registry, _, _, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, registry.Register(ctx, domain.Realm{Name: "github", MaxRequests: 100, Timespan: 300 * time.Second}))

	assert.Error(t, registry.Update(ctx, "github", map[string]any{"max_requests": -3}))
	assert.Error(t, registry.Update(ctx, "github", map[string]any{"timespan": 0}))
	assert.Error(t, registry.Update(ctx, "github", map[string]any{"max_requests": 10, "timespan": -1}))

	realm, err := registry.Get(ctx, "github")
	require.NoError(t, err)
	assert.Equal(t, 100, realm.MaxRequests, "a rejected update must not be applied, even partially")
	assert.Equal(t, 300*time.Second, realm.Timespan)
}

func TestRegistry_UpdateUnknownRealm(t *testing.T) {
	registry, _, _, _ := newTestRegistry(t)

	err := registry.Update(context.Background(), "ghost", map[string]any{"max_requests": 1})
	assert.True(t, domain.IsRealmNotFound(err))
}

func TestRegistry_UnregisterCascades(t *testing.T) {
	registry, ledger, _, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, registry.Register(ctx, domain.Realm{Name: "bing", MaxRequests: 10, Timespan: 60 * time.Second}))
	_, err := ledger.IssueLease(ctx, "bing")
	require.NoError(t, err)
	_, err = ledger.IssueLease(ctx, "bing")
	require.NoError(t, err)

	require.NoError(t, registry.Unregister(ctx, "bing"))

	names, err := registry.ListRegistered(ctx)
	require.NoError(t, err)
	assert.NotContains(t, names, "bing")

	count, err := ledger.ActiveCount(ctx, "bing")
	require.NoError(t, err)
	assert.Zero(t, count, "all leases must be removed with the realm")

	// Unregistering an unknown realm is a no-op, not an error.
	assert.NoError(t, registry.Unregister(ctx, "bing"))
}

func TestRegistry_GetUnknownRealm(t *testing.T) {
	registry, _, _, _ := newTestRegistry(t)

	_, err := registry.Get(context.Background(), "ghost")
	assert.True(t, domain.IsRealmNotFound(err))
}

func TestLedger_LeasesExpirePassively(t *testing.T) {
	registry, ledger, _, clock := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, registry.Register(ctx, domain.Realm{Name: "google", MaxRequests: 10, Timespan: 2 * time.Second}))

	_, err := ledger.IssueLease(ctx, "google")
	require.NoError(t, err)

	count, err := ledger.ActiveCount(ctx, "google")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	clock.Advance(3 * time.Second)

	count, err = ledger.ActiveCount(ctx, "google")
	require.NoError(t, err)
	assert.Zero(t, count)
}
