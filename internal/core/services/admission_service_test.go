package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SerpentAI/selenium-respectful/internal/adapters/storage/memory"
	"github.com/SerpentAI/selenium-respectful/internal/core/domain"
)

// fakeNavigator counts invocations and optionally fails.
type fakeNavigator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (n *fakeNavigator) Get(context.Context, string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	return n.err
}

func (n *fakeNavigator) callCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

type admissionFixture struct {
	admission *AdmissionService
	registry  *RegistryService
	ledger    *LedgerService
	navigator *fakeNavigator
	clock     clockwork.FakeClock
}

func newAdmissionFixture(t *testing.T, safetyThreshold int) admissionFixture {
	t.Helper()

	clock := clockwork.NewFakeClock()
	storage := memory.New(clock)
	navigator := &fakeNavigator{}

	admission, err := NewAdmissionService(storage, navigator, safetyThreshold)
	require.NoError(t, err)
	registry, err := NewRegistryService(storage)
	require.NoError(t, err)
	ledger, err := NewLedgerService(storage)
	require.NoError(t, err)

	return admissionFixture{
		admission: admission,
		registry:  registry,
		ledger:    ledger,
		navigator: navigator,
		clock:     clock,
	}
}

func TestAdmission_GrantConsumesQuotaUntilExpiry(t *testing.T) {
	f := newAdmissionFixture(t, 0)
	ctx := context.Background()

	require.NoError(t, f.registry.Register(ctx, domain.Realm{Name: "api", MaxRequests: 1, Timespan: 2 * time.Second}))

	decision, err := f.admission.Admit(ctx, domain.Navigation{URL: "https://example.com", Realms: []string{"api"}})
	require.NoError(t, err)
	assert.True(t, decision.Granted)
	require.Len(t, decision.Leases, 1)
	assert.Equal(t, "api", decision.Leases[0].Realm)
	assert.Equal(t, 1, f.navigator.callCount())

	// An immediate second attempt has no headroom.
	_, err = f.admission.Admit(ctx, domain.Navigation{URL: "https://example.com", Realms: []string{"api"}})
	denial, ok := domain.AsRateLimited(err)
	require.True(t, ok, "expected a rate-limit denial, got %v", err)
	assert.Equal(t, []string{"api"}, denial.Realms)
	assert.Equal(t, 1, f.navigator.callCount(), "navigator must not run on denial")

	// Once the lease expires, capacity returns.
	f.clock.Advance(3 * time.Second)
	decision, err = f.admission.Admit(ctx, domain.Navigation{URL: "https://example.com", Realms: []string{"api"}})
	require.NoError(t, err)
	assert.True(t, decision.Granted)
}

func TestAdmission_RepeatedRealmConsumesOneUnit(t *testing.T) {
	f := newAdmissionFixture(t, 0)
	ctx := context.Background()

	require.NoError(t, f.registry.Register(ctx, domain.Realm{Name: "api", MaxRequests: 1, Timespan: 60 * time.Second}))

	decision, err := f.admission.Admit(ctx, domain.Navigation{URL: "https://example.com", Realms: []string{"api", "api", "api"}})
	require.NoError(t, err)
	assert.True(t, decision.Granted)
	assert.Len(t, decision.Leases, 1, "a repeated realm name is one set member, one lease")

	count, err := f.ledger.ActiveCount(ctx, "api")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count, "active leases must never exceed max_requests")

	_, err = f.admission.Admit(ctx, domain.Navigation{URL: "https://example.com", Realms: []string{"api"}})
	assert.True(t, domain.IsRateLimited(err))
}

func TestAdmission_AllOrNothingAcrossRealms(t *testing.T) {
	f := newAdmissionFixture(t, 0)
	ctx := context.Background()

	require.NoError(t, f.registry.Register(ctx, domain.Realm{Name: "saturated", MaxRequests: 0, Timespan: 60 * time.Second}))
	require.NoError(t, f.registry.Register(ctx, domain.Realm{Name: "roomy", MaxRequests: 10, Timespan: 60 * time.Second}))

	_, err := f.admission.Admit(ctx, domain.Navigation{URL: "https://example.com", Realms: []string{"saturated", "roomy"}})
	denial, ok := domain.AsRateLimited(err)
	require.True(t, ok)
	assert.Equal(t, []string{"saturated"}, denial.Realms, "only the saturated realm is named")

	count, err := f.ledger.ActiveCount(ctx, "roomy")
	require.NoError(t, err)
	assert.Zero(t, count, "no partial lease may be issued on denial")
	assert.Zero(t, f.navigator.callCount())
}

func TestAdmission_SafetyThresholdReducesCapacity(t *testing.T) {
	f := newAdmissionFixture(t, 10)
	ctx := context.Background()

	require.NoError(t, f.registry.Register(ctx, domain.Realm{Name: "api", MaxRequests: 11, Timespan: 60 * time.Second}))

	_, err := f.admission.Admit(ctx, domain.Navigation{URL: "https://example.com", Realms: []string{"api"}})
	require.NoError(t, err)

	_, err = f.admission.Admit(ctx, domain.Navigation{URL: "https://example.com", Realms: []string{"api"}})
	assert.True(t, domain.IsRateLimited(err), "effective capacity is max_requests minus the threshold")
}

func TestAdmission_UnknownRealmsAreNamed(t *testing.T) {
	f := newAdmissionFixture(t, 0)
	ctx := context.Background()

	require.NoError(t, f.registry.Register(ctx, domain.Realm{Name: "known", MaxRequests: 5, Timespan: 60 * time.Second}))

	_, err := f.admission.Admit(ctx, domain.Navigation{URL: "https://example.com", Realms: []string{"known", "ghost", "phantom"}})
	require.True(t, domain.IsRealmNotFound(err))

	var notFound *domain.RealmNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.ElementsMatch(t, []string{"ghost", "phantom"}, notFound.Realms)
	assert.Zero(t, f.navigator.callCount())
}

func TestAdmission_ValidatesTheGatedOperation(t *testing.T) {
	f := newAdmissionFixture(t, 0)
	ctx := context.Background()

	require.NoError(t, f.registry.Register(ctx, domain.Realm{Name: "api", MaxRequests: 5, Timespan: 60 * time.Second}))

	var validation *domain.ActuatorValidationError

	_, err := f.admission.Admit(ctx, domain.Navigation{URL: "", Realms: []string{"api"}})
	assert.ErrorAs(t, err, &validation)

	nilNav, err := NewAdmissionService(memory.New(f.clock), nil, 0)
	require.NoError(t, err)
	_, err = nilNav.Admit(ctx, domain.Navigation{URL: "https://example.com", Realms: []string{"api"}})
	assert.ErrorAs(t, err, &validation)

	_, err = f.admission.Admit(ctx, domain.Navigation{URL: "https://example.com"})
	assert.Error(t, err, "at least one realm is required")

	count, cErr := f.ledger.ActiveCount(ctx, "api")
	require.NoError(t, cErr)
	assert.Zero(t, count, "validation failures consume no quota")
}

func TestAdmission_ActuatorFailurePropagates(t *testing.T) {
	f := newAdmissionFixture(t, 0)
	ctx := context.Background()

	require.NoError(t, f.registry.Register(ctx, domain.Realm{Name: "api", MaxRequests: 5, Timespan: 60 * time.Second}))

	boom := errors.New("connection reset")
	f.navigator.err = boom

	decision, err := f.admission.Admit(ctx, domain.Navigation{URL: "https://example.com", Realms: []string{"api"}})

	var actuator *domain.ActuatorError
	require.ErrorAs(t, err, &actuator)
	assert.ErrorIs(t, err, boom)
	assert.True(t, decision.Granted, "admission itself was granted")

	count, cErr := f.ledger.ActiveCount(ctx, "api")
	require.NoError(t, cErr)
	assert.EqualValues(t, 1, count, "quota stays consumed even when the navigation fails")
}

func TestAdmission_RejectsNegativeThresholdAtConstruction(t *testing.T) {
	_, err := NewAdmissionService(memory.New(nil), &fakeNavigator{}, -1)

	var configErr *domain.ConfigError
	assert.ErrorAs(t, err, &configErr)
}
