// Package ports define contratos que conectam o domínio a implementações externas.
package ports

import (
	"context"
	"time"

	"github.com/SerpentAI/selenium-respectful/internal/core/domain"
)

// LeaseRequest is one realm's share of a multi-realm admission attempt.
// Capacity is the effective capacity (max_requests minus the safety
// threshold) the store must enforce for that realm.
type LeaseRequest struct {
	Realm    string
	Capacity int
	TTL      time.Duration
}

// Storage abstracts the shared store all peers coordinate through. The store
// is the sole owner of persisted state; implementations must not keep
// authoritative in-process caches.
type Storage interface {
	// PutRealm inserts the realm definition and its index entry only when the
	// name is absent. Reports whether the realm was created.
	PutRealm(ctx context.Context, realm domain.Realm) (bool, error)

	// UpdateRealmFields overwrites the given integer fields of an existing
	// realm definition. Fields are already filtered to the recognized set.
	UpdateRealmFields(ctx context.Context, name string, fields map[string]int) error

	// GetRealm returns the stored definition, or RealmNotFoundError.
	GetRealm(ctx context.Context, name string) (domain.Realm, error)

	// DeleteRealm removes the definition and the index entry. No-op when the
	// realm is unknown.
	DeleteRealm(ctx context.Context, name string) error

	// ListRealms returns every registered realm name, in no particular order.
	ListRealms(ctx context.Context) ([]string, error)

	// UnknownRealms returns the subset of names that are not registered.
	UnknownRealms(ctx context.Context, names []string) ([]string, error)

	// ActiveLeases counts the realm's non-expired leases without scanning
	// unrelated keys.
	ActiveLeases(ctx context.Context, realm string) (int64, error)

	// IssueLease records one consumption unit with a fresh identifier; expiry
	// is enforced by the store alone.
	IssueLease(ctx context.Context, realm string, ttl time.Duration) (domain.Lease, error)

	// PurgeLeases drops every outstanding lease of the realm.
	PurgeLeases(ctx context.Context, realm string) error

	// Admit performs the all-or-nothing count-check-and-lease for the whole
	// realm set as a single indivisible store operation. A grant returns one
	// lease per request and an empty saturated set; a denial returns no
	// leases and every realm that had no headroom.
	Admit(ctx context.Context, requests []LeaseRequest) (leases []domain.Lease, saturated []string, err error)
}
