// Package domain concentra entidades e estruturas centrais do controlador de admissão.
package domain

import "time"

// Nomes de campos reconhecidos por uma atualização parcial de realm.
const (
	FieldMaxRequests = "max_requests"
	FieldTimespan    = "timespan"
)

// Realm is a named resource class governed by its own sliding-window quota.
// Identity is the name; MaxRequests and Timespan never change after
// registration except through an explicit update.
type Realm struct {
	Name        string
	MaxRequests int
	Timespan    time.Duration
}

// TimespanSeconds returns the window length in whole seconds, the unit the
// shared store persists.
func (r Realm) TimespanSeconds() int {
	return int(r.Timespan / time.Second)
}

// Lease is one unit of consumed quota against a realm. It carries no payload
// beyond its identifier and is retired solely by store expiry.
type Lease struct {
	Realm     string
	ID        string
	ExpiresAt time.Time
}

// Navigation descreve a operação externa que o chamador quer executar.
type Navigation struct {
	URL    string
	Realms []string
}

// Decision is the outcome of an admission attempt. On a grant, Leases holds
// exactly one lease per requested realm. On a denial, Saturated names every
// realm that had no headroom and no leases are issued anywhere.
type Decision struct {
	Granted   bool
	Leases    []Lease
	Saturated []string
}
