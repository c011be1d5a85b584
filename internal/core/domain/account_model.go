package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/zwallet-network/zwallet-daemon/pkg/keys"
)

// Account is a wallet account rooted at one (seed, account index) pair. All
// addresses of an account, transparent and shielded, share the same spend
// authority.
type Account struct {
	ID              uuid.UUID
	Name            string
	SeedFingerprint keys.SeedFingerprint
	AccountIndex    uint32
	// BirthdayHeight is the chain height the account was created at; no
	// funds can exist below it.
	BirthdayHeight uint32
	// NextAddressIndexes tracks the next unused transparent address index
	// per scope.
	NextAddressIndexes map[keys.Scope]uint32
	// NextDiversifierIndex tracks the next sequential diversifier index,
	// used only when a transparent receiver keeps the address inside the
	// scan gap limit.
	NextDiversifierIndex uint32
	// Addresses records every generated diversified address.
	Addresses []AddressRecord
	CreatedAt time.Time
}

// AddressRecord is a generated diversified address persisted on its account.
type AddressRecord struct {
	Address          string
	Receivers        []Pool
	DiversifierIndex uint32
	CreatedAt        time.Time
}

// HasReceivers reports whether the record was generated for exactly the
// given receiver set, regardless of order.
func (r *AddressRecord) HasReceivers(set []Pool) bool {
	if len(r.Receivers) != len(set) {
		return false
	}
	have := make(map[Pool]bool, len(r.Receivers))
	for _, p := range r.Receivers {
		have[p] = true
	}
	for _, p := range set {
		if !have[p] {
			return false
		}
	}
	return true
}

// DefaultReceivers is the receiver set used when an address is requested
// without naming receiver types.
func DefaultReceivers() []Pool {
	return []Pool{PoolOrchard}
}

// NewAccount returns a new account bound to the given seed and index.
func NewAccount(
	name string,
	seedFingerprint keys.SeedFingerprint,
	accountIndex, birthdayHeight uint32,
) (*Account, error) {
	if name == "" {
		return nil, ErrInvalidAccountName
	}
	return &Account{
		ID:              uuid.New(),
		Name:            name,
		SeedFingerprint: seedFingerprint,
		AccountIndex:    accountIndex,
		BirthdayHeight:  birthdayHeight,
		NextAddressIndexes: map[keys.Scope]uint32{
			keys.ScopeExternal:  0,
			keys.ScopeInternal:  0,
			keys.ScopeEphemeral: 0,
		},
		CreatedAt: time.Now(),
	}, nil
}

// NextAddressIndex reserves and returns the next unused transparent address
// index for the given scope.
func (a *Account) NextAddressIndex(scope keys.Scope) uint32 {
	if a.NextAddressIndexes == nil {
		a.NextAddressIndexes = map[keys.Scope]uint32{}
	}
	next := a.NextAddressIndexes[scope]
	a.NextAddressIndexes[scope] = next + 1
	return next
}

// NextDiversifier reserves and returns the next sequential diversifier
// index. Only addresses that must stay within the transparent scan gap
// limit use it; purely shielded addresses take a time-seeded index instead.
func (a *Account) NextDiversifier() uint32 {
	next := a.NextDiversifierIndex
	a.NextDiversifierIndex = next + 1
	return next
}

// AddressAt returns the first generated address at the given diversifier
// index.
func (a *Account) AddressAt(index uint32) (*AddressRecord, bool) {
	for i := range a.Addresses {
		if a.Addresses[i].DiversifierIndex == index {
			return &a.Addresses[i], true
		}
	}
	return nil, false
}

// RecordAddress persists a generated address on the account.
func (a *Account) RecordAddress(rec AddressRecord) {
	a.Addresses = append(a.Addresses, rec)
}

// FreeDiversifierFrom returns the lowest diversifier index at or above seed
// that has no generated address.
func (a *Account) FreeDiversifierFrom(seed uint32) uint32 {
	index := seed
	for {
		if _, ok := a.AddressAt(index); !ok {
			return index
		}
		index++
	}
}
