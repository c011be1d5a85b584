package application

import (
	"errors"
	"fmt"

	"github.com/zwallet-network/zwallet-daemon/internal/core/domain"
)

var (
	// ErrInvalidAddress ...
	ErrInvalidAddress = errors.New("address is not valid")
	// ErrInvalidAmount ...
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrNoRecipients ...
	ErrNoRecipients = errors.New("transfer needs at least one recipient")
	// ErrSeedNotImported is thrown when an account references a seed the
	// keystore does not hold.
	ErrSeedNotImported = errors.New("no seed imported for this account")
	// ErrMissingSigningHints is thrown when a container carries no usable
	// signing hints at all, so this wallet cannot contribute any signature.
	ErrMissingSigningHints = errors.New("container carries no usable signing hints")
	// ErrProposalExpired ...
	ErrProposalExpired = errors.New("proposal reservation has expired")
)

// InsufficientFundsError reports how much was requested against what the
// account can spend right now, separating funds that only need more
// confirmations from funds that are missing outright.
type InsufficientFundsError struct {
	Requested uint64
	Available uint64
	// Pending is the value held by notes that exist but do not yet meet
	// the confirmation bar.
	Pending uint64
}

func (e *InsufficientFundsError) Error() string {
	msg := fmt.Sprintf(
		"insufficient funds: requested %d zatoshi, spendable %d",
		e.Requested, e.Available,
	)
	if e.Pending > 0 {
		msg += fmt.Sprintf(" (%d more awaiting confirmations)", e.Pending)
	}
	return msg
}

// ActionLimitExceededError reports a transfer needing more logical actions in
// one pool than the configured bound permits.
type ActionLimitExceededError struct {
	Pool  domain.Pool
	Limit int
	Count int
}

func (e *ActionLimitExceededError) Error() string {
	return fmt.Sprintf(
		"transfer needs %d %s actions, limit is %d",
		e.Count, e.Pool, e.Limit,
	)
}
