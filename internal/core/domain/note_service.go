package domain

import "time"

// SpendPolicy gates which notes may fund a transfer.
type SpendPolicy struct {
	// MinConfirmations is the confirmation bar for trusted notes.
	MinConfirmations uint32
	// UntrustedMinConfirmations is the confirmation bar for notes received
	// from third parties. It is clamped to never be weaker than
	// MinConfirmations.
	UntrustedMinConfirmations uint32
	// AllowTransparentZeroConf lets unconfirmed trusted transparent notes
	// fund transfers. Shielded notes always need at least one confirmation:
	// an unmined shielded note has no anchor to prove against.
	AllowTransparentZeroConf bool
}

// Normalize returns the policy with the untrusted bar clamped to at least the
// trusted one.
func (p SpendPolicy) Normalize() SpendPolicy {
	if p.UntrustedMinConfirmations < p.MinConfirmations {
		p.UntrustedMinConfirmations = p.MinConfirmations
	}
	return p
}

// RequiredConfirmations returns the confirmation bar the policy applies to
// the given note.
func (p SpendPolicy) RequiredConfirmations(n *Note) uint32 {
	p = p.Normalize()
	required := p.MinConfirmations
	if !n.Trusted {
		required = p.UntrustedMinConfirmations
	}
	if n.Pool.IsShielded() && required == 0 {
		required = 1
	}
	if n.Pool == PoolTransparent && n.Trusted &&
		p.AllowTransparentZeroConf && required == 0 {
		return 0
	}
	if required == 0 {
		required = 1
	}
	return required
}

// IsSpendable reports whether the note can fund a transfer at the given tip
// height under this policy.
func (p SpendPolicy) IsSpendable(n *Note, tipHeight uint32, now time.Time) bool {
	if n.Spent || n.IsReserved(now) {
		return false
	}
	return n.Confirmations(tipHeight) >= p.RequiredConfirmations(n)
}
