package domain

import "fmt"

// PrivacyPolicy bounds the information a transfer may reveal on chain. The
// policies form a lattice ordered by the set of disclosures they permit;
// FullPrivacy permits none and NoPrivacy permits all.
type PrivacyPolicy int

const (
	// FullPrivacy reveals nothing: fully shielded, single-pool transfers
	// only.
	FullPrivacy PrivacyPolicy = iota
	// AllowRevealedAmounts additionally permits value crossing between
	// shielded pools, which reveals the amount moved.
	AllowRevealedAmounts
	// AllowRevealedRecipients additionally permits transparent recipients.
	AllowRevealedRecipients
	// AllowRevealedSenders additionally permits spending transparent funds
	// from a single address.
	AllowRevealedSenders
	// AllowFullyTransparent permits transparent funds on both sides of the
	// transfer.
	AllowFullyTransparent
	// AllowLinkingAccountAddresses permits spending transparent funds from
	// several addresses of the account at once, linking them to each other.
	AllowLinkingAccountAddresses
	// NoPrivacy permits every disclosure.
	NoPrivacy
)

// Disclosure flags backing the lattice order.
const (
	revealAmounts = 1 << iota
	revealRecipients
	revealSenders
	fullyTransparent
	linkAddresses
)

func (p PrivacyPolicy) disclosures() int {
	switch p {
	case FullPrivacy:
		return 0
	case AllowRevealedAmounts:
		return revealAmounts
	case AllowRevealedRecipients:
		return revealAmounts | revealRecipients
	case AllowRevealedSenders:
		return revealAmounts | revealSenders
	case AllowFullyTransparent:
		return revealAmounts | revealRecipients | revealSenders | fullyTransparent
	case AllowLinkingAccountAddresses:
		return revealAmounts | revealSenders | linkAddresses
	case NoPrivacy:
		return revealAmounts | revealRecipients | revealSenders |
			fullyTransparent | linkAddresses
	default:
		return 0
	}
}

func policyFromDisclosures(flags int) PrivacyPolicy {
	for _, p := range []PrivacyPolicy{
		FullPrivacy,
		AllowRevealedAmounts,
		AllowRevealedRecipients,
		AllowRevealedSenders,
		AllowFullyTransparent,
		AllowLinkingAccountAddresses,
		NoPrivacy,
	} {
		if p.disclosures() == flags {
			return p
		}
	}
	// Flag sets that do not map to a named policy round down to the
	// weakest named policy permitting a subset of them.
	best := FullPrivacy
	for _, p := range []PrivacyPolicy{
		AllowRevealedAmounts,
		AllowRevealedRecipients,
		AllowRevealedSenders,
		AllowFullyTransparent,
		AllowLinkingAccountAddresses,
	} {
		d := p.disclosures()
		if d&^flags == 0 && d > best.disclosures() {
			best = p
		}
	}
	return best
}

// Allows reports whether this policy permits at least everything the other
// one does.
func (p PrivacyPolicy) Allows(other PrivacyPolicy) bool {
	return other.disclosures()&^p.disclosures() == 0
}

// Meet returns the strictest policy permitting only the disclosures both
// policies permit.
func (p PrivacyPolicy) Meet(other PrivacyPolicy) PrivacyPolicy {
	return policyFromDisclosures(p.disclosures() & other.disclosures())
}

// AllowsRevealedAmounts ...
func (p PrivacyPolicy) AllowsRevealedAmounts() bool {
	return p.disclosures()&revealAmounts != 0
}

// AllowsRevealedRecipients ...
func (p PrivacyPolicy) AllowsRevealedRecipients() bool {
	return p.disclosures()&revealRecipients != 0
}

// AllowsRevealedSenders ...
func (p PrivacyPolicy) AllowsRevealedSenders() bool {
	return p.disclosures()&revealSenders != 0
}

// AllowsFullyTransparent ...
func (p PrivacyPolicy) AllowsFullyTransparent() bool {
	return p.disclosures()&fullyTransparent != 0
}

// AllowsLinkingAccountAddresses ...
func (p PrivacyPolicy) AllowsLinkingAccountAddresses() bool {
	return p.disclosures()&linkAddresses != 0
}

func (p PrivacyPolicy) String() string {
	switch p {
	case FullPrivacy:
		return "FullPrivacy"
	case AllowRevealedAmounts:
		return "AllowRevealedAmounts"
	case AllowRevealedRecipients:
		return "AllowRevealedRecipients"
	case AllowRevealedSenders:
		return "AllowRevealedSenders"
	case AllowFullyTransparent:
		return "AllowFullyTransparent"
	case AllowLinkingAccountAddresses:
		return "AllowLinkingAccountAddresses"
	case NoPrivacy:
		return "NoPrivacy"
	default:
		return "unknown"
	}
}

// ParsePrivacyPolicy maps a policy name to its value.
func ParsePrivacyPolicy(s string) (PrivacyPolicy, error) {
	for _, p := range []PrivacyPolicy{
		FullPrivacy,
		AllowRevealedAmounts,
		AllowRevealedRecipients,
		AllowRevealedSenders,
		AllowFullyTransparent,
		AllowLinkingAccountAddresses,
		NoPrivacy,
	} {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrInvalidPrivacyPolicy, s)
}
