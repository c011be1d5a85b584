package domain

import (
	"errors"
	"fmt"
)

// ErrPrivacyPolicyInsufficient is thrown when a transfer's shape would
// disclose more than its privacy policy permits.
var ErrPrivacyPolicyInsufficient = errors.New("privacy policy does not permit this transfer")

// PrivacyViolation reports the weakest named policy that would permit the
// rejected transfer, so callers can surface an actionable error.
type PrivacyViolation struct {
	Required PrivacyPolicy
	Reason   string
}

func (e *PrivacyViolation) Error() string {
	return fmt.Sprintf(
		"%s: %s: requires %s or weaker",
		ErrPrivacyPolicyInsufficient, e.Reason, e.Required,
	)
}

func (e *PrivacyViolation) Unwrap() error {
	return ErrPrivacyPolicyInsufficient
}

// TransferShape summarizes the disclosures a proposed transfer would make on
// chain.
type TransferShape struct {
	// TransparentSpendAddresses are the distinct transparent addresses
	// being spent from.
	TransparentSpendAddresses []string
	HasTransparentRecipient   bool
	HasTransparentChange      bool
	ShieldedSpendPools        []Pool
	ShieldedOutputPools       []Pool
}

func (s *TransferShape) hasTransparentSpend() bool {
	return len(s.TransparentSpendAddresses) > 0
}

func (s *TransferShape) hasTransparentOutput() bool {
	return s.HasTransparentRecipient || s.HasTransparentChange
}

// crossesPools reports whether shielded value leaves the pools it is spent
// from, which reveals the crossing amount in the transparent value balance.
func (s *TransferShape) crossesPools() bool {
	if len(s.ShieldedSpendPools) == 0 {
		return false
	}
	spent := map[Pool]bool{}
	for _, p := range s.ShieldedSpendPools {
		spent[p] = true
	}
	for _, p := range s.ShieldedOutputPools {
		if !spent[p] {
			return true
		}
	}
	return false
}

// CheckPrivacyPolicy verifies that the transfer's shape stays within the
// policy's permitted disclosures. Violations are reported strongest first:
// a transfer breaking several bounds names the one needing the weakest
// policy to fix.
func CheckPrivacyPolicy(policy PrivacyPolicy, shape *TransferShape) error {
	if len(shape.TransparentSpendAddresses) > 1 &&
		!policy.AllowsLinkingAccountAddresses() {
		return &PrivacyViolation{
			Required: AllowLinkingAccountAddresses,
			Reason:   "spending transparent funds from multiple addresses links them to the same account",
		}
	}
	if shape.hasTransparentSpend() && shape.hasTransparentOutput() &&
		!policy.AllowsFullyTransparent() {
		return &PrivacyViolation{
			Required: AllowFullyTransparent,
			Reason:   "transfer moves transparent funds to a transparent destination",
		}
	}
	if shape.hasTransparentSpend() && !policy.AllowsRevealedSenders() {
		return &PrivacyViolation{
			Required: AllowRevealedSenders,
			Reason:   "spending transparent funds reveals the sender",
		}
	}
	if shape.hasTransparentOutput() && !policy.AllowsRevealedRecipients() {
		reason := "transparent recipients are visible on chain"
		if !shape.HasTransparentRecipient {
			reason = "transparent change is visible on chain"
		}
		return &PrivacyViolation{
			Required: AllowRevealedRecipients,
			Reason:   reason,
		}
	}
	if shape.crossesPools() && !policy.AllowsRevealedAmounts() {
		return &PrivacyViolation{
			Required: AllowRevealedAmounts,
			Reason:   "moving value between shielded pools reveals the amount",
		}
	}
	return nil
}

// RequiredPrivacyPolicy returns the weakest named policy permitting the
// transfer.
func RequiredPrivacyPolicy(shape *TransferShape) PrivacyPolicy {
	for _, p := range []PrivacyPolicy{
		FullPrivacy,
		AllowRevealedAmounts,
		AllowRevealedRecipients,
		AllowRevealedSenders,
		AllowFullyTransparent,
		AllowLinkingAccountAddresses,
		NoPrivacy,
	} {
		if CheckPrivacyPolicy(p, shape) == nil {
			return p
		}
	}
	return NoPrivacy
}
