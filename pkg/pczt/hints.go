package pczt

import (
	"encoding/binary"
	"fmt"

	"github.com/zwallet-network/zwallet-daemon/pkg/keys"
)

// Proprietary-field keys carrying signing hints. Keys are namespaced as
// <product>.v<version>.<field>; consumers must ignore keys they do not
// recognize and must not assume any ordering of fields within a map.
const (
	// HintSeedFingerprint holds the 32-byte fingerprint of the seed whose
	// keys fund this container. Global.
	HintSeedFingerprint = "zwallet.v1.seed_fingerprint"
	// HintAccountIndex holds the 4-byte little-endian account index.
	// Global.
	HintAccountIndex = "zwallet.v1.account_index"
	// HintScope holds the 4-byte little-endian key scope of one
	// transparent input (0 external, 1 internal, 2 ephemeral).
	HintScope = "zwallet.v1.scope"
	// HintAddressIndex holds the 4-byte little-endian address index of
	// one transparent input.
	HintAddressIndex = "zwallet.v1.address_index"
)

// GlobalHints are the account-level signing hints: everything a stateless
// signer needs to re-derive the account spending key.
type GlobalHints struct {
	SeedFingerprint keys.SeedFingerprint
	AccountIndex    uint32
}

// InputHints are the per-transparent-input signing hints identifying the
// exact derived key an input is locked to.
type InputHints struct {
	Scope        keys.Scope
	AddressIndex uint32
}

// SetGlobalHints embeds the account-level hints into the container's global
// proprietary map.
func SetGlobalHints(p *Pczt, hints GlobalHints) {
	if p.Global.Proprietary == nil {
		p.Global.Proprietary = map[string][]byte{}
	}
	p.Global.Proprietary[HintSeedFingerprint] = hints.SeedFingerprint.Bytes()
	p.Global.Proprietary[HintAccountIndex] = encodeUint32LE(hints.AccountIndex)
}

// ReadGlobalHints extracts and validates the account-level hints. A missing
// field yields ErrMissingHint, a field of the wrong width ErrInvalidHint;
// both name the offending key.
func ReadGlobalHints(p *Pczt) (*GlobalHints, error) {
	rawFp, ok := p.Global.Proprietary[HintSeedFingerprint]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingHint, HintSeedFingerprint)
	}
	fp, ok := keys.FingerprintFromBytes(rawFp)
	if !ok {
		return nil, fmt.Errorf(
			"%w: %s: expected %d bytes, got %d",
			ErrInvalidHint, HintSeedFingerprint, keys.FingerprintSize, len(rawFp),
		)
	}

	rawIdx, ok := p.Global.Proprietary[HintAccountIndex]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingHint, HintAccountIndex)
	}
	idx, ok := decodeUint32LE(rawIdx)
	if !ok {
		return nil, fmt.Errorf(
			"%w: %s: expected 4 bytes, got %d",
			ErrInvalidHint, HintAccountIndex, len(rawIdx),
		)
	}

	return &GlobalHints{SeedFingerprint: fp, AccountIndex: idx}, nil
}

// SetInputHints embeds the derivation coordinates of one transparent input.
func SetInputHints(in *TransparentInput, hints InputHints) {
	if in.Proprietary == nil {
		in.Proprietary = map[string][]byte{}
	}
	in.Proprietary[HintScope] = encodeUint32LE(uint32(hints.Scope))
	in.Proprietary[HintAddressIndex] = encodeUint32LE(hints.AddressIndex)
}

// ReadInputHints extracts the per-input hints if present. The second return
// is false when the input carries no usable hints: a signer must skip such
// inputs rather than fail, since another party may hold their keys.
func ReadInputHints(in *TransparentInput) (*InputHints, bool) {
	rawScope, ok := in.Proprietary[HintScope]
	if !ok {
		return nil, false
	}
	rawIdx, ok := in.Proprietary[HintAddressIndex]
	if !ok {
		return nil, false
	}

	scopeVal, ok := decodeUint32LE(rawScope)
	if !ok {
		return nil, false
	}
	scope, err := keys.ParseScope(scopeVal)
	if err != nil {
		return nil, false
	}
	idx, ok := decodeUint32LE(rawIdx)
	if !ok {
		return nil, false
	}

	return &InputHints{Scope: scope, AddressIndex: idx}, true
}

func encodeUint32LE(v uint32) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, v)
	return out
}

func decodeUint32LE(raw []byte) (uint32, bool) {
	if len(raw) != 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(raw), true
}
