// Package keys implements deterministic derivation of account spending keys
// and their per-pool sub-keys from a wallet seed.
//
// Derivation is a pure function of (seed, account index, scope, address
// index): re-deriving with the same coordinates always yields the same keys.
// This determinism is what allows a stateless signer to reconstruct spending
// keys from embedded coordinates alone, without access to a wallet database.
package keys

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	blake2b "github.com/minio/blake2b-simd"
)

const (
	// CoinType is the SLIP-44 coin type used for BIP-44 style transparent
	// derivation.
	CoinType uint32 = 133

	// HardenedKeyStart marks the first hardened child index.
	HardenedKeyStart uint32 = hdkeychain.HardenedKeyStart

	saplingAskPerson = "ZWallet_Sap_Ask_"
	orchardAskPerson = "ZWallet_Orch_Ask"
)

// AccountKey is the hierarchical spending key of one account. It bundles the
// transparent BIP-44 account-level extended key with the single
// spend-authorizing key of each shielded pool.
//
// AccountKey holds secret material: callers must Zeroize it as soon as the
// keys are no longer needed.
type AccountKey struct {
	accountIndex uint32
	transparent  *hdkeychain.ExtendedKey
	saplingAsk   *btcec.PrivateKey
	orchardAsk   *btcec.PrivateKey
}

// NewAccountKey derives the spending key of the given account from the seed.
// The transparent sub-tree is rooted at m/44'/133'/account', while each
// shielded pool derives a single account-level spend authorizing key.
func NewAccountKey(seed []byte, accountIndex uint32) (*AccountKey, error) {
	if err := validateSeed(seed); err != nil {
		return nil, err
	}

	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, err
	}
	defer master.Zero()

	purpose, err := master.Derive(HardenedKeyStart + 44)
	if err != nil {
		return nil, err
	}
	defer purpose.Zero()
	coin, err := purpose.Derive(HardenedKeyStart + CoinType)
	if err != nil {
		return nil, err
	}
	defer coin.Zero()
	account, err := coin.Derive(HardenedKeyStart + accountIndex)
	if err != nil {
		return nil, err
	}

	saplingAsk, err := shieldedSpendAuthKey(saplingAskPerson, seed, accountIndex)
	if err != nil {
		account.Zero()
		return nil, err
	}
	orchardAsk, err := shieldedSpendAuthKey(orchardAskPerson, seed, accountIndex)
	if err != nil {
		account.Zero()
		return nil, err
	}

	return &AccountKey{
		accountIndex: accountIndex,
		transparent:  account,
		saplingAsk:   saplingAsk,
		orchardAsk:   orchardAsk,
	}, nil
}

// AccountIndex returns the hardened account index this key was derived for.
func (k *AccountKey) AccountIndex() uint32 {
	return k.accountIndex
}

// TransparentKey derives the transparent signing key at the given scope and
// non-hardened address index.
func (k *AccountKey) TransparentKey(scope Scope, addressIndex uint32) (*btcec.PrivateKey, error) {
	if addressIndex >= HardenedKeyStart {
		return nil, ErrHardenedAddressIndex
	}
	if _, err := ParseScope(uint32(scope)); err != nil {
		return nil, err
	}

	change, err := k.transparent.Derive(uint32(scope))
	if err != nil {
		return nil, err
	}
	defer change.Zero()
	child, err := change.Derive(addressIndex)
	if err != nil {
		return nil, err
	}
	defer child.Zero()

	return child.ECPrivKey()
}

// SaplingSpendAuthKey returns the account-level Sapling spend authorizing
// key. Unlike transparent keys there is a single signing key per account;
// diversified addresses all share the same spend authority.
func (k *AccountKey) SaplingSpendAuthKey() *btcec.PrivateKey {
	return k.saplingAsk
}

// OrchardSpendAuthKey returns the account-level Orchard spend authorizing
// key.
func (k *AccountKey) OrchardSpendAuthKey() *btcec.PrivateKey {
	return k.orchardAsk
}

// Zeroize wipes all secret material held by the key. The key must not be
// used afterwards.
func (k *AccountKey) Zeroize() {
	if k.transparent != nil {
		k.transparent.Zero()
	}
	if k.saplingAsk != nil {
		k.saplingAsk.Zero()
	}
	if k.orchardAsk != nil {
		k.orchardAsk.Zero()
	}
}

// RandomizeKey applies the spend authorization randomizer alpha to a
// shielded spend authorizing key, yielding the per-action signing key. The
// same randomizer applied to the matching verification key lets a validator
// check the signature without linking it to the account key.
func RandomizeKey(sk *btcec.PrivateKey, alpha [32]byte) *btcec.PrivateKey {
	var tweak secp256k1.ModNScalar
	tweak.SetBytes(&alpha)
	sum := new(secp256k1.ModNScalar).Add2(&sk.Key, &tweak)
	return secp256k1.NewPrivateKey(sum)
}

func shieldedSpendAuthKey(person string, seed []byte, accountIndex uint32) (*btcec.PrivateKey, error) {
	h, err := blake2b.New(&blake2b.Config{
		Size:   64,
		Person: []byte(person),
	})
	if err != nil {
		return nil, err
	}
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], accountIndex)
	h.Write(seed)
	h.Write(idx[:])

	digest := h.Sum(nil)
	sk, _ := btcec.PrivKeyFromBytes(digest[:32])
	for i := range digest {
		digest[i] = 0
	}
	return sk, nil
}
