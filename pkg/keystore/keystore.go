// Package keystore holds wallet seeds encrypted at rest and exposes them
// transiently for key derivation.
//
// Seeds are stored as encrypted BIP-39 mnemonics keyed by seed fingerprint.
// The keystore is the only component that touches raw seed bytes outside of
// signing; callers receive a Seed handle and must Zeroize it as soon as
// derivation is done.
package keystore

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/go-bip39"
	"golang.org/x/sync/singleflight"

	"github.com/zwallet-network/zwallet-daemon/pkg/keys"
	"github.com/zwallet-network/zwallet-daemon/pkg/securestore"
)

var mnemonicsBucket = []byte("mnemonics")

// Seed is a decrypted wallet seed. It exists only transiently in memory;
// callers must call Zeroize once the seed is no longer needed.
type Seed struct {
	bytes []byte
}

// Bytes exposes the raw seed bytes.
func (s *Seed) Bytes() []byte {
	return s.bytes
}

// Zeroize wipes the seed bytes.
func (s *Seed) Zeroize() {
	for i := range s.bytes {
		s.bytes[i] = 0
	}
	s.bytes = nil
}

// KeyStore persists encrypted seeds and serves decryption requests.
//
// Decryption of the same fingerprint is serialized: concurrent requests
// share a single in-flight decryption instead of hitting the encrypted store
// redundantly. Decryptions of distinct fingerprints proceed in parallel.
type KeyStore struct {
	store securestore.SecureStorage
	sf    singleflight.Group

	relockMtx   sync.Mutex
	relockTimer *time.Timer
}

// New returns a KeyStore backed by the given secure storage.
func New(store securestore.SecureStorage) (*KeyStore, error) {
	ks := &KeyStore{store: store}
	return ks, nil
}

// IsLocked returns whether the encryption identity is unavailable for
// decrypting seeds.
func (ks *KeyStore) IsLocked() bool {
	return ks.store.IsLocked()
}

// Unlock makes the keystore's encryption identity available. If timeout is
// positive the keystore re-locks itself once it elapses.
func (ks *KeyStore) Unlock(password []byte, timeout time.Duration) error {
	pw := make([]byte, len(password))
	copy(pw, password)
	defer func() {
		for i := range pw {
			pw[i] = 0
		}
	}()

	if err := ks.store.CreateUnlock(&pw); err != nil {
		return err
	}
	if err := ks.store.CreateBucket(mnemonicsBucket); err != nil {
		return err
	}

	ks.relockMtx.Lock()
	defer ks.relockMtx.Unlock()
	if ks.relockTimer != nil {
		ks.relockTimer.Stop()
		ks.relockTimer = nil
	}
	if timeout > 0 {
		ks.relockTimer = time.AfterFunc(timeout, func() {
			log.Debug("keystore: unlock session expired, locking")
			ks.Lock()
		})
	}
	return nil
}

// Lock wipes the in-memory encryption identity. Pending decryptions fail.
func (ks *KeyStore) Lock() {
	ks.store.Lock()
}

// ChangePassword re-encrypts the store identity under a new password.
func (ks *KeyStore) ChangePassword(oldPw, newPw []byte) error {
	return ks.store.ChangePassword(oldPw, newPw)
}

// GenerateMnemonic returns a fresh BIP-39 mnemonic with the given entropy
// size in bits.
func GenerateMnemonic(entropySize int) (string, error) {
	entropy, err := bip39.NewEntropy(entropySize)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// ImportMnemonic validates and stores a mnemonic, returning the fingerprint
// of the seed it derives. Importing the same mnemonic twice is a no-op that
// yields the same fingerprint.
func (ks *KeyStore) ImportMnemonic(mnemonic string) (keys.SeedFingerprint, error) {
	var zero keys.SeedFingerprint
	if !bip39.IsMnemonicValid(mnemonic) {
		return zero, ErrInvalidMnemonic
	}
	if ks.store.IsLocked() {
		return zero, ErrWalletLocked
	}

	seed := bip39.NewSeed(mnemonic, "")
	defer zeroize(seed)

	fp, err := keys.FingerprintFromSeed(seed)
	if err != nil {
		return zero, err
	}

	if err := ks.store.AddToBucket(
		mnemonicsBucket, fp.Bytes(), []byte(mnemonic),
	); err != nil {
		return zero, err
	}

	log.WithField("fingerprint", fp.String()).Debug("keystore: imported seed")
	return fp, nil
}

// ListSeedFingerprints returns the fingerprint of every stored seed.
func (ks *KeyStore) ListSeedFingerprints() ([]keys.SeedFingerprint, error) {
	if ks.store.IsLocked() {
		return nil, ErrWalletLocked
	}

	all, err := ks.store.GetAllFromBucket(mnemonicsBucket)
	if err != nil {
		return nil, err
	}

	fps := make([]keys.SeedFingerprint, 0, len(all))
	for rawFp := range all {
		fp, ok := keys.FingerprintFromBytes([]byte(rawFp))
		if !ok {
			return nil, ErrCorruptedKeystore
		}
		fps = append(fps, fp)
	}
	return fps, nil
}

// DecryptSeed decrypts the seed with the given fingerprint. The call may
// suspend while another request for the same fingerprint is in flight, and
// honors cancellation of the context while waiting.
func (ks *KeyStore) DecryptSeed(
	ctx context.Context, fp keys.SeedFingerprint,
) (*Seed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := ks.sf.DoChan(fp.String(), func() (interface{}, error) {
		return ks.decryptSeed(fp)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		seed := res.Val.(*Seed)
		if res.Shared {
			// Every waiter gets its own copy so that zeroizing one
			// handle cannot clear a seed another caller still uses.
			cp := make([]byte, len(seed.bytes))
			copy(cp, seed.bytes)
			return &Seed{bytes: cp}, nil
		}
		return seed, nil
	}
}

func (ks *KeyStore) decryptSeed(fp keys.SeedFingerprint) (*Seed, error) {
	if ks.store.IsLocked() {
		return nil, ErrWalletLocked
	}

	mnemonic, err := ks.store.GetFromBucket(mnemonicsBucket, fp.Bytes())
	if err != nil {
		return nil, err
	}
	if mnemonic == nil {
		return nil, ErrUnknownFingerprint
	}
	defer zeroize(mnemonic)

	seed := bip39.NewSeed(string(mnemonic), "")
	return &Seed{bytes: seed}, nil
}

func zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
