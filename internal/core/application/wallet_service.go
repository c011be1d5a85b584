package application

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zwallet-network/zwallet-daemon/pkg/keys"
	"github.com/zwallet-network/zwallet-daemon/pkg/keystore"
)

// WalletService manages the keystore lifecycle: seed custody, locking, and
// passwords.
type WalletService interface {
	// GenSeed returns a fresh mnemonic without storing it.
	GenSeed(ctx context.Context) (string, error)
	// ImportMnemonic encrypts and stores a mnemonic, returning the
	// fingerprint of its seed. The keystore must be unlocked.
	ImportMnemonic(ctx context.Context, mnemonic string) (keys.SeedFingerprint, error)
	// Unlock opens the keystore with the given password. A zero timeout
	// keeps it unlocked until an explicit Lock.
	Unlock(ctx context.Context, password string, timeout time.Duration) error
	Lock(ctx context.Context)
	IsLocked(ctx context.Context) bool
	ChangePassword(ctx context.Context, oldPassword, newPassword string) error
	ListSeedFingerprints(ctx context.Context) ([]keys.SeedFingerprint, error)
}

type walletService struct {
	keyStore *keystore.KeyStore
}

// NewWalletService returns a WalletService backed by the given keystore.
func NewWalletService(keyStore *keystore.KeyStore) WalletService {
	return &walletService{keyStore: keyStore}
}

func (s *walletService) GenSeed(_ context.Context) (string, error) {
	return keystore.GenerateMnemonic(256)
}

func (s *walletService) ImportMnemonic(
	_ context.Context, mnemonic string,
) (keys.SeedFingerprint, error) {
	fp, err := s.keyStore.ImportMnemonic(mnemonic)
	if err != nil {
		return keys.SeedFingerprint{}, err
	}
	log.Infof("imported seed %s", fp)
	return fp, nil
}

func (s *walletService) Unlock(
	_ context.Context, password string, timeout time.Duration,
) error {
	if err := s.keyStore.Unlock([]byte(password), timeout); err != nil {
		return err
	}
	if timeout > 0 {
		log.Infof("wallet unlocked for %s", timeout)
	} else {
		log.Info("wallet unlocked")
	}
	return nil
}

func (s *walletService) Lock(_ context.Context) {
	s.keyStore.Lock()
	log.Info("wallet locked")
}

func (s *walletService) IsLocked(_ context.Context) bool {
	return s.keyStore.IsLocked()
}

func (s *walletService) ChangePassword(
	_ context.Context, oldPassword, newPassword string,
) error {
	return s.keyStore.ChangePassword([]byte(oldPassword), []byte(newPassword))
}

func (s *walletService) ListSeedFingerprints(
	_ context.Context,
) ([]keys.SeedFingerprint, error) {
	return s.keyStore.ListSeedFingerprints()
}
