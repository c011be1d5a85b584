package keystore

import "errors"

var (
	// ErrWalletLocked is returned when the encryption identity has not
	// been unlocked.
	ErrWalletLocked = errors.New("wallet is locked")
	// ErrUnknownFingerprint is returned when no stored seed matches the
	// requested fingerprint.
	ErrUnknownFingerprint = errors.New("no seed matches the given fingerprint")
	// ErrInvalidMnemonic ...
	ErrInvalidMnemonic = errors.New("mnemonic is not a valid BIP-39 phrase")
	// ErrCorruptedKeystore indicates the stored keystore data violates its
	// invariants. This is a bug or on-disk corruption, not a user error.
	ErrCorruptedKeystore = errors.New("keystore contains malformed records")
)
