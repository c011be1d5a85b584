package boltsecurestore

import "errors"

var (
	// ErrPasswordRequired ...
	ErrPasswordRequired = errors.New("a non-nil password is required")
	// ErrStoreLocked is returned on any data access while the store is
	// locked.
	ErrStoreLocked = errors.New("store is locked, unlock it first")
	// ErrWrongPassword ...
	ErrWrongPassword = errors.New("password does not match the stored encryption key")
	// ErrBucketNotFound ...
	ErrBucketNotFound = errors.New("bucket not found")
	// ErrCorruptedValue is returned when a stored ciphertext cannot be
	// authenticated, which indicates either tampering or on-disk
	// corruption.
	ErrCorruptedValue = errors.New("stored value failed authentication")
)
