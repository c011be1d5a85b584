package keys

import "errors"

var (
	// ErrInvalidSeedLength is returned when seed bytes are outside the
	// supported 32-252 byte range.
	ErrInvalidSeedLength = errors.New("seed length must be in the range [32, 252] bytes")
	// ErrNullSeed ...
	ErrNullSeed = errors.New("seed must not be null")
	// ErrInvalidScope ...
	ErrInvalidScope = errors.New("key scope must be one of external, internal, ephemeral")
	// ErrHardenedAddressIndex ...
	ErrHardenedAddressIndex = errors.New("address index must be non-hardened (< 2^31)")
)
