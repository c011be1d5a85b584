package keys

import (
	"encoding/hex"

	blake2b "github.com/minio/blake2b-simd"
)

// seedFingerprintPerson is the BLAKE2b personalization used to fingerprint
// wallet seeds, per ZIP-32.
const seedFingerprintPerson = "Zcash_HD_Seed_FP"

// FingerprintSize is the length in bytes of a seed fingerprint.
const FingerprintSize = 32

// SeedFingerprint is a stable, non-secret identifier of a wallet seed. It
// can be shared and persisted freely without revealing the seed itself.
type SeedFingerprint [FingerprintSize]byte

// FingerprintFromSeed computes the fingerprint of the given seed bytes.
func FingerprintFromSeed(seed []byte) (SeedFingerprint, error) {
	var fp SeedFingerprint
	if err := validateSeed(seed); err != nil {
		return fp, err
	}

	h, err := blake2b.New(&blake2b.Config{
		Size:   FingerprintSize,
		Person: []byte(seedFingerprintPerson),
	})
	if err != nil {
		return fp, err
	}
	h.Write([]byte{byte(len(seed))})
	h.Write(seed)
	copy(fp[:], h.Sum(nil))
	return fp, nil
}

// FingerprintFromBytes builds a fingerprint from its raw 32-byte encoding.
func FingerprintFromBytes(raw []byte) (SeedFingerprint, bool) {
	var fp SeedFingerprint
	if len(raw) != FingerprintSize {
		return fp, false
	}
	copy(fp[:], raw)
	return fp, true
}

// Bytes returns the raw 32-byte encoding of the fingerprint.
func (fp SeedFingerprint) Bytes() []byte {
	out := make([]byte, FingerprintSize)
	copy(out, fp[:])
	return out
}

func (fp SeedFingerprint) String() string {
	return hex.EncodeToString(fp[:])
}

func validateSeed(seed []byte) error {
	if len(seed) == 0 {
		return ErrNullSeed
	}
	if len(seed) < 32 || len(seed) > 252 {
		return ErrInvalidSeedLength
	}
	return nil
}
