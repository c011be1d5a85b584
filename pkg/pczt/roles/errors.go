package roles

import "errors"

var (
	// ErrIndexOutOfBounds ...
	ErrIndexOutOfBounds = errors.New("input index out of bounds")
	// ErrKeyMismatch is returned when a signing key does not control the
	// input it was asked to sign.
	ErrKeyMismatch = errors.New("signing key does not match the input's locking script")
	// ErrWrongSpendAuthKey is returned when a shielded spend authorizing
	// key does not verify against the spend's randomized verification
	// key.
	ErrWrongSpendAuthKey = errors.New("spend authorizing key does not match the randomized verification key")
	// ErrMissingRandomizer ...
	ErrMissingRandomizer = errors.New("spend carries no authorization randomizer")
	// ErrNotFunded is returned when a role requires a funded container.
	ErrNotFunded = errors.New("container has no funding data attached")
	// ErrNotSigned is returned when finalization is attempted before
	// every required signature is present.
	ErrNotSigned = errors.New("container is missing required signatures")
	// ErrNotFinalized is returned when extraction is attempted on a
	// container whose auxiliary data is incomplete.
	ErrNotFinalized = errors.New("container has not been finalized")
	// ErrStructureMismatch is returned when combining containers that do
	// not describe the same transaction.
	ErrStructureMismatch = errors.New("containers describe different transactions")
	// ErrConflictingContribution is returned when two containers carry
	// different data for the same input or action.
	ErrConflictingContribution = errors.New("containers carry conflicting contributions for the same item")
	// ErrMissingProof is returned when finalization requires a
	// zero-knowledge proof that has not been attached.
	ErrMissingProof = errors.New("shielded bundle carries no proof")
)
