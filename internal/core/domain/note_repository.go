package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// NoteRepository is the persistence boundary of notes.
type NoteRepository interface {
	AddNotes(ctx context.Context, notes []Note) error
	GetNoteByKey(ctx context.Context, key NoteKey) (*Note, error)
	GetAllNotes(ctx context.Context) ([]Note, error)
	GetNotesForAccount(
		ctx context.Context,
		accountID uuid.UUID,
	) ([]Note, error)
	// GetSpendableNotesForAccount returns the unspent, unreserved notes of
	// an account.
	GetSpendableNotesForAccount(
		ctx context.Context,
		accountID uuid.UUID,
	) ([]Note, error)
	// LockNotes atomically reserves all the given notes for a proposal
	// until expiry. Either every note is reserved or none is.
	LockNotes(
		ctx context.Context,
		keys []NoteKey,
		proposalID uuid.UUID,
		expiry time.Time,
	) error
	UnlockNotes(ctx context.Context, keys []NoteKey) error
	// UnlockExpiredReservations releases every reservation whose expiry has
	// passed and returns the number released.
	UnlockExpiredReservations(ctx context.Context) (int, error)
	SpendNotes(ctx context.Context, keys []NoteKey, txID string) error
	ConfirmNote(
		ctx context.Context,
		key NoteKey,
		minedHeight uint32,
	) error
}
