package dbbadger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"github.com/timshannon/badgerhold/v4"

	"github.com/zwallet-network/zwallet-daemon/internal/core/domain"
)

type noteRepositoryImpl struct {
	db *DbManager
}

// NewNoteRepositoryImpl returns a badger backed NoteRepository.
func NewNoteRepositoryImpl(db *DbManager) domain.NoteRepository {
	return noteRepositoryImpl{db: db}
}

func noteKey(key domain.NoteKey) string {
	return fmt.Sprintf("%s:%d:%s", key.TxID, key.OutputIndex, key.Pool)
}

func (r noteRepositoryImpl) AddNotes(
	_ context.Context, notes []domain.Note,
) error {
	for _, note := range notes {
		if err := r.db.NoteStore.Upsert(noteKey(note.Key()), note); err != nil {
			return err
		}
	}
	return nil
}

func (r noteRepositoryImpl) GetNoteByKey(
	_ context.Context, key domain.NoteKey,
) (*domain.Note, error) {
	var note domain.Note
	if err := r.db.NoteStore.Get(noteKey(key), &note); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrNoteNotFound
		}
		return nil, err
	}
	return &note, nil
}

func (r noteRepositoryImpl) GetAllNotes(_ context.Context) ([]domain.Note, error) {
	var notes []domain.Note
	if err := r.db.NoteStore.Find(&notes, &badgerhold.Query{}); err != nil {
		return nil, err
	}
	return notes, nil
}

func (r noteRepositoryImpl) GetNotesForAccount(
	_ context.Context, accountID uuid.UUID,
) ([]domain.Note, error) {
	var notes []domain.Note
	if err := r.db.NoteStore.Find(
		&notes, badgerhold.Where("AccountID").Eq(accountID),
	); err != nil {
		return nil, err
	}
	return notes, nil
}

func (r noteRepositoryImpl) GetSpendableNotesForAccount(
	ctx context.Context, accountID uuid.UUID,
) ([]domain.Note, error) {
	all, err := r.GetNotesForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	notes := make([]domain.Note, 0, len(all))
	for _, n := range all {
		if n.Spent || n.IsReserved(now) {
			continue
		}
		notes = append(notes, n)
	}
	return notes, nil
}

// LockNotes reserves all the notes inside one badger transaction: a note
// already reserved by another proposal fails the whole batch and nothing is
// written.
func (r noteRepositoryImpl) LockNotes(
	_ context.Context,
	keys []domain.NoteKey,
	proposalID uuid.UUID,
	expiry time.Time,
) error {
	return r.db.NoteStore.Badger().Update(func(tx *badger.Txn) error {
		for _, key := range keys {
			var note domain.Note
			if err := r.db.NoteStore.TxGet(tx, noteKey(key), &note); err != nil {
				if errors.Is(err, badgerhold.ErrNotFound) {
					return domain.ErrNoteNotFound
				}
				return err
			}
			if err := note.Lock(proposalID, expiry); err != nil {
				return err
			}
			if err := r.db.NoteStore.TxUpdate(tx, noteKey(key), note); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r noteRepositoryImpl) UnlockNotes(
	ctx context.Context, keys []domain.NoteKey,
) error {
	for _, key := range keys {
		note, err := r.GetNoteByKey(ctx, key)
		if err != nil {
			return err
		}
		note.Unlock()
		if err := r.db.NoteStore.Update(noteKey(key), *note); err != nil {
			return err
		}
	}
	return nil
}

func (r noteRepositoryImpl) UnlockExpiredReservations(
	ctx context.Context,
) (int, error) {
	var notes []domain.Note
	if err := r.db.NoteStore.Find(
		&notes, badgerhold.Where("Locked").Eq(true),
	); err != nil {
		return 0, err
	}

	now := time.Now()
	released := 0
	for _, note := range notes {
		if note.IsReserved(now) {
			continue
		}
		note.Unlock()
		if err := r.db.NoteStore.Update(noteKey(note.Key()), note); err != nil {
			return released, err
		}
		released++
	}
	return released, nil
}

func (r noteRepositoryImpl) SpendNotes(
	ctx context.Context, keys []domain.NoteKey, txID string,
) error {
	for _, key := range keys {
		note, err := r.GetNoteByKey(ctx, key)
		if err != nil {
			return err
		}
		if err := note.MarkSpent(txID); err != nil {
			return err
		}
		if err := r.db.NoteStore.Update(noteKey(key), *note); err != nil {
			return err
		}
	}
	return nil
}

func (r noteRepositoryImpl) ConfirmNote(
	ctx context.Context, key domain.NoteKey, minedHeight uint32,
) error {
	note, err := r.GetNoteByKey(ctx, key)
	if err != nil {
		return err
	}
	note.MinedHeight = minedHeight
	return r.db.NoteStore.Update(noteKey(key), *note)
}
