package dbbadger_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/zwallet-network/zwallet-daemon/internal/core/domain"
	dbbadger "github.com/zwallet-network/zwallet-daemon/internal/infrastructure/storage/db/badger"
	"github.com/zwallet-network/zwallet-daemon/pkg/keys"
)

func newTestDb(t *testing.T) *dbbadger.DbManager {
	t.Helper()
	db, err := dbbadger.NewDbManager("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAccountRepository(t *testing.T) {
	db := newTestDb(t)
	repo := dbbadger.NewAccountRepositoryImpl(db)
	ctx := context.Background()

	var fp keys.SeedFingerprint
	fp[0] = 0x01
	account, err := domain.NewAccount("savings", fp, 0, 100)
	require.NoError(t, err)

	require.NoError(t, repo.AddAccount(ctx, account))
	require.ErrorIs(t, repo.AddAccount(ctx, account), domain.ErrAccountAlreadyExists)

	found, err := repo.GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, account.Name, found.Name)
	require.Equal(t, account.SeedFingerprint, found.SeedFingerprint)

	byName, err := repo.GetAccountByName(ctx, "savings")
	require.NoError(t, err)
	require.Equal(t, account.ID, byName.ID)

	_, err = repo.GetAccountByID(ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
	_, err = repo.GetAccountByName(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	require.NoError(t, repo.UpdateAccount(
		ctx, account.ID,
		func(a *domain.Account) (*domain.Account, error) {
			a.NextAddressIndex(keys.ScopeExternal)
			return a, nil
		},
	))
	found, err = repo.GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, uint32(1), found.NextAddressIndexes[keys.ScopeExternal])

	all, err := repo.GetAllAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	require.NoError(t, repo.DeleteAccount(ctx, account.ID))
	_, err = repo.GetAccountByID(ctx, account.ID)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func newTestNote(accountID uuid.UUID, txid string, value uint64) domain.Note {
	return domain.Note{
		TxID:        txid,
		OutputIndex: 0,
		Pool:        domain.PoolOrchard,
		AccountID:   accountID,
		Value:       value,
		Trusted:     true,
		MinedHeight: 100,
	}
}

func TestNoteRepository(t *testing.T) {
	db := newTestDb(t)
	repo := dbbadger.NewNoteRepositoryImpl(db)
	ctx := context.Background()
	accountID := uuid.New()

	notes := []domain.Note{
		newTestNote(accountID, "aa", 1000),
		newTestNote(accountID, "bb", 2000),
		newTestNote(uuid.New(), "cc", 3000),
	}
	require.NoError(t, repo.AddNotes(ctx, notes))

	found, err := repo.GetNoteByKey(ctx, notes[0].Key())
	require.NoError(t, err)
	require.Equal(t, uint64(1000), found.Value)

	_, err = repo.GetNoteByKey(ctx, domain.NoteKey{TxID: "zz"})
	require.ErrorIs(t, err, domain.ErrNoteNotFound)

	forAccount, err := repo.GetNotesForAccount(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, forAccount, 2)

	all, err := repo.GetAllNotes(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestNoteRepositoryLocking(t *testing.T) {
	db := newTestDb(t)
	repo := dbbadger.NewNoteRepositoryImpl(db)
	ctx := context.Background()
	accountID := uuid.New()
	proposalID := uuid.New()

	notes := []domain.Note{
		newTestNote(accountID, "aa", 1000),
		newTestNote(accountID, "bb", 2000),
	}
	require.NoError(t, repo.AddNotes(ctx, notes))
	noteKeys := []domain.NoteKey{notes[0].Key(), notes[1].Key()}

	expiry := time.Now().Add(time.Minute)
	require.NoError(t, repo.LockNotes(ctx, noteKeys, proposalID, expiry))

	spendable, err := repo.GetSpendableNotesForAccount(ctx, accountID)
	require.NoError(t, err)
	require.Empty(t, spendable)

	// A competing reservation fails atomically: the second note stays
	// untouched even though it is free.
	other := []domain.Note{newTestNote(accountID, "cc", 500)}
	require.NoError(t, repo.AddNotes(ctx, other))
	err = repo.LockNotes(
		ctx,
		[]domain.NoteKey{notes[0].Key(), other[0].Key()},
		uuid.New(), expiry,
	)
	require.ErrorIs(t, err, domain.ErrNoteLocked)

	free, err := repo.GetNoteByKey(ctx, other[0].Key())
	require.NoError(t, err)
	require.False(t, free.Locked)

	require.NoError(t, repo.UnlockNotes(ctx, noteKeys))
	spendable, err = repo.GetSpendableNotesForAccount(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, spendable, 3)
}

func TestNoteRepositoryExpiredReservations(t *testing.T) {
	db := newTestDb(t)
	repo := dbbadger.NewNoteRepositoryImpl(db)
	ctx := context.Background()
	accountID := uuid.New()

	notes := []domain.Note{
		newTestNote(accountID, "aa", 1000),
		newTestNote(accountID, "bb", 2000),
	}
	require.NoError(t, repo.AddNotes(ctx, notes))

	require.NoError(t, repo.LockNotes(
		ctx, []domain.NoteKey{notes[0].Key()},
		uuid.New(), time.Now().Add(-time.Second),
	))
	require.NoError(t, repo.LockNotes(
		ctx, []domain.NoteKey{notes[1].Key()},
		uuid.New(), time.Now().Add(time.Hour),
	))

	released, err := repo.UnlockExpiredReservations(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, released)

	first, err := repo.GetNoteByKey(ctx, notes[0].Key())
	require.NoError(t, err)
	require.False(t, first.Locked)
	second, err := repo.GetNoteByKey(ctx, notes[1].Key())
	require.NoError(t, err)
	require.True(t, second.Locked)
}

func TestNoteRepositorySpend(t *testing.T) {
	db := newTestDb(t)
	repo := dbbadger.NewNoteRepositoryImpl(db)
	ctx := context.Background()
	accountID := uuid.New()

	notes := []domain.Note{newTestNote(accountID, "aa", 1000)}
	require.NoError(t, repo.AddNotes(ctx, notes))
	noteKeys := []domain.NoteKey{notes[0].Key()}

	require.NoError(t, repo.SpendNotes(ctx, noteKeys, "deadbeef"))
	spent, err := repo.GetNoteByKey(ctx, noteKeys[0])
	require.NoError(t, err)
	require.True(t, spent.Spent)
	require.Equal(t, "deadbeef", spent.SpentByTx)

	require.ErrorIs(t,
		repo.SpendNotes(ctx, noteKeys, "other"), domain.ErrNoteAlreadySpent)

	spendable, err := repo.GetSpendableNotesForAccount(ctx, accountID)
	require.NoError(t, err)
	require.Empty(t, spendable)
}

func TestNoteRepositoryConfirm(t *testing.T) {
	db := newTestDb(t)
	repo := dbbadger.NewNoteRepositoryImpl(db)
	ctx := context.Background()

	note := newTestNote(uuid.New(), "aa", 1000)
	note.MinedHeight = 0
	require.NoError(t, repo.AddNotes(ctx, []domain.Note{note}))

	require.NoError(t, repo.ConfirmNote(ctx, note.Key(), 123))
	confirmed, err := repo.GetNoteByKey(ctx, note.Key())
	require.NoError(t, err)
	require.Equal(t, uint32(123), confirmed.MinedHeight)
}

func TestProposalRepository(t *testing.T) {
	db := newTestDb(t)
	repo := dbbadger.NewProposalRepositoryImpl(db)
	ctx := context.Background()

	proposal := domain.NewProposal(
		uuid.New(), []byte{0x01}, []domain.NoteKey{{TxID: "aa"}},
		10_000, domain.FullPrivacy, time.Now().Add(time.Hour),
	)
	require.NoError(t, repo.AddProposal(ctx, proposal))

	found, err := repo.GetProposalByID(ctx, proposal.ID)
	require.NoError(t, err)
	require.Equal(t, proposal.Fee, found.Fee)
	require.Equal(t, domain.ProposalPending, found.Status)

	_, err = repo.GetProposalByID(ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrProposalNotFound)

	pending, err := repo.GetPendingProposals(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, repo.UpdateProposal(
		ctx, proposal.ID,
		func(p *domain.Proposal) (*domain.Proposal, error) {
			p.Complete()
			return p, nil
		},
	))
	pending, err = repo.GetPendingProposals(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)
}
