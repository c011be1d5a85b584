package application_test

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/go-bip39"

	"github.com/zwallet-network/zwallet-daemon/internal/core/application"
	"github.com/zwallet-network/zwallet-daemon/internal/core/domain"
	"github.com/zwallet-network/zwallet-daemon/internal/core/ports"
	"github.com/zwallet-network/zwallet-daemon/pkg/keys"
	"github.com/zwallet-network/zwallet-daemon/pkg/keystore"
	"github.com/zwallet-network/zwallet-daemon/pkg/pczt"
	boltsecurestore "github.com/zwallet-network/zwallet-daemon/pkg/securestore/bolt"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon " +
	"abandon abandon abandon abandon about"

type accountRepoFake struct {
	mtx      sync.Mutex
	accounts map[uuid.UUID]domain.Account
}

func newAccountRepoFake() *accountRepoFake {
	return &accountRepoFake{accounts: map[uuid.UUID]domain.Account{}}
}

func (r *accountRepoFake) AddAccount(_ context.Context, account *domain.Account) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if _, ok := r.accounts[account.ID]; ok {
		return domain.ErrAccountAlreadyExists
	}
	r.accounts[account.ID] = *account
	return nil
}

func (r *accountRepoFake) GetAccountByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &account, nil
}

func (r *accountRepoFake) GetAccountByName(_ context.Context, name string) (*domain.Account, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	for _, account := range r.accounts {
		if account.Name == name {
			account := account
			return &account, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *accountRepoFake) GetAllAccounts(_ context.Context) ([]domain.Account, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	accounts := make([]domain.Account, 0, len(r.accounts))
	for _, account := range r.accounts {
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (r *accountRepoFake) UpdateAccount(
	_ context.Context, id uuid.UUID,
	updateFn func(a *domain.Account) (*domain.Account, error),
) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	updated, err := updateFn(&account)
	if err != nil {
		return err
	}
	r.accounts[id] = *updated
	return nil
}

func (r *accountRepoFake) DeleteAccount(_ context.Context, id uuid.UUID) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if _, ok := r.accounts[id]; !ok {
		return domain.ErrAccountNotFound
	}
	delete(r.accounts, id)
	return nil
}

type noteRepoFake struct {
	mtx   sync.Mutex
	notes map[domain.NoteKey]domain.Note
}

func newNoteRepoFake() *noteRepoFake {
	return &noteRepoFake{notes: map[domain.NoteKey]domain.Note{}}
}

func (r *noteRepoFake) AddNotes(_ context.Context, notes []domain.Note) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	for _, n := range notes {
		r.notes[n.Key()] = n
	}
	return nil
}

func (r *noteRepoFake) GetNoteByKey(_ context.Context, key domain.NoteKey) (*domain.Note, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	note, ok := r.notes[key]
	if !ok {
		return nil, domain.ErrNoteNotFound
	}
	return &note, nil
}

func (r *noteRepoFake) GetAllNotes(_ context.Context) ([]domain.Note, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	notes := make([]domain.Note, 0, len(r.notes))
	for _, n := range r.notes {
		notes = append(notes, n)
	}
	return notes, nil
}

func (r *noteRepoFake) GetNotesForAccount(
	_ context.Context, accountID uuid.UUID,
) ([]domain.Note, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	notes := make([]domain.Note, 0)
	for _, n := range r.notes {
		if n.AccountID == accountID {
			notes = append(notes, n)
		}
	}
	return notes, nil
}

func (r *noteRepoFake) GetSpendableNotesForAccount(
	_ context.Context, accountID uuid.UUID,
) ([]domain.Note, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	now := time.Now()
	notes := make([]domain.Note, 0)
	for _, n := range r.notes {
		if n.AccountID == accountID && !n.Spent && !n.IsReserved(now) {
			notes = append(notes, n)
		}
	}
	return notes, nil
}

func (r *noteRepoFake) LockNotes(
	_ context.Context, noteKeys []domain.NoteKey,
	proposalID uuid.UUID, expiry time.Time,
) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	updated := make([]domain.Note, 0, len(noteKeys))
	for _, key := range noteKeys {
		note, ok := r.notes[key]
		if !ok {
			return domain.ErrNoteNotFound
		}
		if err := note.Lock(proposalID, expiry); err != nil {
			return err
		}
		updated = append(updated, note)
	}
	for _, n := range updated {
		r.notes[n.Key()] = n
	}
	return nil
}

func (r *noteRepoFake) UnlockNotes(_ context.Context, noteKeys []domain.NoteKey) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	for _, key := range noteKeys {
		note, ok := r.notes[key]
		if !ok {
			return domain.ErrNoteNotFound
		}
		note.Unlock()
		r.notes[key] = note
	}
	return nil
}

func (r *noteRepoFake) UnlockExpiredReservations(_ context.Context) (int, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	now := time.Now()
	released := 0
	for key, note := range r.notes {
		if note.Locked && !note.IsReserved(now) {
			note.Unlock()
			r.notes[key] = note
			released++
		}
	}
	return released, nil
}

func (r *noteRepoFake) SpendNotes(
	_ context.Context, noteKeys []domain.NoteKey, txID string,
) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	for _, key := range noteKeys {
		note, ok := r.notes[key]
		if !ok {
			return domain.ErrNoteNotFound
		}
		if err := note.MarkSpent(txID); err != nil {
			return err
		}
		r.notes[key] = note
	}
	return nil
}

func (r *noteRepoFake) ConfirmNote(
	_ context.Context, key domain.NoteKey, minedHeight uint32,
) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	note, ok := r.notes[key]
	if !ok {
		return domain.ErrNoteNotFound
	}
	note.MinedHeight = minedHeight
	r.notes[key] = note
	return nil
}

type proposalRepoFake struct {
	mtx       sync.Mutex
	proposals map[uuid.UUID]domain.Proposal
}

func newProposalRepoFake() *proposalRepoFake {
	return &proposalRepoFake{proposals: map[uuid.UUID]domain.Proposal{}}
}

func (r *proposalRepoFake) AddProposal(_ context.Context, proposal *domain.Proposal) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.proposals[proposal.ID] = *proposal
	return nil
}

func (r *proposalRepoFake) GetProposalByID(
	_ context.Context, id uuid.UUID,
) (*domain.Proposal, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	proposal, ok := r.proposals[id]
	if !ok {
		return nil, domain.ErrProposalNotFound
	}
	return &proposal, nil
}

func (r *proposalRepoFake) GetPendingProposals(_ context.Context) ([]domain.Proposal, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	pending := make([]domain.Proposal, 0)
	for _, p := range r.proposals {
		if p.Status == domain.ProposalPending {
			pending = append(pending, p)
		}
	}
	return pending, nil
}

func (r *proposalRepoFake) UpdateProposal(
	_ context.Context, id uuid.UUID,
	updateFn func(p *domain.Proposal) (*domain.Proposal, error),
) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	proposal, ok := r.proposals[id]
	if !ok {
		return domain.ErrProposalNotFound
	}
	updated, err := updateFn(&proposal)
	if err != nil {
		return err
	}
	r.proposals[id] = *updated
	return nil
}

type chainSourceFake struct {
	mtx         sync.Mutex
	tip         ports.ChainTip
	broadcasted [][]byte
}

func (c *chainSourceFake) GetChainTip(_ context.Context) (*ports.ChainTip, error) {
	tip := c.tip
	return &tip, nil
}

func (c *chainSourceFake) GetTxConfirmations(_ context.Context, _ string) (uint32, error) {
	return 0, nil
}

func (c *chainSourceFake) BroadcastTransaction(_ context.Context, rawTx []byte) (string, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.broadcasted = append(c.broadcasted, rawTx)
	return fmt.Sprintf("txid-%d", len(c.broadcasted)), nil
}

type proverFake struct {
	calls int
}

func (p *proverFake) CreateProofs(_ context.Context, container *pczt.Pczt) error {
	p.calls++
	if len(container.Orchard.Actions) > 0 {
		container.Orchard.ZkProof = []byte("proof")
	}
	return nil
}

// testEnv wires the application services over in-memory fakes and a real
// keystore holding the test mnemonic.
type testEnv struct {
	accountRepo  *accountRepoFake
	noteRepo     *noteRepoFake
	proposalRepo *proposalRepoFake
	keyStore     *keystore.KeyStore
	chain        *chainSourceFake
	prover       *proverFake

	transferSvc application.TransferService
	accountSvc  application.AccountService

	fingerprint keys.SeedFingerprint
	accountKey  *keys.AccountKey
	account     *domain.Account

	noteCounter uint32
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := boltsecurestore.NewSecureStorage(t.TempDir(), "keystore.db")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ks, err := keystore.New(store)
	require.NoError(t, err)
	require.NoError(t, ks.Unlock([]byte("pass"), 0))

	fp, err := ks.ImportMnemonic(testMnemonic)
	require.NoError(t, err)

	seed := bip39.NewSeed(testMnemonic, "")
	accountKey, err := keys.NewAccountKey(seed, 0)
	require.NoError(t, err)
	t.Cleanup(accountKey.Zeroize)

	env := &testEnv{
		accountRepo:  newAccountRepoFake(),
		noteRepo:     newNoteRepoFake(),
		proposalRepo: newProposalRepoFake(),
		keyStore:     ks,
		chain:        &chainSourceFake{tip: ports.ChainTip{Height: 1000, ConsensusBranchID: 0xc2d6d0b4}},
		prover:       &proverFake{},
		fingerprint:  fp,
		accountKey:   accountKey,
	}

	account, err := domain.NewAccount("main", fp, 0, 100)
	require.NoError(t, err)
	require.NoError(t, env.accountRepo.AddAccount(context.Background(), account))
	env.account = account

	spendPolicy := domain.SpendPolicy{
		MinConfirmations:          3,
		UntrustedMinConfirmations: 10,
	}
	env.transferSvc = application.NewTransferService(
		env.accountRepo, env.noteRepo, env.proposalRepo, ks, env.chain, env.prover,
		application.TransferConfig{
			SpendPolicy:    spendPolicy,
			ActionLimits:   application.DefaultActionLimits,
			ReservationTTL: time.Minute,
			ExpiryDelta:    40,
		},
	)
	env.accountSvc = application.NewAccountService(
		env.accountRepo, env.noteRepo, ks, env.chain, spendPolicy,
	)
	return env
}

func mustEncode(t *testing.T, payload []byte) string {
	t.Helper()
	return base64.StdEncoding.EncodeToString(payload)
}

func (e *testEnv) nextTxID() string {
	e.noteCounter++
	return fmt.Sprintf("%064x", e.noteCounter)
}

func (e *testEnv) addShieldedNote(
	t *testing.T, pool domain.Pool, value uint64, minedHeight uint32,
) domain.Note {
	t.Helper()
	note := domain.Note{
		TxID:        e.nextTxID(),
		OutputIndex: 0,
		Pool:        pool,
		AccountID:   e.account.ID,
		Value:       value,
		Trusted:     true,
		MinedHeight: minedHeight,
	}
	require.NoError(t, e.noteRepo.AddNotes(context.Background(), []domain.Note{note}))
	return note
}

func (e *testEnv) addTransparentNote(
	t *testing.T, value uint64, addressIndex uint32, minedHeight uint32,
) domain.Note {
	t.Helper()
	addr, err := e.accountKey.TransparentAddress(keys.ScopeExternal, addressIndex)
	require.NoError(t, err)
	note := domain.Note{
		TxID:         e.nextTxID(),
		OutputIndex:  1,
		Pool:         domain.PoolTransparent,
		AccountID:    e.account.ID,
		Value:        value,
		Address:      addr,
		Scope:        keys.ScopeExternal,
		AddressIndex: addressIndex,
		Trusted:      true,
		MinedHeight:  minedHeight,
	}
	require.NoError(t, e.noteRepo.AddNotes(context.Background(), []domain.Note{note}))
	return note
}

func (e *testEnv) orchardAddress(t *testing.T, diversifier uint32) string {
	t.Helper()
	addr, err := e.accountKey.OrchardAddress(diversifier)
	require.NoError(t, err)
	return addr
}

func (e *testEnv) transparentAddress(t *testing.T, addressIndex uint32) string {
	t.Helper()
	addr, err := e.accountKey.TransparentAddress(keys.ScopeExternal, addressIndex)
	require.NoError(t, err)
	return addr
}
