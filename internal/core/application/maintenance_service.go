package application

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zwallet-network/zwallet-daemon/internal/core/domain"
	"github.com/zwallet-network/zwallet-daemon/internal/core/ports"
	"github.com/zwallet-network/zwallet-daemon/pkg/keystore"
	"github.com/zwallet-network/zwallet-daemon/pkg/zip317"
)

// MaintenanceConfig tunes the background wallet upkeep.
type MaintenanceConfig struct {
	Interval time.Duration
	// TargetNoteCount is the number of spendable shielded notes an account
	// should hold so that several transfers can be funded in parallel.
	TargetNoteCount int
	// MinSplitValue is the smallest note the splitting pass will produce.
	MinSplitValue uint64
}

// MaintenanceService keeps the note set healthy: it releases lapsed
// reservations and splits large notes so accounts keep enough spendable
// notes to fund concurrent transfers.
type MaintenanceService interface {
	// ReleaseExpired releases every lapsed reservation and aborts the
	// proposals holding them. It returns the number of notes released.
	ReleaseExpired(ctx context.Context) (int, error)
	// SplitNotes proposes a self-transfer breaking the account's largest
	// note into smaller ones. It returns nil when no split is needed.
	SplitNotes(ctx context.Context, accountRef string) (*domain.Proposal, error)
	// Run blocks, performing upkeep on every account at the configured
	// interval until the context is canceled.
	Run(ctx context.Context)
}

type maintenanceService struct {
	accountRepo     domain.AccountRepository
	noteRepo        domain.NoteRepository
	proposalRepo    domain.ProposalRepository
	transferService TransferService
	accountService  AccountService
	chainSource     ports.ChainSource
	spendPolicy     domain.SpendPolicy
	config          MaintenanceConfig
}

// NewMaintenanceService wires the upkeep loop over its dependencies.
func NewMaintenanceService(
	accountRepo domain.AccountRepository,
	noteRepo domain.NoteRepository,
	proposalRepo domain.ProposalRepository,
	transferService TransferService,
	accountService AccountService,
	chainSource ports.ChainSource,
	spendPolicy domain.SpendPolicy,
	config MaintenanceConfig,
) MaintenanceService {
	return &maintenanceService{
		accountRepo:     accountRepo,
		noteRepo:        noteRepo,
		proposalRepo:    proposalRepo,
		transferService: transferService,
		accountService:  accountService,
		chainSource:     chainSource,
		spendPolicy:     spendPolicy.Normalize(),
		config:          config,
	}
}

func (s *maintenanceService) ReleaseExpired(ctx context.Context) (int, error) {
	released, err := s.noteRepo.UnlockExpiredReservations(ctx)
	if err != nil {
		return 0, err
	}

	proposals, err := s.proposalRepo.GetPendingProposals(ctx)
	if err != nil {
		return released, err
	}
	now := time.Now()
	for _, proposal := range proposals {
		if !proposal.IsExpired(now) {
			continue
		}
		if err := s.proposalRepo.UpdateProposal(
			ctx, proposal.ID,
			func(p *domain.Proposal) (*domain.Proposal, error) {
				p.Abort()
				return p, nil
			},
		); err != nil {
			return released, err
		}
		log.Infof("aborted expired proposal %s", proposal.ID)
	}

	if released > 0 {
		log.Infof("released %d expired note reservations", released)
	}
	return released, nil
}

func (s *maintenanceService) SplitNotes(
	ctx context.Context, accountRef string,
) (*domain.Proposal, error) {
	account, err := s.accountService.GetAccount(ctx, accountRef)
	if err != nil {
		return nil, err
	}
	tip, err := s.chainSource.GetChainTip(ctx)
	if err != nil {
		return nil, err
	}
	notes, err := s.noteRepo.GetSpendableNotesForAccount(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var (
		shieldedCount int
		largest       *domain.Note
	)
	for i := range notes {
		n := &notes[i]
		if !n.Pool.IsShielded() || !s.spendPolicy.IsSpendable(n, tip.Height, now) {
			continue
		}
		shieldedCount++
		if largest == nil || n.Value > largest.Value {
			largest = n
		}
	}

	missing := s.config.TargetNoteCount - shieldedCount
	if missing <= 0 || largest == nil {
		return nil, nil
	}
	// Splitting must leave every piece worth at least MinSplitValue after
	// the fee; otherwise the account is simply low on funds, not on notes.
	pieces := missing + 1
	fee := zip317.Fee(zip317.TxShape{OrchardActions: uint64(pieces + 1)})
	if largest.Value < fee+s.config.MinSplitValue*uint64(pieces) {
		return nil, nil
	}

	pieceValue := (largest.Value - fee) / uint64(pieces)
	recipients := make([]Recipient, 0, missing)
	for i := 0; i < missing; i++ {
		addr, err := s.accountService.NewShieldedAddress(
			ctx, account.ID.String(), []domain.Pool{largest.Pool}, nil,
		)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, Recipient{Address: addr, Amount: pieceValue})
	}

	proposal, err := s.transferService.ProposeTransfer(
		ctx, account.ID.String(), recipients, domain.FullPrivacy,
	)
	if err != nil {
		return nil, err
	}
	log.Infof(
		"account %s: splitting note of %d zatoshi into %d pieces",
		account.Name, largest.Value, pieces,
	)
	return proposal, nil
}

func (s *maintenanceService) Run(ctx context.Context) {
	interval := s.config.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *maintenanceService) tick(ctx context.Context) {
	if _, err := s.ReleaseExpired(ctx); err != nil {
		log.WithError(err).Warn("could not release expired reservations")
	}

	accounts, err := s.accountRepo.GetAllAccounts(ctx)
	if err != nil {
		log.WithError(err).Warn("could not list accounts for upkeep")
		return
	}
	for _, account := range accounts {
		if _, err := s.SplitNotes(ctx, account.ID.String()); err != nil {
			// A locked keystore is routine: splitting resumes on unlock.
			if errors.Is(err, keystore.ErrWalletLocked) {
				continue
			}
			log.WithError(err).Warnf("could not split notes for account %s", account.Name)
		}
	}
}
