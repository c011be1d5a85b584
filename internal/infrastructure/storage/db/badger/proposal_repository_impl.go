package dbbadger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/timshannon/badgerhold/v4"

	"github.com/zwallet-network/zwallet-daemon/internal/core/domain"
)

type proposalRepositoryImpl struct {
	db *DbManager
}

// NewProposalRepositoryImpl returns a badger backed ProposalRepository.
func NewProposalRepositoryImpl(db *DbManager) domain.ProposalRepository {
	return proposalRepositoryImpl{db: db}
}

func (r proposalRepositoryImpl) AddProposal(
	_ context.Context, proposal *domain.Proposal,
) error {
	return r.db.Store.Insert(proposal.ID.String(), *proposal)
}

func (r proposalRepositoryImpl) GetProposalByID(
	_ context.Context, id uuid.UUID,
) (*domain.Proposal, error) {
	var proposal domain.Proposal
	if err := r.db.Store.Get(id.String(), &proposal); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrProposalNotFound
		}
		return nil, err
	}
	return &proposal, nil
}

func (r proposalRepositoryImpl) GetPendingProposals(
	_ context.Context,
) ([]domain.Proposal, error) {
	var proposals []domain.Proposal
	if err := r.db.Store.Find(
		&proposals, badgerhold.Where("Status").Eq(domain.ProposalPending),
	); err != nil {
		return nil, err
	}
	return proposals, nil
}

func (r proposalRepositoryImpl) UpdateProposal(
	ctx context.Context,
	id uuid.UUID,
	updateFn func(p *domain.Proposal) (*domain.Proposal, error),
) error {
	proposal, err := r.GetProposalByID(ctx, id)
	if err != nil {
		return err
	}
	updated, err := updateFn(proposal)
	if err != nil {
		return err
	}
	return r.db.Store.Update(id.String(), *updated)
}
