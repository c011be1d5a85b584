package domain

import (
	"context"

	"github.com/google/uuid"
)

// ProposalRepository is the persistence boundary of funding proposals.
type ProposalRepository interface {
	AddProposal(ctx context.Context, proposal *Proposal) error
	GetProposalByID(ctx context.Context, id uuid.UUID) (*Proposal, error)
	GetPendingProposals(ctx context.Context) ([]Proposal, error)
	UpdateProposal(
		ctx context.Context,
		id uuid.UUID,
		updateFn func(p *Proposal) (*Proposal, error),
	) error
}
