package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProposalStatus tracks a funding proposal through its lifecycle.
type ProposalStatus int

const (
	// ProposalPending holds reserved notes and awaits signatures.
	ProposalPending ProposalStatus = iota
	// ProposalCompleted was extracted and broadcast; its notes are spent.
	ProposalCompleted
	// ProposalAborted released its reservations without spending.
	ProposalAborted
)

func (s ProposalStatus) String() string {
	switch s {
	case ProposalPending:
		return "pending"
	case ProposalCompleted:
		return "completed"
	case ProposalAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Proposal is a funded transfer awaiting signatures. It owns the reservation
// of the notes funding it and carries the serialized container handed to
// signers.
type Proposal struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	// Payload is the serialized partially created transaction.
	Payload []byte
	// NoteKeys are the notes reserved for this proposal.
	NoteKeys []NoteKey
	Fee      uint64
	Policy   PrivacyPolicy
	Status   ProposalStatus
	// ExpiresAt bounds how long the reservation holds if the proposal is
	// neither completed nor aborted.
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewProposal returns a pending proposal reserving the given notes.
func NewProposal(
	accountID uuid.UUID,
	payload []byte,
	noteKeys []NoteKey,
	fee uint64,
	policy PrivacyPolicy,
	expiresAt time.Time,
) *Proposal {
	return &Proposal{
		ID:        uuid.New(),
		AccountID: accountID,
		Payload:   payload,
		NoteKeys:  noteKeys,
		Fee:       fee,
		Policy:    policy,
		Status:    ProposalPending,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
}

// IsExpired reports whether the proposal's reservation has lapsed.
func (p *Proposal) IsExpired(now time.Time) bool {
	return p.Status == ProposalPending &&
		!p.ExpiresAt.IsZero() && now.After(p.ExpiresAt)
}

// Complete marks the proposal as broadcast.
func (p *Proposal) Complete() {
	p.Status = ProposalCompleted
}

// Abort marks the proposal as abandoned.
func (p *Proposal) Abort() {
	p.Status = ProposalAborted
}
