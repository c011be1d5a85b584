package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/zwallet-network/zwallet-daemon/pkg/keys"
)

// NoteKey is the ID of a note, composed by the txid and output index of the
// transaction output that created it, qualified by its pool.
type NoteKey struct {
	TxID        string
	OutputIndex uint32
	Pool        Pool
}

// Note is a spendable value record held by an account: a transparent UTXO or
// a shielded note, together with its funding metadata and reservation state.
type Note struct {
	TxID        string
	OutputIndex uint32
	Pool        Pool
	AccountID   uuid.UUID
	Value       uint64
	Address     string

	// Scope and AddressIndex locate the transparent key the note is locked
	// to. They are meaningless for shielded notes.
	Scope        keys.Scope
	AddressIndex uint32

	// Trusted marks notes whose sender is this wallet: change and
	// self-transfers. Untrusted notes come from third parties and are held
	// to a stricter confirmation bar.
	Trusted bool

	// MinedHeight is the height of the block containing the note, or 0
	// while it sits in the mempool.
	MinedHeight uint32

	Spent      bool
	SpentByTx  string
	Locked     bool
	LockedBy   *uuid.UUID
	LockExpiry time.Time
}

// Key returns the note's ID.
func (n *Note) Key() NoteKey {
	return NoteKey{TxID: n.TxID, OutputIndex: n.OutputIndex, Pool: n.Pool}
}

// Confirmations returns the number of confirmations at the given tip height,
// 0 for mempool notes.
func (n *Note) Confirmations(tipHeight uint32) uint32 {
	if n.MinedHeight == 0 || n.MinedHeight > tipHeight {
		return 0
	}
	return tipHeight - n.MinedHeight + 1
}

// IsReserved reports whether the note is held by a live reservation at the
// given instant. Expired reservations do not count.
func (n *Note) IsReserved(now time.Time) bool {
	if !n.Locked {
		return false
	}
	if !n.LockExpiry.IsZero() && now.After(n.LockExpiry) {
		return false
	}
	return true
}

// Lock reserves the note for the given proposal until expiry.
func (n *Note) Lock(proposalID uuid.UUID, expiry time.Time) error {
	if n.Spent {
		return ErrNoteAlreadySpent
	}
	if n.IsReserved(time.Now()) && *n.LockedBy != proposalID {
		return ErrNoteLocked
	}
	n.Locked = true
	n.LockedBy = &proposalID
	n.LockExpiry = expiry
	return nil
}

// Unlock releases the note's reservation.
func (n *Note) Unlock() {
	n.Locked = false
	n.LockedBy = nil
	n.LockExpiry = time.Time{}
}

// MarkSpent marks the note as consumed by the given transaction.
func (n *Note) MarkSpent(txID string) error {
	if n.Spent {
		return ErrNoteAlreadySpent
	}
	n.Spent = true
	n.SpentByTx = txID
	n.Unlock()
	return nil
}
