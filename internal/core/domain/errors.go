package domain

import "errors"

var (
	// ErrAccountNotFound ...
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountAlreadyExists ...
	ErrAccountAlreadyExists = errors.New("account already exists")
	// ErrInvalidAccountName ...
	ErrInvalidAccountName = errors.New("account name must not be empty")
	// ErrNoteNotFound ...
	ErrNoteNotFound = errors.New("note not found")
	// ErrNoteAlreadySpent is thrown when trying to spend or reserve a note
	// that is already spent.
	ErrNoteAlreadySpent = errors.New("note is already spent")
	// ErrNoteLocked is thrown when trying to reserve a note that another
	// proposal holds.
	ErrNoteLocked = errors.New("note is reserved by another proposal")
	// ErrProposalNotFound ...
	ErrProposalNotFound = errors.New("proposal not found")
	// ErrProposalNotPending is thrown when acting on a proposal that was
	// already completed or aborted.
	ErrProposalNotPending = errors.New("proposal is not pending")
	// ErrInvalidPool ...
	ErrInvalidPool = errors.New("unknown value pool")
	// ErrNoDefaultReceiverTypes is thrown when an address is requested with
	// no receiver types at a diversifier index whose original address was
	// generated for a different receiver set; the request is ambiguous.
	ErrNoDefaultReceiverTypes = errors.New(
		"no default receiver types for previously used diversifier index",
	)
	// ErrInvalidPrivacyPolicy ...
	ErrInvalidPrivacyPolicy = errors.New("unknown privacy policy")
)
