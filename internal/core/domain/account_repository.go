package domain

import (
	"context"

	"github.com/google/uuid"
)

// AccountRepository is the persistence boundary of wallet accounts.
type AccountRepository interface {
	AddAccount(ctx context.Context, account *Account) error
	GetAccountByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetAccountByName(ctx context.Context, name string) (*Account, error)
	GetAllAccounts(ctx context.Context) ([]Account, error)
	UpdateAccount(
		ctx context.Context,
		id uuid.UUID,
		updateFn func(a *Account) (*Account, error),
	) error
	DeleteAccount(ctx context.Context, id uuid.UUID) error
}
