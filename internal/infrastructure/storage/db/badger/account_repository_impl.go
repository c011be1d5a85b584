package dbbadger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/timshannon/badgerhold/v4"

	"github.com/zwallet-network/zwallet-daemon/internal/core/domain"
)

type accountRepositoryImpl struct {
	db *DbManager
}

// NewAccountRepositoryImpl returns a badger backed AccountRepository.
func NewAccountRepositoryImpl(db *DbManager) domain.AccountRepository {
	return accountRepositoryImpl{db: db}
}

func (r accountRepositoryImpl) AddAccount(
	_ context.Context, account *domain.Account,
) error {
	if err := r.db.Store.Insert(account.ID.String(), *account); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return domain.ErrAccountAlreadyExists
		}
		return err
	}
	return nil
}

func (r accountRepositoryImpl) GetAccountByID(
	_ context.Context, id uuid.UUID,
) (*domain.Account, error) {
	var account domain.Account
	if err := r.db.Store.Get(id.String(), &account); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r accountRepositoryImpl) GetAccountByName(
	_ context.Context, name string,
) (*domain.Account, error) {
	var accounts []domain.Account
	if err := r.db.Store.Find(
		&accounts, badgerhold.Where("Name").Eq(name),
	); err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, domain.ErrAccountNotFound
	}
	return &accounts[0], nil
}

func (r accountRepositoryImpl) GetAllAccounts(
	_ context.Context,
) ([]domain.Account, error) {
	var accounts []domain.Account
	if err := r.db.Store.Find(&accounts, &badgerhold.Query{}); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r accountRepositoryImpl) UpdateAccount(
	ctx context.Context,
	id uuid.UUID,
	updateFn func(a *domain.Account) (*domain.Account, error),
) error {
	account, err := r.GetAccountByID(ctx, id)
	if err != nil {
		return err
	}
	updated, err := updateFn(account)
	if err != nil {
		return err
	}
	return r.db.Store.Update(id.String(), *updated)
}

func (r accountRepositoryImpl) DeleteAccount(
	_ context.Context, id uuid.UUID,
) error {
	if err := r.db.Store.Delete(id.String(), domain.Account{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return domain.ErrAccountNotFound
		}
		return err
	}
	return nil
}
