package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/zwallet-network/zwallet-daemon/internal/core/domain"
	"github.com/zwallet-network/zwallet-daemon/internal/core/ports"
	"github.com/zwallet-network/zwallet-daemon/pkg/keys"
	"github.com/zwallet-network/zwallet-daemon/pkg/keystore"
)

// AccountService manages wallet accounts and their addresses.
type AccountService interface {
	// CreateAccount derives a new account from an imported seed. The
	// keystore must be unlocked so the derivation can be verified.
	CreateAccount(
		ctx context.Context,
		name string,
		seedFingerprint keys.SeedFingerprint,
		accountIndex uint32,
	) (*domain.Account, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	// GetAccount resolves an account by UUID or, failing that, by name.
	GetAccount(ctx context.Context, ref string) (*domain.Account, error)
	// NewTransparentAddress hands out the next unused transparent receiving
	// address of the account.
	NewTransparentAddress(ctx context.Context, ref string) (string, error)
	// NewShieldedAddress generates a diversified address of the account for
	// the given receiver set; an empty set means the default receivers.
	// Without a requested index and without a transparent receiver the
	// diversifier index is seeded from the current time, so concurrent
	// generators for the same account do not collide. A transparent
	// receiver forces sequential allocation to stay within the scan gap
	// limit. Generated addresses are persisted on the account.
	NewShieldedAddress(
		ctx context.Context,
		ref string,
		receivers []domain.Pool,
		requestedIndex *uint32,
	) (string, error)
	// GetBalance returns the account's per-pool balance at the current
	// chain tip.
	GetBalance(ctx context.Context, ref string) (map[domain.Pool]Balance, error)
}

type accountService struct {
	accountRepo domain.AccountRepository
	noteRepo    domain.NoteRepository
	keyStore    *keystore.KeyStore
	chainSource ports.ChainSource
	spendPolicy domain.SpendPolicy
}

// NewAccountService returns an AccountService over the given repositories.
func NewAccountService(
	accountRepo domain.AccountRepository,
	noteRepo domain.NoteRepository,
	keyStore *keystore.KeyStore,
	chainSource ports.ChainSource,
	spendPolicy domain.SpendPolicy,
) AccountService {
	return &accountService{
		accountRepo: accountRepo,
		noteRepo:    noteRepo,
		keyStore:    keyStore,
		chainSource: chainSource,
		spendPolicy: spendPolicy.Normalize(),
	}
}

func (s *accountService) CreateAccount(
	ctx context.Context,
	name string,
	seedFingerprint keys.SeedFingerprint,
	accountIndex uint32,
) (*domain.Account, error) {
	// Deriving the account key up front both verifies the seed is held by
	// the keystore and fails fast on an underivable index.
	seed, err := s.keyStore.DecryptSeed(ctx, seedFingerprint)
	if err != nil {
		return nil, err
	}
	defer seed.Zeroize()

	accountKey, err := keys.NewAccountKey(seed.Bytes(), accountIndex)
	if err != nil {
		return nil, err
	}
	accountKey.Zeroize()

	tip, err := s.chainSource.GetChainTip(ctx)
	if err != nil {
		return nil, err
	}

	account, err := domain.NewAccount(name, seedFingerprint, accountIndex, tip.Height)
	if err != nil {
		return nil, err
	}
	if _, err := s.accountRepo.GetAccountByName(ctx, name); err == nil {
		return nil, domain.ErrAccountAlreadyExists
	}
	if err := s.accountRepo.AddAccount(ctx, account); err != nil {
		return nil, err
	}

	log.Infof(
		"created account %s (%s, index %d, birthday %d)",
		account.Name, account.ID, accountIndex, account.BirthdayHeight,
	)
	return account, nil
}

func (s *accountService) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	return s.accountRepo.GetAllAccounts(ctx)
}

func (s *accountService) GetAccount(
	ctx context.Context, ref string,
) (*domain.Account, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return s.accountRepo.GetAccountByID(ctx, id)
	}
	return s.accountRepo.GetAccountByName(ctx, ref)
}

func (s *accountService) NewTransparentAddress(
	ctx context.Context, ref string,
) (string, error) {
	account, err := s.GetAccount(ctx, ref)
	if err != nil {
		return "", err
	}

	accountKey, err := s.accountKey(ctx, account)
	if err != nil {
		return "", err
	}
	defer accountKey.Zeroize()

	var addr string
	if err := s.accountRepo.UpdateAccount(
		ctx, account.ID,
		func(a *domain.Account) (*domain.Account, error) {
			index := a.NextAddressIndex(keys.ScopeExternal)
			var derr error
			addr, derr = accountKey.TransparentAddress(keys.ScopeExternal, index)
			return a, derr
		},
	); err != nil {
		return "", err
	}
	return addr, nil
}

func (s *accountService) NewShieldedAddress(
	ctx context.Context,
	ref string,
	receivers []domain.Pool,
	requestedIndex *uint32,
) (string, error) {
	useDefault := len(receivers) == 0
	if useDefault {
		receivers = domain.DefaultReceivers()
	}
	pool, hasTransparent, err := shieldedReceiver(receivers)
	if err != nil {
		return "", err
	}

	account, err := s.GetAccount(ctx, ref)
	if err != nil {
		return "", err
	}

	accountKey, err := s.accountKey(ctx, account)
	if err != nil {
		return "", err
	}
	defer accountKey.Zeroize()

	var addr string
	if err := s.accountRepo.UpdateAccount(
		ctx, account.ID,
		func(a *domain.Account) (*domain.Account, error) {
			var index uint32
			switch {
			case requestedIndex != nil:
				index = *requestedIndex
			case hasTransparent:
				index = a.NextDiversifier()
			default:
				// Seeding the index from the clock keeps concurrent
				// generators for the same account from colliding.
				index = a.FreeDiversifierFrom(uint32(time.Now().Unix()))
			}

			if prior, ok := a.AddressAt(index); ok {
				if prior.HasReceivers(receivers) {
					addr = prior.Address
					return a, nil
				}
				if useDefault {
					return nil, domain.ErrNoDefaultReceiverTypes
				}
			}

			var derr error
			if pool == domain.PoolSapling {
				addr, derr = accountKey.SaplingAddress(index)
			} else {
				addr, derr = accountKey.OrchardAddress(index)
			}
			if derr != nil {
				return nil, derr
			}
			a.RecordAddress(domain.AddressRecord{
				Address:          addr,
				Receivers:        receivers,
				DiversifierIndex: index,
				CreatedAt:        time.Now(),
			})
			return a, nil
		},
	); err != nil {
		return "", err
	}
	return addr, nil
}

// shieldedReceiver picks the pool the rendered address encodes: the most
// private shielded receiver of the set. Unified encodings are recognized on
// input but never generated.
func shieldedReceiver(
	receivers []domain.Pool,
) (pool domain.Pool, hasTransparent bool, err error) {
	var hasSapling, hasOrchard bool
	for _, p := range receivers {
		switch p {
		case domain.PoolTransparent:
			hasTransparent = true
		case domain.PoolSapling:
			hasSapling = true
		case domain.PoolOrchard:
			hasOrchard = true
		default:
			return 0, false, domain.ErrInvalidPool
		}
	}
	switch {
	case hasOrchard:
		return domain.PoolOrchard, hasTransparent, nil
	case hasSapling:
		return domain.PoolSapling, hasTransparent, nil
	}
	return 0, false, domain.ErrInvalidPool
}

func (s *accountService) GetBalance(
	ctx context.Context, ref string,
) (map[domain.Pool]Balance, error) {
	account, err := s.GetAccount(ctx, ref)
	if err != nil {
		return nil, err
	}
	tip, err := s.chainSource.GetChainTip(ctx)
	if err != nil {
		return nil, err
	}
	notes, err := s.noteRepo.GetNotesForAccount(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	balances := map[domain.Pool]Balance{}
	for _, n := range notes {
		if n.Spent {
			continue
		}
		b := balances[n.Pool]
		switch {
		case n.IsReserved(now):
			b.Reserved += n.Value
		case s.spendPolicy.IsSpendable(&n, tip.Height, now):
			b.Spendable += n.Value
		default:
			b.Pending += n.Value
		}
		balances[n.Pool] = b
	}
	return balances, nil
}

// accountKey re-derives the spending key of an account from its stored seed.
func (s *accountService) accountKey(
	ctx context.Context, account *domain.Account,
) (*keys.AccountKey, error) {
	seed, err := s.keyStore.DecryptSeed(ctx, account.SeedFingerprint)
	if err != nil {
		return nil, err
	}
	defer seed.Zeroize()
	return keys.NewAccountKey(seed.Bytes(), account.AccountIndex)
}
