package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zwallet-network/zwallet-daemon/internal/core/domain"
	"github.com/zwallet-network/zwallet-daemon/pkg/keys"
)

func TestNewAccount(t *testing.T) {
	t.Parallel()

	var fp keys.SeedFingerprint
	fp[0] = 0x01

	account, err := domain.NewAccount("savings", fp, 0, 2_000_000)
	require.NoError(t, err)
	require.NotEqual(t, "", account.ID.String())
	require.Equal(t, "savings", account.Name)
	require.Equal(t, fp, account.SeedFingerprint)
	require.Equal(t, uint32(2_000_000), account.BirthdayHeight)

	_, err = domain.NewAccount("", fp, 0, 0)
	require.ErrorIs(t, err, domain.ErrInvalidAccountName)
}

func TestAccountNextAddressIndex(t *testing.T) {
	t.Parallel()

	var fp keys.SeedFingerprint
	account, err := domain.NewAccount("test", fp, 0, 0)
	require.NoError(t, err)

	require.Equal(t, uint32(0), account.NextAddressIndex(keys.ScopeExternal))
	require.Equal(t, uint32(1), account.NextAddressIndex(keys.ScopeExternal))

	// Scopes advance independently.
	require.Equal(t, uint32(0), account.NextAddressIndex(keys.ScopeInternal))
	require.Equal(t, uint32(0), account.NextAddressIndex(keys.ScopeEphemeral))
	require.Equal(t, uint32(2), account.NextAddressIndex(keys.ScopeExternal))

	require.Equal(t, uint32(0), account.NextDiversifier())
	require.Equal(t, uint32(1), account.NextDiversifier())
}

func TestAccountAddressRecords(t *testing.T) {
	t.Parallel()

	var fp keys.SeedFingerprint
	account, err := domain.NewAccount("test", fp, 0, 0)
	require.NoError(t, err)

	_, ok := account.AddressAt(4)
	require.False(t, ok)

	account.RecordAddress(domain.AddressRecord{
		Address:          "uo1generated",
		Receivers:        domain.DefaultReceivers(),
		DiversifierIndex: 4,
	})

	rec, ok := account.AddressAt(4)
	require.True(t, ok)
	require.Equal(t, "uo1generated", rec.Address)
	require.True(t, rec.HasReceivers([]domain.Pool{domain.PoolOrchard}))
	require.False(t, rec.HasReceivers([]domain.Pool{domain.PoolSapling}))
	require.False(t, rec.HasReceivers(
		[]domain.Pool{domain.PoolOrchard, domain.PoolSapling},
	))

	// Occupied indexes are skipped when probing from a seed.
	require.Equal(t, uint32(3), account.FreeDiversifierFrom(3))
	require.Equal(t, uint32(5), account.FreeDiversifierFrom(4))
}
