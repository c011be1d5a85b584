package roles_test

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/stretchr/testify/require"

	"github.com/zwallet-network/zwallet-daemon/pkg/keys"
	"github.com/zwallet-network/zwallet-daemon/pkg/pczt"
	"github.com/zwallet-network/zwallet-daemon/pkg/pczt/roles"
)

var testSeed = func() []byte {
	seed := make([]byte, 64)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	return seed
}()

func newFundedContainer(t *testing.T, account *keys.AccountKey) *pczt.Pczt {
	t.Helper()

	p := pczt.NewPczt(0xc2d6d0b4, 2_500_000)

	script, err := account.TransparentScript(keys.ScopeExternal, 7)
	require.NoError(t, err)

	in := pczt.TransparentInput{
		PrevoutIndex: 1,
		Value:        100_000,
		ScriptPubKey: script,
		SighashType:  pczt.SighashAll,
	}
	in.PrevoutTxID[0] = 0xaa
	pczt.SetInputHints(&in, pczt.InputHints{
		Scope:        keys.ScopeExternal,
		AddressIndex: 7,
	})
	p.Transparent.Inputs = append(p.Transparent.Inputs, in)
	p.Transparent.Outputs = append(p.Transparent.Outputs, pczt.TransparentOutput{
		Value:        90_000,
		ScriptPubKey: script,
	})

	alpha := [32]byte{0x11, 0x22}
	randomized := keys.RandomizeKey(account.SaplingSpendAuthKey(), alpha)
	spend := pczt.SaplingSpend{Alpha: &alpha}
	copy(spend.Rk[:], schnorr.SerializePubKey(randomized.PubKey()))
	spend.Nullifier[0] = 0x01
	p.Sapling.Spends = append(p.Sapling.Spends, spend)

	orchardAlpha := [32]byte{0x33, 0x44}
	orchardRandomized := keys.RandomizeKey(account.OrchardSpendAuthKey(), orchardAlpha)
	value := uint64(50_000)
	action := pczt.OrchardAction{
		Spend: pczt.OrchardSpend{Alpha: &orchardAlpha, Value: &value},
	}
	copy(action.Spend.Rk[:], schnorr.SerializePubKey(orchardRandomized.PubKey()))
	action.Spend.Nullifier[0] = 0x02
	p.Orchard.Actions = append(p.Orchard.Actions, action)

	dummyValue := uint64(0)
	dummy := pczt.OrchardAction{
		Spend: pczt.OrchardSpend{Value: &dummyValue},
	}
	p.Orchard.Actions = append(p.Orchard.Actions, dummy)

	pczt.SetGlobalHints(p, pczt.GlobalHints{AccountIndex: account.AccountIndex()})
	return p
}

func signAll(t *testing.T, p *pczt.Pczt, account *keys.AccountKey) {
	t.Helper()

	signer, err := roles.NewSigner(p)
	require.NoError(t, err)

	sk, err := account.TransparentKey(keys.ScopeExternal, 7)
	require.NoError(t, err)
	require.NoError(t, signer.SignTransparent(0, sk))
	require.NoError(t, signer.SignSapling(0, account.SaplingSpendAuthKey()))
	for i := range p.Orchard.Actions {
		require.NoError(t, signer.SignOrchard(i, account.OrchardSpendAuthKey()))
	}
}

func TestSignerRequiresFundedContainer(t *testing.T) {
	t.Parallel()

	_, err := roles.NewSigner(pczt.NewPczt(0xc2d6d0b4, 2_500_000))
	require.ErrorIs(t, err, roles.ErrNotFunded)
}

func TestSignTransparent(t *testing.T) {
	t.Parallel()

	account, err := keys.NewAccountKey(testSeed, 0)
	require.NoError(t, err)
	p := newFundedContainer(t, account)

	signer, err := roles.NewSigner(p)
	require.NoError(t, err)

	sk, err := account.TransparentKey(keys.ScopeExternal, 7)
	require.NoError(t, err)
	require.NoError(t, signer.SignTransparent(0, sk))
	require.Len(t, p.Transparent.Inputs[0].PartialSignatures, 1)

	for _, sig := range p.Transparent.Inputs[0].PartialSignatures {
		require.Equal(t, pczt.SighashAll, sig[len(sig)-1])
	}

	// Signing again with the same key contributes nothing new.
	require.NoError(t, signer.SignTransparent(0, sk))
	require.Len(t, p.Transparent.Inputs[0].PartialSignatures, 1)
}

func TestSignTransparentWrongKey(t *testing.T) {
	t.Parallel()

	account, err := keys.NewAccountKey(testSeed, 0)
	require.NoError(t, err)
	p := newFundedContainer(t, account)

	signer, err := roles.NewSigner(p)
	require.NoError(t, err)

	wrongKey, err := account.TransparentKey(keys.ScopeExternal, 8)
	require.NoError(t, err)
	err = signer.SignTransparent(0, wrongKey)
	require.ErrorIs(t, err, roles.ErrKeyMismatch)

	err = signer.SignTransparent(3, wrongKey)
	require.ErrorIs(t, err, roles.ErrIndexOutOfBounds)
}

func TestSignShielded(t *testing.T) {
	t.Parallel()

	account, err := keys.NewAccountKey(testSeed, 0)
	require.NoError(t, err)
	p := newFundedContainer(t, account)

	signer, err := roles.NewSigner(p)
	require.NoError(t, err)

	require.NoError(t, signer.SignSapling(0, account.SaplingSpendAuthKey()))
	require.NotNil(t, p.Sapling.Spends[0].SpendAuthSig)

	require.NoError(t, signer.SignOrchard(0, account.OrchardSpendAuthKey()))
	require.NotNil(t, p.Orchard.Actions[0].Spend.SpendAuthSig)

	// The dummy action needs no authorization.
	require.NoError(t, signer.SignOrchard(1, account.OrchardSpendAuthKey()))
	require.Nil(t, p.Orchard.Actions[1].Spend.SpendAuthSig)

	digest := pczt.ShieldedSignatureDigest(p)
	randomized := keys.RandomizeKey(
		account.SaplingSpendAuthKey(), *p.Sapling.Spends[0].Alpha,
	)
	sig, err := schnorr.ParseSignature(p.Sapling.Spends[0].SpendAuthSig[:])
	require.NoError(t, err)
	require.True(t, sig.Verify(digest[:], randomized.PubKey()))
}

func TestSignShieldedWrongKey(t *testing.T) {
	t.Parallel()

	account, err := keys.NewAccountKey(testSeed, 0)
	require.NoError(t, err)
	otherAccount, err := keys.NewAccountKey(testSeed, 1)
	require.NoError(t, err)
	p := newFundedContainer(t, account)

	signer, err := roles.NewSigner(p)
	require.NoError(t, err)

	err = signer.SignSapling(0, otherAccount.SaplingSpendAuthKey())
	require.ErrorIs(t, err, roles.ErrWrongSpendAuthKey)
	require.Nil(t, p.Sapling.Spends[0].SpendAuthSig)

	err = signer.SignOrchard(0, otherAccount.OrchardSpendAuthKey())
	require.ErrorIs(t, err, roles.ErrWrongSpendAuthKey)
}

func TestSignShieldedMissingRandomizer(t *testing.T) {
	t.Parallel()

	account, err := keys.NewAccountKey(testSeed, 0)
	require.NoError(t, err)
	p := newFundedContainer(t, account)
	p.Sapling.Spends[0].Alpha = nil

	signer, err := roles.NewSigner(p)
	require.NoError(t, err)

	err = signer.SignSapling(0, account.SaplingSpendAuthKey())
	require.ErrorIs(t, err, roles.ErrMissingRandomizer)
}

func TestCombine(t *testing.T) {
	t.Parallel()

	account, err := keys.NewAccountKey(testSeed, 0)
	require.NoError(t, err)

	// Two parties start from the same funded container; one signs the
	// transparent input, the other the shielded spends.
	first := newFundedContainer(t, account)
	second := clone(t, first)

	firstSigner, err := roles.NewSigner(first)
	require.NoError(t, err)
	sk, err := account.TransparentKey(keys.ScopeExternal, 7)
	require.NoError(t, err)
	require.NoError(t, firstSigner.SignTransparent(0, sk))

	secondSigner, err := roles.NewSigner(second)
	require.NoError(t, err)
	require.NoError(t, secondSigner.SignSapling(0, account.SaplingSpendAuthKey()))
	require.NoError(t, secondSigner.SignOrchard(0, account.OrchardSpendAuthKey()))

	combined, err := roles.Combine(first, second)
	require.NoError(t, err)
	require.Len(t, combined.Transparent.Inputs[0].PartialSignatures, 1)
	require.NotNil(t, combined.Sapling.Spends[0].SpendAuthSig)
	require.NotNil(t, combined.Orchard.Actions[0].Spend.SpendAuthSig)
	require.Equal(t, pczt.StageSigned, combined.Stage())
}

func TestCombineIdempotent(t *testing.T) {
	t.Parallel()

	account, err := keys.NewAccountKey(testSeed, 0)
	require.NoError(t, err)
	p := newFundedContainer(t, account)
	signAll(t, p, account)

	before, err := pczt.Serialize(p)
	require.NoError(t, err)

	combined, err := roles.Combine(p, clone(t, p))
	require.NoError(t, err)

	after, err := pczt.Serialize(combined)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestCombineStructureMismatch(t *testing.T) {
	t.Parallel()

	account, err := keys.NewAccountKey(testSeed, 0)
	require.NoError(t, err)
	p := newFundedContainer(t, account)

	other := clone(t, p)
	other.Transparent.Outputs[0].Value++
	_, err = roles.Combine(p, other)
	require.ErrorIs(t, err, roles.ErrStructureMismatch)

	shorter := clone(t, p)
	shorter.Orchard.Actions = shorter.Orchard.Actions[:1]
	_, err = roles.Combine(p, shorter)
	require.ErrorIs(t, err, roles.ErrStructureMismatch)
}

func TestCombineConflictingContribution(t *testing.T) {
	t.Parallel()

	account, err := keys.NewAccountKey(testSeed, 0)
	require.NoError(t, err)
	p := newFundedContainer(t, account)
	signAll(t, p, account)

	conflicting := clone(t, p)
	conflicting.Sapling.Spends[0].SpendAuthSig[0] ^= 0xff
	_, err = roles.Combine(p, conflicting)
	require.ErrorIs(t, err, roles.ErrConflictingContribution)

	badHint := clone(t, p)
	badHint.Global.Proprietary[pczt.HintAccountIndex] = []byte{9, 9, 9, 9}
	_, err = roles.Combine(p, badHint)
	require.ErrorIs(t, err, roles.ErrConflictingContribution)
}

func TestFinalize(t *testing.T) {
	t.Parallel()

	account, err := keys.NewAccountKey(testSeed, 0)
	require.NoError(t, err)
	p := newFundedContainer(t, account)
	signAll(t, p, account)
	p.Orchard.ZkProof = []byte{0xde, 0xad, 0xbe, 0xef}

	require.NoError(t, roles.Finalize(p))
	require.Equal(t, pczt.StageFinalized, p.Stage())
	require.NotEmpty(t, p.Transparent.Inputs[0].ScriptSig)
}

func TestFinalizeNamesUnsignedItem(t *testing.T) {
	t.Parallel()

	account, err := keys.NewAccountKey(testSeed, 0)
	require.NoError(t, err)

	p := newFundedContainer(t, account)
	err = roles.Finalize(p)
	require.ErrorIs(t, err, roles.ErrNotSigned)
	require.Contains(t, err.Error(), "transparent input 0")

	signAll(t, p, account)
	p.Sapling.Spends[0].SpendAuthSig = nil
	err = roles.Finalize(p)
	require.ErrorIs(t, err, roles.ErrNotSigned)
	require.Contains(t, err.Error(), "sapling spend 0")
}

func TestFinalizeRequiresProof(t *testing.T) {
	t.Parallel()

	account, err := keys.NewAccountKey(testSeed, 0)
	require.NoError(t, err)
	p := newFundedContainer(t, account)
	signAll(t, p, account)

	err = roles.Finalize(p)
	require.ErrorIs(t, err, roles.ErrMissingProof)
}

func TestExtract(t *testing.T) {
	t.Parallel()

	account, err := keys.NewAccountKey(testSeed, 0)
	require.NoError(t, err)
	p := newFundedContainer(t, account)
	signAll(t, p, account)
	p.Orchard.ZkProof = []byte{0xde, 0xad, 0xbe, 0xef}
	require.NoError(t, roles.Finalize(p))

	tx, err := roles.Extract(p)
	require.NoError(t, err)
	require.NotEmpty(t, tx.Raw)
	require.NotEqual(t, [32]byte{}, tx.TxID)

	// The signing hints never reach the wire.
	require.NotContains(t, string(tx.Raw), pczt.HintSeedFingerprint)
}

func TestExtractRequiresFinalized(t *testing.T) {
	t.Parallel()

	account, err := keys.NewAccountKey(testSeed, 0)
	require.NoError(t, err)
	p := newFundedContainer(t, account)

	_, err = roles.Extract(p)
	require.ErrorIs(t, err, roles.ErrNotFinalized)
}

func clone(t *testing.T, p *pczt.Pczt) *pczt.Pczt {
	t.Helper()
	raw, err := pczt.Serialize(p)
	require.NoError(t, err)
	cloned, err := pczt.Parse(raw)
	require.NoError(t, err)
	return cloned
}
