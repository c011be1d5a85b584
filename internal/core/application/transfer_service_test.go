package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zwallet-network/zwallet-daemon/internal/core/application"
	"github.com/zwallet-network/zwallet-daemon/internal/core/domain"
	"github.com/zwallet-network/zwallet-daemon/pkg/pczt"
)

func TestProposeTransferShielded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addShieldedNote(t, domain.PoolOrchard, 100_000, 10)
	recipients := []application.Recipient{
		{Address: env.orchardAddress(t, 500), Amount: 20_000},
	}

	proposal, err := env.transferSvc.ProposeTransfer(
		ctx, "main", recipients, domain.FullPrivacy,
	)
	require.NoError(t, err)
	require.Equal(t, domain.ProposalPending, proposal.Status)
	require.Len(t, proposal.NoteKeys, 1)
	// One orchard spend against two orchard outputs (recipient + change)
	// makes two logical actions.
	require.Equal(t, uint64(10_000), proposal.Fee)

	container, err := pczt.Parse(proposal.Payload)
	require.NoError(t, err)
	require.Equal(t, pczt.StageFunded, container.Stage())
	require.Len(t, container.Orchard.Actions, 2)
	require.Equal(t, env.chain.tip.Height+40, container.Global.ExpiryHeight)

	hints, err := pczt.ReadGlobalHints(container)
	require.NoError(t, err)
	require.Equal(t, env.fingerprint, hints.SeedFingerprint)
	require.Equal(t, uint32(0), hints.AccountIndex)

	// The funding notes are reserved until the proposal resolves.
	spendable, err := env.noteRepo.GetSpendableNotesForAccount(ctx, env.account.ID)
	require.NoError(t, err)
	require.Empty(t, spendable)
}

func TestProposeTransferNoRecipients(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.transferSvc.ProposeTransfer(
		context.Background(), "main", nil, domain.FullPrivacy,
	)
	require.ErrorIs(t, err, application.ErrNoRecipients)
}

func TestProposeTransferInsufficientFunds(t *testing.T) {
	env := newTestEnv(t)

	env.addShieldedNote(t, domain.PoolOrchard, 8_000, 10)
	// Mined one block ago: below the three-confirmation bar, so it only
	// counts as pending.
	env.addShieldedNote(t, domain.PoolOrchard, 50_000, 999)

	_, err := env.transferSvc.ProposeTransfer(
		context.Background(), "main",
		[]application.Recipient{
			{Address: env.orchardAddress(t, 500), Amount: 20_000},
		},
		domain.FullPrivacy,
	)

	var insufficient *application.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, uint64(8_000), insufficient.Available)
	require.Equal(t, uint64(50_000), insufficient.Pending)
	require.Greater(t, insufficient.Requested, uint64(20_000))
}

func TestProposeTransferPrivacyViolation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addShieldedNote(t, domain.PoolOrchard, 100_000, 10)
	recipients := []application.Recipient{
		{Address: env.transparentAddress(t, 9), Amount: 10_000},
	}

	_, err := env.transferSvc.ProposeTransfer(
		ctx, "main", recipients, domain.FullPrivacy,
	)
	require.ErrorIs(t, err, domain.ErrPrivacyPolicyInsufficient)

	var violation *domain.PrivacyViolation
	require.ErrorAs(t, err, &violation)
	require.Equal(t, domain.AllowRevealedRecipients, violation.Required)

	// The policy the violation names is exactly strong enough.
	_, err = env.transferSvc.ProposeTransfer(
		ctx, "main", recipients, domain.AllowRevealedRecipients,
	)
	require.NoError(t, err)
}

func TestSignProposalShielded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addShieldedNote(t, domain.PoolOrchard, 100_000, 10)
	proposal, err := env.transferSvc.ProposeTransfer(
		ctx, "main",
		[]application.Recipient{
			{Address: env.orchardAddress(t, 500), Amount: 20_000},
		},
		domain.FullPrivacy,
	)
	require.NoError(t, err)

	result, err := env.transferSvc.SignProposal(ctx, proposal.ID)
	require.NoError(t, err)
	require.Equal(t, 1, result.OrchardSigned)
	require.Equal(t, 1, result.Total())

	// The signed container is persisted back.
	stored, err := env.proposalRepo.GetProposalByID(ctx, proposal.ID)
	require.NoError(t, err)
	container, err := pczt.Parse(stored.Payload)
	require.NoError(t, err)
	require.Equal(t, pczt.StageSigned, container.Stage())

	// A second pass finds nothing left to sign.
	result, err = env.transferSvc.SignProposal(ctx, proposal.ID)
	require.NoError(t, err)
	require.Zero(t, result.Total())
}

func TestSignProposalTransparent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addTransparentNote(t, 100_000, 3, 10)
	proposal, err := env.transferSvc.ProposeTransfer(
		ctx, "main",
		[]application.Recipient{
			{Address: env.transparentAddress(t, 7), Amount: 20_000},
		},
		domain.NoPrivacy,
	)
	require.NoError(t, err)

	container, err := pczt.Parse(proposal.Payload)
	require.NoError(t, err)
	require.Len(t, container.Transparent.Inputs, 1)
	hints, usable := pczt.ReadInputHints(&container.Transparent.Inputs[0])
	require.True(t, usable)
	require.Equal(t, uint32(3), hints.AddressIndex)

	result, err := env.transferSvc.SignProposal(ctx, proposal.ID)
	require.NoError(t, err)
	require.Equal(t, 1, result.TransparentSigned)
	require.Empty(t, result.TransparentUnsigned)

	result, err = env.transferSvc.SignProposal(ctx, proposal.ID)
	require.NoError(t, err)
	require.Zero(t, result.Total())
}

func TestSignWithoutHints(t *testing.T) {
	env := newTestEnv(t)

	container := pczt.NewPczt(1, 1)
	container.Transparent.Inputs = append(
		container.Transparent.Inputs,
		pczt.TransparentInput{Value: 1000, SighashType: pczt.SighashAll},
	)

	_, err := env.transferSvc.Sign(context.Background(), container)
	require.ErrorIs(t, err, application.ErrMissingSigningHints)
}

func TestSignUnknownSeed(t *testing.T) {
	env := newTestEnv(t)

	container := pczt.NewPczt(1, 1)
	container.Transparent.Inputs = append(
		container.Transparent.Inputs,
		pczt.TransparentInput{Value: 1000, SighashType: pczt.SighashAll},
	)
	var otherFp [32]byte
	otherFp[0] = 0xff
	pczt.SetGlobalHints(container, pczt.GlobalHints{SeedFingerprint: otherFp})

	_, err := env.transferSvc.Sign(context.Background(), container)
	require.ErrorIs(t, err, application.ErrSeedNotImported)
}

func TestCompleteProposal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	note := env.addShieldedNote(t, domain.PoolOrchard, 100_000, 10)
	proposal, err := env.transferSvc.ProposeTransfer(
		ctx, "main",
		[]application.Recipient{
			{Address: env.orchardAddress(t, 500), Amount: 20_000},
		},
		domain.FullPrivacy,
	)
	require.NoError(t, err)

	_, err = env.transferSvc.SignProposal(ctx, proposal.ID)
	require.NoError(t, err)

	txid, err := env.transferSvc.CompleteProposal(ctx, proposal.ID)
	require.NoError(t, err)
	require.NotEmpty(t, txid)
	require.Equal(t, 1, env.prover.calls)
	require.Len(t, env.chain.broadcasted, 1)
	require.NotEmpty(t, env.chain.broadcasted[0])

	spent, err := env.noteRepo.GetNoteByKey(ctx, note.Key())
	require.NoError(t, err)
	require.True(t, spent.Spent)
	require.Equal(t, txid, spent.SpentByTx)

	stored, err := env.proposalRepo.GetProposalByID(ctx, proposal.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ProposalCompleted, stored.Status)

	// A resolved proposal cannot be completed again.
	_, err = env.transferSvc.CompleteProposal(ctx, proposal.ID)
	require.ErrorIs(t, err, domain.ErrProposalNotPending)
}

func TestAbortProposal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addShieldedNote(t, domain.PoolOrchard, 100_000, 10)
	proposal, err := env.transferSvc.ProposeTransfer(
		ctx, "main",
		[]application.Recipient{
			{Address: env.orchardAddress(t, 500), Amount: 20_000},
		},
		domain.FullPrivacy,
	)
	require.NoError(t, err)

	require.NoError(t, env.transferSvc.AbortProposal(ctx, proposal.ID))

	spendable, err := env.noteRepo.GetSpendableNotesForAccount(ctx, env.account.ID)
	require.NoError(t, err)
	require.Len(t, spendable, 1)

	stored, err := env.proposalRepo.GetProposalByID(ctx, proposal.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ProposalAborted, stored.Status)

	require.ErrorIs(t,
		env.transferSvc.AbortProposal(ctx, proposal.ID),
		domain.ErrProposalNotPending,
	)
}

func TestCombineMergesSignatures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addShieldedNote(t, domain.PoolOrchard, 100_000, 10)
	env.addTransparentNote(t, 100_000, 3, 10)

	proposal, err := env.transferSvc.ProposeTransfer(
		ctx, "main",
		[]application.Recipient{
			{Address: env.orchardAddress(t, 500), Amount: 150_000},
		},
		domain.AllowRevealedSenders,
	)
	require.NoError(t, err)

	base, err := pczt.Parse(proposal.Payload)
	require.NoError(t, err)
	signed, err := pczt.Parse(proposal.Payload)
	require.NoError(t, err)

	result, err := env.transferSvc.Sign(ctx, signed)
	require.NoError(t, err)
	require.NotZero(t, result.Total())

	merged, err := env.transferSvc.Combine(ctx, base, signed)
	require.NoError(t, err)
	require.Equal(t, pczt.StageSigned, merged.Stage())
}

func TestDecode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addShieldedNote(t, domain.PoolOrchard, 100_000, 10)
	recipient := env.orchardAddress(t, 500)
	proposal, err := env.transferSvc.ProposeTransfer(
		ctx, "main",
		[]application.Recipient{{Address: recipient, Amount: 20_000}},
		domain.FullPrivacy,
	)
	require.NoError(t, err)

	container, err := pczt.Parse(proposal.Payload)
	require.NoError(t, err)
	encoded, err := pczt.EncodeBase64(container)
	require.NoError(t, err)

	summary, err := env.transferSvc.Decode(ctx, encoded)
	require.NoError(t, err)
	require.Equal(t, "funded", summary.Stage)
	require.Equal(t, 2, summary.OrchardActions)
	require.Equal(t, []string{recipient}, summary.Recipients)
	require.NotNil(t, summary.Fee)
	require.Equal(t, proposal.Fee, *summary.Fee)

	_, err = env.transferSvc.Decode(ctx, "not base64!!")
	require.Error(t, err)
}

func TestDecodeRejectsOverlargeValues(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// A crafted container claims values past the monetary supply; summing
	// them through a signed cast would wrap into a plausible-looking fee.
	// No fee must be reported for such a container.
	spend := uint64(1)<<63 + 10_000
	output := uint64(1) << 63
	container := pczt.NewPczt(0xc2d6d0b4, 1040)
	container.Orchard.Actions = append(container.Orchard.Actions, pczt.OrchardAction{
		Spend:  pczt.OrchardSpend{Value: &spend},
		Output: pczt.OrchardOutput{Value: &output},
	})
	encoded, err := pczt.EncodeBase64(container)
	require.NoError(t, err)

	summary, err := env.transferSvc.Decode(ctx, encoded)
	require.NoError(t, err)
	require.Nil(t, summary.Fee)
}

func TestProposeTransferUnknownAccount(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.transferSvc.ProposeTransfer(
		context.Background(), "missing",
		[]application.Recipient{
			{Address: env.orchardAddress(t, 1), Amount: 1_000},
		},
		domain.FullPrivacy,
	)
	require.True(t, errors.Is(err, domain.ErrAccountNotFound))
}
