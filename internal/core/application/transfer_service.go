package application

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/google/uuid"
	blake2b "github.com/minio/blake2b-simd"
	log "github.com/sirupsen/logrus"

	"github.com/zwallet-network/zwallet-daemon/internal/core/domain"
	"github.com/zwallet-network/zwallet-daemon/internal/core/ports"
	"github.com/zwallet-network/zwallet-daemon/pkg/keys"
	"github.com/zwallet-network/zwallet-daemon/pkg/keystore"
	"github.com/zwallet-network/zwallet-daemon/pkg/pczt"
	"github.com/zwallet-network/zwallet-daemon/pkg/pczt/roles"
)

const nullifierPerson = "ZWallet_Nullifir"

// TransferConfig tunes the funding engine.
type TransferConfig struct {
	SpendPolicy  domain.SpendPolicy
	ActionLimits ActionLimits
	// ReservationTTL bounds how long a pending proposal holds its notes.
	ReservationTTL time.Duration
	// ExpiryDelta is the number of blocks a funded transaction stays valid
	// for.
	ExpiryDelta uint32
}

// TransferSummary is the human-readable decoding of a container.
type TransferSummary struct {
	Stage              string
	TransparentInputs  int
	TransparentOutputs int
	SaplingSpends      int
	SaplingOutputs     int
	OrchardActions     int
	// Recipients lists the user-facing addresses the container pays to,
	// where the funder attached them.
	Recipients []string
	Fee        *uint64
}

// TransferService drives the funding and signing workflow end to end.
type TransferService interface {
	// ProposeTransfer selects notes, computes the fee, enforces the privacy
	// policy, and returns a pending proposal holding a funded container.
	ProposeTransfer(
		ctx context.Context,
		accountRef string,
		recipients []Recipient,
		policy domain.PrivacyPolicy,
	) (*domain.Proposal, error)
	// SignProposal signs the proposal's container with every key this
	// wallet holds and stores the updated container back.
	SignProposal(ctx context.Context, proposalID uuid.UUID) (*SignResult, error)
	// Sign contributes signatures to an arbitrary container using its
	// embedded hints. Items this wallet holds no keys for are skipped.
	Sign(ctx context.Context, p *pczt.Pczt) (*SignResult, error)
	// Combine merges the contributions of several containers describing
	// the same transaction.
	Combine(ctx context.Context, containers ...*pczt.Pczt) (*pczt.Pczt, error)
	// CompleteProposal proves, finalizes, extracts, and broadcasts the
	// proposal's transaction, marking its notes spent.
	CompleteProposal(ctx context.Context, proposalID uuid.UUID) (string, error)
	// AbortProposal releases the proposal's reservations.
	AbortProposal(ctx context.Context, proposalID uuid.UUID) error
	// Decode summarizes a base64 container without touching it.
	Decode(ctx context.Context, encoded string) (*TransferSummary, error)
}

type transferService struct {
	accountRepo  domain.AccountRepository
	noteRepo     domain.NoteRepository
	proposalRepo domain.ProposalRepository
	keyStore     *keystore.KeyStore
	chainSource  ports.ChainSource
	prover       ports.Prover
	config       TransferConfig
}

// NewTransferService wires the funding engine over its dependencies.
func NewTransferService(
	accountRepo domain.AccountRepository,
	noteRepo domain.NoteRepository,
	proposalRepo domain.ProposalRepository,
	keyStore *keystore.KeyStore,
	chainSource ports.ChainSource,
	prover ports.Prover,
	config TransferConfig,
) TransferService {
	config.SpendPolicy = config.SpendPolicy.Normalize()
	return &transferService{
		accountRepo:  accountRepo,
		noteRepo:     noteRepo,
		proposalRepo: proposalRepo,
		keyStore:     keyStore,
		chainSource:  chainSource,
		prover:       prover,
		config:       config,
	}
}

func (s *transferService) ProposeTransfer(
	ctx context.Context,
	accountRef string,
	recipients []Recipient,
	policy domain.PrivacyPolicy,
) (*domain.Proposal, error) {
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	account, err := s.getAccount(ctx, accountRef)
	if err != nil {
		return nil, err
	}
	tip, err := s.chainSource.GetChainTip(ctx)
	if err != nil {
		return nil, err
	}

	notes, err := s.noteRepo.GetSpendableNotesForAccount(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	spendable := notes[:0:0]
	var pending uint64
	for _, n := range notes {
		if s.config.SpendPolicy.IsSpendable(&n, tip.Height, now) {
			spendable = append(spendable, n)
		} else if !n.Spent && !n.IsReserved(now) {
			pending += n.Value
		}
	}

	sel, err := selectNotes(spendable, recipients, policy, s.config.ActionLimits)
	if err != nil {
		var insufficient *InsufficientFundsError
		if errors.As(err, &insufficient) {
			insufficient.Pending = pending
		}
		return nil, err
	}

	outShape, err := shapeOfRecipients(recipients)
	if err != nil {
		return nil, err
	}
	shape := transferShape(sel.notes, outShape, sel.change, sel.changePool)
	if err := domain.CheckPrivacyPolicy(policy, shape); err != nil {
		return nil, err
	}

	accountKey, err := s.accountKey(ctx, account)
	if err != nil {
		return nil, err
	}
	defer accountKey.Zeroize()

	container, err := s.buildContainer(
		ctx, account, accountKey, tip, sel, recipients,
	)
	if err != nil {
		return nil, err
	}
	payload, err := pczt.Serialize(container)
	if err != nil {
		return nil, err
	}

	noteKeys := make([]domain.NoteKey, 0, len(sel.notes))
	for _, n := range sel.notes {
		noteKeys = append(noteKeys, n.Key())
	}

	expiresAt := now.Add(s.config.ReservationTTL)
	proposal := domain.NewProposal(
		account.ID, payload, noteKeys, sel.fee, policy, expiresAt,
	)
	if err := s.noteRepo.LockNotes(ctx, noteKeys, proposal.ID, expiresAt); err != nil {
		return nil, err
	}
	if err := s.proposalRepo.AddProposal(ctx, proposal); err != nil {
		// Roll the reservation back so the notes are not stranded.
		if unlockErr := s.noteRepo.UnlockNotes(ctx, noteKeys); unlockErr != nil {
			log.WithError(unlockErr).Warn("could not release reservation after failed proposal")
		}
		return nil, err
	}

	log.Infof(
		"proposal %s: %d notes, fee %d, policy %s",
		proposal.ID, len(sel.notes), sel.fee, policy,
	)
	return proposal, nil
}

func (s *transferService) SignProposal(
	ctx context.Context, proposalID uuid.UUID,
) (*SignResult, error) {
	proposal, err := s.proposalRepo.GetProposalByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.Status != domain.ProposalPending {
		return nil, domain.ErrProposalNotPending
	}
	if proposal.IsExpired(time.Now()) {
		return nil, ErrProposalExpired
	}

	container, err := pczt.Parse(proposal.Payload)
	if err != nil {
		return nil, err
	}
	result, err := s.Sign(ctx, container)
	if err != nil {
		return nil, err
	}

	payload, err := pczt.Serialize(container)
	if err != nil {
		return nil, err
	}
	if err := s.proposalRepo.UpdateProposal(
		ctx, proposalID,
		func(p *domain.Proposal) (*domain.Proposal, error) {
			p.Payload = payload
			return p, nil
		},
	); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *transferService) Sign(
	ctx context.Context, p *pczt.Pczt,
) (*SignResult, error) {
	hints, err := pczt.ReadGlobalHints(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingSigningHints, err)
	}

	seed, err := s.keyStore.DecryptSeed(ctx, hints.SeedFingerprint)
	if err != nil {
		if errors.Is(err, keystore.ErrUnknownFingerprint) {
			return nil, fmt.Errorf("%w: seed %s", ErrSeedNotImported, hints.SeedFingerprint)
		}
		return nil, err
	}
	accountKey, err := keys.NewAccountKey(seed.Bytes(), hints.AccountIndex)
	seed.Zeroize()
	if err != nil {
		return nil, err
	}
	defer accountKey.Zeroize()

	signer, err := roles.NewSigner(p)
	if err != nil {
		return nil, err
	}

	result := &SignResult{}
	for i := range p.Transparent.Inputs {
		in := &p.Transparent.Inputs[i]
		inputHints, usable := pczt.ReadInputHints(in)
		if !usable {
			result.TransparentUnsigned = append(result.TransparentUnsigned, i)
			continue
		}
		sk, err := accountKey.TransparentKey(inputHints.Scope, inputHints.AddressIndex)
		if err != nil {
			result.TransparentUnsigned = append(result.TransparentUnsigned, i)
			continue
		}
		before := len(in.PartialSignatures)
		err = signer.SignTransparent(i, sk)
		sk.Zero()
		if err != nil {
			if errors.Is(err, roles.ErrKeyMismatch) {
				result.TransparentUnsigned = append(result.TransparentUnsigned, i)
				continue
			}
			return nil, err
		}
		if len(in.PartialSignatures) > before {
			result.TransparentSigned++
		}
	}

	for i := range p.Sapling.Spends {
		if p.Sapling.Spends[i].SpendAuthSig != nil {
			continue
		}
		if err := signer.SignSapling(i, accountKey.SaplingSpendAuthKey()); err != nil {
			if errors.Is(err, roles.ErrWrongSpendAuthKey) ||
				errors.Is(err, roles.ErrMissingRandomizer) {
				result.SaplingUnsigned = append(result.SaplingUnsigned, i)
				continue
			}
			return nil, err
		}
		result.SaplingSigned++
	}

	for i := range p.Orchard.Actions {
		spend := &p.Orchard.Actions[i].Spend
		if spend.SpendAuthSig != nil ||
			spend.Value == nil || *spend.Value == 0 {
			continue
		}
		if err := signer.SignOrchard(i, accountKey.OrchardSpendAuthKey()); err != nil {
			if errors.Is(err, roles.ErrWrongSpendAuthKey) ||
				errors.Is(err, roles.ErrMissingRandomizer) {
				result.OrchardUnsigned = append(result.OrchardUnsigned, i)
				continue
			}
			return nil, err
		}
		result.OrchardSigned++
	}

	log.Debugf(
		"signing pass: %d signatures contributed, %d items skipped",
		result.Total(),
		len(result.TransparentUnsigned)+len(result.SaplingUnsigned)+len(result.OrchardUnsigned),
	)
	return result, nil
}

func (s *transferService) Combine(
	_ context.Context, containers ...*pczt.Pczt,
) (*pczt.Pczt, error) {
	return roles.Combine(containers...)
}

func (s *transferService) CompleteProposal(
	ctx context.Context, proposalID uuid.UUID,
) (string, error) {
	proposal, err := s.proposalRepo.GetProposalByID(ctx, proposalID)
	if err != nil {
		return "", err
	}
	if proposal.Status != domain.ProposalPending {
		return "", domain.ErrProposalNotPending
	}
	if proposal.IsExpired(time.Now()) {
		return "", ErrProposalExpired
	}

	container, err := pczt.Parse(proposal.Payload)
	if err != nil {
		return "", err
	}

	if len(container.Orchard.Actions) > 0 && len(container.Orchard.ZkProof) == 0 {
		if err := s.prover.CreateProofs(ctx, container); err != nil {
			return "", err
		}
	}
	if err := roles.Finalize(container); err != nil {
		return "", err
	}
	tx, err := roles.Extract(container)
	if err != nil {
		return "", err
	}

	txid, err := s.chainSource.BroadcastTransaction(ctx, tx.Raw)
	if err != nil {
		return "", err
	}

	if err := s.noteRepo.SpendNotes(ctx, proposal.NoteKeys, txid); err != nil {
		return "", err
	}
	if err := s.proposalRepo.UpdateProposal(
		ctx, proposalID,
		func(p *domain.Proposal) (*domain.Proposal, error) {
			p.Complete()
			return p, nil
		},
	); err != nil {
		return "", err
	}

	log.Infof("proposal %s broadcast as %s", proposalID, txid)
	return txid, nil
}

func (s *transferService) AbortProposal(
	ctx context.Context, proposalID uuid.UUID,
) error {
	proposal, err := s.proposalRepo.GetProposalByID(ctx, proposalID)
	if err != nil {
		return err
	}
	if proposal.Status != domain.ProposalPending {
		return domain.ErrProposalNotPending
	}

	if err := s.noteRepo.UnlockNotes(ctx, proposal.NoteKeys); err != nil {
		return err
	}
	return s.proposalRepo.UpdateProposal(
		ctx, proposalID,
		func(p *domain.Proposal) (*domain.Proposal, error) {
			p.Abort()
			return p, nil
		},
	)
}

func (s *transferService) Decode(
	_ context.Context, encoded string,
) (*TransferSummary, error) {
	container, err := pczt.DecodeBase64(encoded)
	if err != nil {
		return nil, err
	}

	summary := &TransferSummary{
		Stage:              container.Stage().String(),
		TransparentInputs:  len(container.Transparent.Inputs),
		TransparentOutputs: len(container.Transparent.Outputs),
		SaplingSpends:      len(container.Sapling.Spends),
		SaplingOutputs:     len(container.Sapling.Outputs),
		OrchardActions:     len(container.Orchard.Actions),
	}
	for _, out := range container.Transparent.Outputs {
		if out.UserAddress != "" {
			summary.Recipients = append(summary.Recipients, out.UserAddress)
		}
	}
	for _, out := range container.Sapling.Outputs {
		if out.UserAddress != "" {
			summary.Recipients = append(summary.Recipients, out.UserAddress)
		}
	}
	for _, a := range container.Orchard.Actions {
		if a.Output.UserAddress != "" {
			summary.Recipients = append(summary.Recipients, a.Output.UserAddress)
		}
	}

	if fee, ok := containerFee(container); ok {
		summary.Fee = &fee
	}
	return summary, nil
}

// maxZatoshi is the total monetary supply; no honest value or value balance
// exceeds it.
const maxZatoshi = 21_000_000 * uint64(ZatoshiPerZec)

// containerFee recovers the fee from the container's value balance where the
// funder recorded input values. Decoded containers are untrusted, so any
// value or running sum past the monetary supply invalidates the balance.
func containerFee(p *pczt.Pczt) (uint64, bool) {
	var in, out uint64
	add := func(sum *uint64, v uint64) bool {
		if v > maxZatoshi || *sum > maxZatoshi-v {
			return false
		}
		*sum += v
		return true
	}

	for i := range p.Transparent.Inputs {
		if !add(&in, p.Transparent.Inputs[i].Value) {
			return 0, false
		}
	}
	for i := range p.Transparent.Outputs {
		if !add(&out, p.Transparent.Outputs[i].Value) {
			return 0, false
		}
	}
	for i := range p.Sapling.Spends {
		if p.Sapling.Spends[i].Value == nil {
			return 0, false
		}
		if !add(&in, *p.Sapling.Spends[i].Value) {
			return 0, false
		}
	}
	for i := range p.Sapling.Outputs {
		if p.Sapling.Outputs[i].Value == nil {
			return 0, false
		}
		if !add(&out, *p.Sapling.Outputs[i].Value) {
			return 0, false
		}
	}
	for i := range p.Orchard.Actions {
		a := &p.Orchard.Actions[i]
		if a.Spend.Value != nil {
			if !add(&in, *a.Spend.Value) {
				return 0, false
			}
		}
		if a.Output.Value == nil {
			return 0, false
		}
		if !add(&out, *a.Output.Value) {
			return 0, false
		}
	}
	if in < out {
		return 0, false
	}
	return in - out, true
}

func (s *transferService) getAccount(
	ctx context.Context, ref string,
) (*domain.Account, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return s.accountRepo.GetAccountByID(ctx, id)
	}
	return s.accountRepo.GetAccountByName(ctx, ref)
}

func (s *transferService) accountKey(
	ctx context.Context, account *domain.Account,
) (*keys.AccountKey, error) {
	seed, err := s.keyStore.DecryptSeed(ctx, account.SeedFingerprint)
	if err != nil {
		return nil, err
	}
	defer seed.Zeroize()
	return keys.NewAccountKey(seed.Bytes(), account.AccountIndex)
}

// buildContainer assembles the funded container: inputs and spends for the
// selected notes, outputs for the recipients and change, and the signing
// hints a stateless signer needs.
func (s *transferService) buildContainer(
	ctx context.Context,
	account *domain.Account,
	accountKey *keys.AccountKey,
	tip *ports.ChainTip,
	sel *selection,
	recipients []Recipient,
) (*pczt.Pczt, error) {
	container := pczt.NewPczt(tip.ConsensusBranchID, tip.Height+s.config.ExpiryDelta)
	pczt.SetGlobalHints(container, pczt.GlobalHints{
		SeedFingerprint: account.SeedFingerprint,
		AccountIndex:    account.AccountIndex,
	})

	var orchardSpends []pczt.OrchardSpend
	for _, note := range sel.notes {
		switch note.Pool {
		case domain.PoolTransparent:
			in, err := s.transparentInput(accountKey, &note)
			if err != nil {
				return nil, err
			}
			container.Transparent.Inputs = append(container.Transparent.Inputs, *in)
		case domain.PoolSapling:
			spend, err := shieldedSpend(accountKey.SaplingSpendAuthKey(), &note)
			if err != nil {
				return nil, err
			}
			container.Sapling.Spends = append(container.Sapling.Spends, pczt.SaplingSpend{
				Nullifier: spend.Nullifier,
				Rk:        spend.Rk,
				Alpha:     spend.Alpha,
				Value:     spend.Value,
			})
			container.Sapling.ValueSum -= int64(note.Value)
		case domain.PoolOrchard:
			spend, err := shieldedSpend(accountKey.OrchardSpendAuthKey(), &note)
			if err != nil {
				return nil, err
			}
			orchardSpends = append(orchardSpends, *spend)
			container.Orchard.ValueSum -= int64(note.Value)
		}
	}

	var orchardOutputs []pczt.OrchardOutput
	for _, r := range recipients {
		pool, err := AddressPool(r.Address)
		if err != nil {
			return nil, err
		}
		switch pool {
		case domain.PoolTransparent:
			script, err := transparentScript(r.Address)
			if err != nil {
				return nil, err
			}
			container.Transparent.Outputs = append(
				container.Transparent.Outputs,
				pczt.TransparentOutput{
					Value:        r.Amount,
					ScriptPubKey: script,
					UserAddress:  r.Address,
				},
			)
		case domain.PoolSapling:
			out, err := shieldedOutput(r.Address, r.Amount, r.Memo)
			if err != nil {
				return nil, err
			}
			container.Sapling.Outputs = append(container.Sapling.Outputs, pczt.SaplingOutput{
				Cmu:           out.Cmx,
				EphemeralKey:  out.EphemeralKey,
				EncCiphertext: out.EncCiphertext,
				Value:         out.Value,
				Recipient:     out.Recipient,
				UserAddress:   r.Address,
			})
			container.Sapling.ValueSum += int64(r.Amount)
		case domain.PoolOrchard:
			out, err := shieldedOutput(r.Address, r.Amount, r.Memo)
			if err != nil {
				return nil, err
			}
			orchardOutputs = append(orchardOutputs, *out)
			container.Orchard.ValueSum += int64(r.Amount)
		}
	}

	if sel.change > 0 {
		changeAddr, err := s.changeAddress(ctx, account, accountKey, sel.changePool)
		if err != nil {
			return nil, err
		}
		out, err := shieldedOutput(changeAddr, sel.change, nil)
		if err != nil {
			return nil, err
		}
		// Change carries no user address: it is not a recipient.
		if sel.changePool == domain.PoolSapling {
			container.Sapling.Outputs = append(container.Sapling.Outputs, pczt.SaplingOutput{
				Cmu:           out.Cmx,
				EphemeralKey:  out.EphemeralKey,
				EncCiphertext: out.EncCiphertext,
				Value:         out.Value,
				Recipient:     out.Recipient,
			})
			container.Sapling.ValueSum += int64(sel.change)
		} else {
			orchardOutputs = append(orchardOutputs, *out)
			container.Orchard.ValueSum += int64(sel.change)
		}
	}

	actions, err := pairOrchardActions(orchardSpends, orchardOutputs)
	if err != nil {
		return nil, err
	}
	container.Orchard.Actions = actions
	if len(actions) > 0 {
		container.Orchard.Flags = 0x03
	}

	return container, nil
}

func (s *transferService) transparentInput(
	accountKey *keys.AccountKey, note *domain.Note,
) (*pczt.TransparentInput, error) {
	script, err := accountKey.TransparentScript(note.Scope, note.AddressIndex)
	if err != nil {
		return nil, err
	}
	txid, err := hex.DecodeString(note.TxID)
	if err != nil || len(txid) != 32 {
		return nil, fmt.Errorf("note %s has a malformed txid", note.TxID)
	}

	in := &pczt.TransparentInput{
		PrevoutIndex: note.OutputIndex,
		Value:        note.Value,
		ScriptPubKey: script,
		SighashType:  pczt.SighashAll,
	}
	copy(in.PrevoutTxID[:], txid)
	pczt.SetInputHints(in, pczt.InputHints{
		Scope:        note.Scope,
		AddressIndex: note.AddressIndex,
	})
	return in, nil
}

// changeAddress derives a fresh internal diversified address for change.
func (s *transferService) changeAddress(
	ctx context.Context,
	account *domain.Account,
	accountKey *keys.AccountKey,
	pool domain.Pool,
) (string, error) {
	var addr string
	err := s.accountRepo.UpdateAccount(
		ctx, account.ID,
		func(a *domain.Account) (*domain.Account, error) {
			index := a.FreeDiversifierFrom(uint32(time.Now().Unix()))
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
				Receivers:        []domain.Pool{pool},
				DiversifierIndex: index,
				CreatedAt:        time.Now(),
			})
			return a, nil
		},
	)
	return addr, err
}

// shieldedSpend builds the spend side of a shielded note: a fresh
// authorization randomizer and the randomized verification key the eventual
// signature must verify under.
func shieldedSpend(
	ask *btcec.PrivateKey, note *domain.Note,
) (*pczt.OrchardSpend, error) {
	var alpha [32]byte
	if _, err := rand.Read(alpha[:]); err != nil {
		return nil, err
	}
	randomized := keys.RandomizeKey(ask, alpha)

	value := note.Value
	spend := &pczt.OrchardSpend{Alpha: &alpha, Value: &value}
	copy(spend.Rk[:], schnorr.SerializePubKey(randomized.PubKey()))

	h, err := blake2b.New(&blake2b.Config{Size: 32, Person: []byte(nullifierPerson)})
	if err != nil {
		return nil, err
	}
	h.Write([]byte(note.TxID))
	var index [4]byte
	binary.LittleEndian.PutUint32(index[:], note.OutputIndex)
	h.Write(index[:])
	h.Write([]byte(note.Pool.String()))
	copy(spend.Nullifier[:], h.Sum(nil))

	return spend, nil
}

func transparentScript(addr string) ([]byte, error) {
	decoded, err := btcutil.DecodeAddress(addr, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return txscript.PayToAddrScript(decoded)
}

// shieldedOutput builds the output side of a shielded payment. The note
// commitment and ciphertext are internal representations: the proving system
// recomputes the real ones when the proof is created.
func shieldedOutput(
	addr string, value uint64, memo []byte,
) (*pczt.OrchardOutput, error) {
	_, receiver, err := keys.DecodeShieldedAddress(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(receiver) < keys.ShieldedReceiverSize {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, addr)
	}

	out := &pczt.OrchardOutput{Value: &value}
	var recipient [43]byte
	copy(recipient[:], receiver)
	out.Recipient = &recipient

	if _, err := rand.Read(out.EphemeralKey[:]); err != nil {
		return nil, err
	}

	h, err := blake2b.New(&blake2b.Config{Size: 32, Person: []byte("ZWallet_NoteComm")})
	if err != nil {
		return nil, err
	}
	h.Write(recipient[:])
	var valueBytes [8]byte
	binary.LittleEndian.PutUint64(valueBytes[:], value)
	h.Write(valueBytes[:])
	h.Write(out.EphemeralKey[:])
	copy(out.Cmx[:], h.Sum(nil))

	ciphertext := make([]byte, 0, 32+len(memo))
	ciphertext = append(ciphertext, out.Cmx[:]...)
	ciphertext = append(ciphertext, memo...)
	out.EncCiphertext = ciphertext

	return out, nil
}

// pairOrchardActions zips spends with outputs, padding the shorter side with
// dummies so every action carries both halves.
func pairOrchardActions(
	spends []pczt.OrchardSpend, outputs []pczt.OrchardOutput,
) ([]pczt.OrchardAction, error) {
	n := len(spends)
	if len(outputs) > n {
		n = len(outputs)
	}
	if n == 0 {
		return nil, nil
	}

	actions := make([]pczt.OrchardAction, n)
	for i := 0; i < n; i++ {
		if i < len(spends) {
			actions[i].Spend = spends[i]
		} else {
			dummy, err := dummyOrchardSpend()
			if err != nil {
				return nil, err
			}
			actions[i].Spend = *dummy
		}
		if i < len(outputs) {
			actions[i].Output = outputs[i]
		} else {
			dummy, err := dummyOrchardOutput()
			if err != nil {
				return nil, err
			}
			actions[i].Output = *dummy
		}
	}
	return actions, nil
}

func dummyOrchardSpend() (*pczt.OrchardSpend, error) {
	value := uint64(0)
	spend := &pczt.OrchardSpend{Value: &value}
	if _, err := rand.Read(spend.Nullifier[:]); err != nil {
		return nil, err
	}
	if _, err := rand.Read(spend.Rk[:]); err != nil {
		return nil, err
	}
	return spend, nil
}

func dummyOrchardOutput() (*pczt.OrchardOutput, error) {
	value := uint64(0)
	out := &pczt.OrchardOutput{Value: &value}
	if _, err := rand.Read(out.Cmx[:]); err != nil {
		return nil, err
	}
	if _, err := rand.Read(out.EphemeralKey[:]); err != nil {
		return nil, err
	}
	out.EncCiphertext = make([]byte, 32)
	if _, err := rand.Read(out.EncCiphertext); err != nil {
		return nil, err
	}
	return out, nil
}
