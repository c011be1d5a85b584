// Package roles implements the stage transformations of the partially
// created transaction workflow. Each role consumes a container in one stage
// and moves it forward; no role can move a container backwards.
package roles

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"

	"github.com/zwallet-network/zwallet-daemon/pkg/keys"
	"github.com/zwallet-network/zwallet-daemon/pkg/pczt"
)

// Signer attaches signatures to a funded container.
//
// Signing is incremental: a signer contributes signatures only for the
// items whose keys it holds, skipping the rest. Invoking a signer twice
// with the same keys is a no-op for the items already signed.
type Signer struct {
	p *pczt.Pczt
}

// NewSigner wraps a funded container for signing.
func NewSigner(p *pczt.Pczt) (*Signer, error) {
	if p.Stage() == pczt.StageCreated {
		return nil, ErrNotFunded
	}
	return &Signer{p: p}, nil
}

// SignTransparent signs the transparent input at the given index with the
// provided key. Signing an input that already carries this key's signature
// is a no-op.
func (s *Signer) SignTransparent(index int, sk *btcec.PrivateKey) error {
	if index < 0 || index >= len(s.p.Transparent.Inputs) {
		return fmt.Errorf("%w: transparent input %d", ErrIndexOutOfBounds, index)
	}
	in := &s.p.Transparent.Inputs[index]

	var pubKey [33]byte
	copy(pubKey[:], sk.PubKey().SerializeCompressed())

	if !keyControlsScript(pubKey, in.ScriptPubKey) {
		return fmt.Errorf("%w: transparent input %d", ErrKeyMismatch, index)
	}
	if _, ok := in.PartialSignatures[pubKey]; ok {
		return nil
	}

	digest := pczt.TransparentSignatureDigest(s.p, index)
	sig := ecdsa.Sign(sk, digest[:])

	if in.PartialSignatures == nil {
		in.PartialSignatures = map[[33]byte][]byte{}
	}
	in.PartialSignatures[pubKey] = append(sig.Serialize(), in.SighashType)
	return nil
}

// SignSapling signs the Sapling spend at the given index with the account
// spend authorizing key. The key is randomized with the spend's embedded
// randomizer before signing; a key that does not verify under the spend's
// randomized verification key yields ErrWrongSpendAuthKey.
func (s *Signer) SignSapling(index int, ask *btcec.PrivateKey) error {
	if index < 0 || index >= len(s.p.Sapling.Spends) {
		return fmt.Errorf("%w: sapling spend %d", ErrIndexOutOfBounds, index)
	}
	spend := &s.p.Sapling.Spends[index]
	if spend.SpendAuthSig != nil {
		return nil
	}

	sig, err := signSpendAuth(
		s.p, ask, spend.Alpha, spend.Rk, fmt.Sprintf("sapling spend %d", index),
	)
	if err != nil {
		return err
	}
	spend.SpendAuthSig = sig
	return nil
}

// SignOrchard signs the Orchard action at the given index. Dummy spends
// need no authorization and are skipped silently.
func (s *Signer) SignOrchard(index int, ask *btcec.PrivateKey) error {
	if index < 0 || index >= len(s.p.Orchard.Actions) {
		return fmt.Errorf("%w: orchard action %d", ErrIndexOutOfBounds, index)
	}
	spend := &s.p.Orchard.Actions[index].Spend
	if spend.SpendAuthSig != nil {
		return nil
	}
	if spend.Value == nil || *spend.Value == 0 {
		return nil
	}

	sig, err := signSpendAuth(
		s.p, ask, spend.Alpha, spend.Rk, fmt.Sprintf("orchard action %d", index),
	)
	if err != nil {
		return err
	}
	spend.SpendAuthSig = sig
	return nil
}

// Pczt returns the container with all contributed signatures attached.
func (s *Signer) Pczt() *pczt.Pczt {
	return s.p
}

func signSpendAuth(
	p *pczt.Pczt, ask *btcec.PrivateKey, alpha *[32]byte, rk [32]byte, item string,
) (*[64]byte, error) {
	if alpha == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingRandomizer, item)
	}

	randomized := keys.RandomizeKey(ask, *alpha)
	if !bytes.Equal(schnorr.SerializePubKey(randomized.PubKey()), rk[:]) {
		return nil, fmt.Errorf("%w: %s", ErrWrongSpendAuthKey, item)
	}

	digest := pczt.ShieldedSignatureDigest(p)
	sig, err := schnorr.Sign(randomized, digest[:])
	if err != nil {
		return nil, err
	}

	var out [64]byte
	copy(out[:], sig.Serialize())
	return &out, nil
}

func keyControlsScript(pubKey [33]byte, scriptPubKey []byte) bool {
	// Standard P2PKH: OP_DUP OP_HASH160 <20 bytes> OP_EQUALVERIFY
	// OP_CHECKSIG.
	if len(scriptPubKey) != 25 || scriptPubKey[0] != 0x76 || scriptPubKey[1] != 0xa9 {
		return false
	}
	return bytes.Equal(scriptPubKey[3:23], btcutil.Hash160(pubKey[:]))
}
