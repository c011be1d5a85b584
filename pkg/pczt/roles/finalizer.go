package roles

import (
	"fmt"

	"github.com/zwallet-network/zwallet-daemon/pkg/pczt"
)

// Finalize completes the non-signature auxiliary data of a fully signed
// container: it assembles the unlocking script of every transparent input
// from the collected signatures and checks that every shielded bundle
// carries its proof. The first missing signature fails the whole
// finalization, naming the item.
func Finalize(p *pczt.Pczt) error {
	for i := range p.Transparent.Inputs {
		in := &p.Transparent.Inputs[i]
		if len(in.ScriptSig) > 0 {
			continue
		}
		if len(in.PartialSignatures) == 0 {
			return fmt.Errorf("%w: transparent input %d", ErrNotSigned, i)
		}
		in.ScriptSig = assembleScriptSig(in)
	}

	for i := range p.Sapling.Spends {
		if p.Sapling.Spends[i].SpendAuthSig == nil {
			return fmt.Errorf("%w: sapling spend %d", ErrNotSigned, i)
		}
	}
	for i := range p.Orchard.Actions {
		spend := &p.Orchard.Actions[i].Spend
		if spend.SpendAuthSig == nil && !(spend.Value == nil || *spend.Value == 0) {
			return fmt.Errorf("%w: orchard action %d", ErrNotSigned, i)
		}
	}
	if len(p.Orchard.Actions) > 0 && len(p.Orchard.ZkProof) == 0 {
		return fmt.Errorf("%w: orchard bundle", ErrMissingProof)
	}

	return nil
}

// assembleScriptSig builds the standard P2PKH unlocking script
// <sig> <pubkey> from any one collected signature.
func assembleScriptSig(in *pczt.TransparentInput) []byte {
	for pubKey, sig := range in.PartialSignatures {
		script := make([]byte, 0, 2+len(sig)+len(pubKey))
		script = append(script, byte(len(sig)))
		script = append(script, sig...)
		script = append(script, byte(len(pubKey)))
		script = append(script, pubKey[:]...)
		return script
	}
	return nil
}
