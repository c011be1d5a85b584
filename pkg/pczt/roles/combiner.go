package roles

import (
	"bytes"
	"fmt"

	"github.com/zwallet-network/zwallet-daemon/pkg/pczt"
)

// Combine merges the contributions of several containers describing the same
// transaction into one. The first container is the base; every other
// container must have identical structure (same global section, same inputs,
// outputs, spends, and actions in the same order) and may only add
// signatures, randomizers, proofs, and proprietary fields. Two containers
// carrying different data for the same item cannot be merged.
//
// Combining a container with a copy of itself is a no-op.
func Combine(containers ...*pczt.Pczt) (*pczt.Pczt, error) {
	if len(containers) == 0 {
		return nil, fmt.Errorf("%w: nothing to combine", ErrStructureMismatch)
	}

	base := containers[0]
	for _, other := range containers[1:] {
		if err := mergeInto(base, other); err != nil {
			return nil, err
		}
	}
	return base, nil
}

func mergeInto(base, other *pczt.Pczt) error {
	if err := checkStructure(base, other); err != nil {
		return err
	}

	var err error
	base.Global.Proprietary, err = mergeProprietary(
		base.Global.Proprietary, other.Global.Proprietary, "global",
	)
	if err != nil {
		return err
	}

	for i := range base.Transparent.Inputs {
		if err := mergeTransparentInput(
			&base.Transparent.Inputs[i], &other.Transparent.Inputs[i], i,
		); err != nil {
			return err
		}
	}
	for i := range base.Transparent.Outputs {
		base.Transparent.Outputs[i].Proprietary, err = mergeProprietary(
			base.Transparent.Outputs[i].Proprietary,
			other.Transparent.Outputs[i].Proprietary,
			fmt.Sprintf("transparent output %d", i),
		)
		if err != nil {
			return err
		}
	}

	for i := range base.Sapling.Spends {
		if err := mergeSaplingSpend(
			&base.Sapling.Spends[i], &other.Sapling.Spends[i], i,
		); err != nil {
			return err
		}
	}
	for i := range base.Sapling.Outputs {
		base.Sapling.Outputs[i].Proprietary, err = mergeProprietary(
			base.Sapling.Outputs[i].Proprietary,
			other.Sapling.Outputs[i].Proprietary,
			fmt.Sprintf("sapling output %d", i),
		)
		if err != nil {
			return err
		}
	}

	for i := range base.Orchard.Actions {
		if err := mergeOrchardAction(
			&base.Orchard.Actions[i], &other.Orchard.Actions[i], i,
		); err != nil {
			return err
		}
	}
	if len(other.Orchard.ZkProof) > 0 {
		if len(base.Orchard.ZkProof) > 0 &&
			!bytes.Equal(base.Orchard.ZkProof, other.Orchard.ZkProof) {
			return fmt.Errorf("%w: orchard proof", ErrConflictingContribution)
		}
		base.Orchard.ZkProof = other.Orchard.ZkProof
	}

	return nil
}

func checkStructure(base, other *pczt.Pczt) error {
	if base.Global.TxVersion != other.Global.TxVersion ||
		base.Global.VersionGroupID != other.Global.VersionGroupID ||
		base.Global.ConsensusBranchID != other.Global.ConsensusBranchID ||
		base.Global.ExpiryHeight != other.Global.ExpiryHeight ||
		base.Global.CoinType != other.Global.CoinType {
		return fmt.Errorf("%w: global sections differ", ErrStructureMismatch)
	}
	if len(base.Transparent.Inputs) != len(other.Transparent.Inputs) ||
		len(base.Transparent.Outputs) != len(other.Transparent.Outputs) ||
		len(base.Sapling.Spends) != len(other.Sapling.Spends) ||
		len(base.Sapling.Outputs) != len(other.Sapling.Outputs) ||
		len(base.Orchard.Actions) != len(other.Orchard.Actions) {
		return fmt.Errorf("%w: bundle shapes differ", ErrStructureMismatch)
	}

	for i := range base.Transparent.Inputs {
		a, b := &base.Transparent.Inputs[i], &other.Transparent.Inputs[i]
		if a.PrevoutTxID != b.PrevoutTxID || a.PrevoutIndex != b.PrevoutIndex ||
			a.Value != b.Value || !bytes.Equal(a.ScriptPubKey, b.ScriptPubKey) ||
			a.SighashType != b.SighashType {
			return fmt.Errorf(
				"%w: transparent input %d", ErrStructureMismatch, i,
			)
		}
	}
	for i := range base.Transparent.Outputs {
		a, b := &base.Transparent.Outputs[i], &other.Transparent.Outputs[i]
		if a.Value != b.Value || !bytes.Equal(a.ScriptPubKey, b.ScriptPubKey) {
			return fmt.Errorf(
				"%w: transparent output %d", ErrStructureMismatch, i,
			)
		}
	}
	for i := range base.Sapling.Spends {
		a, b := &base.Sapling.Spends[i], &other.Sapling.Spends[i]
		if a.Nullifier != b.Nullifier || a.Rk != b.Rk {
			return fmt.Errorf("%w: sapling spend %d", ErrStructureMismatch, i)
		}
	}
	for i := range base.Sapling.Outputs {
		a, b := &base.Sapling.Outputs[i], &other.Sapling.Outputs[i]
		if a.Cmu != b.Cmu || a.EphemeralKey != b.EphemeralKey ||
			!bytes.Equal(a.EncCiphertext, b.EncCiphertext) {
			return fmt.Errorf("%w: sapling output %d", ErrStructureMismatch, i)
		}
	}
	for i := range base.Orchard.Actions {
		a, b := &base.Orchard.Actions[i], &other.Orchard.Actions[i]
		if a.Spend.Nullifier != b.Spend.Nullifier || a.Spend.Rk != b.Spend.Rk ||
			a.Output.Cmx != b.Output.Cmx ||
			a.Output.EphemeralKey != b.Output.EphemeralKey ||
			!bytes.Equal(a.Output.EncCiphertext, b.Output.EncCiphertext) {
			return fmt.Errorf("%w: orchard action %d", ErrStructureMismatch, i)
		}
	}

	return nil
}

func mergeTransparentInput(base, other *pczt.TransparentInput, index int) error {
	item := fmt.Sprintf("transparent input %d", index)

	for pubKey, sig := range other.PartialSignatures {
		existing, ok := base.PartialSignatures[pubKey]
		if ok {
			if !bytes.Equal(existing, sig) {
				return fmt.Errorf("%w: %s", ErrConflictingContribution, item)
			}
			continue
		}
		if base.PartialSignatures == nil {
			base.PartialSignatures = map[[33]byte][]byte{}
		}
		base.PartialSignatures[pubKey] = sig
	}

	if len(other.ScriptSig) > 0 {
		if len(base.ScriptSig) > 0 && !bytes.Equal(base.ScriptSig, other.ScriptSig) {
			return fmt.Errorf("%w: %s", ErrConflictingContribution, item)
		}
		base.ScriptSig = other.ScriptSig
	}

	var err error
	base.Proprietary, err = mergeProprietary(base.Proprietary, other.Proprietary, item)
	return err
}

func mergeSaplingSpend(base, other *pczt.SaplingSpend, index int) error {
	item := fmt.Sprintf("sapling spend %d", index)
	if err := merge32(&base.Alpha, other.Alpha, item); err != nil {
		return err
	}
	if err := merge64(&base.SpendAuthSig, other.SpendAuthSig, item); err != nil {
		return err
	}
	var err error
	base.Proprietary, err = mergeProprietary(base.Proprietary, other.Proprietary, item)
	return err
}

func mergeOrchardAction(base, other *pczt.OrchardAction, index int) error {
	item := fmt.Sprintf("orchard action %d", index)
	if err := merge32(&base.Spend.Alpha, other.Spend.Alpha, item); err != nil {
		return err
	}
	if err := merge64(&base.Spend.SpendAuthSig, other.Spend.SpendAuthSig, item); err != nil {
		return err
	}
	var err error
	base.Spend.Proprietary, err = mergeProprietary(
		base.Spend.Proprietary, other.Spend.Proprietary, item,
	)
	if err != nil {
		return err
	}
	base.Output.Proprietary, err = mergeProprietary(
		base.Output.Proprietary, other.Output.Proprietary, item,
	)
	return err
}

func merge32(base **[32]byte, other *[32]byte, item string) error {
	if other == nil {
		return nil
	}
	if *base != nil {
		if **base != *other {
			return fmt.Errorf("%w: %s", ErrConflictingContribution, item)
		}
		return nil
	}
	v := *other
	*base = &v
	return nil
}

func merge64(base **[64]byte, other *[64]byte, item string) error {
	if other == nil {
		return nil
	}
	if *base != nil {
		if **base != *other {
			return fmt.Errorf("%w: %s", ErrConflictingContribution, item)
		}
		return nil
	}
	v := *other
	*base = &v
	return nil
}

func mergeProprietary(
	base, other map[string][]byte, item string,
) (map[string][]byte, error) {
	if len(other) == 0 {
		return base, nil
	}
	if base == nil {
		base = map[string][]byte{}
	}
	for k, v := range other {
		existing, ok := base[k]
		if ok {
			if !bytes.Equal(existing, v) {
				return nil, fmt.Errorf(
					"%w: %s: proprietary key %s", ErrConflictingContribution, item, k,
				)
			}
			continue
		}
		base[k] = v
	}
	return base, nil
}
