// Package zip317 implements the conventional fee calculation defined by
// ZIP-317. The fee is a function of the number of logical actions a
// transaction performs across all value pools and is never provided by the
// caller.
package zip317

const (
	// MarginalFee is the fee contribution of a single logical action, in
	// zatoshis.
	MarginalFee uint64 = 5000
	// GraceActions is the number of logical actions a transaction may
	// perform while still paying the minimum conventional fee.
	GraceActions uint64 = 2
	// P2PKHStandardInputSize is the serialized size of a standard P2PKH
	// transparent input.
	P2PKHStandardInputSize uint64 = 150
	// P2PKHStandardOutputSize is the serialized size of a standard P2PKH
	// transparent output.
	P2PKHStandardOutputSize uint64 = 34
)

// TxShape describes the per-pool composition of a transaction for fee
// purposes.
type TxShape struct {
	TransparentInputs  uint64
	TransparentOutputs uint64
	SaplingSpends      uint64
	SaplingOutputs     uint64
	OrchardActions     uint64
}

// LogicalActions returns the number of logical actions of the shape as
// defined by ZIP-317: the transparent contribution is the maximum of input
// and output counts, the Sapling contribution is the maximum of spend and
// output counts, and every Orchard action counts once.
func (s TxShape) LogicalActions() uint64 {
	return max(s.TransparentInputs, s.TransparentOutputs) +
		max(s.SaplingSpends, s.SaplingOutputs) +
		s.OrchardActions
}

// Fee returns the conventional fee for the shape in zatoshis.
func Fee(shape TxShape) uint64 {
	return MarginalFee * max(GraceActions, shape.LogicalActions())
}

// MinimumFee is the conventional fee of a transaction performing no more
// than GraceActions logical actions.
func MinimumFee() uint64 {
	return MarginalFee * GraceActions
}

func max(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
