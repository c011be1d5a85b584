// Package pczt implements the partially created transaction container used
// to build, sign, and finalize multi-pool transactions across multiple
// parties.
//
// A container carries a global section and one bundle per value pool
// (transparent, Sapling, Orchard). Each section holds a proprietary
// string-to-bytes map used to attach namespaced metadata such as signing
// hints; consumers must ignore unrecognized proprietary keys and must not
// rely on their ordering.
//
// The container moves through one-directional stages: Created, Funded,
// Signed, Finalized. Each stage transition is performed by a dedicated role
// in the roles sub-package; extraction consumes the container and produces
// the final network-serializable transaction.
package pczt

// Transaction format constants.
const (
	// TxVersion is the transaction version carried by every container.
	TxVersion uint32 = 5
	// VersionGroupID identifies the v5 transaction format.
	VersionGroupID uint32 = 0x26A7270A
	// MainNetCoinType is the SLIP-44 coin type embedded in the global
	// section.
	MainNetCoinType uint32 = 133

	// SighashAll is the only signature hash type produced by the wallet.
	SighashAll uint8 = 0x01
)

// Pczt is a partially created transaction.
type Pczt struct {
	Global      Global
	Transparent TransparentBundle
	Sapling     SaplingBundle
	Orchard     OrchardBundle
}

// Global holds transaction-wide metadata agreed on by every party.
type Global struct {
	TxVersion         uint32
	VersionGroupID    uint32
	ConsensusBranchID uint32
	ExpiryHeight      uint32
	CoinType          uint32
	Proprietary       map[string][]byte
}

// TransparentBundle holds the transparent inputs and outputs of the
// transaction.
type TransparentBundle struct {
	Inputs  []TransparentInput
	Outputs []TransparentOutput
}

// TransparentInput is a transparent coin being spent.
type TransparentInput struct {
	PrevoutTxID  [32]byte
	PrevoutIndex uint32
	Value        uint64
	ScriptPubKey []byte
	SighashType  uint8

	// ScriptSig is assembled by the finalizer once a signature is
	// present.
	ScriptSig []byte
	// PartialSignatures maps compressed public keys to DER signatures
	// collected from signers.
	PartialSignatures map[[33]byte][]byte
	Proprietary       map[string][]byte
}

// TransparentOutput is a transparent coin being created.
type TransparentOutput struct {
	Value        uint64
	ScriptPubKey []byte
	// UserAddress carries the human-readable form of the recipient so an
	// offline signer can display what it is committing to.
	UserAddress string
	Proprietary map[string][]byte
}

// SaplingBundle holds the Sapling spends and outputs of the transaction.
type SaplingBundle struct {
	Spends   []SaplingSpend
	Outputs  []SaplingOutput
	ValueSum int64
	Anchor   [32]byte
}

// SaplingSpend is a Sapling note being consumed.
type SaplingSpend struct {
	Nullifier [32]byte
	// Rk is the randomized verification key the spend authorization
	// signature verifies under.
	Rk [32]byte
	// Alpha is the spend authorization randomizer chosen at funding time.
	Alpha        *[32]byte
	SpendAuthSig *[64]byte

	Value       *uint64
	Recipient   *[43]byte
	Proprietary map[string][]byte
}

// SaplingOutput is a Sapling note being created.
type SaplingOutput struct {
	Cmu           [32]byte
	EphemeralKey  [32]byte
	EncCiphertext []byte

	Value       *uint64
	Recipient   *[43]byte
	UserAddress string
	Proprietary map[string][]byte
}

// OrchardBundle holds the Orchard actions of the transaction.
type OrchardBundle struct {
	Actions  []OrchardAction
	Flags    uint8
	ValueSum int64
	Anchor   [32]byte
	// ZkProof is the aggregated proof covering every action. It is
	// produced by an external proving system and treated as opaque bytes.
	ZkProof []byte
}

// OrchardAction pairs one spend with one output. Actions with nothing to
// spend carry a dummy spend so that all actions look alike on chain.
type OrchardAction struct {
	Spend  OrchardSpend
	Output OrchardOutput
}

// OrchardSpend is an Orchard note being consumed.
type OrchardSpend struct {
	Nullifier    [32]byte
	Rk           [32]byte
	Alpha        *[32]byte
	SpendAuthSig *[64]byte

	Value       *uint64
	Recipient   *[43]byte
	Proprietary map[string][]byte
}

// OrchardOutput is an Orchard note being created.
type OrchardOutput struct {
	Cmx           [32]byte
	EphemeralKey  [32]byte
	EncCiphertext []byte

	Value       *uint64
	Recipient   *[43]byte
	UserAddress string
	Proprietary map[string][]byte
}

// NewPczt returns an empty container at the given consensus branch and
// expiry height.
func NewPczt(consensusBranchID, expiryHeight uint32) *Pczt {
	return &Pczt{
		Global: Global{
			TxVersion:         TxVersion,
			VersionGroupID:    VersionGroupID,
			ConsensusBranchID: consensusBranchID,
			ExpiryHeight:      expiryHeight,
			CoinType:          MainNetCoinType,
			Proprietary:       map[string][]byte{},
		},
	}
}

// Stage identifies how far along the signing workflow a container is.
type Stage int

const (
	// StageCreated is an empty container with no funding data.
	StageCreated Stage = iota
	// StageFunded has inputs and outputs attached but is missing at least
	// one signature.
	StageFunded
	// StageSigned has every required signature attached.
	StageSigned
	// StageFinalized has all non-signature auxiliary data completed and
	// is ready for extraction.
	StageFinalized
)

func (s Stage) String() string {
	switch s {
	case StageCreated:
		return "created"
	case StageFunded:
		return "funded"
	case StageSigned:
		return "signed"
	case StageFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Stage derives the container's current stage from its contents. Stages are
// one-directional: roles refuse to apply a transformation that would move a
// container backwards.
func (p *Pczt) Stage() Stage {
	if p.isEmpty() {
		return StageCreated
	}
	if !p.fullySigned() {
		return StageFunded
	}
	if !p.finalized() {
		return StageSigned
	}
	return StageFinalized
}

func (p *Pczt) isEmpty() bool {
	return len(p.Transparent.Inputs) == 0 &&
		len(p.Transparent.Outputs) == 0 &&
		len(p.Sapling.Spends) == 0 &&
		len(p.Sapling.Outputs) == 0 &&
		len(p.Orchard.Actions) == 0
}

func (p *Pczt) fullySigned() bool {
	for i := range p.Transparent.Inputs {
		if len(p.Transparent.Inputs[i].PartialSignatures) == 0 &&
			len(p.Transparent.Inputs[i].ScriptSig) == 0 {
			return false
		}
	}
	for i := range p.Sapling.Spends {
		if p.Sapling.Spends[i].SpendAuthSig == nil {
			return false
		}
	}
	for i := range p.Orchard.Actions {
		if !p.Orchard.Actions[i].Spend.isDummy() &&
			p.Orchard.Actions[i].Spend.SpendAuthSig == nil {
			return false
		}
	}
	return true
}

func (p *Pczt) finalized() bool {
	for i := range p.Transparent.Inputs {
		if len(p.Transparent.Inputs[i].ScriptSig) == 0 {
			return false
		}
	}
	if len(p.Orchard.Actions) > 0 && len(p.Orchard.ZkProof) == 0 {
		return false
	}
	return true
}

// isDummy reports whether the spend half of an action consumes no value and
// therefore needs no spend authorization.
func (s *OrchardSpend) isDummy() bool {
	return s.Value == nil || *s.Value == 0
}
