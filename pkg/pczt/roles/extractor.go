package roles

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/zwallet-network/zwallet-daemon/pkg/pczt"
)

// Transaction is the final network-serializable form produced by
// extraction.
type Transaction struct {
	// TxID is the transaction identifier, displayed byte-reversed by
	// convention.
	TxID [32]byte
	// Raw is the serialized transaction ready for broadcast.
	Raw []byte
}

// Extract consumes a finalized container and produces the network
// transaction. Extraction is one-way: the container's auxiliary data
// (partial signatures, randomizers, proprietary fields) is not carried into
// the result and cannot be recovered from it.
func Extract(p *pczt.Pczt) (*Transaction, error) {
	if p.Stage() != pczt.StageFinalized {
		return nil, fmt.Errorf("%w: container is %s", ErrNotFinalized, p.Stage())
	}

	buf := new(bytes.Buffer)
	putUint32(buf, p.Global.TxVersion)
	putUint32(buf, p.Global.VersionGroupID)
	putUint32(buf, p.Global.ConsensusBranchID)
	putUint32(buf, p.Global.ExpiryHeight)

	putCompactSize(buf, len(p.Transparent.Inputs))
	for i := range p.Transparent.Inputs {
		in := &p.Transparent.Inputs[i]
		buf.Write(in.PrevoutTxID[:])
		putUint32(buf, in.PrevoutIndex)
		putCompactSize(buf, len(in.ScriptSig))
		buf.Write(in.ScriptSig)
	}
	putCompactSize(buf, len(p.Transparent.Outputs))
	for i := range p.Transparent.Outputs {
		out := &p.Transparent.Outputs[i]
		putUint64(buf, out.Value)
		putCompactSize(buf, len(out.ScriptPubKey))
		buf.Write(out.ScriptPubKey)
	}

	putCompactSize(buf, len(p.Sapling.Spends))
	for i := range p.Sapling.Spends {
		spend := &p.Sapling.Spends[i]
		buf.Write(spend.Nullifier[:])
		buf.Write(spend.Rk[:])
		buf.Write(spend.SpendAuthSig[:])
	}
	putCompactSize(buf, len(p.Sapling.Outputs))
	for i := range p.Sapling.Outputs {
		out := &p.Sapling.Outputs[i]
		buf.Write(out.Cmu[:])
		buf.Write(out.EphemeralKey[:])
		putCompactSize(buf, len(out.EncCiphertext))
		buf.Write(out.EncCiphertext)
	}
	if len(p.Sapling.Spends)+len(p.Sapling.Outputs) > 0 {
		putInt64(buf, p.Sapling.ValueSum)
		buf.Write(p.Sapling.Anchor[:])
	}

	putCompactSize(buf, len(p.Orchard.Actions))
	for i := range p.Orchard.Actions {
		a := &p.Orchard.Actions[i]
		buf.Write(a.Spend.Nullifier[:])
		buf.Write(a.Spend.Rk[:])
		if a.Spend.SpendAuthSig != nil {
			buf.Write(a.Spend.SpendAuthSig[:])
		} else {
			buf.Write(make([]byte, 64))
		}
		buf.Write(a.Output.Cmx[:])
		buf.Write(a.Output.EphemeralKey[:])
		putCompactSize(buf, len(a.Output.EncCiphertext))
		buf.Write(a.Output.EncCiphertext)
	}
	if len(p.Orchard.Actions) > 0 {
		buf.WriteByte(p.Orchard.Flags)
		putInt64(buf, p.Orchard.ValueSum)
		buf.Write(p.Orchard.Anchor[:])
		putCompactSize(buf, len(p.Orchard.ZkProof))
		buf.Write(p.Orchard.ZkProof)
	}

	return &Transaction{
		TxID: pczt.ShieldedSignatureDigest(p),
		Raw:  buf.Bytes(),
	}, nil
}

func putUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func putUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func putInt64(buf *bytes.Buffer, v int64) {
	putUint64(buf, uint64(v))
}

func putCompactSize(buf *bytes.Buffer, n int) {
	var b [binary.MaxVarintLen64]byte
	written := binary.PutUvarint(b[:], uint64(n))
	buf.Write(b[:written])
}
