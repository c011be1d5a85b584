package pczt

import (
	"bytes"
	"encoding/binary"
	"hash"

	blake2b "github.com/minio/blake2b-simd"
)

// Signature digests follow the ZIP-244 structure: a tree of personalized
// BLAKE2b-256 hashes over the transaction's effecting data. Shielded spend
// authorizations all sign the same digest; transparent inputs each sign a
// digest that additionally commits to the spent coin.
const (
	txPersonPrefix          = "ZcashTxHash_"
	headerPersonalization   = "ZTxIdHeadersHash"
	transparentPersonPrefix = "ZTxIdTranspaHash"
	saplingPersonalization  = "ZTxIdSaplingHash"
	orchardPersonalization  = "ZTxIdOrchardHash"
	inputPersonalization    = "ZTxIdInputsHash_"
)

// ShieldedSignatureDigest returns the digest signed by every shielded spend
// authorization in the container.
func ShieldedSignatureDigest(p *Pczt) [32]byte {
	return txDigest(p, nil)
}

// TransparentSignatureDigest returns the digest signed by the transparent
// input at the given index.
func TransparentSignatureDigest(p *Pczt, index int) [32]byte {
	in := &p.Transparent.Inputs[index]
	return txDigest(p, in)
}

func txDigest(p *Pczt, in *TransparentInput) [32]byte {
	person := make([]byte, 16)
	copy(person, txPersonPrefix)
	binary.LittleEndian.PutUint32(person[12:], p.Global.ConsensusBranchID)

	h := newBlake2b256(person)
	writeDigest(h, headerDigest(p))
	writeDigest(h, transparentDigest(p))
	writeDigest(h, saplingDigest(p))
	writeDigest(h, orchardDigest(p))
	if in != nil {
		writeDigest(h, inputDigest(p, in))
	}

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func headerDigest(p *Pczt) [32]byte {
	buf := new(bytes.Buffer)
	writeUint32(buf, p.Global.TxVersion)
	writeUint32(buf, p.Global.VersionGroupID)
	writeUint32(buf, p.Global.ConsensusBranchID)
	writeUint32(buf, p.Global.ExpiryHeight)
	return hashWithPerson(headerPersonalization, buf.Bytes())
}

func transparentDigest(p *Pczt) [32]byte {
	buf := new(bytes.Buffer)
	for i := range p.Transparent.Inputs {
		in := &p.Transparent.Inputs[i]
		buf.Write(in.PrevoutTxID[:])
		writeUint32(buf, in.PrevoutIndex)
	}
	for i := range p.Transparent.Outputs {
		out := &p.Transparent.Outputs[i]
		writeUint64(buf, out.Value)
		writeBytes(buf, out.ScriptPubKey)
	}
	return hashWithPerson(transparentPersonPrefix, buf.Bytes())
}

func saplingDigest(p *Pczt) [32]byte {
	buf := new(bytes.Buffer)
	for i := range p.Sapling.Spends {
		buf.Write(p.Sapling.Spends[i].Nullifier[:])
		buf.Write(p.Sapling.Spends[i].Rk[:])
	}
	for i := range p.Sapling.Outputs {
		out := &p.Sapling.Outputs[i]
		buf.Write(out.Cmu[:])
		buf.Write(out.EphemeralKey[:])
		writeBytes(buf, out.EncCiphertext)
	}
	writeInt64(buf, p.Sapling.ValueSum)
	buf.Write(p.Sapling.Anchor[:])
	return hashWithPerson(saplingPersonalization, buf.Bytes())
}

func orchardDigest(p *Pczt) [32]byte {
	buf := new(bytes.Buffer)
	for i := range p.Orchard.Actions {
		a := &p.Orchard.Actions[i]
		buf.Write(a.Spend.Nullifier[:])
		buf.Write(a.Spend.Rk[:])
		buf.Write(a.Output.Cmx[:])
		buf.Write(a.Output.EphemeralKey[:])
		writeBytes(buf, a.Output.EncCiphertext)
	}
	buf.WriteByte(p.Orchard.Flags)
	writeInt64(buf, p.Orchard.ValueSum)
	buf.Write(p.Orchard.Anchor[:])
	return hashWithPerson(orchardPersonalization, buf.Bytes())
}

// inputDigest commits to the coin being spent by one transparent input, so
// that a signature cannot be transplanted onto a different input.
func inputDigest(p *Pczt, in *TransparentInput) [32]byte {
	buf := new(bytes.Buffer)
	buf.Write(in.PrevoutTxID[:])
	writeUint32(buf, in.PrevoutIndex)
	writeUint64(buf, in.Value)
	writeBytes(buf, in.ScriptPubKey)
	buf.WriteByte(in.SighashType)
	return hashWithPerson(inputPersonalization, buf.Bytes())
}

func hashWithPerson(person string, data []byte) [32]byte {
	h := newBlake2b256([]byte(person))
	h.Write(data)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func newBlake2b256(person []byte) hash.Hash {
	h, err := blake2b.New(&blake2b.Config{Size: 32, Person: person})
	if err != nil {
		// The configuration is static; a failure here is a bug.
		panic(err)
	}
	return h
}

func writeDigest(h hash.Hash, d [32]byte) {
	h.Write(d[:])
}
