package pczt

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
)

// Wire format: "PCZT" (4 bytes) || version (u32le) || encoded body.
//
// The body uses varint length prefixes for sequences, strings, and byte
// slices, a single 0x00/0x01 byte for optional fields, and little-endian
// fixed-width integers. Map entries are encoded in ascending key order so
// that serialization is deterministic.
const (
	// Magic prefixes every serialized container.
	Magic = "PCZT"
	// Version1 is the only container version currently produced.
	Version1 uint32 = 1
)

// Serialize encodes a container to its versioned binary form.
func Serialize(p *Pczt) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.WriteString(Magic)
	writeUint32(buf, Version1)

	encodeGlobal(buf, &p.Global)
	encodeTransparentBundle(buf, &p.Transparent)
	encodeSaplingBundle(buf, &p.Sapling)
	encodeOrchardBundle(buf, &p.Orchard)

	return buf.Bytes(), nil
}

// Parse decodes a container from its versioned binary form.
func Parse(data []byte) (*Pczt, error) {
	if len(data) < 8 {
		return nil, ErrTruncated
	}
	if string(data[:4]) != Magic {
		return nil, ErrInvalidMagic
	}
	if version := binary.LittleEndian.Uint32(data[4:8]); version != Version1 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	r := bytes.NewReader(data[8:])
	p := &Pczt{}
	if err := decodeGlobal(r, &p.Global); err != nil {
		return nil, err
	}
	if err := decodeTransparentBundle(r, &p.Transparent); err != nil {
		return nil, err
	}
	if err := decodeSaplingBundle(r, &p.Sapling); err != nil {
		return nil, err
	}
	if err := decodeOrchardBundle(r, &p.Orchard); err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, r.Len())
	}
	return p, nil
}

// EncodeBase64 returns the portable text encoding of a container, suitable
// for transport over text-based RPC.
func EncodeBase64(p *Pczt) (string, error) {
	raw, err := Serialize(p)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeBase64 parses a container from its portable text encoding.
func DecodeBase64(s string) (*Pczt, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Parse(raw)
}

func encodeGlobal(w *bytes.Buffer, g *Global) {
	writeUint32(w, g.TxVersion)
	writeUint32(w, g.VersionGroupID)
	writeUint32(w, g.ConsensusBranchID)
	writeUint32(w, g.ExpiryHeight)
	writeUint32(w, g.CoinType)
	writeProprietary(w, g.Proprietary)
}

func decodeGlobal(r *bytes.Reader, g *Global) error {
	var err error
	if g.TxVersion, err = readUint32(r); err != nil {
		return err
	}
	if g.VersionGroupID, err = readUint32(r); err != nil {
		return err
	}
	if g.ConsensusBranchID, err = readUint32(r); err != nil {
		return err
	}
	if g.ExpiryHeight, err = readUint32(r); err != nil {
		return err
	}
	if g.CoinType, err = readUint32(r); err != nil {
		return err
	}
	if g.Proprietary, err = readProprietary(r); err != nil {
		return err
	}
	return nil
}

func encodeTransparentBundle(w *bytes.Buffer, b *TransparentBundle) {
	writeVarint(w, uint64(len(b.Inputs)))
	for i := range b.Inputs {
		encodeTransparentInput(w, &b.Inputs[i])
	}
	writeVarint(w, uint64(len(b.Outputs)))
	for i := range b.Outputs {
		encodeTransparentOutput(w, &b.Outputs[i])
	}
}

func decodeTransparentBundle(r *bytes.Reader, b *TransparentBundle) error {
	n, err := readVarint(r)
	if err != nil {
		return err
	}
	b.Inputs = make([]TransparentInput, 0, n)
	for i := uint64(0); i < n; i++ {
		var in TransparentInput
		if err := decodeTransparentInput(r, &in); err != nil {
			return err
		}
		b.Inputs = append(b.Inputs, in)
	}

	n, err = readVarint(r)
	if err != nil {
		return err
	}
	b.Outputs = make([]TransparentOutput, 0, n)
	for i := uint64(0); i < n; i++ {
		var out TransparentOutput
		if err := decodeTransparentOutput(r, &out); err != nil {
			return err
		}
		b.Outputs = append(b.Outputs, out)
	}
	return nil
}

func encodeTransparentInput(w *bytes.Buffer, in *TransparentInput) {
	w.Write(in.PrevoutTxID[:])
	writeUint32(w, in.PrevoutIndex)
	writeUint64(w, in.Value)
	writeBytes(w, in.ScriptPubKey)
	w.WriteByte(in.SighashType)
	writeBytes(w, in.ScriptSig)
	writeSignatures(w, in.PartialSignatures)
	writeProprietary(w, in.Proprietary)
}

func decodeTransparentInput(r *bytes.Reader, in *TransparentInput) error {
	if err := readFull(r, in.PrevoutTxID[:]); err != nil {
		return err
	}
	var err error
	if in.PrevoutIndex, err = readUint32(r); err != nil {
		return err
	}
	if in.Value, err = readUint64(r); err != nil {
		return err
	}
	if in.ScriptPubKey, err = readBytes(r); err != nil {
		return err
	}
	if in.SighashType, err = r.ReadByte(); err != nil {
		return ErrTruncated
	}
	if in.ScriptSig, err = readBytes(r); err != nil {
		return err
	}
	if in.PartialSignatures, err = readSignatures(r); err != nil {
		return err
	}
	if in.Proprietary, err = readProprietary(r); err != nil {
		return err
	}
	return nil
}

func encodeTransparentOutput(w *bytes.Buffer, out *TransparentOutput) {
	writeUint64(w, out.Value)
	writeBytes(w, out.ScriptPubKey)
	writeString(w, out.UserAddress)
	writeProprietary(w, out.Proprietary)
}

func decodeTransparentOutput(r *bytes.Reader, out *TransparentOutput) error {
	var err error
	if out.Value, err = readUint64(r); err != nil {
		return err
	}
	if out.ScriptPubKey, err = readBytes(r); err != nil {
		return err
	}
	if out.UserAddress, err = readString(r); err != nil {
		return err
	}
	if out.Proprietary, err = readProprietary(r); err != nil {
		return err
	}
	return nil
}

func encodeSaplingBundle(w *bytes.Buffer, b *SaplingBundle) {
	writeVarint(w, uint64(len(b.Spends)))
	for i := range b.Spends {
		encodeSaplingSpend(w, &b.Spends[i])
	}
	writeVarint(w, uint64(len(b.Outputs)))
	for i := range b.Outputs {
		encodeSaplingOutput(w, &b.Outputs[i])
	}
	writeInt64(w, b.ValueSum)
	w.Write(b.Anchor[:])
}

func decodeSaplingBundle(r *bytes.Reader, b *SaplingBundle) error {
	n, err := readVarint(r)
	if err != nil {
		return err
	}
	b.Spends = make([]SaplingSpend, 0, n)
	for i := uint64(0); i < n; i++ {
		var spend SaplingSpend
		if err := decodeSaplingSpend(r, &spend); err != nil {
			return err
		}
		b.Spends = append(b.Spends, spend)
	}

	n, err = readVarint(r)
	if err != nil {
		return err
	}
	b.Outputs = make([]SaplingOutput, 0, n)
	for i := uint64(0); i < n; i++ {
		var out SaplingOutput
		if err := decodeSaplingOutput(r, &out); err != nil {
			return err
		}
		b.Outputs = append(b.Outputs, out)
	}

	if b.ValueSum, err = readInt64(r); err != nil {
		return err
	}
	return readFull(r, b.Anchor[:])
}

func encodeSaplingSpend(w *bytes.Buffer, s *SaplingSpend) {
	w.Write(s.Nullifier[:])
	w.Write(s.Rk[:])
	writeOption32(w, s.Alpha)
	writeOption64(w, s.SpendAuthSig)
	writeOptionUint64(w, s.Value)
	writeOption43(w, s.Recipient)
	writeProprietary(w, s.Proprietary)
}

func decodeSaplingSpend(r *bytes.Reader, s *SaplingSpend) error {
	if err := readFull(r, s.Nullifier[:]); err != nil {
		return err
	}
	if err := readFull(r, s.Rk[:]); err != nil {
		return err
	}
	var err error
	if s.Alpha, err = readOption32(r); err != nil {
		return err
	}
	if s.SpendAuthSig, err = readOption64(r); err != nil {
		return err
	}
	if s.Value, err = readOptionUint64(r); err != nil {
		return err
	}
	if s.Recipient, err = readOption43(r); err != nil {
		return err
	}
	if s.Proprietary, err = readProprietary(r); err != nil {
		return err
	}
	return nil
}

func encodeSaplingOutput(w *bytes.Buffer, o *SaplingOutput) {
	w.Write(o.Cmu[:])
	w.Write(o.EphemeralKey[:])
	writeBytes(w, o.EncCiphertext)
	writeOptionUint64(w, o.Value)
	writeOption43(w, o.Recipient)
	writeString(w, o.UserAddress)
	writeProprietary(w, o.Proprietary)
}

func decodeSaplingOutput(r *bytes.Reader, o *SaplingOutput) error {
	if err := readFull(r, o.Cmu[:]); err != nil {
		return err
	}
	if err := readFull(r, o.EphemeralKey[:]); err != nil {
		return err
	}
	var err error
	if o.EncCiphertext, err = readBytes(r); err != nil {
		return err
	}
	if o.Value, err = readOptionUint64(r); err != nil {
		return err
	}
	if o.Recipient, err = readOption43(r); err != nil {
		return err
	}
	if o.UserAddress, err = readString(r); err != nil {
		return err
	}
	if o.Proprietary, err = readProprietary(r); err != nil {
		return err
	}
	return nil
}

func encodeOrchardBundle(w *bytes.Buffer, b *OrchardBundle) {
	writeVarint(w, uint64(len(b.Actions)))
	for i := range b.Actions {
		encodeOrchardAction(w, &b.Actions[i])
	}
	w.WriteByte(b.Flags)
	writeInt64(w, b.ValueSum)
	w.Write(b.Anchor[:])
	writeBytes(w, b.ZkProof)
}

func decodeOrchardBundle(r *bytes.Reader, b *OrchardBundle) error {
	n, err := readVarint(r)
	if err != nil {
		return err
	}
	b.Actions = make([]OrchardAction, 0, n)
	for i := uint64(0); i < n; i++ {
		var action OrchardAction
		if err := decodeOrchardAction(r, &action); err != nil {
			return err
		}
		b.Actions = append(b.Actions, action)
	}

	if b.Flags, err = r.ReadByte(); err != nil {
		return ErrTruncated
	}
	if b.ValueSum, err = readInt64(r); err != nil {
		return err
	}
	if err := readFull(r, b.Anchor[:]); err != nil {
		return err
	}
	if b.ZkProof, err = readBytes(r); err != nil {
		return err
	}
	return nil
}

func encodeOrchardAction(w *bytes.Buffer, a *OrchardAction) {
	encodeOrchardSpend(w, &a.Spend)
	encodeOrchardOutput(w, &a.Output)
}

func decodeOrchardAction(r *bytes.Reader, a *OrchardAction) error {
	if err := decodeOrchardSpend(r, &a.Spend); err != nil {
		return err
	}
	return decodeOrchardOutput(r, &a.Output)
}

func encodeOrchardSpend(w *bytes.Buffer, s *OrchardSpend) {
	w.Write(s.Nullifier[:])
	w.Write(s.Rk[:])
	writeOption32(w, s.Alpha)
	writeOption64(w, s.SpendAuthSig)
	writeOptionUint64(w, s.Value)
	writeOption43(w, s.Recipient)
	writeProprietary(w, s.Proprietary)
}

func decodeOrchardSpend(r *bytes.Reader, s *OrchardSpend) error {
	if err := readFull(r, s.Nullifier[:]); err != nil {
		return err
	}
	if err := readFull(r, s.Rk[:]); err != nil {
		return err
	}
	var err error
	if s.Alpha, err = readOption32(r); err != nil {
		return err
	}
	if s.SpendAuthSig, err = readOption64(r); err != nil {
		return err
	}
	if s.Value, err = readOptionUint64(r); err != nil {
		return err
	}
	if s.Recipient, err = readOption43(r); err != nil {
		return err
	}
	if s.Proprietary, err = readProprietary(r); err != nil {
		return err
	}
	return nil
}

func encodeOrchardOutput(w *bytes.Buffer, o *OrchardOutput) {
	w.Write(o.Cmx[:])
	w.Write(o.EphemeralKey[:])
	writeBytes(w, o.EncCiphertext)
	writeOptionUint64(w, o.Value)
	writeOption43(w, o.Recipient)
	writeString(w, o.UserAddress)
	writeProprietary(w, o.Proprietary)
}

func decodeOrchardOutput(r *bytes.Reader, o *OrchardOutput) error {
	if err := readFull(r, o.Cmx[:]); err != nil {
		return err
	}
	if err := readFull(r, o.EphemeralKey[:]); err != nil {
		return err
	}
	var err error
	if o.EncCiphertext, err = readBytes(r); err != nil {
		return err
	}
	if o.Value, err = readOptionUint64(r); err != nil {
		return err
	}
	if o.Recipient, err = readOption43(r); err != nil {
		return err
	}
	if o.UserAddress, err = readString(r); err != nil {
		return err
	}
	if o.Proprietary, err = readProprietary(r); err != nil {
		return err
	}
	return nil
}

// Primitive writers.

func writeVarint(w *bytes.Buffer, n uint64) {
	var tmp [binary.MaxVarintLen64]byte
	size := binary.PutUvarint(tmp[:], n)
	w.Write(tmp[:size])
}

func writeUint32(w *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	w.Write(tmp[:])
}

func writeUint64(w *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.Write(tmp[:])
}

func writeInt64(w *bytes.Buffer, v int64) {
	writeUint64(w, uint64(v))
}

func writeBytes(w *bytes.Buffer, b []byte) {
	writeVarint(w, uint64(len(b)))
	w.Write(b)
}

func writeString(w *bytes.Buffer, s string) {
	writeVarint(w, uint64(len(s)))
	w.WriteString(s)
}

func writeOption32(w *bytes.Buffer, v *[32]byte) {
	if v == nil {
		w.WriteByte(0x00)
		return
	}
	w.WriteByte(0x01)
	w.Write(v[:])
}

func writeOption43(w *bytes.Buffer, v *[43]byte) {
	if v == nil {
		w.WriteByte(0x00)
		return
	}
	w.WriteByte(0x01)
	w.Write(v[:])
}

func writeOption64(w *bytes.Buffer, v *[64]byte) {
	if v == nil {
		w.WriteByte(0x00)
		return
	}
	w.WriteByte(0x01)
	w.Write(v[:])
}

func writeOptionUint64(w *bytes.Buffer, v *uint64) {
	if v == nil {
		w.WriteByte(0x00)
		return
	}
	w.WriteByte(0x01)
	writeUint64(w, *v)
}

func writeProprietary(w *bytes.Buffer, m map[string][]byte) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	writeVarint(w, uint64(len(keys)))
	for _, k := range keys {
		writeString(w, k)
		writeBytes(w, m[k])
	}
}

func writeSignatures(w *bytes.Buffer, m map[[33]byte][]byte) {
	keys := make([][33]byte, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i][:], keys[j][:]) < 0
	})

	writeVarint(w, uint64(len(keys)))
	for _, k := range keys {
		w.Write(k[:])
		writeBytes(w, m[k])
	}
}

// Primitive readers.

func readFull(r *bytes.Reader, dst []byte) error {
	if _, err := io.ReadFull(r, dst); err != nil {
		return ErrTruncated
	}
	return nil
}

func readVarint(r *bytes.Reader) (uint64, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, ErrTruncated
	}
	return n, nil
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var tmp [4]byte
	if err := readFull(r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(tmp[:]), nil
}

func readUint64(r *bytes.Reader) (uint64, error) {
	var tmp [8]byte
	if err := readFull(r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(tmp[:]), nil
}

func readInt64(r *bytes.Reader) (int64, error) {
	v, err := readUint64(r)
	return int64(v), err
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	n, err := readVarint(r)
	if err != nil {
		return nil, err
	}
	if n > uint64(r.Len()) {
		return nil, ErrTruncated
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]byte, n)
	if err := readFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

func readString(r *bytes.Reader) (string, error) {
	b, err := readBytes(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func readOption32(r *bytes.Reader) (*[32]byte, error) {
	present, err := readOptionTag(r)
	if err != nil || !present {
		return nil, err
	}
	var v [32]byte
	if err := readFull(r, v[:]); err != nil {
		return nil, err
	}
	return &v, nil
}

func readOption43(r *bytes.Reader) (*[43]byte, error) {
	present, err := readOptionTag(r)
	if err != nil || !present {
		return nil, err
	}
	var v [43]byte
	if err := readFull(r, v[:]); err != nil {
		return nil, err
	}
	return &v, nil
}

func readOption64(r *bytes.Reader) (*[64]byte, error) {
	present, err := readOptionTag(r)
	if err != nil || !present {
		return nil, err
	}
	var v [64]byte
	if err := readFull(r, v[:]); err != nil {
		return nil, err
	}
	return &v, nil
}

func readOptionUint64(r *bytes.Reader) (*uint64, error) {
	present, err := readOptionTag(r)
	if err != nil || !present {
		return nil, err
	}
	v, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func readOptionTag(r *bytes.Reader) (bool, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return false, ErrTruncated
	}
	switch tag {
	case 0x00:
		return false, nil
	case 0x01:
		return true, nil
	default:
		return false, fmt.Errorf("%w: invalid option tag 0x%02x", ErrMalformed, tag)
	}
}

func readProprietary(r *bytes.Reader) (map[string][]byte, error) {
	n, err := readVarint(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	m := make(map[string][]byte, n)
	for i := uint64(0); i < n; i++ {
		k, err := readString(r)
		if err != nil {
			return nil, err
		}
		v, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}

func readSignatures(r *bytes.Reader) (map[[33]byte][]byte, error) {
	n, err := readVarint(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	m := make(map[[33]byte][]byte, n)
	for i := uint64(0); i < n; i++ {
		var k [33]byte
		if err := readFull(r, k[:]); err != nil {
			return nil, err
		}
		v, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}
