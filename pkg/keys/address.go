package keys

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	blake2b "github.com/minio/blake2b-simd"
)

const (
	// SaplingAddressHRP is the bech32 human readable prefix of Sapling
	// receivers.
	SaplingAddressHRP = "zs"
	// OrchardAddressHRP is the bech32 human readable prefix of Orchard
	// receivers.
	OrchardAddressHRP = "uo"

	// ShieldedReceiverSize is the raw size of a diversified shielded
	// receiver: an 11-byte diversifier followed by a 32-byte transmission
	// key.
	ShieldedReceiverSize = 43

	diversifierPerson = "ZWallet_AddrDivr"
)

// TransparentAddress returns the base58 P2PKH address at the given scope and
// address index.
func (k *AccountKey) TransparentAddress(scope Scope, addressIndex uint32) (string, error) {
	sk, err := k.TransparentKey(scope, addressIndex)
	if err != nil {
		return "", err
	}
	defer sk.Zero()

	pkHash := btcutil.Hash160(sk.PubKey().SerializeCompressed())
	addr, err := btcutil.NewAddressPubKeyHash(pkHash, &chaincfg.MainNetParams)
	if err != nil {
		return "", err
	}
	return addr.EncodeAddress(), nil
}

// TransparentScript returns the P2PKH locking script for the address at the
// given scope and index.
func (k *AccountKey) TransparentScript(scope Scope, addressIndex uint32) ([]byte, error) {
	sk, err := k.TransparentKey(scope, addressIndex)
	if err != nil {
		return nil, err
	}
	defer sk.Zero()

	pkHash := btcutil.Hash160(sk.PubKey().SerializeCompressed())
	addr, err := btcutil.NewAddressPubKeyHash(pkHash, &chaincfg.MainNetParams)
	if err != nil {
		return nil, err
	}
	return txscript.PayToAddrScript(addr)
}

// SaplingAddress returns the diversified Sapling receiver at the given
// diversifier index, bech32 encoded.
func (k *AccountKey) SaplingAddress(diversifierIndex uint32) (string, error) {
	receiver := diversifiedReceiver(
		k.saplingAsk.PubKey().SerializeCompressed(), diversifierIndex,
	)
	return encodeShieldedAddress(SaplingAddressHRP, receiver)
}

// OrchardAddress returns the diversified Orchard receiver at the given
// diversifier index, bech32 encoded.
func (k *AccountKey) OrchardAddress(diversifierIndex uint32) (string, error) {
	receiver := diversifiedReceiver(
		k.orchardAsk.PubKey().SerializeCompressed(), diversifierIndex,
	)
	return encodeShieldedAddress(OrchardAddressHRP, receiver)
}

// diversifiedReceiver derives the raw 43-byte receiver for a viewing key and
// diversifier index. All receivers of an account share the account's single
// spend authority; the diversifier only unlinks addresses from one another.
func diversifiedReceiver(viewingKey []byte, diversifierIndex uint32) []byte {
	h, _ := blake2b.New(&blake2b.Config{
		Size:   ShieldedReceiverSize,
		Person: []byte(diversifierPerson),
	})
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], diversifierIndex)
	h.Write(viewingKey)
	h.Write(idx[:])
	return h.Sum(nil)
}

func encodeShieldedAddress(hrp string, receiver []byte) (string, error) {
	converted, err := bech32.ConvertBits(receiver, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(hrp, converted)
}

// DecodeShieldedAddress decodes a bech32 shielded address back into its
// prefix and raw receiver bytes.
func DecodeShieldedAddress(addr string) (string, []byte, error) {
	hrp, data, err := bech32.DecodeNoLimit(addr)
	if err != nil {
		return "", nil, err
	}
	receiver, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", nil, err
	}
	return hrp, receiver, nil
}
