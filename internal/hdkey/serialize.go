package hdkey

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/btcutil/base58"

	"github.com/keyfold-tech/keyfold/pkg/crypto"
)

// BIP-32 serialization version prefixes (mainnet).
var (
	versionXprv = [4]byte{0x04, 0x88, 0xad, 0xe4}
	versionXpub = [4]byte{0x04, 0x88, 0xb2, 0x1e}
)

// String returns the Base58Check xprv encoding of a full key. For a
// public-only key it falls back to the xpub form. The xprv string is
// itself secret material.
func (k *ExtendedKey) String() string {
	if k.priv == nil {
		return k.PublicString()
	}
	keyMaterial := make([]byte, 0, 33)
	privBytes := k.priv.Serialize()
	keyMaterial = append(keyMaterial, 0x00)
	keyMaterial = append(keyMaterial, privBytes...)
	crypto.Wipe(privBytes)
	out := k.serialize(versionXprv, keyMaterial)
	crypto.Wipe(keyMaterial)
	return out
}

// PublicString returns the Base58Check xpub encoding.
func (k *ExtendedKey) PublicString() string {
	return k.serialize(versionXpub, k.pub.SerializeCompressed())
}

// serialize builds the 78-byte BIP-32 payload and Base58Check encodes
// it: version(4) | depth(1) | parent_fp(4) | child_index(4) |
// chain_code(32) | key_material(33) | checksum(4).
func (k *ExtendedKey) serialize(version [4]byte, keyMaterial []byte) string {
	buf := make([]byte, 0, 82)
	buf = append(buf, version[:]...)
	buf = append(buf, k.depth)
	buf = append(buf, k.parentFingerprint[:]...)
	buf = binary.BigEndian.AppendUint32(buf, k.childIndex)
	buf = append(buf, k.chainCode[:]...)
	buf = append(buf, keyMaterial...)

	chk := crypto.DoubleSha256(buf)
	buf = append(buf, chk[:4]...)

	out := base58.Encode(buf)
	crypto.Wipe(buf)
	return out
}
