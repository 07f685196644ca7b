// Package crypto provides the hashing and signing primitives for Keyfold.
package crypto

import (
	"crypto/sha256"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"
)

// Hash computes a BLAKE3-256 hash of the input data.
func Hash(data []byte) [32]byte {
	return blake3.Sum256(data)
}

// Hash160 computes RIPEMD160(SHA256(data)), the digest behind BIP-32
// fingerprints and Bitcoin pay-to-pubkey-hash addresses.
func Hash160(data []byte) []byte {
	sum := sha256.Sum256(data)
	h := ripemd160.New()
	h.Write(sum[:])
	return h.Sum(nil)
}

// DoubleSha256 computes SHA256(SHA256(data)).
func DoubleSha256(data []byte) [32]byte {
	first := sha256.Sum256(data)
	return sha256.Sum256(first[:])
}

// Keccak256 computes a legacy Keccak-256 hash (pre-NIST padding), the
// variant Ethereum uses for addresses.
func Keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}
