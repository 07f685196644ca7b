package crypto

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// DigestSize is the exact digest length Sign and VerifySignature accept.
const DigestSize = 32

// Signer signs 32-byte digests with a secp256k1 private key.
type Signer interface {
	// Sign produces a DER-encoded ECDSA signature over a 32-byte digest.
	Sign(digest []byte) ([]byte, error)
	// PublicKey returns the compressed 33-byte public key.
	PublicKey() []byte
}

// PrivateKey wraps a secp256k1 private key for deterministic ECDSA
// signing.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKey creates a new random secp256k1 private key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes creates a PrivateKey from a 32-byte secret.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(b))
	}
	return &PrivateKey{key: secp256k1.PrivKeyFromBytes(b)}, nil
}

// Sign produces a DER-encoded ECDSA signature over a 32-byte digest.
// Nonces follow RFC 6979, so identical key and digest always yield an
// identical signature.
func (pk *PrivateKey) Sign(digest []byte) ([]byte, error) {
	if len(digest) != DigestSize {
		return nil, fmt.Errorf("digest must be %d bytes, got %d", DigestSize, len(digest))
	}
	return ecdsa.Sign(pk.key, digest).Serialize(), nil
}

// PublicKey returns the compressed 33-byte public key.
func (pk *PrivateKey) PublicKey() []byte {
	return pk.key.PubKey().SerializeCompressed()
}

// Serialize returns the 32-byte private key scalar.
func (pk *PrivateKey) Serialize() []byte {
	return pk.key.Serialize()
}

// Zero securely zeroes the private key memory.
func (pk *PrivateKey) Zero() {
	pk.key.Zero()
}

// VerifySignature checks a DER-encoded ECDSA signature against a
// 32-byte digest and a compressed public key. Malformed and
// non-canonical (high-S) encodings return false; they are never
// normalized and never cause a panic or error.
func VerifySignature(digest, signature, publicKey []byte) bool {
	if len(digest) != DigestSize {
		return false
	}
	pubKey, err := secp256k1.ParsePubKey(publicKey)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(signature)
	if err != nil {
		return false
	}
	if !hasCanonicalS(signature) {
		return false
	}
	return sig.Verify(digest, pubKey)
}

// ECDSAVerifier implements the Verifier interface over secp256k1.
type ECDSAVerifier struct{}

// Verify checks a signature against a digest and compressed public key.
func (ECDSAVerifier) Verify(digest, signature, publicKey []byte) bool {
	return VerifySignature(digest, signature, publicKey)
}

// Verifier verifies ECDSA/secp256k1 signatures.
type Verifier interface {
	Verify(digest, signature, publicKey []byte) bool
}

// hasCanonicalS reports whether the S component of a strict DER
// signature is at most half the curve order. ParseDERSignature has
// already validated the DER structure when this runs; the bounds
// checks only guard against being called with raw input.
func hasCanonicalS(der []byte) bool {
	if len(der) < 6 {
		return false
	}
	rLen := int(der[3])
	sOff := 4 + rLen + 2
	if sOff > len(der) {
		return false
	}
	sLen := int(der[sOff-1])
	if sLen == 0 || sOff+sLen > len(der) {
		return false
	}
	sBytes := der[sOff : sOff+sLen]
	for len(sBytes) > 0 && sBytes[0] == 0 {
		sBytes = sBytes[1:]
	}
	if len(sBytes) > 32 {
		return false
	}
	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(sBytes); overflow {
		return false
	}
	return !s.IsOverHalfOrder()
}
