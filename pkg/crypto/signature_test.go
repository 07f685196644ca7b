package crypto

import (
	"bytes"
	"crypto/sha256"
	"math/big"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

func testDigest(s string) []byte {
	sum := sha256.Sum256([]byte(s))
	return sum[:]
}

func TestSignDeterministic(t *testing.T) {
	key, err := PrivateKeyFromBytes(bytes.Repeat([]byte{0x42}, 32))
	if err != nil {
		t.Fatalf("PrivateKeyFromBytes: %v", err)
	}
	digest := testDigest("hello")

	a, err := key.Sign(digest)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	b, err := key.Sign(digest)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("signing the same digest twice produced different signatures")
	}

	c, err := key.Sign(testDigest("other"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if bytes.Equal(a, c) {
		t.Error("different digests produced the same signature")
	}
}

func TestSignDigestLength(t *testing.T) {
	key, _ := PrivateKeyFromBytes(bytes.Repeat([]byte{0x42}, 32))
	for _, n := range []int{0, 16, 31, 33, 64} {
		if _, err := key.Sign(make([]byte, n)); err == nil {
			t.Errorf("Sign accepted a %d-byte digest", n)
		}
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	digest := testDigest("payload")

	sig, err := key.Sign(digest)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !VerifySignature(digest, sig, key.PublicKey()) {
		t.Fatal("valid signature did not verify")
	}

	// Wrong digest.
	if VerifySignature(testDigest("tampered"), sig, key.PublicKey()) {
		t.Error("signature verified against the wrong digest")
	}

	// Wrong key.
	other, _ := GenerateKey()
	if VerifySignature(digest, sig, other.PublicKey()) {
		t.Error("signature verified against the wrong key")
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	key, _ := PrivateKeyFromBytes(bytes.Repeat([]byte{0x42}, 32))
	digest := testDigest("payload")
	sig, err := key.Sign(digest)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	pub := key.PublicKey()

	tests := []struct {
		name string
		sig  []byte
	}{
		{"empty", nil},
		{"garbage", []byte{0xde, 0xad, 0xbe, 0xef}},
		{"truncated", sig[:len(sig)-4]},
		{"trailing bytes", append(append([]byte{}, sig...), 0x00)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if VerifySignature(digest, tt.sig, pub) {
				t.Error("malformed signature verified")
			}
		})
	}

	// Flipping any byte of a valid signature must fail verification.
	for i := range sig {
		mutated := append([]byte{}, sig...)
		mutated[i] ^= 0x01
		if VerifySignature(digest, mutated, pub) {
			t.Errorf("signature with byte %d flipped still verified", i)
		}
	}
}

func TestVerifyRejectsBadPublicKey(t *testing.T) {
	key, _ := PrivateKeyFromBytes(bytes.Repeat([]byte{0x42}, 32))
	digest := testDigest("payload")
	sig, _ := key.Sign(digest)

	for _, pub := range [][]byte{nil, {0x02}, make([]byte, 33), make([]byte, 65)} {
		if VerifySignature(digest, sig, pub) {
			t.Errorf("signature verified against invalid public key of %d bytes", len(pub))
		}
	}
}

// A signature whose S component is mirrored across the curve order is
// mathematically valid but not canonical; verification must refuse it
// rather than normalize it.
func TestVerifyRejectsHighS(t *testing.T) {
	key, _ := PrivateKeyFromBytes(bytes.Repeat([]byte{0x42}, 32))
	digest := testDigest("payload")
	sig, err := key.Sign(digest)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	r, s := parseDER(t, sig)
	sHigh := new(big.Int).Sub(secp256k1.S256().N, s)
	highSig := encodeDER(r, sHigh)

	if VerifySignature(digest, highSig, key.PublicKey()) {
		t.Error("high-S signature verified")
	}
	// Sanity: the original low-S form still verifies.
	if !VerifySignature(digest, sig, key.PublicKey()) {
		t.Error("canonical signature no longer verifies")
	}
}

// parseDER splits a DER ECDSA signature into its R and S integers.
func parseDER(t *testing.T, der []byte) (r, s *big.Int) {
	t.Helper()
	if len(der) < 8 || der[0] != 0x30 || der[2] != 0x02 {
		t.Fatalf("unexpected DER framing: %x", der)
	}
	rLen := int(der[3])
	r = new(big.Int).SetBytes(der[4 : 4+rLen])
	sOff := 4 + rLen
	if der[sOff] != 0x02 {
		t.Fatalf("unexpected DER framing: %x", der)
	}
	sLen := int(der[sOff+1])
	s = new(big.Int).SetBytes(der[sOff+2 : sOff+2+sLen])
	return r, s
}

// encodeDER builds a DER ECDSA signature from R and S integers.
func encodeDER(r, s *big.Int) []byte {
	intBytes := func(v *big.Int) []byte {
		b := v.Bytes()
		if len(b) == 0 || b[0]&0x80 != 0 {
			b = append([]byte{0x00}, b...)
		}
		return b
	}
	rb, sb := intBytes(r), intBytes(s)

	out := []byte{0x30, byte(4 + len(rb) + len(sb)), 0x02, byte(len(rb))}
	out = append(out, rb...)
	out = append(out, 0x02, byte(len(sb)))
	out = append(out, sb...)
	return out
}

func TestPrivateKeyFromBytesLength(t *testing.T) {
	for _, n := range []int{0, 16, 31, 33, 64} {
		if _, err := PrivateKeyFromBytes(make([]byte, n)); err == nil {
			t.Errorf("accepted a %d-byte private key", n)
		}
	}
}
