// Package hdkey implements BIP-32 hierarchical deterministic key
// derivation over secp256k1: master key generation from a seed,
// hardened and normal child derivation, watch-only (public-only)
// derivation, and extended-key serialization.
package hdkey

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/keyfold-tech/keyfold/pkg/crypto"
)

const (
	// HardenedOffset is the first hardened child index (2^31).
	HardenedOffset uint32 = 0x80000000

	// MaxDepth is the deepest level an extended key can occupy.
	MaxDepth = 255

	minSeedSize = 16
	maxSeedSize = 64
)

// masterHMACKey is the BIP-32 domain-separation key for master key
// generation.
var masterHMACKey = []byte("Bitcoin seed")

var (
	// ErrInvalidSeedLength reports a seed outside 16..64 bytes.
	ErrInvalidSeedLength = errors.New("seed must be between 16 and 64 bytes")

	// ErrInvalidMasterKey reports the astronomically rare seed whose
	// master key hash is zero or at least the curve order. The caller's
	// recovery is to derive from a different seed.
	ErrInvalidMasterKey = errors.New("derived master key is zero or exceeds the curve order")

	// ErrInvalidChildKey reports an index whose derivation produces an
	// invalid key. The caller's recovery is to skip to the next index;
	// the library never substitutes one itself.
	ErrInvalidChildKey = errors.New("derived child key is invalid for this index")

	// ErrDepthOverflow reports derivation past depth 255.
	ErrDepthOverflow = errors.New("derivation depth exceeds 255")

	// ErrHardenedFromPublicKey reports hardened derivation attempted on
	// a public-only key, which is impossible by construction.
	ErrHardenedFromPublicKey = errors.New("cannot derive a hardened child from a public-only key")

	// ErrPublicOnlyKey reports an operation that needs the private key
	// invoked on a public-only key.
	ErrPublicOnlyKey = errors.New("operation requires the private key")
)

// errKeyOutOfRange is the internal marker for a hash output that does
// not form a valid scalar.
var errKeyOutOfRange = errors.New("key out of range")

// ExtendedKey is a node in a BIP-32 key tree. A key is either full
// (private plus public) or public-only; hardened derivation and
// signing require the private part, while normal derivation works on
// both and preserves the capability of the parent.
type ExtendedKey struct {
	priv              *secp256k1.PrivateKey // nil for public-only keys
	pub               *secp256k1.PublicKey
	chainCode         [32]byte
	depth             uint8
	parentFingerprint [4]byte
	childIndex        uint32
}

// NewMaster derives the depth-0 master key from a seed by keying
// HMAC-SHA512 with "Bitcoin seed": the left 32 bytes become the master
// private key, the right 32 bytes the chain code.
func NewMaster(seedBytes []byte) (*ExtendedKey, error) {
	if len(seedBytes) < minSeedSize || len(seedBytes) > maxSeedSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSeedLength, len(seedBytes))
	}

	mac := hmac.New(sha512.New, masterHMACKey)
	mac.Write(seedBytes)
	sum := mac.Sum(nil)
	defer crypto.Wipe(sum)

	priv, err := privKeyFromIL(sum[:32])
	if err != nil {
		return nil, ErrInvalidMasterKey
	}

	k := &ExtendedKey{priv: priv, pub: priv.PubKey()}
	copy(k.chainCode[:], sum[32:])
	return k, nil
}

// privKeyFromIL converts the left half of a derivation hash into a
// private key, rejecting zero and values at or above the curve order.
func privKeyFromIL(il []byte) (*secp256k1.PrivateKey, error) {
	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(il); overflow {
		return nil, errKeyOutOfRange
	}
	if s.IsZero() {
		return nil, errKeyOutOfRange
	}
	return secp256k1.NewPrivateKey(&s), nil
}

// Child derives the child key at index. Indices at or above
// HardenedOffset use hardened derivation, which requires the private
// key; lower indices use normal derivation and work on public-only
// keys too, yielding a public-only child.
func (k *ExtendedKey) Child(index uint32) (*ExtendedKey, error) {
	if k.depth == MaxDepth {
		return nil, fmt.Errorf("%w: at depth %d", ErrDepthOverflow, k.depth)
	}

	hardened := index >= HardenedOffset
	if hardened && k.priv == nil {
		return nil, fmt.Errorf("%w: index %d", ErrHardenedFromPublicKey, index)
	}

	// Hardened: 0x00 || ser256(parent_priv) || ser32(index)
	// Normal:   serP(parent_pub) || ser32(index)
	data := make([]byte, 0, 37)
	if hardened {
		privBytes := k.priv.Serialize()
		data = append(data, 0x00)
		data = append(data, privBytes...)
		crypto.Wipe(privBytes)
	} else {
		data = append(data, k.pub.SerializeCompressed()...)
	}
	data = binary.BigEndian.AppendUint32(data, index)
	defer crypto.Wipe(data)

	mac := hmac.New(sha512.New, k.chainCode[:])
	mac.Write(data)
	sum := mac.Sum(nil)
	defer crypto.Wipe(sum)

	child := &ExtendedKey{
		depth:      k.depth + 1,
		childIndex: index,
	}
	copy(child.chainCode[:], sum[32:])
	copy(child.parentFingerprint[:], crypto.Hash160(k.pub.SerializeCompressed())[:4])

	var il secp256k1.ModNScalar
	if overflow := il.SetByteSlice(sum[:32]); overflow {
		return nil, fmt.Errorf("%w: index %d", ErrInvalidChildKey, index)
	}
	defer il.Zero()

	if k.priv != nil {
		// Child private key = (IL + parent_priv) mod n.
		childScalar := new(secp256k1.ModNScalar).Add2(&il, &k.priv.Key)
		if childScalar.IsZero() {
			return nil, fmt.Errorf("%w: index %d", ErrInvalidChildKey, index)
		}
		child.priv = secp256k1.NewPrivateKey(childScalar)
		child.pub = child.priv.PubKey()
		childScalar.Zero()
		return child, nil
	}

	// Public-only: child public key = IL*G + parent_pub.
	var ilPoint, parentPoint, childPoint secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&il, &ilPoint)
	k.pub.AsJacobian(&parentPoint)
	secp256k1.AddNonConst(&ilPoint, &parentPoint, &childPoint)
	childPoint.ToAffine()
	if childPoint.X.IsZero() && childPoint.Y.IsZero() {
		return nil, fmt.Errorf("%w: index %d is the point at infinity", ErrInvalidChildKey, index)
	}
	child.pub = secp256k1.NewPublicKey(&childPoint.X, &childPoint.Y)
	return child, nil
}

// Derive applies Child for each path segment in order, wiping the
// intermediate keys as it goes. The first failing segment aborts, and
// its error names the segment for diagnostics.
func (k *ExtendedKey) Derive(path Path) (*ExtendedKey, error) {
	current := k
	for i, seg := range path {
		child, err := current.Child(seg.Index())
		if current != k {
			current.Zero()
		}
		if err != nil {
			return nil, fmt.Errorf("segment %d (%s): %w", i, seg, err)
		}
		current = child
	}
	return current, nil
}

// Neuter returns a public-only copy for watch-only use. The copy
// supports normal derivation but not hardened derivation or signing.
func (k *ExtendedKey) Neuter() *ExtendedKey {
	n := *k
	n.priv = nil
	return &n
}

// IsPrivate reports whether the key carries its private component.
func (k *ExtendedKey) IsPrivate() bool {
	return k.priv != nil
}

// Depth returns the derivation depth (0 for the master key).
func (k *ExtendedKey) Depth() uint8 {
	return k.depth
}

// ChildIndex returns the index this key was derived at, hardened bit
// included. Zero for the master key.
func (k *ExtendedKey) ChildIndex() uint32 {
	return k.childIndex
}

// ParentFingerprint returns the first 4 bytes of hash160 of the parent
// public key. Zero for the master key.
func (k *ExtendedKey) ParentFingerprint() [4]byte {
	return k.parentFingerprint
}

// Fingerprint returns this key's own hash160-based fingerprint.
func (k *ExtendedKey) Fingerprint() [4]byte {
	var fp [4]byte
	copy(fp[:], crypto.Hash160(k.pub.SerializeCompressed())[:4])
	return fp
}

// ChainCode returns a copy of the 32-byte chain code.
func (k *ExtendedKey) ChainCode() [32]byte {
	return k.chainCode
}

// PublicKeyBytes returns the compressed 33-byte public key.
func (k *ExtendedKey) PublicKeyBytes() []byte {
	return k.pub.SerializeCompressed()
}

// PrivateKeyBytes returns the raw 32-byte private key. Callers own the
// buffer and should wipe it when done.
func (k *ExtendedKey) PrivateKeyBytes() ([]byte, error) {
	if k.priv == nil {
		return nil, ErrPublicOnlyKey
	}
	return k.priv.Serialize(), nil
}

// Signer returns a crypto.Signer backed by this key's private part.
func (k *ExtendedKey) Signer() (*crypto.PrivateKey, error) {
	if k.priv == nil {
		return nil, ErrPublicOnlyKey
	}
	privBytes := k.priv.Serialize()
	defer crypto.Wipe(privBytes)
	return crypto.PrivateKeyFromBytes(privBytes)
}

// Zero wipes the private key material and chain code. The key must not
// be used afterwards.
func (k *ExtendedKey) Zero() {
	if k.priv != nil {
		k.priv.Zero()
	}
	crypto.Wipe(k.chainCode[:])
}
