// Package vault seals secrets under a password with Argon2id and
// XChaCha20-Poly1305 and persists the sealed record atomically.
package vault

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/keyfold-tech/keyfold/internal/entropy"
	"github.com/keyfold-tech/keyfold/pkg/crypto"
)

const (
	// Version is the current record format version.
	Version = 1

	// SaltSize is the Argon2id salt length in bytes.
	SaltSize = 32

	// NonceSize is the XChaCha20-Poly1305 nonce length in bytes.
	NonceSize = chacha20poly1305.NonceSizeX

	// Record binary layout, all fields fixed-width or length-prefixed:
	// version(1) | salt(32) | memory(4) | iterations(4) | parallelism(1) |
	// nonce(24) | ctlen(4) | ciphertext+tag
	headerSize = 1 + SaltSize + 4 + 4 + 1 + NonceSize + 4
)

// Params holds the Argon2id cost parameters for the vault KDF.
type Params struct {
	Memory      uint32 // in KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultParams returns the recommended Argon2id parameters.
func DefaultParams() Params {
	return Params{
		Memory:      64 * 1024, // 64 MB
		Iterations:  3,
		Parallelism: 4,
	}
}

// Sanity bounds for cost parameters. Records claiming costs outside
// these bounds are rejected before any key derivation runs, so a
// tampered header cannot drive Argon2 into a panic or an absurd
// allocation.
const (
	maxMemoryKiB  = 4 * 1024 * 1024 // 4 GiB
	maxIterations = 1 << 16
)

func (p Params) sane() bool {
	return p.Memory >= 8 && p.Memory <= maxMemoryKiB &&
		p.Iterations >= 1 && p.Iterations <= maxIterations &&
		p.Parallelism >= 1
}

var (
	// ErrEmptyPassword reports a zero-length password on seal.
	ErrEmptyPassword = errors.New("password must not be empty")

	// ErrInvalidParams reports KDF cost parameters outside the sane
	// range on seal.
	ErrInvalidParams = errors.New("invalid KDF parameters")

	// ErrAuthenticationFailed covers wrong password, tampered
	// ciphertext, and corrupted salt or nonce alike. The cases are
	// deliberately indistinguishable so the vault gives no oracle.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrUnsupportedVersion reports a record format version this build
	// does not recognize.
	ErrUnsupportedVersion = errors.New("unsupported vault format version")

	// ErrTruncatedRecord reports a record too short to parse.
	ErrTruncatedRecord = errors.New("vault record is truncated")
)

// Record is a sealed vault entry.
type Record struct {
	Version    uint8
	Salt       [SaltSize]byte
	Params     Params
	Nonce      [NonceSize]byte
	Ciphertext []byte // includes the 16-byte Poly1305 tag
}

// deriveKey uses Argon2id to derive the cipher key from password and
// salt.
func deriveKey(password, salt []byte, params Params) []byte {
	return argon2.IDKey(
		password,
		salt,
		params.Iterations,
		params.Memory,
		params.Parallelism,
		chacha20poly1305.KeySize,
	)
}

// Seal encrypts plaintext under password. Salt and nonce are drawn
// fresh from src on every call, so sealing the same vault twice never
// reuses a nonce.
func Seal(plaintext, password []byte, params Params, src entropy.Source) (*Record, error) {
	if len(password) == 0 {
		return nil, ErrEmptyPassword
	}
	if !params.sane() {
		return nil, fmt.Errorf("%w: memory=%d iterations=%d parallelism=%d",
			ErrInvalidParams, params.Memory, params.Iterations, params.Parallelism)
	}

	salt, err := src.Entropy(SaltSize)
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	nonce, err := src.Entropy(NonceSize)
	if err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	key := deriveKey(password, salt, params)
	defer crypto.Wipe(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	r := &Record{Version: Version, Params: params}
	copy(r.Salt[:], salt)
	copy(r.Nonce[:], nonce)
	r.Ciphertext = aead.Seal(nil, r.Nonce[:], plaintext, nil)
	return r, nil
}

// Open decrypts a sealed record. Wrong password, tampered ciphertext,
// and corrupted salt, nonce, or cost parameters all surface as
// ErrAuthenticationFailed with no distinguishing detail.
func Open(r *Record, password []byte) ([]byte, error) {
	if r.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, r.Version)
	}
	if !r.Params.sane() {
		return nil, ErrAuthenticationFailed
	}

	key := deriveKey(password, r.Salt[:], r.Params)
	defer crypto.Wipe(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	plaintext, err := aead.Open(nil, r.Nonce[:], r.Ciphertext, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

// Marshal encodes the record into its binary form.
func (r *Record) Marshal() []byte {
	out := make([]byte, 0, headerSize+len(r.Ciphertext))
	out = append(out, r.Version)
	out = append(out, r.Salt[:]...)
	out = binary.LittleEndian.AppendUint32(out, r.Params.Memory)
	out = binary.LittleEndian.AppendUint32(out, r.Params.Iterations)
	out = append(out, r.Params.Parallelism)
	out = append(out, r.Nonce[:]...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(r.Ciphertext)))
	out = append(out, r.Ciphertext...)
	return out
}

// UnmarshalRecord parses a binary record. Unknown versions fail before
// any cryptographic work; short or inconsistent lengths fail as
// truncated.
func UnmarshalRecord(data []byte) (*Record, error) {
	if len(data) == 0 {
		return nil, ErrTruncatedRecord
	}
	if data[0] != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, data[0])
	}
	if len(data) < headerSize+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d",
			ErrTruncatedRecord, len(data), headerSize+chacha20poly1305.Overhead)
	}

	r := &Record{Version: data[0]}
	off := 1
	copy(r.Salt[:], data[off:off+SaltSize])
	off += SaltSize
	r.Params.Memory = binary.LittleEndian.Uint32(data[off:])
	off += 4
	r.Params.Iterations = binary.LittleEndian.Uint32(data[off:])
	off += 4
	r.Params.Parallelism = data[off]
	off++
	copy(r.Nonce[:], data[off:off+NonceSize])
	off += NonceSize
	ctLen := binary.LittleEndian.Uint32(data[off:])
	off += 4

	if int(ctLen) != len(data)-off {
		return nil, fmt.Errorf("%w: ciphertext length %d does not match record",
			ErrTruncatedRecord, ctLen)
	}
	r.Ciphertext = make([]byte, ctLen)
	copy(r.Ciphertext, data[off:])
	return r, nil
}
