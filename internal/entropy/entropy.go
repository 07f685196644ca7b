// Package entropy supplies cryptographically secure random bytes
// behind an injectable interface, so production code always reads the
// OS generator while tests can replay fixed vectors.
package entropy

import (
	"crypto/rand"
	"errors"
	"fmt"
)

// ErrInsufficientRandomness indicates the underlying source could not
// supply secure random bytes.
var ErrInsufficientRandomness = errors.New("insufficient randomness")

// Source supplies cryptographically secure random bytes.
// Implementations must never reuse a seeded pseudo-random stream
// across invocations.
type Source interface {
	Entropy(n int) ([]byte, error)
}

// System reads from the operating system CSPRNG.
type System struct{}

// Entropy returns n random bytes from crypto/rand.
func (System) Entropy(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("entropy length must be positive, got %d", n)
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsufficientRandomness, err)
	}
	return b, nil
}

// Fixed replays a fixed byte sequence so tests can drive the mnemonic
// and vault pipelines with known vectors. Never use it in production.
type Fixed struct {
	buf []byte
	off int
}

// NewFixed returns a Fixed source that serves b front to back.
func NewFixed(b []byte) *Fixed {
	return &Fixed{buf: b}
}

// Entropy returns the next n bytes of the fixed sequence, or
// ErrInsufficientRandomness once the sequence is exhausted.
func (f *Fixed) Entropy(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("entropy length must be positive, got %d", n)
	}
	if f.off+n > len(f.buf) {
		return nil, fmt.Errorf("%w: fixed source exhausted", ErrInsufficientRandomness)
	}
	out := make([]byte, n)
	copy(out, f.buf[f.off:f.off+n])
	f.off += n
	return out, nil
}
