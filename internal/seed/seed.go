// Package seed stretches a mnemonic into the 64-byte binary seed that
// roots an HD key tree.
package seed

import (
	"crypto/sha512"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/unicode/norm"
)

const (
	// Size is the derived seed length in bytes (512 bits).
	Size = 64

	// Iterations is the PBKDF2 iteration count fixed by BIP-39.
	Iterations = 2048

	saltPrefix = "mnemonic"
)

// ErrInvalidEncoding reports input that is not valid UTF-8.
var ErrInvalidEncoding = errors.New("input is not valid UTF-8")

// FromMnemonic derives the seed with PBKDF2-HMAC-SHA512 over the NFKD
// normalized mnemonic, salted with "mnemonic" plus the passphrase.
//
// The mnemonic is deliberately NOT checksum-validated here: seed
// derivation is defined over any well-formed word sequence, so recovery
// phrases from foreign wallets keep working. Callers wanting strict
// input run mnemonic.Validate first. Callers own the returned buffer
// and should wipe it when done.
func FromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	if !utf8.ValidString(mnemonic) {
		return nil, fmt.Errorf("mnemonic: %w", ErrInvalidEncoding)
	}
	if !utf8.ValidString(passphrase) {
		return nil, fmt.Errorf("passphrase: %w", ErrInvalidEncoding)
	}

	phrase := norm.NFKD.String(strings.Join(strings.Fields(mnemonic), " "))
	salt := norm.NFKD.String(saltPrefix + passphrase)

	return pbkdf2.Key([]byte(phrase), []byte(salt), Iterations, Size, sha512.New), nil
}
