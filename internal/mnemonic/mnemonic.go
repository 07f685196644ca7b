// Package mnemonic implements the BIP-39 codec: entropy to phrase,
// phrase to entropy, and checksum validation against the standard
// 2048-word English list.
package mnemonic

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tyler-smith/go-bip39/wordlists"
)

const (
	// WordBits is the number of entropy+checksum bits each word encodes.
	WordBits = 11

	// WordlistSize is the number of words in the BIP-39 English list.
	WordlistSize = 2048
)

var (
	// ErrInvalidEntropyLength reports entropy outside the five lengths
	// BIP-39 defines.
	ErrInvalidEntropyLength = errors.New("entropy length must be 16, 20, 24, 28, or 32 bytes")

	// ErrInvalidWordCount reports a phrase whose word count is not a
	// valid BIP-39 length.
	ErrInvalidWordCount = errors.New("word count must be 12, 15, 18, 21, or 24")

	// ErrWordNotInList reports a word absent from the wordlist. The
	// wrapped message names the offending word.
	ErrWordNotInList = errors.New("word not in list")

	// ErrChecksumMismatch reports a phrase of known words whose
	// embedded checksum does not match its entropy.
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

var (
	wordIndexOnce sync.Once
	wordIndex     map[string]int
)

// indexOf returns the 11-bit index of a word, building the reverse
// lookup table on first use.
func indexOf(word string) (int, bool) {
	wordIndexOnce.Do(func() {
		wordIndex = make(map[string]int, WordlistSize)
		for i, w := range wordlists.English {
			wordIndex[w] = i
		}
	})
	i, ok := wordIndex[word]
	return i, ok
}

// IsValidWord reports whether word appears in the English wordlist.
func IsValidWord(word string) bool {
	_, ok := indexOf(word)
	return ok
}

// Encode converts entropy into a BIP-39 phrase. The checksum is the
// first len(entropy)*8/32 bits of SHA-256(entropy), appended after the
// entropy bits before the stream is split into 11-bit word indices,
// most significant bit first. Deterministic: no randomness is added at
// this stage.
func Encode(entropy []byte) (string, error) {
	switch len(entropy) {
	case 16, 20, 24, 28, 32:
	default:
		return "", fmt.Errorf("%w: got %d", ErrInvalidEntropyLength, len(entropy))
	}

	entBits := len(entropy) * 8
	csBits := entBits / 32
	wordCount := (entBits + csBits) / WordBits

	sum := sha256.Sum256(entropy)

	// Contiguous bitstream: entropy followed by the checksum bits. The
	// checksum is at most 8 bits, so one extra byte always suffices.
	bits := make([]byte, 0, len(entropy)+1)
	bits = append(bits, entropy...)
	bits = append(bits, sum[0])

	words := make([]string, wordCount)
	for i := 0; i < wordCount; i++ {
		idx := 0
		for b := 0; b < WordBits; b++ {
			pos := i*WordBits + b
			idx <<= 1
			if bits[pos/8]&(1<<uint(7-pos%8)) != 0 {
				idx |= 1
			}
		}
		words[i] = wordlists.English[idx]
	}
	return strings.Join(words, " "), nil
}

// Decode converts a phrase back into its entropy bytes, verifying the
// checksum. It is the exact inverse of Encode for every valid entropy
// length. Callers own the returned buffer and should wipe it when done.
func Decode(phrase string) ([]byte, error) {
	words := strings.Fields(phrase)
	switch len(words) {
	case 12, 15, 18, 21, 24:
	default:
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWordCount, len(words))
	}

	totalBits := len(words) * WordBits
	csBits := totalBits / 33
	entBits := totalBits - csBits

	buf := make([]byte, (totalBits+7)/8)
	for i, w := range words {
		idx, ok := indexOf(w)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrWordNotInList, w)
		}
		for b := 0; b < WordBits; b++ {
			if idx&(1<<uint(WordBits-1-b)) != 0 {
				pos := i*WordBits + b
				buf[pos/8] |= 1 << uint(7-pos%8)
			}
		}
	}

	entropy := make([]byte, entBits/8)
	copy(entropy, buf[:entBits/8])

	sum := sha256.Sum256(entropy)
	for b := 0; b < csBits; b++ {
		pos := entBits + b
		got := buf[pos/8]&(1<<uint(7-pos%8)) != 0
		want := sum[b/8]&(1<<uint(7-b%8)) != 0
		if got != want {
			return nil, ErrChecksumMismatch
		}
	}
	return entropy, nil
}

// Validate checks word count, wordlist membership, and the checksum,
// returning the word count on success. Membership alone is not enough:
// a phrase of known words with a wrong final word fails with
// ErrChecksumMismatch.
func Validate(phrase string) (int, error) {
	entropy, err := Decode(phrase)
	if err != nil {
		return 0, err
	}
	for i := range entropy {
		entropy[i] = 0
	}
	return len(strings.Fields(phrase)), nil
}
