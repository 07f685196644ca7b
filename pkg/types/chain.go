// Package types defines the chain-facing value types shared across
// Keyfold packages.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// ChainKind identifies an address encoding family.
type ChainKind string

// Supported chains.
const (
	ChainBitcoin  ChainKind = "bitcoin"
	ChainEthereum ChainKind = "ethereum"
	ChainKeyfold  ChainKind = "keyfold"
)

// KeyfoldHRP is the bech32 human-readable part for native addresses.
const KeyfoldHRP = "kfd"

// ErrUnsupportedChain reports an unrecognized chain tag.
var ErrUnsupportedChain = errors.New("unsupported chain")

// ParseChainKind maps a user-supplied chain name to a ChainKind.
func ParseChainKind(s string) (ChainKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bitcoin", "btc":
		return ChainBitcoin, nil
	case "ethereum", "eth":
		return ChainEthereum, nil
	case "keyfold", "kfd":
		return ChainKeyfold, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedChain, s)
}

// String returns the canonical chain name.
func (c ChainKind) String() string {
	return string(c)
}
