package crypto

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/keyfold-tech/keyfold/pkg/types"
)

// bitcoinP2PKHVersion is the mainnet pay-to-pubkey-hash version byte.
const bitcoinP2PKHVersion = 0x00

// AddressFromPubKey encodes a compressed secp256k1 public key as an
// address for the given chain. The mapping is deterministic: the same
// key and chain always produce the same string.
func AddressFromPubKey(pubKey []byte, chain types.ChainKind) (string, error) {
	parsed, err := secp256k1.ParsePubKey(pubKey)
	if err != nil {
		return "", fmt.Errorf("parse public key: %w", err)
	}
	switch chain {
	case types.ChainBitcoin:
		return bitcoinAddress(parsed), nil
	case types.ChainEthereum:
		return ethereumAddress(parsed), nil
	case types.ChainKeyfold:
		return keyfoldAddress(parsed)
	default:
		return "", fmt.Errorf("%w: %q", types.ErrUnsupportedChain, chain)
	}
}

// bitcoinAddress builds a legacy P2PKH address:
// Base58Check(version || hash160(compressed_pubkey)).
func bitcoinAddress(pub *secp256k1.PublicKey) string {
	return base58.CheckEncode(Hash160(pub.SerializeCompressed()), bitcoinP2PKHVersion)
}

// ethereumAddress builds an EIP-55 checksum-cased hex address from the
// last 20 bytes of keccak256 over the uncompressed public key point.
func ethereumAddress(pub *secp256k1.PublicKey) string {
	unc := pub.SerializeUncompressed()
	digest := Keccak256(unc[1:])
	return checksumHex(digest[12:])
}

// checksumHex applies EIP-55 casing: a hex letter is uppercased when
// the matching nibble of keccak256(lowercase_hex) is 8 or above.
func checksumHex(addr []byte) string {
	out := []byte(hex.EncodeToString(addr))
	sum := Keccak256(out)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nib := sum[i/2]
		if i%2 == 0 {
			nib >>= 4
		} else {
			nib &= 0x0f
		}
		if nib >= 8 {
			out[i] = c - ('a' - 'A')
		}
	}
	return "0x" + string(out)
}

// keyfoldAddress builds the native bech32 address:
// bech32(kfd, blake3(compressed_pubkey)[:20]).
func keyfoldAddress(pub *secp256k1.PublicKey) (string, error) {
	sum := Hash(pub.SerializeCompressed())
	conv, err := bech32.ConvertBits(sum[:20], 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("bech32 convert: %w", err)
	}
	addr, err := bech32.Encode(types.KeyfoldHRP, conv)
	if err != nil {
		return "", fmt.Errorf("bech32 encode: %w", err)
	}
	return addr, nil
}
