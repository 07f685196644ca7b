// Package wallet is the engine facade the CLI drives: mnemonic
// generation and validation, address derivation, signing, and vault
// persistence. It wires the pipeline stages together but adds no
// cryptography of its own.
package wallet

import (
	"fmt"

	"github.com/keyfold-tech/keyfold/internal/entropy"
	"github.com/keyfold-tech/keyfold/internal/hdkey"
	"github.com/keyfold-tech/keyfold/internal/log"
	"github.com/keyfold-tech/keyfold/internal/mnemonic"
	"github.com/keyfold-tech/keyfold/internal/seed"
	"github.com/keyfold-tech/keyfold/internal/vault"
	"github.com/keyfold-tech/keyfold/pkg/crypto"
	"github.com/keyfold-tech/keyfold/pkg/types"
)

// entropyBytes maps a mnemonic word count to its entropy length.
var entropyBytes = map[int]int{
	12: 16,
	15: 20,
	18: 24,
	21: 28,
	24: 32,
}

// Generate creates a fresh mnemonic of wordCount words using entropy
// from src.
func Generate(wordCount int, src entropy.Source) (string, error) {
	byteLen, ok := entropyBytes[wordCount]
	if !ok {
		return "", fmt.Errorf("%w: got %d", mnemonic.ErrInvalidWordCount, wordCount)
	}

	ent, err := src.Entropy(byteLen)
	if err != nil {
		return "", err
	}
	defer crypto.Wipe(ent)

	phrase, err := mnemonic.Encode(ent)
	if err != nil {
		return "", err
	}
	log.Wallet.Debug().Int("words", wordCount).Msg("generated mnemonic")
	return phrase, nil
}

// Validate reports the word count of a checksum-valid mnemonic.
func Validate(text string) (int, error) {
	return mnemonic.Validate(text)
}

// DeriveAddress runs the full pipeline: mnemonic to seed, seed to HD
// path endpoint, public key to chain address. The mnemonic is not
// checksum-validated here (foreign recovery phrases are accepted);
// callers wanting strict input run Validate first.
func DeriveAddress(mnemonicText, passphrase, pathText string, chain types.ChainKind) (string, error) {
	key, err := deriveKey(mnemonicText, passphrase, pathText)
	if err != nil {
		return "", err
	}
	defer key.Zero()
	return crypto.AddressFromPubKey(key.PublicKeyBytes(), chain)
}

// DeriveExtendedKey derives the extended key at a path and returns its
// xprv and xpub serializations. The xprv string is secret material.
func DeriveExtendedKey(mnemonicText, passphrase, pathText string) (xprv, xpub string, err error) {
	key, err := deriveKey(mnemonicText, passphrase, pathText)
	if err != nil {
		return "", "", err
	}
	defer key.Zero()
	return key.String(), key.PublicString(), nil
}

// SignDigest derives the key at a path and signs a 32-byte digest with
// it, returning the DER signature and the compressed public key.
// Signing is deterministic: the same mnemonic, path, and digest always
// produce the same signature.
func SignDigest(mnemonicText, passphrase, pathText string, digest []byte) (sig, pubKey []byte, err error) {
	key, err := deriveKey(mnemonicText, passphrase, pathText)
	if err != nil {
		return nil, nil, err
	}
	defer key.Zero()

	signer, err := key.Signer()
	if err != nil {
		return nil, nil, err
	}
	defer signer.Zero()

	sig, err = signer.Sign(digest)
	if err != nil {
		return nil, nil, err
	}
	return sig, signer.PublicKey(), nil
}

// deriveKey is the shared mnemonic-to-extended-key pipeline.
func deriveKey(mnemonicText, passphrase, pathText string) (*hdkey.ExtendedKey, error) {
	path, err := hdkey.ParsePath(pathText)
	if err != nil {
		return nil, err
	}

	s, err := seed.FromMnemonic(mnemonicText, passphrase)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(s)

	master, err := hdkey.NewMaster(s)
	if err != nil {
		return nil, err
	}

	key, err := master.Derive(path)
	if err != nil {
		master.Zero()
		return nil, err
	}
	if key != master {
		master.Zero()
	}
	log.Keys.Debug().Str("path", path.String()).Uint8("depth", key.Depth()).Msg("derived key")
	return key, nil
}

// Save seals secret under password and writes the vault record to
// path. The write is atomic: the previous vault is either intact or
// fully replaced.
func Save(secret, password []byte, path string, params vault.Params, src entropy.Source) error {
	done := log.Benchmark("vault-seal")
	rec, err := vault.Seal(secret, password, params, src)
	done()
	if err != nil {
		return err
	}
	if err := vault.WriteFile(path, rec); err != nil {
		return err
	}
	log.Vault.Info().Str("path", path).Int("bytes", len(rec.Ciphertext)).Msg("vault written")
	return nil
}

// Load reads the vault record at path and opens it with password.
// Callers own the returned secret and should wipe it when done.
func Load(path string, password []byte) ([]byte, error) {
	rec, err := vault.ReadFile(path)
	if err != nil {
		return nil, err
	}
	done := log.Benchmark("vault-open")
	secret, err := vault.Open(rec, password)
	done()
	if err != nil {
		return nil, err
	}
	return secret, nil
}
