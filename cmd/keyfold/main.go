// keyfold is an offline command-line tool for hierarchical
// deterministic wallet keys: mnemonic generation and validation, seed
// and address derivation, signing, and encrypted vault storage.
package main

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/keyfold-tech/keyfold/config"
	"github.com/keyfold-tech/keyfold/internal/entropy"
	"github.com/keyfold-tech/keyfold/internal/hdkey"
	"github.com/keyfold-tech/keyfold/internal/log"
	"github.com/keyfold-tech/keyfold/internal/mnemonic"
	"github.com/keyfold-tech/keyfold/internal/seed"
	"github.com/keyfold-tech/keyfold/internal/vault"
	"github.com/keyfold-tech/keyfold/internal/wallet"
	"github.com/keyfold-tech/keyfold/pkg/crypto"
	"github.com/keyfold-tech/keyfold/pkg/types"
)

// Exit codes, stable for scripting.
const (
	exitOK         = 0
	exitErr        = 1
	exitValidation = 2
	exitDerivation = 3
	exitVaultAuth  = 4
)

func main() {
	cfg := config.Default()

	// Scan for global flags that appear before the subcommand.
	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--vault" && len(args) > 1:
			cfg.VaultPath = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--vault="):
			cfg.VaultPath = args[0][len("--vault="):]
			args = args[1:]
		case args[0] == "--kdf-iterations" && len(args) > 1:
			n, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				fail(exitErr, fmt.Errorf("invalid --kdf-iterations: %q", args[1]))
			}
			cfg.KDF.Iterations = uint32(n)
			args = args[2:]
		case args[0] == "--kdf-memory" && len(args) > 1:
			n, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				fail(exitErr, fmt.Errorf("invalid --kdf-memory: %q", args[1]))
			}
			cfg.KDF.Memory = uint32(n)
			args = args[2:]
		case args[0] == "--log-level" && len(args) > 1:
			cfg.Log.Level = args[1]
			args = args[2:]
		case args[0] == "--log-json":
			cfg.Log.JSON = true
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	log.Init(cfg.Log.Level, cfg.Log.JSON)
	log.CLI.Debug().Str("vault", cfg.VaultPath).Msg("configured")

	if err := cfg.Validate(); err != nil {
		fail(exitErr, err)
	}
	if len(args) == 0 {
		usage()
		os.Exit(exitErr)
	}

	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "generate":
		cmdGenerate(cmdArgs)
	case "validate":
		cmdValidate(cmdArgs)
	case "seed":
		cmdSeed(cmdArgs)
	case "derive":
		cmdDerive(cmdArgs)
	case "xkey":
		cmdXKey(cmdArgs)
	case "sign":
		cmdSign(cmdArgs)
	case "save":
		cmdSave(cmdArgs, cfg)
	case "load":
		cmdLoad(cfg)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		usage()
		os.Exit(exitErr)
	}
}

func usage() {
	fmt.Println(`keyfold - offline HD wallet key management

Usage:
  keyfold [global flags] <command> [args]

Commands:
  generate [--words <12|15|18|21|24>]          Generate a new mnemonic
  validate "<mnemonic>"                        Validate a mnemonic (checksum included)
  seed "<mnemonic>" [passphrase]               Derive the 64-byte seed (hex)
  derive "<mnemonic>" <path> [chain] [pass]    Derive an address (chain: bitcoin|ethereum|keyfold)
  xkey "<mnemonic>" <path> [passphrase]        Derive the extended key (xprv/xpub)
  sign "<mnemonic>" <path> <digest-hex> [pass] Sign a 32-byte digest at a path
  save "<mnemonic>"                            Encrypt the mnemonic into the vault
  load                                         Decrypt and print the vault contents
  help                                         Show this help

Global flags:
  --vault <path>           Vault file location (default: platform data dir)
  --kdf-iterations <n>     Argon2id iterations for new vaults
  --kdf-memory <KiB>       Argon2id memory for new vaults
  --log-level <level>      debug|info|warn|error
  --log-json               JSON log output

Exit codes: 0 ok, 2 validation failure, 3 derivation failure,
4 vault authentication failure, 1 other errors.`)
}

func cmdGenerate(args []string) {
	words := 24
	if len(args) >= 2 && args[0] == "--words" {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			fail(exitValidation, fmt.Errorf("invalid --words: %q", args[1]))
		}
		words = n
	}

	phrase, err := wallet.Generate(words, entropy.System{})
	if err != nil {
		fail(codeFor(err), err)
	}
	fmt.Println(phrase)
	fmt.Fprintln(os.Stderr, "write this phrase down and store it securely; it cannot be recovered")
}

func cmdValidate(args []string) {
	if len(args) < 1 {
		fail(exitErr, errors.New("usage: keyfold validate \"<mnemonic>\""))
	}
	count, err := wallet.Validate(args[0])
	if err != nil {
		fail(codeFor(err), err)
	}
	fmt.Printf("valid %d-word mnemonic\n", count)
}

func cmdSeed(args []string) {
	if len(args) < 1 {
		fail(exitErr, errors.New("usage: keyfold seed \"<mnemonic>\" [passphrase]"))
	}
	passphrase := ""
	if len(args) > 1 {
		passphrase = args[1]
	}

	s, err := seed.FromMnemonic(args[0], passphrase)
	if err != nil {
		fail(codeFor(err), err)
	}
	fmt.Println(hex.EncodeToString(s))
	crypto.Wipe(s)
}

func cmdDerive(args []string) {
	if len(args) < 2 {
		fail(exitErr, errors.New("usage: keyfold derive \"<mnemonic>\" <path> [chain] [passphrase]"))
	}
	chainName := "keyfold"
	if len(args) > 2 {
		chainName = args[2]
	}
	passphrase := ""
	if len(args) > 3 {
		passphrase = args[3]
	}

	chain, err := types.ParseChainKind(chainName)
	if err != nil {
		fail(codeFor(err), err)
	}
	addr, err := wallet.DeriveAddress(args[0], passphrase, args[1], chain)
	if err != nil {
		fail(codeFor(err), err)
	}
	fmt.Println(addr)
}

func cmdXKey(args []string) {
	if len(args) < 2 {
		fail(exitErr, errors.New("usage: keyfold xkey \"<mnemonic>\" <path> [passphrase]"))
	}
	passphrase := ""
	if len(args) > 2 {
		passphrase = args[2]
	}

	xprv, xpub, err := wallet.DeriveExtendedKey(args[0], passphrase, args[1])
	if err != nil {
		fail(codeFor(err), err)
	}
	fmt.Printf("xprv: %s\nxpub: %s\n", xprv, xpub)
}

func cmdSign(args []string) {
	if len(args) < 3 {
		fail(exitErr, errors.New("usage: keyfold sign \"<mnemonic>\" <path> <digest-hex> [passphrase]"))
	}
	passphrase := ""
	if len(args) > 3 {
		passphrase = args[3]
	}

	digest, err := hex.DecodeString(strings.TrimPrefix(args[2], "0x"))
	if err != nil {
		fail(exitValidation, fmt.Errorf("invalid digest hex: %w", err))
	}

	sig, pubKey, err := wallet.SignDigest(args[0], passphrase, args[1], digest)
	if err != nil {
		fail(codeFor(err), err)
	}
	fmt.Printf("signature: %s\npubkey:    %s\n", hex.EncodeToString(sig), hex.EncodeToString(pubKey))
}

func cmdSave(args []string, cfg *config.Config) {
	if len(args) < 1 {
		fail(exitErr, errors.New("usage: keyfold save \"<mnemonic>\""))
	}
	phrase := args[0]

	if _, err := wallet.Validate(phrase); err != nil {
		fail(codeFor(err), err)
	}

	password, err := promptPassword("vault password: ")
	if err != nil {
		fail(exitErr, err)
	}
	defer crypto.Wipe(password)
	confirm, err := promptPassword("confirm password: ")
	if err != nil {
		fail(exitErr, err)
	}
	defer crypto.Wipe(confirm)
	if string(password) != string(confirm) {
		fail(exitErr, errors.New("passwords do not match"))
	}

	secret := []byte(phrase)
	defer crypto.Wipe(secret)
	if err := wallet.Save(secret, password, cfg.VaultPath, cfg.KDF, entropy.System{}); err != nil {
		fail(codeFor(err), err)
	}
	fmt.Printf("vault written to %s\n", cfg.VaultPath)
}

func cmdLoad(cfg *config.Config) {
	password, err := promptPassword("vault password: ")
	if err != nil {
		fail(exitErr, err)
	}
	defer crypto.Wipe(password)

	secret, err := wallet.Load(cfg.VaultPath, password)
	if err != nil {
		fail(codeFor(err), err)
	}
	fmt.Println(string(secret))
	crypto.Wipe(secret)
}

// promptPassword reads a password without echo when stdin is a
// terminal, falling back to a plain line read for piped input.
func promptPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		defer fmt.Fprintln(os.Stderr)
		return term.ReadPassword(fd)
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return nil, fmt.Errorf("read password: %w", err)
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}

// codeFor maps engine errors to the documented exit codes.
func codeFor(err error) int {
	switch {
	case errors.Is(err, mnemonic.ErrInvalidWordCount),
		errors.Is(err, mnemonic.ErrWordNotInList),
		errors.Is(err, mnemonic.ErrChecksumMismatch),
		errors.Is(err, mnemonic.ErrInvalidEntropyLength),
		errors.Is(err, hdkey.ErrInvalidPathSyntax),
		errors.Is(err, hdkey.ErrIndexOutOfRange),
		errors.Is(err, seed.ErrInvalidEncoding),
		errors.Is(err, types.ErrUnsupportedChain):
		return exitValidation
	case errors.Is(err, hdkey.ErrInvalidMasterKey),
		errors.Is(err, hdkey.ErrInvalidChildKey),
		errors.Is(err, hdkey.ErrDepthOverflow),
		errors.Is(err, hdkey.ErrHardenedFromPublicKey),
		errors.Is(err, hdkey.ErrPublicOnlyKey),
		errors.Is(err, hdkey.ErrInvalidSeedLength):
		return exitDerivation
	case errors.Is(err, vault.ErrAuthenticationFailed),
		errors.Is(err, vault.ErrUnsupportedVersion),
		errors.Is(err, vault.ErrTruncatedRecord):
		return exitVaultAuth
	default:
		return exitErr
	}
}

func fail(code int, err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(code)
}
