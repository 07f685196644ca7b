// Package config handles runtime configuration for the keyfold CLI.
//
// The core packages take every setting as an explicit parameter and
// never read the environment themselves; this package is where the CLI
// resolves defaults and flag overrides before handing values down.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/keyfold-tech/keyfold/internal/vault"
)

// Config holds caller-supplied engine settings.
type Config struct {
	// VaultPath is the location of the encrypted vault file.
	VaultPath string

	// KDF holds the Argon2id cost parameters used when sealing the
	// vault. Existing vaults decrypt with the parameters recorded in
	// their header, not these.
	KDF vault.Params

	// Log holds logging settings.
	Log LogConfig
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
	JSON  bool
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		VaultPath: filepath.Join(DefaultDataDir(), "keyfold.vault"),
		KDF:       vault.DefaultParams(),
		Log:       LogConfig{Level: "info"},
	}
}

// Validate checks the configuration for values the engine would
// reject later.
func (c *Config) Validate() error {
	if c.VaultPath == "" {
		return fmt.Errorf("vault path must not be empty")
	}
	if c.KDF.Iterations == 0 || c.KDF.Memory == 0 || c.KDF.Parallelism == 0 {
		return fmt.Errorf("KDF parameters must be non-zero")
	}
	return nil
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.keyfold
//	macOS:   ~/Library/Application Support/Keyfold
//	Windows: %APPDATA%\Keyfold
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".keyfold"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Keyfold")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Keyfold")
		}
		return filepath.Join(home, "AppData", "Roaming", "Keyfold")
	default:
		return filepath.Join(home, ".keyfold")
	}
}
