// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config assembles the settings a host process needs to wire up a
// wallet, its payment channel extension, and the node used for broadcasting.
// Values are read from PAYCHAN_-prefixed environment variables with sane
// defaults, then validated.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds every tunable of a paychan host process.
type Config struct {
	// DataDir is the directory holding the wallet database.
	DataDir string

	// WalletFile is the wallet database filename inside DataDir.
	WalletFile string

	// Network selects the chain: mainnet, testnet or regtest.
	Network string

	// NodeURL is the JSON-RPC endpoint used to broadcast transactions.
	NodeURL string

	// NodeUser and NodePassword are the node's Basic Auth credentials.
	// Empty NodeUser disables authentication.
	NodeUser     string
	NodePassword string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// Environment variable names, without the PAYCHAN_ prefix.
var (
	envDataDir      = "DATADIR"
	envWalletFile   = "WALLET_FILE"
	envNetwork      = "NETWORK"
	envNodeURL      = "NODE_URL"
	envNodeUser     = "NODE_USER"
	envNodePassword = "NODE_PASSWORD"
	envLogLevel     = "LOG_LEVEL"
)

const (
	defaultWalletFile = "wallet.db"
	defaultNetwork    = "mainnet"
	defaultNodeURL    = "http://localhost:8332"
	defaultLogLevel   = "info"
)

// defaultDataDir returns ~/.paychan, falling back to the working directory
// when the home directory cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".paychan"
	}
	return filepath.Join(home, ".paychan")
}

// Load reads the configuration from the environment, applies defaults, and
// validates the result.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PAYCHAN")
	v.AutomaticEnv()

	v.SetDefault(envDataDir, defaultDataDir())
	v.SetDefault(envWalletFile, defaultWalletFile)
	v.SetDefault(envNetwork, defaultNetwork)
	v.SetDefault(envNodeURL, defaultNodeURL)
	v.SetDefault(envNodeUser, "")
	v.SetDefault(envNodePassword, "")
	v.SetDefault(envLogLevel, defaultLogLevel)

	cfg := &Config{
		DataDir:      v.GetString(envDataDir),
		WalletFile:   v.GetString(envWalletFile),
		Network:      v.GetString(envNetwork),
		NodeURL:      v.GetString(envNodeURL),
		NodeUser:     v.GetString(envNodeUser),
		NodePassword: v.GetString(envNodePassword),
		LogLevel:     v.GetString(envLogLevel),
	}

	if err := ValidateConfig(*cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WalletPath returns the full path of the wallet database file.
func (c *Config) WalletPath() string {
	return filepath.Join(c.DataDir, c.WalletFile)
}
