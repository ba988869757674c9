// Package daemon manages the pobal node lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/pobal-network/pobal/internal/logging"
)

// Config holds all node configuration.
type Config struct {
	Node      NodeConfig      `toml:"node"`
	Chain     ChainConfig     `toml:"chain"`
	API       APIConfig       `toml:"api"`
	Treasury  TreasuryConfig  `toml:"treasury"`
	Logging   logging.Config  `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// NodeConfig identifies the coordinator owner.
type NodeConfig struct {
	// Owner defaults to the operator key's principal when empty.
	Owner string `toml:"owner"`
}

// ChainConfig controls block time and the era length used by `pobal init`.
type ChainConfig struct {
	BlockTime       string `toml:"block_time"`
	InitialInterval uint64 `toml:"initial_interval"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	RequireSignatures bool   `toml:"require_signatures"`
}

// TreasuryConfig controls payouts and the local faucet.
type TreasuryConfig struct {
	// Blocked principals reject every incoming payout.
	Blocked []string `toml:"blocked"`
	Faucet  bool     `toml:"faucet"`
}

// TelemetryConfig controls the metrics endpoint.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Chain: ChainConfig{
			BlockTime:       "6s",
			InitialInterval: 100,
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 9944,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "text",
			File:   filepath.Join(pobalHome(), "pobal.log"),
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
	}
}

// LoadConfig reads config from $POBAL_HOME/config.toml, falling back to defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := ConfigPath()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes the config to $POBAL_HOME/config.toml.
func SaveConfig(cfg Config) error {
	path := ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// ConfigPath returns the location of config.toml.
func ConfigPath() string {
	return filepath.Join(pobalHome(), "config.toml")
}

// pobalHome returns the pobal data directory.
func pobalHome() string {
	if env := os.Getenv("POBAL_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".pobal")
}

// PobalHome is exported for use by other packages.
func PobalHome() string {
	return pobalHome()
}
