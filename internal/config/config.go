// Package config loads process settings from the environment and game
// tuning from an optional YAML file.
package config

import (
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/belindacoding/liminal-hotel/internal/engine"
)

// Config holds everything the server reads from its environment.
type Config struct {
	Port         string   `env:"HOTEL_PORT" envDefault:"8080"`
	DBPath       string   `env:"HOTEL_DB_PATH" envDefault:"data/hotel.db"`
	AnthropicKey string   `env:"ANTHROPIC_API_KEY"`
	AdminKey     string   `env:"HOTEL_ADMIN_KEY"`
	Seed         int64    `env:"HOTEL_SEED"`
	RPCURL       string   `env:"HOTEL_RPC_URL"`
	Wallet       string   `env:"HOTEL_WALLET"`
	EntryFeeWei  string   `env:"HOTEL_ENTRY_FEE_WEI" envDefault:"1000000000000000"`
	TuningPath   string   `env:"HOTEL_TUNING"`
	CORSOrigins  []string `env:"CORS_ORIGINS" envSeparator:","`
	LogLevel     string   `env:"HOTEL_LOG_LEVEL" envDefault:"info"`
	DevMode      bool     `env:"HOTEL_DEV_MODE"`
}

// Load parses the environment.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return c, fmt.Errorf("parse env: %w", err)
	}
	c.Wallet = strings.ToLower(strings.TrimSpace(c.Wallet))
	if _, err := c.EntryFee(); err != nil {
		return c, err
	}
	return c, nil
}

// EntryFee is the minimum payment in wei.
func (c Config) EntryFee() (*big.Int, error) {
	fee, ok := new(big.Int).SetString(strings.TrimSpace(c.EntryFeeWei), 10)
	if !ok || fee.Sign() < 0 {
		return nil, fmt.Errorf("HOTEL_ENTRY_FEE_WEI: invalid amount %q", c.EntryFeeWei)
	}
	return fee, nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// LoadTuning overlays the YAML file at path onto base. An empty path
// returns base unchanged. Keys missing from the file keep their base value.
func LoadTuning(path string, base engine.Config) (engine.Config, error) {
	if path == "" {
		return base, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read tuning: %w", err)
	}
	cfg := base
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return base, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return base, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
