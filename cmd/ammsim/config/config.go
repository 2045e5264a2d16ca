// Package config loads the simulator's YAML configuration and scenario files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

const (
	DefaultChainID        = 31337
	DefaultStartTimestamp = 1_700_000_000
	DefaultLogLevel       = "info"
)

var ErrInvalidConfig = errors.New("config: invalid")

// SimConfig is the top-level simulator configuration.
type SimConfig struct {
	ChainID        uint64 `yaml:"chain_id"`
	StartTimestamp uint64 `yaml:"start_timestamp"`
	LogLevel       string `yaml:"log_level"`

	// Deployer becomes the factory governor. FeeTo, when set, receives the governor fee share.
	Deployer string `yaml:"deployer"`
	FeeTo    string `yaml:"fee_to"`

	Fees FeeConfig `yaml:"fees"`

	// MetricsOutput is a file the prometheus registry is written to after the run.
	MetricsOutput string `yaml:"metrics_output"`
	// EventsOutput is a file the full-state and diff events are appended to, one JSON line each.
	EventsOutput string `yaml:"events_output"`
	PrintDiffs   bool   `yaml:"print_diffs"`

	// Scenario is resolved relative to the config file.
	Scenario string `yaml:"scenario"`
}

// FeeConfig holds pair fee settings as 1e18-scaled decimal strings. Empty fields keep the defaults.
type FeeConfig struct {
	VolatileFee      string `yaml:"volatile_fee"`
	StableFee        string `yaml:"stable_fee"`
	GovernorFeeShare string `yaml:"governor_fee_share"`
}

// LoadConfig reads and validates the config at path.
func LoadConfig(path string) (*SimConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, err
	}
	if cfg.Scenario != "" && !filepath.IsAbs(cfg.Scenario) {
		cfg.Scenario = filepath.Join(filepath.Dir(path), cfg.Scenario)
	}
	return cfg, nil
}

// ParseConfig decodes YAML config, applies defaults and validates the result.
func ParseConfig(data []byte) (*SimConfig, error) {
	var cfg SimConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *SimConfig) applyDefaults() {
	if c.ChainID == 0 {
		c.ChainID = DefaultChainID
	}
	if c.StartTimestamp == 0 {
		c.StartTimestamp = DefaultStartTimestamp
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

func (c *SimConfig) validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	if !common.IsHexAddress(c.Deployer) || common.HexToAddress(c.Deployer) == (common.Address{}) {
		return fmt.Errorf("%w: deployer %q is not a non-zero address", ErrInvalidConfig, c.Deployer)
	}
	if c.FeeTo != "" && !common.IsHexAddress(c.FeeTo) {
		return fmt.Errorf("%w: fee_to %q is not an address", ErrInvalidConfig, c.FeeTo)
	}
	for name, v := range map[string]string{
		"volatile_fee":       c.Fees.VolatileFee,
		"stable_fee":         c.Fees.StableFee,
		"governor_fee_share": c.Fees.GovernorFeeShare,
	} {
		if v == "" {
			continue
		}
		if _, err := ParseAmount(v, 0); err != nil {
			return fmt.Errorf("%w: fees.%s: %v", ErrInvalidConfig, name, err)
		}
	}
	if c.Scenario == "" {
		return fmt.Errorf("%w: scenario path is required", ErrInvalidConfig)
	}
	return nil
}

// DeployerAddress returns the parsed deployer address.
func (c *SimConfig) DeployerAddress() common.Address {
	return common.HexToAddress(c.Deployer)
}

// FeeToAddress returns the parsed fee recipient, or the zero address when unset.
func (c *SimConfig) FeeToAddress() common.Address {
	if c.FeeTo == "" {
		return common.Address{}
	}
	return common.HexToAddress(c.FeeTo)
}
