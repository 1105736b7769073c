package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultFeeBps             = uint32(25)
	DefaultMicroUnitsPerUSD   = int64(10)
	DefaultValidityWindowSecs = int64(7 * 24 * 60 * 60)
)

type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	// NodeURL points at the chain node's REST API. When empty the daemon
	// serves from the local box mirror in DataDir instead.
	NodeURL       string `toml:"NodeURL"`
	NodeAuthToken string `toml:"NodeAuthToken"`
	DataDir       string `toml:"DataDir"`
	LogDir        string `toml:"LogDir"`

	AppID      uint64 `toml:"AppID"`
	AppAddress string `toml:"AppAddress"`
	// SettlementAssetID selects the stablecoin used for asset-backed
	// funding; zero means the native unit.
	SettlementAssetID uint64 `toml:"SettlementAssetID"`

	FeeBps             uint32 `toml:"FeeBps"`
	MicroUnitsPerUSD   int64  `toml:"MicroUnitsPerUSD"`
	ValidityWindowSecs int64  `toml:"ValidityWindowSecs"`

	RPCAuthToken       string  `toml:"RPCAuthToken"`
	RateLimitPerMinute float64 `toml:"RateLimitPerMinute"`
	RateBurst          int     `toml:"RateBurst"`
}

// Load loads the configuration from the given path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8080"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./tradeflow-data"
	}
	if cfg.FeeBps == 0 {
		cfg.FeeBps = DefaultFeeBps
	}
	if cfg.MicroUnitsPerUSD == 0 {
		cfg.MicroUnitsPerUSD = DefaultMicroUnitsPerUSD
	}
	if cfg.ValidityWindowSecs == 0 {
		cfg.ValidityWindowSecs = DefaultValidityWindowSecs
	}
}

// Validate rejects settings the daemon cannot start with.
func Validate(cfg *Config) error {
	if cfg.AppID == 0 {
		return fmt.Errorf("config: AppID must be set")
	}
	if strings.TrimSpace(cfg.AppAddress) == "" {
		return fmt.Errorf("config: AppAddress must be set")
	}
	if cfg.FeeBps > 10_000 {
		return fmt.Errorf("config: FeeBps exceeds 10000")
	}
	if cfg.MicroUnitsPerUSD <= 0 {
		return fmt.Errorf("config: MicroUnitsPerUSD must be positive")
	}
	if cfg.ValidityWindowSecs <= 0 {
		return fmt.Errorf("config: ValidityWindowSecs must be positive")
	}
	if cfg.RateLimitPerMinute < 0 {
		return fmt.Errorf("config: RateLimitPerMinute must not be negative")
	}
	return nil
}

// createDefault creates and saves a default configuration file. The defaults
// leave AppID and AppAddress blank, so the operator still has to fill those
// in before the daemon will start.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress:      ":8080",
		DataDir:            "./tradeflow-data",
		FeeBps:             DefaultFeeBps,
		MicroUnitsPerUSD:   DefaultMicroUnitsPerUSD,
		ValidityWindowSecs: DefaultValidityWindowSecs,
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
