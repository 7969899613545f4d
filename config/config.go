package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	RPCAddress     string  `toml:"RPCAddress"`
	RPCWriteRate   float64 `toml:"RPCWriteRate"`
	DataDir        string  `toml:"DataDir"`
	CollateralFile string  `toml:"CollateralFile"`
	Environment    string  `toml:"Environment"`
	LogFile        string  `toml:"LogFile"`
	LogMaxSizeMB   int     `toml:"LogMaxSizeMB"`
	LogBackups     int     `toml:"LogBackups"`
	OTLPEndpoint   string  `toml:"OTLPEndpoint"`
	OTLPInsecure   bool    `toml:"OTLPInsecure"`
	OTLPMetrics    bool    `toml:"OTLPMetrics"`
	OTLPTraces     bool    `toml:"OTLPTraces"`
}

// Load loads the configuration from the given path, writing a default file on
// first run.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults(path)
	return cfg, nil
}

func (c *Config) applyDefaults(path string) {
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = "127.0.0.1:8571"
	}
	base := filepath.Dir(path)
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = filepath.Join(base, "data")
	}
	if strings.TrimSpace(c.CollateralFile) == "" {
		c.CollateralFile = filepath.Join(base, "collateral.yaml")
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "local"
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults(path)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create default config: %w", err)
	}
	defer func() { _ = file.Close() }()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode default config: %w", err)
	}
	return cfg, nil
}
