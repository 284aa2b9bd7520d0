package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	defaultRPCAddress  = ":8545"
	defaultDataDir     = "./tokenflow-data"
	defaultEnvironment = "dev"
)

type Config struct {
	RPCAddress   string     `toml:"RPCAddress"`
	DataDir      string     `toml:"DataDir"`
	GenesisFile  string     `toml:"GenesisFile"`
	Environment  string     `toml:"Environment"`
	AllowMigrate bool       `toml:"AllowMigrate"`
	Log          Log        `toml:"log"`
	RPC          RPC        `toml:"rpc"`
	Pauses       Pauses     `toml:"pauses"`
	EventStore   EventStore `toml:"eventstore"`
	Telemetry    Telemetry  `toml:"telemetry"`
}

// Load loads the configuration from the given path. A missing file is
// created with defaults.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration written for a fresh node.
func Default() *Config {
	cfg := &Config{
		RPCAddress:  defaultRPCAddress,
		DataDir:     defaultDataDir,
		Environment: defaultEnvironment,
		Log: Log{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		RPC: RPC{
			JWTSecretEnv:       "TOKENFLOW_JWT_SECRET",
			Issuer:             "tokenflow",
			RateLimitPerSecond: 20,
			Burst:              40,
			ReadHeaderTimeout:  5,
		},
		Telemetry: Telemetry{
			ServiceName: "tokenflowd",
		},
	}
	return cfg
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = defaultRPCAddress
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = defaultDataDir
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = defaultEnvironment
	}
	if strings.TrimSpace(c.Log.Level) == "" {
		c.Log.Level = "info"
	}
	if strings.TrimSpace(c.Telemetry.ServiceName) == "" {
		c.Telemetry.ServiceName = "tokenflowd"
	}
	c.EventStore.Driver = strings.ToLower(strings.TrimSpace(c.EventStore.Driver))
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
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

// JWTSecret resolves the RPC signing secret, preferring the environment
// variable named by JWTSecretEnv over the inline value.
func (c *Config) JWTSecret() string {
	if env := strings.TrimSpace(c.RPC.JWTSecretEnv); env != "" {
		if value := strings.TrimSpace(os.Getenv(env)); value != "" {
			return value
		}
	}
	return strings.TrimSpace(c.RPC.JWTSecret)
}

// StatePath is the LevelDB directory below DataDir.
func (c *Config) StatePath() string {
	return filepath.Join(c.DataDir, "state")
}
