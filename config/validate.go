package config

import (
	"fmt"
	"log/slog"
	"strings"
)

var (
	MinJWTSecretLength = 32
)

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return fmt.Errorf("log: invalid level %q", c.Log.Level)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log: rotation limits must not be negative")
	}
	if c.RPC.RateLimitPerSecond < 0 || c.RPC.Burst < 0 {
		return fmt.Errorf("rpc: rate limits must not be negative")
	}
	if c.RPC.RateLimitPerSecond > 0 && c.RPC.Burst == 0 {
		return fmt.Errorf("rpc: burst must be positive when rate limiting is enabled")
	}
	if c.RPC.ReadHeaderTimeout < 0 {
		return fmt.Errorf("rpc: read header timeout must not be negative")
	}
	if secret := strings.TrimSpace(c.RPC.JWTSecret); secret != "" && len(secret) < MinJWTSecretLength {
		return fmt.Errorf("rpc: jwt secret must be at least %d bytes", MinJWTSecretLength)
	}
	switch c.EventStore.Driver {
	case "":
	case "sqlite", "postgres":
		if strings.TrimSpace(c.EventStore.DSN) == "" {
			return fmt.Errorf("eventstore: dsn required for driver %s", c.EventStore.Driver)
		}
	default:
		return fmt.Errorf("eventstore: unsupported driver %q", c.EventStore.Driver)
	}
	if c.Telemetry.Enabled && strings.TrimSpace(c.Telemetry.Endpoint) == "" {
		return fmt.Errorf("telemetry: endpoint required when enabled")
	}
	return nil
}
