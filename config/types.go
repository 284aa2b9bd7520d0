package config

// Log configures the process logger. File enables rotation through
// lumberjack; an empty File logs to stdout.
type Log struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// RPC controls the JSON-RPC listener.
type RPC struct {
	JWTSecret          string   `toml:"JWTSecret"`
	JWTSecretEnv       string   `toml:"JWTSecretEnv"`
	Issuer             string   `toml:"Issuer"`
	Audience           string   `toml:"Audience"`
	RateLimitPerSecond float64  `toml:"RateLimitPerSecond"`
	Burst              int      `toml:"Burst"`
	ReadHeaderTimeout  int      `toml:"ReadHeaderTimeout"`
	TrustProxyHeaders  bool     `toml:"TrustProxyHeaders"`
	TrustedProxies     []string `toml:"TrustedProxies"`
}

// EventStore selects the notification archive. Driver is "", "sqlite" or
// "postgres"; an empty driver disables archiving.
type EventStore struct {
	Driver string `toml:"Driver"`
	DSN    string `toml:"DSN"`
}

type Telemetry struct {
	Enabled     bool   `toml:"Enabled"`
	Endpoint    string `toml:"Endpoint"`
	Insecure    bool   `toml:"Insecure"`
	ServiceName string `toml:"ServiceName"`
}
