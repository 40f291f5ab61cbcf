package config

import (
	"errors"
	"os"
	"time"
)

// Config holds runtime settings for the whisperbox client.
//
// Fields:
//   - ServerEndpointAddr: host:port of the backend gRPC endpoint.
//   - DatabasePath: SQLite file holding the session and listener cursors.
//   - ReconnectInterval: wait before reopening a dropped arrivals stream.
//   - LogLevel: level of the stderr logger.
type Config struct {
	ServerEndpointAddr string
	DatabasePath       string
	ReconnectInterval  time.Duration
	LogLevel           string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.DatabasePath = "whisperbox_client.db"
	c.ReconnectInterval = 3 * time.Second
	c.LogLevel = "warn"
}

func (c *Config) Validate() error {
	if c.ServerEndpointAddr == "" {
		return errors.New("server endpoint address is required")
	}
	if c.DatabasePath == "" {
		return errors.New("database path is required")
	}
	if c.ReconnectInterval <= 0 {
		return errors.New("reconnect interval must be positive")
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
