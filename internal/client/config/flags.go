package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/whisperbox/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// Flags it does not know are skipped.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	reconnect := fs.Int("r", int(cfg.ReconnectInterval.Seconds()), "reconnect interval (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := flagx.ParseOwn(fs, args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	cfg.ReconnectInterval = time.Duration(*reconnect) * time.Second
	return nil
}
