// Package config loads runtime configuration for the whisperbox terminal
// client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the whisperbox gRPC endpoint
//	-d string   path of the local state database
//	-r int      listener reconnect interval (seconds)
//	-l string   log level
//
// # JSON schema
//
// Intervals use timex.Duration, so values can be strings like "3s" or
// integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "database_path": "whisperbox.db",
//	  "reconnect_interval": "3s",
//	  "log_level": "warn"
//	}
package config
