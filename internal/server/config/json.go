package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/whisperbox/internal/flagx"
	"github.com/dmitrijs2005/whisperbox/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept "1s" or
// integer nanoseconds. Absent fields leave the current value untouched.
type JsonConfig struct {
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc"`
	StorageBackend              string         `json:"storage_backend"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	KeyEncryptionSecret         string         `json:"key_encryption_secret"`
	PollInterval                timex.Duration `json:"poll_interval"`
	SpamThreshold               *float64       `json:"spam_threshold"`
	LogLevel                    string         `json:"log_level"`
	S3RootUser                  string         `json:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password"`
	S3Bucket                    string         `json:"s3_bucket"`
	S3Region                    string         `json:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint"`
	S3Prefix                    string         `json:"s3_prefix"`
}

// parseJson overlays the file named by -c/-config, if any.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFilePath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	setString(&config.KeyEncryptionSecret, c.KeyEncryptionSecret)
	if c.PollInterval.Duration != 0 {
		config.PollInterval = c.PollInterval.Duration
	}
	if c.SpamThreshold != nil {
		config.SpamThreshold = *c.SpamThreshold
	}
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3Prefix, c.S3Prefix)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
