package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {

	tests := []struct {
		expected  *Config
		name      string
		args      []string
		expectErr bool
	}{
		{name: "all flags", args: []string{
			"-a", "127.0.0.1:9090", "-m", "s3", "-d", "db", "-s", "secret",
			"-t", "5", "-k", "kek", "-i", "500", "-f", "0.9", "-l", "debug",
			"-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint", "-x", "env",
		},
			expected: &Config{
				EndpointAddrGRPC:            "127.0.0.1:9090",
				StorageBackend:              "s3",
				DatabaseDSN:                 "db",
				SecretKey:                   "secret",
				AccessTokenValidityDuration: 5 * time.Minute,
				KeyEncryptionSecret:         "kek",
				PollInterval:                500 * time.Millisecond,
				SpamThreshold:               0.9,
				LogLevel:                    "debug",
				S3RootUser:                  "user",
				S3RootPassword:              "password",
				S3Bucket:                    "bucket",
				S3Region:                    "us-west-1",
				S3BaseEndpoint:              "http://endpoint",
				S3Prefix:                    "env",
			}},
		{name: "foreign flags ignored", args: []string{"-c", "cfg.json", "-z", "1", "-a", ":1"},
			expected: &Config{EndpointAddrGRPC: ":1"}},
		{name: "bad int", args: []string{"-t", "abc"}, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{}

			err := parseFlags(config, tt.args)
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(config, tt.expected))
		})
	}
}
