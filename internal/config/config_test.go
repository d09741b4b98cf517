package config

import (
	"testing"
	"time"
)

// allEnvVars lists every env var Load reads, cleared between tests.
var allEnvVars = []string{
	"SK_DATABASE_URL", "SK_HTTP_ADDR", "SK_NATS_URL", "SK_ADMIN_TOKEN",
	"SK_ADMIN_SECRET_KEY", "SK_RELAY_URL", "SK_ARCHIVE_INTERVAL",
	"SK_ARCHIVE_S3_BUCKET", "SK_ARCHIVE_S3_REGION", "SK_ARCHIVE_S3_KEY",
	"SK_ARCHIVE_S3_ENDPOINT",
}

func clearAllEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvVars {
		t.Setenv(key, "")
	}
}

const testSecretKey = "5c81bd5eee2ba50ca51df64e72b69f984c7bcf5cce8e3e88e60b398ac3927a14"

func TestLoad(t *testing.T) {
	for _, tc := range []struct {
		name         string
		env          map[string]string
		wantErr      bool
		wantHTTPAddr string
		wantNATSURL  string
		wantInterval time.Duration
	}{
		{
			name:    "MissingDatabaseURL",
			env:     map[string]string{"SK_ADMIN_SECRET_KEY": testSecretKey},
			wantErr: true,
		},
		{
			name:    "MissingAdminKey",
			env:     map[string]string{"SK_DATABASE_URL": "postgres://localhost/sammelkarten"},
			wantErr: true,
		},
		{
			name: "Defaults",
			env: map[string]string{
				"SK_DATABASE_URL":     "postgres://localhost/sammelkarten",
				"SK_ADMIN_SECRET_KEY": testSecretKey,
			},
			wantHTTPAddr: ":8080",
			wantInterval: 10 * time.Minute,
		},
		{
			name: "CustomValues",
			env: map[string]string{
				"SK_DATABASE_URL":     "postgres://db:5432/sammelkarten",
				"SK_ADMIN_SECRET_KEY": testSecretKey,
				"SK_HTTP_ADDR":        ":3000",
				"SK_NATS_URL":         "nats://localhost:4222",
				"SK_ARCHIVE_INTERVAL": "30s",
			},
			wantHTTPAddr: ":3000",
			wantNATSURL:  "nats://localhost:4222",
			wantInterval: 30 * time.Second,
		},
		{
			name: "BadInterval",
			env: map[string]string{
				"SK_DATABASE_URL":     "postgres://localhost/sammelkarten",
				"SK_ADMIN_SECRET_KEY": testSecretKey,
				"SK_ARCHIVE_INTERVAL": "soon",
			},
			wantErr: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			c, err := Load()
			if tc.wantErr {
				if err == nil {
					t.Fatal("Load() succeeded, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if c.HTTPAddr != tc.wantHTTPAddr {
				t.Errorf("HTTPAddr = %q, want %q", c.HTTPAddr, tc.wantHTTPAddr)
			}
			if c.NATSURL != tc.wantNATSURL {
				t.Errorf("NATSURL = %q, want %q", c.NATSURL, tc.wantNATSURL)
			}
			if c.ArchiveInterval != tc.wantInterval {
				t.Errorf("ArchiveInterval = %v, want %v", c.ArchiveInterval, tc.wantInterval)
			}
		})
	}
}
