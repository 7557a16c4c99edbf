package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/quire/pkg/config"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"port zero", func(c *Config) { c.App.HTTP.Port = 0 }, "app:"},
		{"port too large", func(c *Config) { c.App.HTTP.Port = 70000 }, "app:"},
		{"bad public url", func(c *Config) { c.App.HTTP.PublicURL = "not a url" }, "app:"},
		{"unknown metadata driver", func(c *Config) { c.Metadata.Driver = "mongo" }, "metadata:"},
		{"postgres without dsn", func(c *Config) { c.Metadata.Driver = "postgres" }, "metadata:"},
		{"dynamodb without table", func(c *Config) { c.Metadata.Driver = "dynamodb" }, "metadata:"},
		{"unknown blob driver", func(c *Config) { c.Blobs.Driver = "ftp" }, "blobs:"},
		{"s3 without bucket", func(c *Config) { c.Blobs.Driver = "s3" }, "blobs:"},
		{"short session", func(c *Config) { c.Auth.SessionTTL = time.Second }, "auth:"},
		{"rate without burst", func(c *Config) { c.Auth.LoginRate.Burst = 0 }, "auth:"},
		{"no upload limit", func(c *Config) { c.Upload.MaxBytes = 0 }, "upload:"},
		{"empty allow-list", func(c *Config) { c.Upload.AllowedExtensions = nil }, "upload:"},
		{"upper-case extension", func(c *Config) { c.Upload.AllowedExtensions = []string{"PNG"} }, "upload:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.HasPrefix(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want prefix %q", err, tt.wantErr)
			}
		})
	}
}

func TestRateLimitDisabled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.LoginRate = LoginRateConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled rate limit should pass: %v", err)
	}
}

func TestLoadYAMLWithEnv(t *testing.T) {
	t.Setenv("QUIRE_TEST_BUCKET", "notes-bucket")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
app:
  log_level: debug
  http:
    port: 9090
    public_url: https://notes.example.org
metadata:
  driver: badger
  badger:
    in_memory: true
blobs:
  driver: s3
  s3:
    bucket: ${QUIRE_TEST_BUCKET}
    region: auto
    endpoint: https://account.r2.cloudflarestorage.com
auth:
  session_ttl: 24h
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.App.LogLevel.String() != "DEBUG" {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Blobs.S3.Bucket != "notes-bucket" {
		t.Errorf("bucket = %q, want env expansion", cfg.Blobs.S3.Bucket)
	}
	if cfg.Auth.SessionTTL != 24*time.Hour {
		t.Errorf("session ttl = %v", cfg.Auth.SessionTTL)
	}
	// Unset keys keep their defaults.
	if cfg.Upload.MaxBytes != 100<<20 || cfg.Auth.LoginRate.PerMinute != 10 {
		t.Errorf("defaults lost: upload=%+v rate=%+v", cfg.Upload, cfg.Auth.LoginRate)
	}
}

func TestLoadOptionalMissingFile(t *testing.T) {
	cfg := NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), cfg)
	if err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if found {
		t.Error("found = true for a missing file")
	}
	if cfg.Metadata.Driver != "sqlite" {
		t.Errorf("driver = %q, want default", cfg.Metadata.Driver)
	}
}
