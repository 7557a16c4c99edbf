package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/quire/internal/kv"
	"github.com/starford/quire/internal/storage"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Metadata kv.Config         `yaml:"metadata"`
	Blobs    storage.Config    `yaml:"blobs"`
	Auth     AuthConfig        `yaml:"auth"`
	Upload   UploadConfig      `yaml:"upload"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Metadata.Validate(); err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	if err := c.Blobs.Validate(); err != nil {
		return fmt.Errorf("blobs: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Upload.Validate(); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
//
// PublicURL is the origin written into attachment URLs. When empty, the
// origin of the upload request is used.
type HTTPConfig struct {
	Port      int    `yaml:"port"`
	PublicURL string `yaml:"public_url"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.PublicURL, is.URL),
	)
}

// AuthConfig holds session and login settings.
type AuthConfig struct {
	SessionTTL   time.Duration   `yaml:"session_ttl"`
	CookieSecure bool            `yaml:"cookie_secure"`
	LoginRate    LoginRateConfig `yaml:"login_rate"`
}

// LoginRateConfig bounds password attempts. PerMinute 0 disables the limit.
type LoginRateConfig struct {
	PerMinute int `yaml:"per_minute"`
	Burst     int `yaml:"burst"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.SessionTTL, validation.Required, validation.Min(time.Minute)),
	); err != nil {
		return err
	}
	return validation.ValidateStruct(&c.LoginRate,
		validation.Field(&c.LoginRate.PerMinute, validation.Min(0)),
		validation.Field(&c.LoginRate.Burst, validation.When(c.LoginRate.PerMinute > 0, validation.Required, validation.Min(1))),
	)
}

// UploadConfig holds attachment upload limits.
type UploadConfig struct {
	MaxBytes          int64    `yaml:"max_bytes"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

// Validate validates the upload configuration.
func (c *UploadConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxBytes, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.AllowedExtensions, validation.Required, validation.Each(validation.Required, is.LowerCase)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Metadata: kv.Config{
			Driver: kv.DriverSQLite,
			SQLite: kv.SQLiteConfig{Path: "./quire.db"},
			Badger: kv.BadgerConfig{Path: "./quire-badger"},
			Redis:  kv.RedisConfig{Addr: "localhost:6379"},
		},
		Blobs: storage.Config{
			Driver: storage.DriverFS,
			FS:     storage.FSConfig{Path: "./uploads"},
		},
		Auth: AuthConfig{
			SessionTTL: 720 * time.Hour,
			LoginRate:  LoginRateConfig{PerMinute: 10, Burst: 5},
		},
		Upload: UploadConfig{
			MaxBytes:          100 << 20,
			AllowedExtensions: append([]string(nil), storage.DefaultAllowedExtensions...),
		},
	}
}
