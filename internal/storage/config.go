package storage

import (
	"context"
	"fmt"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Supported blob drivers.
const (
	DriverFS = "fs"
	DriverS3 = "s3"
)

// Config selects and configures the blob backend.
type Config struct {
	Driver string   `yaml:"driver"`
	FS     FSConfig `yaml:"fs"`
	S3     S3Config `yaml:"s3"`
}

// FSConfig holds the attachments directory.
type FSConfig struct {
	Path string `yaml:"path"`
}

// S3Config holds settings for any S3-compatible service (AWS, R2, MinIO).
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// Validate validates the blob configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(DriverFS, DriverS3)),
	); err != nil {
		return err
	}
	switch c.Driver {
	case DriverFS:
		return validation.ValidateStruct(&c.FS, validation.Field(&c.FS.Path, validation.Required))
	case DriverS3:
		return validation.ValidateStruct(&c.S3,
			validation.Field(&c.S3.Bucket, validation.Required),
			validation.Field(&c.S3.Region, validation.Required),
			validation.Field(&c.S3.Endpoint, is.URL),
		)
	}
	return nil
}

// Open opens the backend selected by cfg.
func Open(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Driver {
	case DriverFS:
		if err := os.MkdirAll(cfg.FS.Path, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create dir: %w", err)
		}
		return NewFS(cfg.FS.Path)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}
