package kv

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Supported metadata drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverBadger   = "badger"
	DriverRedis    = "redis"
	DriverDynamo   = "dynamodb"
)

// Config selects and configures the metadata backend.
type Config struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
	Badger   BadgerConfig   `yaml:"badger"`
	Redis    RedisConfig    `yaml:"redis"`
	DynamoDB DynamoConfig   `yaml:"dynamodb"`
}

// SQLiteConfig holds the SQLite database path.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig holds the Postgres connection string.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// BadgerConfig holds the Badger directory. InMemory ignores Path.
type BadgerConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	TLS       bool   `yaml:"tls"`
	Namespace string `yaml:"namespace"`
}

// DynamoConfig holds DynamoDB settings. Endpoint overrides the AWS endpoint
// (DynamoDB Local); static credentials are used when both keys are set.
type DynamoConfig struct {
	Table           string `yaml:"table"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// Validate validates the metadata configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required,
			validation.In(DriverSQLite, DriverPostgres, DriverBadger, DriverRedis, DriverDynamo)),
	); err != nil {
		return err
	}
	switch c.Driver {
	case DriverSQLite:
		return validation.ValidateStruct(&c.SQLite, validation.Field(&c.SQLite.Path, validation.Required))
	case DriverPostgres:
		return validation.ValidateStruct(&c.Postgres, validation.Field(&c.Postgres.DSN, validation.Required))
	case DriverBadger:
		return validation.ValidateStruct(&c.Badger,
			validation.Field(&c.Badger.Path, validation.When(!c.Badger.InMemory, validation.Required)))
	case DriverRedis:
		return validation.ValidateStruct(&c.Redis,
			validation.Field(&c.Redis.Addr, validation.Required),
			validation.Field(&c.Redis.DB, validation.Min(0)))
	case DriverDynamo:
		return validation.ValidateStruct(&c.DynamoDB,
			validation.Field(&c.DynamoDB.Table, validation.Required),
			validation.Field(&c.DynamoDB.Region, validation.Required))
	}
	return nil
}

// Open opens the backend selected by cfg.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverSQLite:
		return OpenSQLite(cfg.SQLite.Path)
	case DriverPostgres:
		return OpenPostgres(cfg.Postgres.DSN)
	case DriverBadger:
		return OpenBadger(cfg.Badger)
	case DriverRedis:
		return OpenRedis(ctx, cfg.Redis)
	case DriverDynamo:
		return OpenDynamo(ctx, cfg.DynamoDB)
	default:
		return nil, fmt.Errorf("kv: unknown driver %q", cfg.Driver)
	}
}
