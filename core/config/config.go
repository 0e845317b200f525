package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	sdkutils "github.com/Layr-Labs/eigensdk-go/utils"
)

const (
	DefaultMetricsAddress = "localhost:9090"
	DefaultConcurrency    = 4
)

// Config is the runtime configuration of the migrator, built from ConfigRaw.
type Config struct {
	Logger      sdklogging.Logger
	Environment sdklogging.LogLevel

	DbPath string

	BackupDir           string
	BackupBeforeMigrate bool
	// BackupInterval is zero when periodic backups are off
	BackupInterval time.Duration

	DatabaseDriver string
	DatabaseDSN    string

	// MigrationsDir overrides the compiled-in migration catalog.
	MigrationsDir        string
	MigrationConcurrency int

	MetricsEnabled bool
	MetricsAddress string

	// SocketPath is the unix socket of the admin repl, disabled when empty.
	SocketPath string
}

// These are read from configPath
type ConfigRaw struct {
	Environment sdklogging.LogLevel `yaml:"environment" validate:"omitempty,oneof=development production"`
	DbPath      string              `yaml:"db_path" validate:"required"`

	BackupDir             string `yaml:"backup_dir" validate:"required_if=BackupBeforeMigrate true"`
	BackupBeforeMigrate   bool   `yaml:"backup_before_migrate"`
	BackupIntervalMinutes int    `yaml:"backup_interval_minutes" validate:"gte=0"`

	Database DatabaseRaw `yaml:"database"`

	MigrationsDir string       `yaml:"migrations_dir"`
	Migration     MigrationRaw `yaml:"migration"`

	Metrics MetricsRaw `yaml:"metrics"`

	SocketPath string `yaml:"socket_path"`
}

type DatabaseRaw struct {
	Driver string `yaml:"driver" validate:"omitempty,oneof=sqlite3 mysql"`
	DSN    string `yaml:"dsn" validate:"required_with=Driver"`
}

type MigrationRaw struct {
	Concurrency int `yaml:"concurrency" validate:"gte=0"`
}

type MetricsRaw struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// NewConfig reads the yaml config at configFilePath and builds the logger
// for its environment.
func NewConfig(configFilePath string) (*Config, error) {
	var configRaw ConfigRaw
	if configFilePath != "" {
		if err := sdkutils.ReadYamlConfig(configFilePath, &configRaw); err != nil {
			return nil, fmt.Errorf("cannot read config %s: %w", configFilePath, err)
		}
	}
	return FromRaw(configRaw)
}

func FromRaw(configRaw ConfigRaw) (*Config, error) {
	if configRaw.Environment == "" {
		configRaw.Environment = sdklogging.Development
	}
	if err := validator.New().Struct(configRaw); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := sdklogging.NewZapLogger(configRaw.Environment)
	if err != nil {
		return nil, err
	}

	config := &Config{
		Logger:               logger,
		Environment:          configRaw.Environment,
		DbPath:               configRaw.DbPath,
		BackupDir:            configRaw.BackupDir,
		BackupBeforeMigrate:  configRaw.BackupBeforeMigrate,
		BackupInterval:       time.Duration(configRaw.BackupIntervalMinutes) * time.Minute,
		DatabaseDriver:       configRaw.Database.Driver,
		DatabaseDSN:          configRaw.Database.DSN,
		MigrationsDir:        configRaw.MigrationsDir,
		MigrationConcurrency: configRaw.Migration.Concurrency,
		MetricsEnabled:       configRaw.Metrics.Enabled,
		MetricsAddress:       configRaw.Metrics.Address,
		SocketPath:           configRaw.SocketPath,
	}
	if config.MigrationConcurrency == 0 {
		config.MigrationConcurrency = DefaultConcurrency
	}
	if config.MetricsEnabled && config.MetricsAddress == "" {
		config.MetricsAddress = DefaultMetricsAddress
	}
	if config.BackupInterval > 0 && config.BackupDir == "" {
		return nil, fmt.Errorf("invalid config: backup_dir is required for periodic backups")
	}
	return config, nil
}
