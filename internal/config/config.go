// Package config loads workerd's configuration from environment
// variables or a config file, falling back to reasonable defaults for
// anything optional.
package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is workerd's top-level configuration.
type Config struct {
	// Environment selects log formatting: "development" for human
	// readable console output, "production" for JSON.
	// Defaults to "production".
	Environment string `mapstructure:"environment"`
	// LogLevel is any level zap understands: debug, info, warn, error.
	// Defaults to "info".
	LogLevel string `mapstructure:"log_level"`
	// WorkerID identifies this process's worker in rundata and logs.
	// Defaults to the process hostname.
	WorkerID string `mapstructure:"worker_id"`

	Bus    BusConfig    `mapstructure:"bus"`
	Store  StoreConfig  `mapstructure:"store"`
	Worker WorkerConfig `mapstructure:"worker"`
}

// BusConfig selects and configures the event bus implementation.
type BusConfig struct {
	// Engine is "memory" or "postgres". Defaults to "memory".
	Engine   string         `mapstructure:"engine"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// StoreConfig selects and configures the execution store implementation.
type StoreConfig struct {
	// Engine is "memory" or "postgres". Defaults to "memory".
	Engine   string         `mapstructure:"engine"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	SQS      SQSConfig      `mapstructure:"sqs"`
}

// PostgresConfig is shared by any component backed by the durable
// database.
type PostgresConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Database        string `mapstructure:"database"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	PoolMaxConns    int    `mapstructure:"pool_max_conns"`
	PoolMaxConnLife string `mapstructure:"pool_max_conn_lifetime"`
}

// SQSConfig configures the durable store's dispatch queue.
type SQSConfig struct {
	// QueuePrefix is prepended to "BlueprintInstructionExecutionStore"
	// to form the queue name, created on first use if absent.
	QueuePrefix string `mapstructure:"queue_prefix"`
	Region      string `mapstructure:"region"`
	// Endpoint overrides the SQS endpoint, for pointing at a local
	// queue emulator during development.
	Endpoint string `mapstructure:"endpoint"`
}

// WorkerConfig tunes the executor loop.
type WorkerConfig struct {
	// LoopIntervalMS is the sleep between iterations when no
	// instruction was ready to lease. Defaults to 1000ms.
	LoopIntervalMS int `mapstructure:"loop_interval_ms"`
	// MaxIterations bounds a single Run call; zero or negative means
	// run forever. Defaults to 0.
	MaxIterations int `mapstructure:"max_iterations"`
}

// QueueName returns the full SQS queue name for this configuration.
func (c SQSConfig) QueueName() string {
	return c.QueuePrefix + "BlueprintInstructionExecutionStore"
}

// Load reads configuration from a config file (if present) and
// environment variables prefixed BLUEPRINT_ENGINE_, falling back to
// defaults for anything unset.
func Load() (Config, error) {
	viperInstance := viper.New()

	viperInstance.SetConfigName("config")
	addConfigPaths(viperInstance)
	bindEnvVars(viperInstance)
	setDefaults(viperInstance)

	if err := viperInstance.ReadInConfig(); err != nil {
		// Config is created before the logger, so fall back to the
		// standard library logger for this one message.
		log.Printf(
			"failed to read config file: %s, will try environment variables and defaults",
			err,
		)
	} else {
		log.Printf("config file read successfully, using %s", viperInstance.ConfigFileUsed())
	}

	var cfg Config
	if err := viperInstance.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.WorkerID == "" {
		if hostname, err := os.Hostname(); err == nil {
			cfg.WorkerID = hostname
		}
	}

	return cfg, nil
}

func addConfigPaths(viperInstance *viper.Viper) {
	viperInstance.AddConfigPath(".")
	if customPath, ok := os.LookupEnv("BLUEPRINT_ENGINE_CONFIG_PATH"); ok {
		viperInstance.AddConfigPath(customPath)
	}
}

func bindEnvVars(viperInstance *viper.Viper) {
	viperInstance.SetEnvPrefix("blueprint_engine")
	viperInstance.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viperInstance.BindEnv("environment")
	viperInstance.BindEnv("log_level")
	viperInstance.BindEnv("worker_id")

	viperInstance.BindEnv("bus.engine")
	viperInstance.BindEnv("bus.postgres.host")
	viperInstance.BindEnv("bus.postgres.port")
	viperInstance.BindEnv("bus.postgres.database")
	viperInstance.BindEnv("bus.postgres.user")
	viperInstance.BindEnv("bus.postgres.password")
	viperInstance.BindEnv("bus.postgres.ssl_mode")
	viperInstance.BindEnv("bus.postgres.pool_max_conns")
	viperInstance.BindEnv("bus.postgres.pool_max_conn_lifetime")

	viperInstance.BindEnv("store.engine")
	viperInstance.BindEnv("store.postgres.host")
	viperInstance.BindEnv("store.postgres.port")
	viperInstance.BindEnv("store.postgres.database")
	viperInstance.BindEnv("store.postgres.user")
	viperInstance.BindEnv("store.postgres.password")
	viperInstance.BindEnv("store.postgres.ssl_mode")
	viperInstance.BindEnv("store.postgres.pool_max_conns")
	viperInstance.BindEnv("store.postgres.pool_max_conn_lifetime")
	viperInstance.BindEnv("store.sqs.queue_prefix")
	viperInstance.BindEnv("store.sqs.region")
	viperInstance.BindEnv("store.sqs.endpoint")

	viperInstance.BindEnv("worker.loop_interval_ms")
	viperInstance.BindEnv("worker.max_iterations")
}

func setDefaults(viperInstance *viper.Viper) {
	viperInstance.SetDefault("environment", "production")
	viperInstance.SetDefault("log_level", "info")

	viperInstance.SetDefault("bus.engine", "memory")
	viperInstance.SetDefault("bus.postgres.host", "localhost")
	viperInstance.SetDefault("bus.postgres.port", 5432)
	viperInstance.SetDefault("bus.postgres.ssl_mode", "disable")
	viperInstance.SetDefault("bus.postgres.pool_max_conns", 20)
	viperInstance.SetDefault("bus.postgres.pool_max_conn_lifetime", "1h30m")

	viperInstance.SetDefault("store.engine", "memory")
	viperInstance.SetDefault("store.postgres.host", "localhost")
	viperInstance.SetDefault("store.postgres.port", 5432)
	viperInstance.SetDefault("store.postgres.ssl_mode", "disable")
	viperInstance.SetDefault("store.postgres.pool_max_conns", 20)
	viperInstance.SetDefault("store.postgres.pool_max_conn_lifetime", "1h30m")
	viperInstance.SetDefault("store.sqs.queue_prefix", "")
	viperInstance.SetDefault("store.sqs.region", "us-east-1")

	viperInstance.SetDefault("worker.loop_interval_ms", 1000)
	viperInstance.SetDefault("worker.max_iterations", 0)
}
