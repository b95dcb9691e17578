package config

// Package config provides a reusable loader for the ingest parser's
// configuration files and environment variables. It is versioned so that
// applications can depend on a stable API contract.
//
// Version: v0.1.0

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/solpool/ingestd/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config represents the unified configuration for the ingest parser. It
// mirrors the structure of the YAML files under cmd/config.
type Config struct {
	SharedMemory struct {
		Name         string `mapstructure:"name" json:"name"`
		SizeBytes    int64  `mapstructure:"size_bytes" json:"size_bytes"`
		FlagOffset   int64  `mapstructure:"flag_offset" json:"flag_offset"`
		SizeOffset   int64  `mapstructure:"size_offset" json:"size_offset"`
		DataOffset   int64  `mapstructure:"data_offset" json:"data_offset"`
		PollInterval int    `mapstructure:"poll_interval_us" json:"poll_interval_us"`
	} `mapstructure:"shared_memory" json:"shared_memory"`

	Sink struct {
		Endpoint    string `mapstructure:"endpoint" json:"endpoint"`
		Insecure    bool   `mapstructure:"insecure" json:"insecure"`
		BatchCutoff int    `mapstructure:"batch_cutoff" json:"batch_cutoff"`
	} `mapstructure:"sink" json:"sink"`

	PoolEvents struct {
		ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
		Topic      string `mapstructure:"topic" json:"topic"`
	} `mapstructure:"pool_events" json:"pool_events"`

	DataCenterSuffix string `mapstructure:"data_center_suffix" json:"data_center_suffix"`

	Metrics struct {
		Enabled    bool   `mapstructure:"enabled" json:"enabled"`
		ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
	} `mapstructure:"metrics" json:"metrics"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Default returns a Config populated with the same defaults the service
// falls back to when no config file is present.
func Default() Config {
	var c Config
	c.SharedMemory.Name = "solana_json_shm"
	c.SharedMemory.SizeBytes = 10 * 1024 * 1024
	c.SharedMemory.FlagOffset = 0
	c.SharedMemory.SizeOffset = 1
	c.SharedMemory.DataOffset = 9
	c.SharedMemory.PollInterval = 500
	c.Sink.Endpoint = "127.0.0.1:8815"
	c.Sink.Insecure = true
	c.Sink.BatchCutoff = 10000
	c.PoolEvents.ListenAddr = "/ip4/0.0.0.0/tcp/0"
	c.PoolEvents.Topic = "pool-monitor"
	c.DataCenterSuffix = "-1"
	c.Metrics.Enabled = true
	c.Metrics.ListenAddr = "127.0.0.1:9090"
	c.Logging.Level = "info"
	return c
}

// Load reads configuration files and merges any environment specific
// overrides on top of the built-in defaults. The resulting configuration is
// stored in AppConfig and returned.
//
// The function uses the provided environment name to merge additional config
// files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	AppConfig = Default()

	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, utils.Wrap(err, "load config")
		}
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.SetEnvPrefix("INGESTD")
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the INGESTD_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("INGESTD_ENV", ""))
}
