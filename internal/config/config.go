package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type EngineConfig struct {
	CLIPath                 string        `mapstructure:"cli_path"`
	MaxConcurrentMigrations int           `mapstructure:"max_concurrent_migrations"`
	ProgressPollInterval    time.Duration `mapstructure:"progress_poll_interval"`
	CancelGracePeriod       time.Duration `mapstructure:"cancel_grace_period"`
	MetadataTimeout         time.Duration `mapstructure:"metadata_timeout"`
}

type Config struct {
	ServerPort        string       `mapstructure:"server_port"`
	JWTSecret         string       `mapstructure:"jwt_secret"`
	AdminPasswordHash string       `mapstructure:"admin_password_hash"`
	LogLevel          string       `mapstructure:"log_level"`
	Engine            EngineConfig `mapstructure:"engine"`
}

// Load reads the configuration from a YAML file and returns a Config instance.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	// Fallback defaults
	if config.ServerPort == "" {
		config.ServerPort = "8080"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	if config.JWTSecret == "" {
		log.Fatal("JWT secret must be set in the config file")
	}
	if config.AdminPasswordHash == "" {
		log.Fatal("Admin password hash must be set in the config file")
	}

	if config.Engine.CLIPath == "" {
		config.Engine.CLIPath = "/usr/local/bin/migrate-tool"
	}
	if config.Engine.MaxConcurrentMigrations == 0 {
		config.Engine.MaxConcurrentMigrations = 10
	}
	if config.Engine.ProgressPollInterval == 0 {
		config.Engine.ProgressPollInterval = time.Second
	}
	if config.Engine.CancelGracePeriod == 0 {
		config.Engine.CancelGracePeriod = 5 * time.Second
	}
	if config.Engine.MetadataTimeout == 0 {
		config.Engine.MetadataTimeout = 30 * time.Second
	}

	return &config
}
