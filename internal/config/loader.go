package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/envseal/envseal/pkg/logger"
)

// Load reads configuration from file, environment, and defaults.
// Files named config.yaml are searched in /etc/envseal/ and the working
// directory; every key can be overridden with an ENVSEAL_-prefixed
// environment variable (dots become underscores).
func Load(log logger.Logger) (*Config, error) {
	v := newViper()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		log.Info(context.Background(), "no config file found, using defaults and environment")
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Watch re-reads the configuration whenever the config file changes and
// invokes onChange with the freshly validated result. Invalid edits are
// logged and ignored so a bad deploy cannot take the running service down.
func Watch(log logger.Logger, onChange func(*Config)) {
	v := newViper()
	if err := v.ReadInConfig(); err != nil {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		ctx := context.Background()
		cfg, err := unmarshal(v)
		if err != nil {
			log.Warn(ctx, "ignoring config change", logger.String("file", e.Name), logger.Any("error", err.Error()))
			return
		}
		log.Info(ctx, "configuration reloaded", logger.String("file", e.Name))
		onChange(cfg)
	})
	v.WatchConfig()
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("kms.provider", "vault")
	v.SetDefault("kms.vault.mount_path", "transit")
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.cleanup_interval", 5*time.Minute)
	v.SetDefault("token.signing_key_id", "HS256")
	v.SetDefault("token.default_ttl", 15*time.Minute)
	v.SetDefault("token.max_ttl", 24*time.Hour)
	v.SetDefault("kafka.audit_topic", "envseal.audit")
	v.SetDefault("kafka.write_timeout", 10*time.Second)
	v.SetDefault("kafka.read_timeout", 10*time.Second)
	v.SetDefault("kafka.required_acks", 1)
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("kafka.batch_timeout", time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("tracing.service_name", "envseal")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/envseal/")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ENVSEAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}
