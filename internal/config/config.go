package config

import (
	"fmt"
	"time"
)

// Config holds the service configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	KMS     KMSConfig     `mapstructure:"kms"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Token   TokenConfig   `mapstructure:"token"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Log     LogConfig     `mapstructure:"log"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Debug        bool          `mapstructure:"debug"`
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KMSConfig selects and configures the key management backend.
type KMSConfig struct {
	// Provider is either "vault" or "aws".
	Provider string         `mapstructure:"provider"`
	Vault    VaultKMSConfig `mapstructure:"vault"`
	AWS      AWSKMSConfig   `mapstructure:"aws"`
}

// VaultKMSConfig configures the Vault transit secrets engine backend.
type VaultKMSConfig struct {
	Address string `mapstructure:"address"`
	Token   string `mapstructure:"token"`
	// MountPath is the transit engine mount, usually "transit".
	MountPath string `mapstructure:"mount_path"`
	// KeyName is the transit key used to unwrap ciphertexts on decrypt.
	KeyName string `mapstructure:"key_name"`
}

// AWSKMSConfig configures the AWS KMS backend.
type AWSKMSConfig struct {
	Region string `mapstructure:"region"`
	// Endpoint overrides the KMS endpoint, for local stacks.
	Endpoint string `mapstructure:"endpoint"`
}

type RedisConfig struct {
	Addr         string `mapstructure:"addr"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

// CacheConfig selects the plaintext data-key cache backend. "none" disables
// caching entirely; verification then always round-trips to the KMS.
type CacheConfig struct {
	// Backend is "redis", "memory", or "none".
	Backend string `mapstructure:"backend"`
	// CleanupInterval applies to the in-memory backend only.
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// TokenConfig carries the issuance defaults used by the HTTP interface.
type TokenConfig struct {
	MasterKeyID  string        `mapstructure:"master_key_id"`
	SigningKeyID string        `mapstructure:"signing_key_id"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	MaxTTL       time.Duration `mapstructure:"max_ttl"`
}

type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	AuditTopic   string        `mapstructure:"audit_topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	RequiredAcks int           `mapstructure:"required_acks"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	ServiceName    string `mapstructure:"service_name"`
	Environment    string `mapstructure:"environment"`
}

// Validate checks configuration consistency before the service starts.
func (c *Config) Validate() error {
	switch c.KMS.Provider {
	case "vault":
		if c.KMS.Vault.Address == "" {
			return fmt.Errorf("kms.vault.address is required when kms.provider is vault")
		}
		if c.KMS.Vault.KeyName == "" {
			return fmt.Errorf("kms.vault.key_name is required when kms.provider is vault")
		}
	case "aws":
		if c.KMS.AWS.Region == "" {
			return fmt.Errorf("kms.aws.region is required when kms.provider is aws")
		}
	default:
		return fmt.Errorf("unknown kms.provider %q", c.KMS.Provider)
	}

	switch c.Cache.Backend {
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required when cache.backend is redis")
		}
	case "memory", "none":
	default:
		return fmt.Errorf("unknown cache.backend %q", c.Cache.Backend)
	}

	if c.Token.MasterKeyID == "" {
		return fmt.Errorf("token.master_key_id is required")
	}
	if c.Token.DefaultTTL <= 0 {
		return fmt.Errorf("token.default_ttl must be positive")
	}
	if c.Token.MaxTTL < c.Token.DefaultTTL {
		return fmt.Errorf("token.max_ttl must be >= token.default_ttl")
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka.enabled is true")
	}

	return nil
}
