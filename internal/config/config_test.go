package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		KMS: KMSConfig{
			Provider: "vault",
			Vault: VaultKMSConfig{
				Address: "http://127.0.0.1:8200",
				KeyName: "envseal-master",
			},
		},
		Cache: CacheConfig{Backend: "memory"},
		Token: TokenConfig{
			MasterKeyID: "envseal-master",
			DefaultTTL:  15 * time.Minute,
			MaxTTL:      time.Hour,
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid vault", func(c *Config) {}, ""},
		{"valid aws", func(c *Config) {
			c.KMS.Provider = "aws"
			c.KMS.AWS.Region = "eu-west-1"
		}, ""},
		{"valid no cache", func(c *Config) { c.Cache.Backend = "none" }, ""},
		{"unknown provider", func(c *Config) { c.KMS.Provider = "gcp" }, "unknown kms.provider"},
		{"vault without address", func(c *Config) { c.KMS.Vault.Address = "" }, "kms.vault.address"},
		{"vault without key name", func(c *Config) { c.KMS.Vault.KeyName = "" }, "kms.vault.key_name"},
		{"aws without region", func(c *Config) {
			c.KMS.Provider = "aws"
			c.KMS.AWS.Region = ""
		}, "kms.aws.region"},
		{"redis cache without addr", func(c *Config) { c.Cache.Backend = "redis" }, "redis.addr"},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }, "unknown cache.backend"},
		{"missing master key", func(c *Config) { c.Token.MasterKeyID = "" }, "master_key_id"},
		{"max ttl below default", func(c *Config) { c.Token.MaxTTL = time.Minute }, "max_ttl"},
		{"kafka enabled without brokers", func(c *Config) { c.Kafka.Enabled = true }, "kafka.brokers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestServerAddr(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", Port: 9443}
	assert.Equal(t, "127.0.0.1:9443", cfg.Addr())
}
