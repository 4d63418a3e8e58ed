// Package kms implements the KeyManagementService interface against real key
// management backends: the Vault transit secrets engine and AWS KMS.
package kms

import (
	"context"
	"encoding/base64"
	"fmt"

	vault "github.com/hashicorp/vault/api"

	"github.com/envseal/envseal/internal/config"
	"github.com/envseal/envseal/internal/domain/models"
	"github.com/envseal/envseal/internal/domain/service"
	"github.com/envseal/envseal/pkg/logger"
)

// VaultKMS generates and unwraps data keys via the Vault transit engine.
// Vault never releases the master key; datakey/plaintext returns a fresh
// key in both forms and decrypt unwraps a ciphertext under the configured
// transit key.
type VaultKMS struct {
	client *vault.Client
	cfg    config.VaultKMSConfig
	log    logger.Logger
}

var _ service.KeyManagementService = (*VaultKMS)(nil)

// NewVaultClient builds a Vault API client from configuration.
func NewVaultClient(cfg config.VaultKMSConfig) (*vault.Client, error) {
	vaultCfg := vault.DefaultConfig()
	vaultCfg.Address = cfg.Address

	client, err := vault.NewClient(vaultCfg)
	if err != nil {
		return nil, fmt.Errorf("create vault client: %w", err)
	}
	client.SetToken(cfg.Token)
	return client, nil
}

// NewVaultKMS creates a VaultKMS on an existing client.
func NewVaultKMS(cfg config.VaultKMSConfig, client *vault.Client, log logger.Logger) *VaultKMS {
	return &VaultKMS{
		client: client,
		cfg:    cfg,
		log:    log.WithComponent("VaultKMS"),
	}
}

// GenerateDataKey asks transit for a fresh data key under masterKeyID.
func (k *VaultKMS) GenerateDataKey(ctx context.Context, masterKeyID string, spec models.KeySpec) (*models.DataKey, error) {
	bits := spec.Bits()
	if bits == 0 {
		return nil, fmt.Errorf("unsupported key spec %q", spec)
	}

	path := fmt.Sprintf("%s/datakey/plaintext/%s", k.cfg.MountPath, masterKeyID)
	secret, err := k.client.Logical().WriteWithContext(ctx, path, map[string]any{
		"bits": bits,
	})
	if err != nil {
		k.log.Error(ctx, "vault datakey request failed", err, logger.String("master_key_id", masterKeyID))
		return nil, fmt.Errorf("vault generate data key: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("vault generate data key: empty response for %s", masterKeyID)
	}

	plaintextB64, ok := secret.Data["plaintext"].(string)
	if !ok {
		return nil, fmt.Errorf("vault generate data key: plaintext missing from response")
	}
	ciphertext, ok := secret.Data["ciphertext"].(string)
	if !ok {
		return nil, fmt.Errorf("vault generate data key: ciphertext missing from response")
	}

	plaintext, err := base64.StdEncoding.DecodeString(plaintextB64)
	if err != nil {
		return nil, fmt.Errorf("vault generate data key: decode plaintext: %w", err)
	}

	return &models.DataKey{
		Plaintext:  plaintext,
		Ciphertext: []byte(ciphertext),
	}, nil
}

// Decrypt unwraps a transit ciphertext back into the plaintext data key.
// Transit routes by key name, not by ciphertext, so the configured key_name
// must be the key the ciphertext was wrapped under.
func (k *VaultKMS) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	path := fmt.Sprintf("%s/decrypt/%s", k.cfg.MountPath, k.cfg.KeyName)
	secret, err := k.client.Logical().WriteWithContext(ctx, path, map[string]any{
		"ciphertext": string(ciphertext),
	})
	if err != nil {
		k.log.Error(ctx, "vault decrypt request failed", err)
		return nil, fmt.Errorf("vault decrypt data key: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("vault decrypt data key: empty response")
	}

	plaintextB64, ok := secret.Data["plaintext"].(string)
	if !ok {
		return nil, fmt.Errorf("vault decrypt data key: plaintext missing from response")
	}

	plaintext, err := base64.StdEncoding.DecodeString(plaintextB64)
	if err != nil {
		return nil, fmt.Errorf("vault decrypt data key: decode plaintext: %w", err)
	}
	return plaintext, nil
}
