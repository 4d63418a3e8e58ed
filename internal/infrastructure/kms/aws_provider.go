package kms

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	awskms "github.com/aws/aws-sdk-go/service/kms"
	"github.com/aws/aws-sdk-go/service/kms/kmsiface"

	"github.com/envseal/envseal/internal/config"
	"github.com/envseal/envseal/internal/domain/models"
	"github.com/envseal/envseal/internal/domain/service"
	"github.com/envseal/envseal/pkg/logger"
)

// AWSKMS generates and decrypts data keys via AWS KMS. Unlike transit,
// Decrypt needs no key routing here: the KMS ciphertext blob embeds the
// master key reference.
type AWSKMS struct {
	client kmsiface.KMSAPI
	log    logger.Logger
}

var _ service.KeyManagementService = (*AWSKMS)(nil)

// NewAWSKMS creates a client from configuration.
func NewAWSKMS(cfg config.AWSKMSConfig, log logger.Logger) (*AWSKMS, error) {
	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return NewAWSKMSWithClient(awskms.New(sess), log), nil
}

// NewAWSKMSWithClient creates an AWSKMS on an existing KMS API client.
func NewAWSKMSWithClient(client kmsiface.KMSAPI, log logger.Logger) *AWSKMS {
	return &AWSKMS{
		client: client,
		log:    log.WithComponent("AWSKMS"),
	}
}

// GenerateDataKey mints a fresh data key under masterKeyID.
func (k *AWSKMS) GenerateDataKey(ctx context.Context, masterKeyID string, spec models.KeySpec) (*models.DataKey, error) {
	out, err := k.client.GenerateDataKeyWithContext(ctx, &awskms.GenerateDataKeyInput{
		KeyId:   aws.String(masterKeyID),
		KeySpec: aws.String(string(spec)),
	})
	if err != nil {
		k.log.Error(ctx, "kms GenerateDataKey failed", err, logger.String("master_key_id", masterKeyID))
		return nil, fmt.Errorf("aws generate data key: %w", err)
	}

	return &models.DataKey{
		Plaintext:  out.Plaintext,
		Ciphertext: out.CiphertextBlob,
	}, nil
}

// Decrypt recovers the plaintext of a data-key ciphertext blob.
func (k *AWSKMS) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	out, err := k.client.DecryptWithContext(ctx, &awskms.DecryptInput{
		CiphertextBlob: ciphertext,
	})
	if err != nil {
		k.log.Error(ctx, "kms Decrypt failed", err)
		return nil, fmt.Errorf("aws decrypt data key: %w", err)
	}
	return out.Plaintext, nil
}
