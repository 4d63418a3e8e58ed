package kms

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	awskms "github.com/aws/aws-sdk-go/service/kms"
	"github.com/aws/aws-sdk-go/service/kms/kmsiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envseal/envseal/internal/domain/models"
	"github.com/envseal/envseal/pkg/logger"
)

type stubKMSAPI struct {
	kmsiface.KMSAPI

	plaintext  []byte
	ciphertext []byte
	err        error
}

func (s *stubKMSAPI) GenerateDataKeyWithContext(ctx aws.Context, in *awskms.GenerateDataKeyInput, _ ...request.Option) (*awskms.GenerateDataKeyOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	if aws.StringValue(in.KeySpec) != "AES_128" {
		return nil, errors.New("unexpected key spec")
	}
	return &awskms.GenerateDataKeyOutput{
		KeyId:          in.KeyId,
		Plaintext:      s.plaintext,
		CiphertextBlob: s.ciphertext,
	}, nil
}

func (s *stubKMSAPI) DecryptWithContext(ctx aws.Context, in *awskms.DecryptInput, _ ...request.Option) (*awskms.DecryptOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	if !bytes.Equal(in.CiphertextBlob, s.ciphertext) {
		return nil, errors.New("InvalidCiphertextException")
	}
	return &awskms.DecryptOutput{Plaintext: s.plaintext}, nil
}

func TestAWSGenerateAndDecrypt(t *testing.T) {
	stub := &stubKMSAPI{
		plaintext:  []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F},
		ciphertext: []byte{0xFF, 0xEE},
	}
	k := NewAWSKMSWithClient(stub, logger.NewNop())
	ctx := context.Background()

	dk, err := k.GenerateDataKey(ctx, "master-1", models.KeySpecAES128)
	require.NoError(t, err)
	assert.Equal(t, stub.plaintext, dk.Plaintext)
	assert.Equal(t, stub.ciphertext, dk.Ciphertext)

	recovered, err := k.Decrypt(ctx, dk.Ciphertext)
	require.NoError(t, err)
	assert.Equal(t, stub.plaintext, recovered)
}

func TestAWSDecryptTamperedCiphertext(t *testing.T) {
	stub := &stubKMSAPI{plaintext: []byte("key"), ciphertext: []byte{0xFF, 0xEE}}
	k := NewAWSKMSWithClient(stub, logger.NewNop())

	_, err := k.Decrypt(context.Background(), []byte{0xDE, 0xAD})
	assert.ErrorContains(t, err, "aws decrypt data key")
}

func TestAWSServiceFailure(t *testing.T) {
	stub := &stubKMSAPI{err: errors.New("AccessDeniedException")}
	k := NewAWSKMSWithClient(stub, logger.NewNop())

	_, err := k.GenerateDataKey(context.Background(), "master-1", models.KeySpecAES128)
	assert.ErrorContains(t, err, "AccessDeniedException")
}
