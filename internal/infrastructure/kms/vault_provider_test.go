package kms

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envseal/envseal/internal/config"
	"github.com/envseal/envseal/internal/domain/models"
	"github.com/envseal/envseal/pkg/logger"
)

// fakeTransit emulates the two transit endpoints the provider uses.
func fakeTransit(t *testing.T, plaintext []byte) *httptest.Server {
	t.Helper()
	plaintextB64 := base64.StdEncoding.EncodeToString(plaintext)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/transit/datakey/plaintext/master-1", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 128, body["bits"])

		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"plaintext":  plaintextB64,
				"ciphertext": "vault:v1:ZmFrZQ==",
			},
		})
	})
	mux.HandleFunc("/v1/transit/decrypt/envseal-master", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "vault:v1:ZmFrZQ==", body["ciphertext"])

		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"plaintext": plaintextB64},
		})
	})
	mux.HandleFunc("/v1/transit/datakey/plaintext/unknown-key", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"errors": []string{"encryption key not found"}})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func vaultKMSForTest(t *testing.T, addr string) *VaultKMS {
	t.Helper()
	cfg := config.VaultKMSConfig{
		Address:   addr,
		Token:     "test-token",
		MountPath: "transit",
		KeyName:   "envseal-master",
	}
	client, err := NewVaultClient(cfg)
	require.NoError(t, err)
	return NewVaultKMS(cfg, client, logger.NewNop())
}

func TestVaultGenerateAndDecrypt(t *testing.T) {
	plaintext := []byte("0123456789abcdef")
	srv := fakeTransit(t, plaintext)
	k := vaultKMSForTest(t, srv.URL)
	ctx := context.Background()

	dk, err := k.GenerateDataKey(ctx, "master-1", models.KeySpecAES128)
	require.NoError(t, err)
	assert.Equal(t, plaintext, dk.Plaintext)
	assert.Equal(t, []byte("vault:v1:ZmFrZQ=="), dk.Ciphertext)

	recovered, err := k.Decrypt(ctx, dk.Ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, recovered)
}

func TestVaultGenerateUnknownMasterKey(t *testing.T) {
	srv := fakeTransit(t, []byte("0123456789abcdef"))
	k := vaultKMSForTest(t, srv.URL)

	_, err := k.GenerateDataKey(context.Background(), "unknown-key", models.KeySpecAES128)
	assert.ErrorContains(t, err, "vault generate data key")
}

func TestVaultUnsupportedKeySpec(t *testing.T) {
	srv := fakeTransit(t, []byte("0123456789abcdef"))
	k := vaultKMSForTest(t, srv.URL)

	_, err := k.GenerateDataKey(context.Background(), "master-1", models.KeySpec("AES_999"))
	assert.ErrorContains(t, err, "unsupported key spec")
}
