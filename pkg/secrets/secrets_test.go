package secrets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"avatarbot/backend/pkg/config"
	"avatarbot/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvManager(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")

	m, err := NewManager(config.VaultConfig{Enabled: false}, logger.Discard())
	require.NoError(t, err)

	value, err := m.GetSecret(context.Background(), OpenAIAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "sk-env", value)

	_, err = m.GetSecret(context.Background(), "missing-key")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestNewVaultManagerValidation(t *testing.T) {
	_, err := NewManager(config.VaultConfig{Enabled: true, Token: "t"}, logger.Discard())
	assert.ErrorIs(t, err, ErrNoVaultAddress)

	_, err = NewManager(config.VaultConfig{Enabled: true, Address: "http://127.0.0.1:8200"}, logger.Discard())
	assert.ErrorIs(t, err, ErrNoVaultToken)
}

func newVaultServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/secret/data/avatarbot", r.URL.Path)
		assert.Equal(t, "root-token", r.Header.Get("X-Vault-Token"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func vaultConfig(addr string) config.VaultConfig {
	return config.VaultConfig{
		Enabled:     true,
		Address:     addr,
		Token:       "root-token",
		Mount:       "secret",
		SecretsPath: "avatarbot",
	}
}

func TestVaultManagerReadsKV(t *testing.T) {
	srv := newVaultServer(t, http.StatusOK, `{
		"data": {
			"data": {"openai_api_key": "sk-vault"},
			"metadata": {"created_time": "2024-05-01T10:00:00Z", "destroyed": false, "version": 3}
		}
	}`)

	m, err := NewManager(vaultConfig(srv.URL), logger.Discard())
	require.NoError(t, err)

	value, err := m.GetSecret(context.Background(), OpenAIAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "sk-vault", value)
}

func TestVaultManagerFallsBackToEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	srv := newVaultServer(t, http.StatusNotFound, `{"errors": []}`)

	m, err := NewManager(vaultConfig(srv.URL), logger.Discard())
	require.NoError(t, err)

	value, err := m.GetSecret(context.Background(), OpenAIAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "sk-env", value)
}
