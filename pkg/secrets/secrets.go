package secrets

import (
	"context"
	"errors"
	"os"
	"strings"

	"avatarbot/backend/pkg/config"
	"avatarbot/backend/pkg/logger"
)

// OpenAIAPIKey is the secret key holding the upstream credential
const OpenAIAPIKey = "openai_api_key"

// Common errors
var (
	ErrSecretNotFound = errors.New("secret not found")
	ErrNoVaultToken   = errors.New("no vault token provided")
	ErrNoVaultAddress = errors.New("no vault address provided")
)

// Manager provides access to secrets from various sources
type Manager interface {
	// GetSecret retrieves a secret by key
	GetSecret(ctx context.Context, key string) (string, error)
}

// NewManager returns a Vault-backed manager when Vault is enabled and a
// plain environment reader otherwise
func NewManager(cfg config.VaultConfig, log *logger.Logger) (Manager, error) {
	if !cfg.Enabled {
		return EnvManager{}, nil
	}
	return NewVaultManager(cfg, log)
}

// EnvManager reads secrets from the process environment
type EnvManager struct{}

// GetSecret maps key to an environment variable name (openai_api_key -> OPENAI_API_KEY)
func (EnvManager) GetSecret(_ context.Context, key string) (string, error) {
	value := os.Getenv(envKey(key))
	if value == "" {
		return "", ErrSecretNotFound
	}
	return value, nil
}

func envKey(key string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))
}
