package crypto

import (
	"context"
	"fmt"

	vault "github.com/hashicorp/vault/api"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/config"
)

const (
	vaultPrivateKeyField = "private_key"
	vaultPublicKeyField  = "public_key"
)

// VaultClient is the subset of Vault's KV v2 API the key source needs.
type VaultClient interface {
	ReadSecret(ctx context.Context, secretPath string) (map[string]interface{}, error)
	WriteSecret(ctx context.Context, secretPath string, data map[string]interface{}) error
}

type vaultClientImpl struct {
	kv *vault.KVv2
}

// NewVaultClient creates a KV v2 client for cfg.MountPath.
func NewVaultClient(cfg *config.VaultConfig) (VaultClient, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &vaultClientImpl{kv: client.KVv2(cfg.MountPath)}, nil
}

func (v *vaultClientImpl) ReadSecret(ctx context.Context, secretPath string) (map[string]interface{}, error) {
	secret, err := v.kv.Get(ctx, secretPath)
	if err != nil {
		return nil, fmt.Errorf("read vault secret %s: %w", secretPath, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("vault secret %s is empty", secretPath)
	}
	return secret.Data, nil
}

func (v *vaultClientImpl) WriteSecret(ctx context.Context, secretPath string, data map[string]interface{}) error {
	if _, err := v.kv.Put(ctx, secretPath, data); err != nil {
		return fmt.Errorf("write vault secret %s: %w", secretPath, err)
	}
	return nil
}

// VaultKeySource reads the key pair from a KV v2 secret with private_key and public_key fields.
type VaultKeySource struct {
	Client     VaultClient
	SecretPath string
}

// Load reads both PEM fields from the secret.
func (s *VaultKeySource) Load(ctx context.Context) ([]byte, []byte, error) {
	data, err := s.Client.ReadSecret(ctx, s.SecretPath)
	if err != nil {
		return nil, nil, err
	}
	privatePEM, ok := data[vaultPrivateKeyField].(string)
	if !ok || privatePEM == "" {
		return nil, nil, fmt.Errorf("vault secret %s has no %s", s.SecretPath, vaultPrivateKeyField)
	}
	publicPEM, ok := data[vaultPublicKeyField].(string)
	if !ok || publicPEM == "" {
		return nil, nil, fmt.Errorf("vault secret %s has no %s", s.SecretPath, vaultPublicKeyField)
	}
	return []byte(privatePEM), []byte(publicPEM), nil
}

// Store writes a key pair to the secret, replacing the current version.
func (s *VaultKeySource) Store(ctx context.Context, privatePEM, publicPEM []byte) error {
	return s.Client.WriteSecret(ctx, s.SecretPath, map[string]interface{}{
		vaultPrivateKeyField: string(privatePEM),
		vaultPublicKeyField:  string(publicPEM),
	})
}
