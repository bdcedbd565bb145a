//go:build integration

package crypto

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"testing"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/config"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/constants"
)

const vaultRootToken = "pokedex-root"

// startVault runs a dev-mode Vault, which mounts KV v2 at secret/.
func startVault(t *testing.T) string {
	t.Helper()
	pool, err := dockertest.NewPool("")
	require.NoError(t, err, "could not connect to docker")

	vault, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "hashicorp/vault",
		Tag:        "1.15",
		Env: []string{
			"VAULT_DEV_ROOT_TOKEN_ID=" + vaultRootToken,
			"VAULT_DEV_LISTEN_ADDRESS=0.0.0.0:8200",
		},
		CapAdd: []string{"IPC_LOCK"},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
	})
	require.NoError(t, err, "could not start vault")
	t.Cleanup(func() { _ = pool.Purge(vault) })

	addr := fmt.Sprintf("http://%s", vault.GetHostPort("8200/tcp"))
	require.NoError(t, pool.Retry(func() error {
		resp, err := http.Get(addr + "/v1/sys/health")
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("vault not ready: %d", resp.StatusCode)
		}
		return nil
	}))
	return addr
}

func TestVaultKeySource_Vault(t *testing.T) {
	if os.Getenv("SKIP_DOCKER_TESTS") == "true" {
		t.Skip("Skipping Docker-dependent tests")
	}
	ctx := context.Background()
	addr := startVault(t)

	cfg := &config.Config{
		JWT: config.JWTConfig{KeySource: config.KeySourceVault},
		Vault: config.VaultConfig{
			Address:    addr,
			Token:      vaultRootToken,
			MountPath:  "secret",
			SecretPath: "pokedex-auth/jwt",
		},
	}
	src, err := NewKeySource(cfg, nil)
	require.NoError(t, err)
	vaultSrc := src.(*VaultKeySource)

	_, _, err = vaultSrc.Load(ctx)
	assert.Error(t, err, "secret does not exist yet")

	privatePEM, publicPEM, err := GenerateKeyPair(constants.RSAKeyBits)
	require.NoError(t, err)
	require.NoError(t, vaultSrc.Store(ctx, privatePEM, publicPEM))

	keys, err := LoadKeyMaterial(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, string(publicPEM), keys.PublicKeyPEM())
}
