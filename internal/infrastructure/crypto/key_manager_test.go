package crypto

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/config"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/errors"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/logger"
)

func TestGenerateAndWriteKeyPair(t *testing.T) {
	dir := t.TempDir()
	privPath := filepath.Join(dir, "keys", "private.pem")
	pubPath := filepath.Join(dir, "keys", "public.pem")

	priv, pub, err := GenerateKeyPair(2048)
	require.NoError(t, err)
	assert.Contains(t, string(priv), "BEGIN PRIVATE KEY")
	assert.Contains(t, string(pub), "BEGIN PUBLIC KEY")

	require.NoError(t, WriteKeyPair(privPath, pubPath, priv, pub, false))

	info, err := os.Stat(privPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	info, err = os.Stat(pubPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm()&0o644)

	// refuses to overwrite without the flag
	assert.Error(t, WriteKeyPair(privPath, pubPath, priv, pub, false))
	assert.NoError(t, WriteKeyPair(privPath, pubPath, priv, pub, true))

	km, err := LoadKeyMaterial(context.Background(), &FileKeySource{PrivateKeyPath: privPath, PublicKeyPath: pubPath})
	require.NoError(t, err)
	assert.Equal(t, string(pub), km.PublicKeyPEM())
	assert.Equal(t, 2048, km.PublicKey().N.BitLen())
}

func TestNewKeyMaterial_Errors(t *testing.T) {
	own := testKeyMaterial(t)
	_ = otherKeyMaterial(t)

	tests := []struct {
		name string
		priv []byte
		pub  []byte
	}{
		{"missing private", nil, testPub},
		{"missing public", testPrivPEM, nil},
		{"garbage private", []byte("not pem"), testPub},
		{"garbage public", testPrivPEM, []byte("not pem")},
		{"mismatched pair", testPrivPEM, otherPub},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewKeyMaterial(tt.priv, tt.pub)
			assert.ErrorIs(t, err, errors.ErrKeyMaterial)
		})
	}
	assert.NotNil(t, own)
}

func TestFileKeySource(t *testing.T) {
	ctx := context.Background()

	t.Run("missing files are fatal", func(t *testing.T) {
		dir := t.TempDir()
		src := &FileKeySource{
			PrivateKeyPath: filepath.Join(dir, "private.pem"),
			PublicKeyPath:  filepath.Join(dir, "public.pem"),
		}
		_, err := LoadKeyMaterial(ctx, src)
		assert.ErrorIs(t, err, errors.ErrKeyMaterial)
	})

	t.Run("generates when both are missing and allowed", func(t *testing.T) {
		dir := t.TempDir()
		src := &FileKeySource{
			PrivateKeyPath:    filepath.Join(dir, "private.pem"),
			PublicKeyPath:     filepath.Join(dir, "public.pem"),
			GenerateIfMissing: true,
			Log:               logger.NewNoopLogger(),
		}
		km, err := LoadKeyMaterial(ctx, src)
		require.NoError(t, err)
		assert.FileExists(t, src.PrivateKeyPath)
		assert.FileExists(t, src.PublicKeyPath)

		// second load reads the generated pair back
		again, err := LoadKeyMaterial(ctx, src)
		require.NoError(t, err)
		assert.Equal(t, km.PublicKeyPEM(), again.PublicKeyPEM())
	})

	t.Run("one missing file is fatal even when generation is allowed", func(t *testing.T) {
		dir := t.TempDir()
		pubPath := filepath.Join(dir, "public.pem")
		require.NoError(t, os.WriteFile(pubPath, testPub, 0o644))
		src := &FileKeySource{
			PrivateKeyPath:    filepath.Join(dir, "private.pem"),
			PublicKeyPath:     pubPath,
			GenerateIfMissing: true,
		}
		_, err := LoadKeyMaterial(ctx, src)
		assert.ErrorIs(t, err, errors.ErrKeyMaterial)
	})
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(4)

	hash, err := h.Hash("Aa123456!")
	require.NoError(t, err)
	assert.NotEqual(t, "Aa123456!", hash)
	assert.True(t, h.Compare(hash, "Aa123456!"))
	assert.False(t, h.Compare(hash, "Aa123456?"))
	assert.False(t, h.Compare("not-a-hash", "Aa123456!"))

	assert.Equal(t, 12, NewBcryptHasher(99).cost)
}

func TestNewKeySource(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{
		KeySource:      config.KeySourceFile,
		PrivateKeyPath: "a.pem",
		PublicKeyPath:  "b.pem",
	}}
	src, err := NewKeySource(cfg, logger.NewNoopLogger())
	require.NoError(t, err)
	assert.IsType(t, &FileKeySource{}, src)

	cfg.JWT.KeySource = config.KeySourceVault
	cfg.Vault = config.VaultConfig{Address: "http://127.0.0.1:8200", MountPath: "secret", SecretPath: "pokedex-auth/jwt"}
	src, err = NewKeySource(cfg, logger.NewNoopLogger())
	require.NoError(t, err)
	assert.Equal(t, "pokedex-auth/jwt", src.(*VaultKeySource).SecretPath)

	cfg.JWT.KeySource = "hsm"
	_, err = NewKeySource(cfg, logger.NewNoopLogger())
	assert.Error(t, err)
}
