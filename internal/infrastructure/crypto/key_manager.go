// Package crypto holds the service's signing key pair and implements token issuance and
// verification, both with the local key pair and with a public key obtained from the issuer.
package crypto

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/config"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/constants"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/errors"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/logger"
)

// ================================================================================
// KeyMaterial
// ================================================================================

// KeyMaterial is the service's RSA signing key pair. It is immutable after construction
// and the private key never leaves this package.
type KeyMaterial struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	publicPEM  string
}

// NewKeyMaterial parses a PEM private key (PKCS#8 or PKCS#1) and a PEM public key and
// checks that they belong together.
func NewKeyMaterial(privatePEM, publicPEM []byte) (*KeyMaterial, error) {
	if len(privatePEM) == 0 || len(publicPEM) == 0 {
		return nil, errors.ErrKeyMaterial.WithError(fmt.Errorf("both private and public keys are required"))
	}
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
	if err != nil {
		return nil, errors.ErrKeyMaterial.WithError(fmt.Errorf("parse private key: %w", err))
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
	if err != nil {
		return nil, errors.ErrKeyMaterial.WithError(fmt.Errorf("parse public key: %w", err))
	}
	if !privateKey.PublicKey.Equal(publicKey) {
		return nil, errors.ErrKeyMaterial.WithError(fmt.Errorf("public key does not match private key"))
	}
	return &KeyMaterial{privateKey: privateKey, publicKey: publicKey, publicPEM: string(publicPEM)}, nil
}

// PublicKeyPEM returns the PEM-encoded public key for distribution.
func (k *KeyMaterial) PublicKeyPEM() string {
	return k.publicPEM
}

// PublicKey returns the parsed public key.
func (k *KeyMaterial) PublicKey() *rsa.PublicKey {
	return k.publicKey
}

// ================================================================================
// Key generation
// ================================================================================

// GenerateKeyPair creates an RSA key pair and returns it as PKCS#8 private and SPKI public PEM.
func GenerateKeyPair(bits int) (privatePEM, publicPEM []byte, err error) {
	if bits <= 0 {
		bits = constants.RSAKeyBits
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, fmt.Errorf("generate rsa key: %w", err)
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal public key: %w", err)
	}
	privatePEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
	publicPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return privatePEM, publicPEM, nil
}

// WriteKeyPair writes the key pair to disk, the private key readable by the owner only.
// Existing files are replaced only when overwrite is set.
func WriteKeyPair(privatePath, publicPath string, privatePEM, publicPEM []byte, overwrite bool) error {
	if !overwrite {
		for _, p := range []string{privatePath, publicPath} {
			if _, err := os.Stat(p); err == nil {
				return fmt.Errorf("%s already exists", p)
			}
		}
	}
	for _, p := range []string{privatePath, publicPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("create key directory: %w", err)
		}
	}
	if err := os.WriteFile(privatePath, privatePEM, 0o600); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}
	// WriteFile keeps the mode of an existing file
	if err := os.Chmod(privatePath, 0o600); err != nil {
		return fmt.Errorf("chmod private key: %w", err)
	}
	if err := os.WriteFile(publicPath, publicPEM, 0o644); err != nil {
		return fmt.Errorf("write public key: %w", err)
	}
	return nil
}

// ================================================================================
// Key sources
// ================================================================================

// KeySource supplies the PEM-encoded key pair at startup.
type KeySource interface {
	Load(ctx context.Context) (privatePEM, publicPEM []byte, err error)
}

// FileKeySource reads the key pair from two PEM files.
type FileKeySource struct {
	PrivateKeyPath    string
	PublicKeyPath     string
	GenerateIfMissing bool
	Log               logger.Logger
}

// Load reads both files. When neither exists and GenerateIfMissing is set a new pair is
// generated and written first; a single missing file is always an error.
func (s *FileKeySource) Load(ctx context.Context) ([]byte, []byte, error) {
	privatePEM, privErr := os.ReadFile(s.PrivateKeyPath)
	publicPEM, pubErr := os.ReadFile(s.PublicKeyPath)

	bothMissing := stderrors.Is(privErr, fs.ErrNotExist) && stderrors.Is(pubErr, fs.ErrNotExist)
	if bothMissing && s.GenerateIfMissing {
		var err error
		privatePEM, publicPEM, err = GenerateKeyPair(constants.RSAKeyBits)
		if err != nil {
			return nil, nil, err
		}
		if err := WriteKeyPair(s.PrivateKeyPath, s.PublicKeyPath, privatePEM, publicPEM, false); err != nil {
			return nil, nil, err
		}
		if s.Log != nil {
			s.Log.Warn(ctx, "Signing key pair was missing and has been generated", logger.Fields{
				"private_key_path": s.PrivateKeyPath,
				"public_key_path":  s.PublicKeyPath,
			})
		}
		return privatePEM, publicPEM, nil
	}

	if privErr != nil {
		return nil, nil, fmt.Errorf("read private key %s: %w", s.PrivateKeyPath, privErr)
	}
	if pubErr != nil {
		return nil, nil, fmt.Errorf("read public key %s: %w", s.PublicKeyPath, pubErr)
	}
	return privatePEM, publicPEM, nil
}

// LoadKeyMaterial loads and validates the key pair from src. Any failure is returned as
// ErrKeyMaterial and is meant to stop the process.
func LoadKeyMaterial(ctx context.Context, src KeySource) (*KeyMaterial, error) {
	privatePEM, publicPEM, err := src.Load(ctx)
	if err != nil {
		return nil, errors.ErrKeyMaterial.WithError(err)
	}
	return NewKeyMaterial(privatePEM, publicPEM)
}

// NewKeySource returns the key source selected by cfg.JWT.KeySource.
func NewKeySource(cfg *config.Config, log logger.Logger) (KeySource, error) {
	switch cfg.JWT.KeySource {
	case "", config.KeySourceFile:
		return &FileKeySource{
			PrivateKeyPath:    cfg.JWT.PrivateKeyPath,
			PublicKeyPath:     cfg.JWT.PublicKeyPath,
			GenerateIfMissing: cfg.JWT.GenerateIfMissing,
			Log:               log,
		}, nil
	case config.KeySourceVault:
		client, err := NewVaultClient(&cfg.Vault)
		if err != nil {
			return nil, err
		}
		return &VaultKeySource{Client: client, SecretPath: cfg.Vault.SecretPath}, nil
	}
	return nil, fmt.Errorf("unknown key source %q", cfg.JWT.KeySource)
}
