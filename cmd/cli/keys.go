package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/infrastructure/crypto"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/constants"
)

func newKeysCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the token signing key pair",
	}
	cmd.AddCommand(newKeysGenerateCommand(root))
	return cmd
}

func newKeysGenerateCommand(root *rootOptions) *cobra.Command {
	var (
		force bool
		bits  int
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an RSA key pair for token signing",
		Long: `Generate an RSA key pair and store it where the server loads it from: the PEM files
named by jwt.private_key_path and jwt.public_key_path, or the Vault secret when
jwt.key_source is vault. Existing keys are kept unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := root.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			src, err := crypto.NewKeySource(cfg, log)
			if err != nil {
				return err
			}

			switch s := src.(type) {
			case *crypto.FileKeySource:
				if !force && exists(s.PrivateKeyPath) && exists(s.PublicKeyPath) {
					fmt.Fprintln(out, "Keys already exist, skipping (use --force to replace them)")
					return nil
				}
				privatePEM, publicPEM, err := crypto.GenerateKeyPair(bits)
				if err != nil {
					return err
				}
				if err := crypto.WriteKeyPair(s.PrivateKeyPath, s.PublicKeyPath, privatePEM, publicPEM, force); err != nil {
					return err
				}
				fmt.Fprintf(out, "RSA keys generated at %s\n", filepath.Dir(s.PrivateKeyPath))

			case *crypto.VaultKeySource:
				if !force {
					if _, _, err := s.Load(ctx); err == nil {
						fmt.Fprintln(out, "Keys already exist in Vault, skipping (use --force to replace them)")
						return nil
					}
				}
				privatePEM, publicPEM, err := crypto.GenerateKeyPair(bits)
				if err != nil {
					return err
				}
				if err := s.Store(ctx, privatePEM, publicPEM); err != nil {
					return err
				}
				fmt.Fprintf(out, "RSA keys stored in Vault at %s/%s\n", cfg.Vault.MountPath, cfg.Vault.SecretPath)

			default:
				return fmt.Errorf("key source %q does not support generation", cfg.JWT.KeySource)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace existing keys")
	cmd.Flags().IntVar(&bits, "bits", constants.RSAKeyBits, "RSA modulus size")
	return cmd
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
