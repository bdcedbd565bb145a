package cli

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/config"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/models"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/infrastructure/crypto"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/logger"
	"github.com/Mateusz-G541/pokedex-auth-service/sdk/go/pokedex_verifier"
)

func newTokenCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect access tokens",
	}
	cmd.AddCommand(newTokenVerifyCommand(root))
	return cmd
}

func newTokenVerifyCommand(root *rootOptions) *cobra.Command {
	var remote string

	cmd := &cobra.Command{
		Use:   "verify TOKEN",
		Short: "Verify a token and print the identity it carries",
		Long: `Verify a token and print its identity as JSON.

By default the token is checked against the locally configured key pair. With --remote
the public key is fetched from a running auth service instead, exactly as a consumer
service would do it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := root.load()
			if err != nil {
				return err
			}
			token := strings.TrimSpace(strings.TrimPrefix(args[0], "Bearer "))

			var identity *models.Identity
			if remote != "" {
				identity, err = verifyRemote(cmd.Context(), cfg, remote, token, log)
			} else {
				identity, err = verifyLocal(cmd.Context(), cfg, token, log)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(identity)
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "auth service base URL to fetch the public key from")
	return cmd
}

func verifyLocal(ctx context.Context, cfg *config.Config, token string, log logger.Logger) (*models.Identity, error) {
	src, err := crypto.NewKeySource(cfg, log)
	if err != nil {
		return nil, err
	}
	keys, err := crypto.LoadKeyMaterial(ctx, src)
	if err != nil {
		return nil, err
	}
	lifetime, err := cfg.JWT.Lifetime()
	if err != nil {
		return nil, err
	}
	tokens, err := crypto.NewJWTManager(keys, lifetime, log)
	if err != nil {
		return nil, err
	}
	return tokens.Verify(ctx, token)
}

func verifyRemote(ctx context.Context, cfg *config.Config, baseURL, token string, log logger.Logger) (*models.Identity, error) {
	v, err := pokedex_verifier.New(pokedex_verifier.Config{
		AuthServiceURL: baseURL,
		FetchTimeout:   cfg.Verifier.FetchTimeout,
		Logger:         log,
	})
	if err != nil {
		return nil, err
	}
	return v.Verify(ctx, token)
}
