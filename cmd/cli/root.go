// Package cli implements pokedex-admin, the operator tool for the auth service.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/config"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/infrastructure/monitoring"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/logger"
)

type rootOptions struct {
	configFile string
}

// NewRootCommand builds the pokedex-admin command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "pokedex-admin",
		Short: "Administer the Pokedex auth service",
		Long: `pokedex-admin performs operator tasks for the Pokedex auth service: generating the
signing key pair, seeding the first administrator and inspecting tokens.

Configuration is read the same way the server reads it: config.yaml, .env and the
environment.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", os.Getenv("POKEDEX_AUTH_CONFIG"), "path to the config file")

	cmd.AddCommand(
		newKeysCommand(opts),
		newSeedAdminCommand(opts),
		newTokenCommand(opts),
	)
	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func (o *rootOptions) load() (*config.Config, logger.Logger, error) {
	cfg, err := config.LoadConfig(o.configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := monitoring.NewZapLogger(&config.LogConfig{Level: "warn", Format: "console"})
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
