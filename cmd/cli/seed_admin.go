package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	appservice "github.com/Mateusz-G541/pokedex-auth-service/internal/application/service"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/config"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/repository"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/infrastructure/audit"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/infrastructure/crypto"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/infrastructure/persistence/postgres"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/logger"
)

// openUserRepository connects to the user store. Tests replace it.
var openUserRepository = func(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.UserRepository, func(), error) {
	db, err := postgres.NewDBConnection(ctx, &cfg.Database, log)
	if err != nil {
		return nil, nil, err
	}
	users := postgres.NewUserRepository(db.Pool(), log)
	if cfg.Database.AutoMigrate {
		if err := users.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate users: %w", err)
		}
	}
	return users, db.Close, nil
}

func newSeedAdminCommand(root *rootOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the administrator account or promote an existing user",
		Long: `Create an active ADMINISTRATOR with the given credentials. When the email already
belongs to an account, that account is promoted to ADMINISTRATOR and re-activated and
its password is left unchanged.

Credentials default to admin.email and admin.password (ADMIN_EMAIL, ADMIN_PASSWORD).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := root.load()
			if err != nil {
				return err
			}
			if email == "" {
				email = cfg.Admin.Email
			}
			if password == "" {
				password = cfg.Admin.Password
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			users, closeUsers, err := openUserRepository(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer closeUsers()

			auditService, closeAudit, err := audit.New(cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = closeAudit() }()

			svc := appservice.NewUserAppService(users, crypto.NewBcryptHasher(cfg.Security.BcryptRounds), auditService, log)
			fmt.Fprintln(out, "Checking for existing admin user...")
			user, created, err := svc.EnsureAdmin(ctx, email, password)
			if err != nil {
				return err
			}

			if !created {
				fmt.Fprintf(out, "Admin user already exists: %s\n", user.Email)
				fmt.Fprintf(out, "Role: %s, active: %t\n", user.Role, user.IsActive)
				return nil
			}
			fmt.Fprintln(out, "Admin user created successfully")
			fmt.Fprintf(out, "Email: %s\nRole: %s\n\n", user.Email, user.Role)
			fmt.Fprintln(out, "IMPORTANT: Change the default password after first login!")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "administrator email (default admin.email)")
	cmd.Flags().StringVar(&password, "password", "", "administrator password (default admin.password)")
	return cmd
}
