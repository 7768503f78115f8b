package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/persistence"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
)

// cliEnv bundles the config and connections a subcommand needs.
type cliEnv struct {
	cfg    *config.Config
	logger *zap.Logger
	pg     *persistence.Postgres
}

func openEnv(ctx context.Context) (*cliEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &cliEnv{cfg: cfg, logger: logger, pg: pg}, nil
}

func (r *cliEnv) Close() {
	r.pg.Close()
	_ = r.logger.Sync()
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()
			return persistence.RunMigrations(cmd.Context(), rt.pg.PoolHandle(), rt.logger)
		},
	}
}

func newMigrateRolesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-roles",
		Short: "Convert legacy single-role staff rows into role sets",
		Long:  `Copies the legacy role column into the roles array for rows whose array is empty, then clears the legacy column. Safe to run repeatedly.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			staff := service.NewStaffService(*rt.cfg, service.StaffDependencies{
				StaffRepo: repository.NewStaffRepository(rt.pg.PoolHandle()),
			})
			migrated, err := staff.MigrateLegacyRoles(cmd.Context())
			if err != nil {
				return err
			}
			rt.logger.Info("legacy roles migrated", zap.Int("rows", migrated))
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %d staff rows\n", migrated)
			return nil
		},
	}
}

func newCreateAdminCommand() *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Long:  `Creates an administrator. The password is read from SUPPORTCTL_ADMIN_PASSWORD.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password := os.Getenv("SUPPORTCTL_ADMIN_PASSWORD")
			if len(password) < 8 {
				return errors.New("SUPPORTCTL_ADMIN_PASSWORD must be set to at least 8 characters")
			}

			rt, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			pool := rt.pg.PoolHandle()
			authService := service.NewAuthService(*rt.cfg, service.AuthDependencies{
				UserRepo:          repository.NewUserRepository(pool),
				StaffRepo:         repository.NewStaffRepository(pool),
				AdminRepo:         repository.NewAdminRepository(pool),
				PasswordResetRepo: repository.NewPasswordResetRepository(pool),
				Logger:            rt.logger,
			})
			admin, err := authService.CreateAdmin(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", admin.Email, admin.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "Administrator", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Login email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
