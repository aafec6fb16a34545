package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/campusdesk/internal/app"
	"github.com/spec-kit/campusdesk/internal/config"
	"github.com/spec-kit/campusdesk/internal/domain"
	"github.com/spec-kit/campusdesk/internal/observability"
	"github.com/spec-kit/campusdesk/internal/persistence"
	"github.com/spec-kit/campusdesk/internal/service"
)

const bootstrapPasswordEnv = "BOOTSTRAP_PASSWORD"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "campusctl",
		Short:         "Operator utility for the campusdesk database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newBootstrapCommand())
	cmd.AddCommand(newInviteCommand())
	cmd.AddCommand(newRateLimitCommand())
	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func loadEnv() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Postgres.DSN == "" {
		return nil, nil, errors.New("POSTGRES_DSN is required")
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// openContainer wires services against the configured database. The CLI never
// publishes events and never migrates implicitly.
func openContainer(ctx context.Context) (*app.Container, error) {
	cfg, logger, err := loadEnv()
	if err != nil {
		return nil, err
	}
	cfg.Broker.URL = ""
	cfg.Postgres.RunMigrations = false
	return app.Open(ctx, *cfg, logger)
}

func withPostgres(ctx context.Context, fn func(pg *persistence.Postgres, logger *zap.Logger) error) error {
	cfg, logger, err := loadEnv()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()
	return fn(pg, logger)
}

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Schema migration operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			return withPostgres(ctx, func(pg *persistence.Postgres, logger *zap.Logger) error {
				return persistence.RunMigrations(ctx, pg.PoolHandle(), logger)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			return withPostgres(ctx, func(pg *persistence.Postgres, logger *zap.Logger) error {
				return persistence.RollbackMigration(ctx, pg.PoolHandle(), logger)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			return withPostgres(ctx, func(pg *persistence.Postgres, logger *zap.Logger) error {
				version, err := persistence.SchemaVersion(ctx, pg.PoolHandle(), logger)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
				return nil
			})
		},
	})
	return cmd
}

func newBootstrapCommand() *cobra.Command {
	var (
		email    string
		fullName string
	)

	cmd := &cobra.Command{
		Use:   "bootstrap-superadmin",
		Short: "Create or promote the superadmin account",
		Long:  "Creates the superadmin account, or promotes an existing one. The password is read from " + bootstrapPasswordEnv + ".",
		RunE: func(cmd *cobra.Command, args []string) error {
			password := os.Getenv(bootstrapPasswordEnv)
			if password == "" {
				return fmt.Errorf("%s is not set", bootstrapPasswordEnv)
			}
			ctx := commandContext(cmd)
			c, err := openContainer(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			account, created, err := c.Auth.BootstrapSuperadmin(ctx, service.BootstrapInput{
				FullName: fullName,
				Email:    email,
				Password: password,
			})
			if err != nil {
				return err
			}
			verb := "promoted"
			if created {
				verb = "created"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s superadmin %s (%s)\n", verb, account.Email, account.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Superadmin email address")
	cmd.Flags().StringVar(&fullName, "name", "", "Display name for a new account")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newInviteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Invite code operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newInviteCreateCommand())
	return cmd
}

func newInviteCreateCommand() *cobra.Command {
	var (
		as        string
		role      string
		code      string
		expiresIn time.Duration
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue an invite code on behalf of an administrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsedRole, ok := domain.ParseRole(role)
			if !ok {
				return fmt.Errorf("unknown role %q", role)
			}
			ctx := commandContext(cmd)
			c, err := openContainer(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			issuer, err := c.Repos.Accounts.GetByEmail(ctx, service.NormalizeEmail(as))
			if err != nil {
				return fmt.Errorf("load issuer %s: %w", as, err)
			}
			if issuer.Status != domain.AccountStatusActive {
				return fmt.Errorf("issuer %s is not active", issuer.Email)
			}

			input := service.IssueInviteInput{Role: parsedRole, Code: code}
			if expiresIn > 0 {
				input.ExpiresIn = &expiresIn
			}
			invite, err := c.Invites.Issue(ctx, domain.Actor{ID: issuer.ID, Role: issuer.Role}, input)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), invite.Code)
			return nil
		},
	}

	cmd.Flags().StringVar(&as, "as", "", "Email of the issuing admin or superadmin")
	cmd.Flags().StringVar(&role, "role", "", "Role granted by the code")
	cmd.Flags().StringVar(&code, "code", "", "Custom code (generated when empty)")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "Validity period, e.g. 72h (no expiry when zero)")
	_ = cmd.MarkFlagRequired("as")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func newRateLimitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Rate limiter maintenance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete attempts older than the longest window",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			c, err := openContainer(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			removed, err := c.Limiter.Purge(ctx, app.MaxRateLimitWindow(c.Config.RateLimit))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d attempts\n", removed)
			return nil
		},
	})
	return cmd
}
