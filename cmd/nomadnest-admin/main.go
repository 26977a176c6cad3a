package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"go.uber.org/multierr"

	"github.com/nomadnest/nomadnest/cmd/nomadnest-admin/seed"
	"github.com/nomadnest/nomadnest/cmd/nomadnest-admin/ui"
	"github.com/nomadnest/nomadnest/internal/auth"
	"github.com/nomadnest/nomadnest/internal/config"
	"github.com/nomadnest/nomadnest/internal/database"
	"github.com/nomadnest/nomadnest/internal/listing"
	"github.com/nomadnest/nomadnest/internal/logging"
	"github.com/nomadnest/nomadnest/internal/user"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "nomadnest-admin",
		Short:        "Maintenance commands for a NomadNest database",
		SilenceUsage: true,
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and indexes",
		RunE:  runMigrate,
	}

	createUserCmd := &cobra.Command{
		Use:   "create-user",
		Short: "Register an account",
		Long:  "Register an account. Missing flags are asked for interactively.",
		RunE:  runCreateUser,
	}
	createUserCmd.Flags().String("username", "", "Username")
	createUserCmd.Flags().String("email", "", "Email address")
	createUserCmd.Flags().String("password", "", "Password")

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert demo listings",
		RunE:  runSeed,
	}
	seedCmd.Flags().String("owner", "", "Username that will own the listings (required)")
	seedCmd.Flags().Bool("force", false, "Seed even when listings already exist")
	seedCmd.Flags().BoolP("yes", "y", false, "Skip confirmation prompt")
	_ = seedCmd.MarkFlagRequired("owner")

	rootCmd.AddCommand(migrateCmd, createUserCmd, seedCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}

// withDB opens the configured database, makes sure the schema exists and
// runs fn against it.
func withDB(ctx context.Context, fn func(db *bun.DB, logger *logging.Logger) error) (err error) {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.NewLogger(cfg.Server.IsDevelopment())

	db, err := database.Open(cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() { err = multierr.Append(err, db.Close()) }()

	if err := database.CreateSchema(ctx, db); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return fn(db, logger)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	return withDB(cmd.Context(), func(*bun.DB, *logging.Logger) error {
		ui.PrintSuccess("Schema is up to date.")
		return nil
	})
}

func runCreateUser(cmd *cobra.Command, args []string) error {
	in := auth.SignupInput{}
	in.Username, _ = cmd.Flags().GetString("username")
	in.Email, _ = cmd.Flags().GetString("email")
	in.Password, _ = cmd.Flags().GetString("password")

	// Interactive mode
	if in.Username == "" || in.Email == "" || in.Password == "" {
		ui.PrintTitle("New NomadNest account")

		var err error
		if in, err = ui.RunUserForm(in); err != nil {
			return fmt.Errorf("form cancelled: %w", err)
		}
	}

	return withDB(cmd.Context(), func(db *bun.DB, logger *logging.Logger) error {
		// Signup never mails, so no sender is needed.
		service := auth.NewService(user.NewRepository(db), nil, auth.NewHasher(), logger)

		u, err := service.Signup(cmd.Context(), in)
		if err != nil {
			return err
		}

		ui.PrintSuccess("Account created")
		ui.PrintField("Username", u.Username)
		ui.PrintField("Email", u.Email)
		ui.PrintField("ID", u.ID.String())
		return nil
	})
}

func runSeed(cmd *cobra.Command, args []string) error {
	owner, _ := cmd.Flags().GetString("owner")
	force, _ := cmd.Flags().GetBool("force")
	yes, _ := cmd.Flags().GetBool("yes")

	if !yes {
		ok, err := ui.Confirm(fmt.Sprintf("Insert %d demo listings owned by %q?", len(seed.Samples), owner))
		if err != nil {
			return fmt.Errorf("prompt cancelled: %w", err)
		}
		if !ok {
			ui.PrintHint("Aborted.")
			return nil
		}
	}

	return withDB(cmd.Context(), func(db *bun.DB, logger *logging.Logger) error {
		u, err := user.NewRepository(db).GetByUsername(cmd.Context(), owner)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return fmt.Errorf("no user named %q, run create-user first", owner)
			}
			return err
		}

		n, err := seed.Run(cmd.Context(), listing.NewRepository(db), u.ID, seed.Samples, force)
		if errors.Is(err, seed.ErrAlreadySeeded) {
			ui.PrintHint("Listings already exist, nothing to do. Use --force to seed anyway.")
			return nil
		}
		if err != nil {
			return err
		}

		logger.Info("seeded listings", "count", n, "owner", u.ID)
		ui.PrintSuccess(fmt.Sprintf("Inserted %d listings.", n))
		return nil
	})
}
