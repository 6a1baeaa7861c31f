package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RubachokBoss/essay-grader/internal/app"
	"github.com/RubachokBoss/essay-grader/internal/config"
	"github.com/RubachokBoss/essay-grader/internal/database"
	"github.com/RubachokBoss/essay-grader/pkg/logger"
)

// version is set at build time via ldflags.
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "essay-grader",
	Short: "Rubric-driven essay grading service",
	Long: `essay-grader scores essays against a rubric by measuring how closely the
essay covers a topic's key points. Without a subcommand it runs the HTTP API.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(app.ModeServe)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (and the queue worker when rabbitmq is enabled)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(app.ModeServe)
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume grading jobs from the queue without serving HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(app.ModeWorker)
	},
}

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or roll back database migrations",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down"},
	RunE: func(cmd *cobra.Command, args []string) error {
		direction := "up"
		if len(args) == 1 {
			direction = args[0]
		}
		return runMigrations(cmd.Context(), direction)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of essay-grader",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("essay-grader %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ./config/config.yaml or ./config.yaml)")
	rootCmd.AddCommand(serveCmd, workerCmd, migrateCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(mode app.Mode) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Pretty, cfg.Logging.NoColor)

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	application, err := app.New(ctx, cfg, log, mode)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create application")
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Run(ctx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	case runErr = <-errCh:
		if runErr != nil {
			log.Error().Err(runErr).Msg("Application stopped with error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown gracefully")
		return errors.Join(runErr, err)
	}

	return runErr
}

func runMigrations(ctx context.Context, direction string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Pretty, cfg.Logging.NoColor)

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db, cfg.Database.MigrationsPath)
	if err != nil {
		return err
	}
	defer migrator.Close()

	switch direction {
	case "up":
		if err := migrator.Up(); err != nil {
			return err
		}
		log.Info().Msg("Migrations applied successfully")
	case "down":
		if err := migrator.Down(); err != nil {
			return err
		}
		log.Info().Msg("Migrations rolled back successfully")
	}

	schemaVersion, dirty, err := migrator.Version()
	if err != nil {
		return err
	}
	log.Info().Uint("version", schemaVersion).Bool("dirty", dirty).Msg("Database schema version")

	return nil
}
