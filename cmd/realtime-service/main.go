package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "marketguard/cmd/realtime-service/docs"
	"marketguard/internal/constants"
	"marketguard/pkg/bootstrap"
	"marketguard/pkg/logging"
	"marketguard/pkg/migrations"
)

var (
	configFile string
)

// @title           Marketguard Realtime Service API
// @version         1.0
// @description     Chat with contact-detail masking, real-time delivery and privacy-aware job locations

// @host      localhost:8080
// @BasePath  /

// @schemes   http https

func main() {
	rootCmd := &cobra.Command{
		Use:   constants.ServiceNameRealtime,
		Short: "Realtime Service for the marketplace",
		Long:  "Realtime Service serves chat, notifications, websocket delivery and job locations",
		RunE:  serveCmd().RunE,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (required)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the realtime service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap.Setup(configFile, constants.ServiceNameRealtime)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.InfowCtx(ctx, "Starting Realtime Service")

			app := NewApp(cfg, log)
			if err := app.Initialize(ctx); err != nil {
				log.ErrorwCtx(ctx, "Failed to initialize application", "error", err)
				_ = app.Shutdown(context.Background())
				return err
			}

			if err := app.Run(ctx); err != nil {
				log.ErrorwCtx(ctx, "Application error", "error", err)
				return err
			}
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "migrate [up|down|version]",
		Short: "Manage the PostgreSQL schema and MongoDB indexes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap.Setup(configFile, constants.ServiceNameRealtime)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx := cmd.Context()
			connector := bootstrap.NewDatabaseConnector(cfg, log)
			cfg.Database.RunMigrations = false

			db, err := connector.InitPostgreSQL(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			switch args[0] {
			case "up":
				if err := migrations.RunPostgres(db); err != nil {
					return err
				}
				mongoClient, err := connector.InitMongoDB(ctx)
				if err != nil {
					return err
				}
				if mongoClient != nil {
					defer mongoClient.Disconnect(ctx)
					if err := migrations.EnsureMongoCollection(ctx, connector.MongoDatabase(mongoClient)); err != nil {
						return err
					}
				}
			case "down":
				if err := migrations.RollbackPostgres(db, steps); err != nil {
					return err
				}
			case "version":
			default:
				return fmt.Errorf("unknown migrate action %q", args[0])
			}

			return printVersion(db)
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")
	return cmd
}

func printVersion(db *sql.DB) error {
	version, dirty, ok, err := migrations.PostgresVersion(db)
	if err != nil {
		return err
	}
	earlyLog := logging.NewEarlyLog()
	if !ok {
		earlyLog.Info("No migrations applied")
		return nil
	}
	earlyLog.Info("Schema version %d (dirty: %t)", version, dirty)
	return nil
}
