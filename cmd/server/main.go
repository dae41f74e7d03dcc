package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pantrykeeper/internal/app/server/api"
	"pantrykeeper/internal/app/server/config"
	"pantrykeeper/internal/infrastructure/migration"
	"pantrykeeper/internal/infrastructure/storage/postgres"
	"pantrykeeper/internal/utils/logger"
)

func main() {
	root := &cobra.Command{
		Use:   "pantrykeeper-server",
		Short: "Kitchen data sync backend",
	}
	root.AddCommand(serveCmd(), migrateCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.MustLoad()
			log := logger.New(cfg.Env)

			ctx, stop := signal.NotifyContext(cmd.Context(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			storage, err := postgres.New(ctx, cfg)
			if err != nil {
				log.Error("storage init failed", "error", err)
				return err
			}
			defer storage.Close()

			server := &http.Server{
				Addr:    cfg.Server.RunAddress,
				Handler: api.New(cfg, storage, log),
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("server listening", "address", cfg.Server.RunAddress, "env", cfg.Env)
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
				log.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg := config.MustLoad()
			log := logger.New(cfg.Env)

			mg := migration.NewMigration(cfg, migration.DefaultEngine)
			if err := mg.Up(); err != nil {
				log.Error("migration failed", "error", err)
				return err
			}
			log.Info("migrations applied")
			return nil
		},
	}
}
