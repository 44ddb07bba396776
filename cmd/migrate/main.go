package main

import (
	"context"
	"os"
	"time"

	"github.com/jhoicas/Invorya-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Invorya-api/pkg/config"
	"github.com/jhoicas/Invorya-api/pkg/logger"
	"github.com/spf13/cobra"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	var timeout time.Duration
	run := func(command string) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if err := postgres.Migrate(ctx, cfg.DB.ConnectionString(), command); err != nil {
				return err
			}
			log.Info().Str("command", command).Msg("migraciones aplicadas")
			return nil
		}
	}

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Migraciones del esquema de facturación",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "tiempo máximo de la operación")
	root.AddCommand(
		&cobra.Command{Use: "up", Short: "Aplica las migraciones pendientes", RunE: run(postgres.MigrateUp)},
		&cobra.Command{Use: "down", Short: "Revierte la última migración", RunE: run(postgres.MigrateDown)},
		&cobra.Command{Use: "status", Short: "Muestra el estado de cada migración", RunE: run(postgres.MigrateStatus)},
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("migración fallida")
		os.Exit(1)
	}
}
