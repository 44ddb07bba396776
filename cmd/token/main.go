// Command token emite un JWT de desarrollo firmado con JWT_SECRET para probar la API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jhoicas/Invorya-api/pkg/config"
	"github.com/jhoicas/Invorya-api/pkg/jwt"
	"github.com/jhoicas/Invorya-api/pkg/logger"
	"github.com/spf13/cobra"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Out: os.Stderr})

	var (
		id  jwt.Identity
		ttl time.Duration
	)
	root := &cobra.Command{
		Use:           "token",
		Short:         "Emite un token de acceso para desarrollo",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.App.Env == "production" {
				return errors.New("no se emiten tokens manuales con APP_ENV=production")
			}
			if ttl <= 0 {
				ttl = time.Duration(cfg.JWT.Expiration) * time.Minute
			}
			tokens, err := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, ttl)
			if err != nil {
				return err
			}
			tok, err := tokens.Issue(id)
			if err != nil {
				return err
			}
			log.Info().Str("user_id", id.UserID).Str("company_id", id.CompanyID).Str("role", id.Role).Dur("ttl", ttl).Msg("token emitido")
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	root.Flags().StringVar(&id.UserID, "user", "", "user_id (sub)")
	root.Flags().StringVar(&id.CompanyID, "company", "", "company_id")
	root.Flags().StringVar(&id.Role, "role", "facturador", "admin | facturador | tesorero")
	root.Flags().DurationVar(&ttl, "ttl", 0, "vigencia; por defecto JWT_EXPIRATION_MINUTES")
	_ = root.MarkFlagRequired("user")
	_ = root.MarkFlagRequired("company")

	if err := root.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("emisión de token fallida")
		os.Exit(1)
	}
}
