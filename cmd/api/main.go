package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/Invorya-api/internal/application/billing"
	"github.com/jhoicas/Invorya-api/internal/domain/repository"
	"github.com/jhoicas/Invorya-api/internal/infrastructure/memory"
	"github.com/jhoicas/Invorya-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/Invorya-api/internal/interfaces/http"
	"github.com/jhoicas/Invorya-api/pkg/config"
	"github.com/jhoicas/Invorya-api/pkg/jwt"
	"github.com/jhoicas/Invorya-api/pkg/logger"
)

// storage repositorios y runner transaccional del driver elegido.
type storage struct {
	txRunner     billing.BillingTxRunner
	invoiceRepo  repository.InvoiceRepository
	paymentRepo  repository.PaymentRepository
	customerRepo repository.CustomerRepository
	close        func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("configuración inválida")
	}
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("db_driver", cfg.DB.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	store, err := openStorage(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer store.close()

	loc, err := cfg.Billing.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("zona horaria de facturación")
	}
	billingCfg := billing.Config{
		NumberPrefix:        cfg.Billing.NumberPrefix,
		DefaultPaymentTerms: cfg.Billing.DefaultPaymentTerms,
		Location:            loc,
	}

	tokens, err := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.Expiration)*time.Minute)
	if err != nil {
		log.Fatal().Err(err).Msg("configuración JWT (JWT_SECRET, JWT_EXPIRATION_MINUTES)")
	}

	customerUC := billing.NewCustomerUseCase(store.customerRepo)
	invoiceUC := billing.NewInvoiceUseCase(store.txRunner, store.invoiceRepo, store.customerRepo, billingCfg, log)
	paymentSvc := billing.NewPaymentReconciliationService(store.txRunner, store.invoiceRepo, store.paymentRepo, billingCfg, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(cfg.HTTP.SwaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: cfg.HTTP.SwaggerFile,
			Path:     "docs",
			Title:    "Invorya API",
		}))
	} else {
		log.Warn().Str("file", cfg.HTTP.SwaggerFile).Msg("swagger no disponible")
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		CustomerUC: customerUC,
		InvoiceUC:  invoiceUC,
		PaymentSvc: paymentSvc,
		Tokens:     tokens,
		Log:        log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// openStorage arma los repositorios según DB_DRIVER. El driver memory no persiste entre reinicios.
func openStorage(ctx context.Context, cfg config.DBConfig) (*storage, error) {
	if cfg.Driver == config.DriverMemory {
		s := memory.NewStore()
		return &storage{
			txRunner:     memory.NewTxRunner(s),
			invoiceRepo:  memory.NewInvoiceRepository(s),
			paymentRepo:  memory.NewPaymentRepository(s),
			customerRepo: memory.NewCustomerRepository(s),
			close:        func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &storage{
		txRunner:     postgres.NewTxRunner(pool),
		invoiceRepo:  postgres.NewInvoiceRepository(pool),
		paymentRepo:  postgres.NewPaymentRepository(pool),
		customerRepo: postgres.NewCustomerRepository(pool),
		close:        pool.Close,
	}, nil
}
