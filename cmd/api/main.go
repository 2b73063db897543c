package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/epp-kardex/internal/application/inventory"
	"github.com/jhoicas/epp-kardex/internal/infrastructure/ledger"
	"github.com/jhoicas/epp-kardex/internal/infrastructure/metrics"
	httpRouter "github.com/jhoicas/epp-kardex/internal/interfaces/http"
	"github.com/jhoicas/epp-kardex/pkg/config"
	"github.com/jhoicas/epp-kardex/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
		App:   cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("ledger_driver", cfg.Ledger.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	l, err := ledger.Open(ctx, cfg, log.Component("ledger"))
	if err != nil {
		log.Fatal().Err(err).Msg("abrir kardex")
	}
	defer l.Close()

	prom := metrics.New("epp")

	aggregator := inventory.NewStockAggregator(l.Movements, l.Stocks, l.Catalog)
	validator := inventory.NewValidator(l.Catalog, aggregator)
	detector := inventory.NewDuplicateDetector(l.Movements, cfg.Inventory.DuplicateWindow)
	workflow := inventory.NewWorkflow(l.TxRunner, validator, detector, prom, log.Component("workflow"))
	kardex := inventory.NewKardexProjector(l.Movements, l.Catalog)
	seedUC := inventory.NewSeedUseCase(l.TxRunner, l.Catalog, validator, log.Component("seed"))

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "EPP Kardex API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := l.Pinger.Ping(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": cfg.App.Name})
		}
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})
	app.Get("/metrics", adaptor.HTTPHandler(prom.Handler()))

	httpRouter.Router(app, httpRouter.RouterDeps{
		Workflow:   workflow,
		Aggregator: aggregator,
		Kardex:     kardex,
		Seed:       seedUC,
		Store:      l.Pinger,
		JWTSecret:  cfg.JWT.Secret,
		Tokens: httpRouter.ProposalTokens{
			Secret:  cfg.JWT.Secret,
			Issuer:  cfg.JWT.Issuer,
			Minutes: cfg.JWT.ProposalMinutes,
		},
		Log: log.Component("http"),
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
