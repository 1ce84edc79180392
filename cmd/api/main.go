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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/Envios-api/internal/application/delivery"
	"github.com/jhoicas/Envios-api/internal/application/routes"
	"github.com/jhoicas/Envios-api/internal/application/shipping"
	"github.com/jhoicas/Envios-api/internal/application/tracking"
	"github.com/jhoicas/Envios-api/internal/infrastructure/cache"
	"github.com/jhoicas/Envios-api/internal/infrastructure/importer"
	"github.com/jhoicas/Envios-api/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/Envios-api/internal/infrastructure/pdf"
	"github.com/jhoicas/Envios-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/Envios-api/internal/interfaces/http"
	"github.com/jhoicas/Envios-api/pkg/config"
	"github.com/jhoicas/Envios-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if cfg.DB.AutoMigrate {
		applied, err := postgres.Migrate(ctx, pool)
		if err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
		log.Info().Strs("applied", applied).Msg("migraciones al día")
	}

	// Caché del seguimiento público; sin REDIS_ADDR el libro lee siempre de PostgreSQL.
	var trackingCache tracking.Cache
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewTrackingCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TrackingTTL)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis no disponible, seguimiento sin caché")
		} else {
			trackingCache = rc
			defer rc.Close()
		}
	}

	metrics.Register()

	ledger := tracking.NewLedger(trackingCache, log)
	txRunner := postgres.NewTxRunner(pool)
	repos := postgres.NewRepos(pool)

	shipmentUC := shipping.NewShipmentUseCase(txRunner, repos, ledger,
		infrapdf.NewMarotoLabelGenerator(cfg.Shipping.TrackingURL),
		shipping.Config{
			Prefix:            cfg.Shipping.NumberPrefix,
			Padding:           cfg.Shipping.NumberPadding,
			StrictTransitions: cfg.Shipping.StrictTransitions,
		}, log)
	bulkIntake := shipping.NewBulkIntake(shipmentUC)
	routeUC := routes.NewRouteUseCase(txRunner, repos, log)
	deliveryUC := delivery.NewDeliveryUseCase(txRunner, repos, ledger, delivery.Config{
		StepAttempts:       cfg.Delivery.StepAttempts,
		StepBackoff:        cfg.Delivery.StepBackoff,
		MaxAttempts:        cfg.Delivery.MaxAttempts,
		RetryAfter:         cfg.Delivery.RetryAfter,
		StrictTransitions:  cfg.Shipping.StrictTransitions,
		AutoCompleteRoutes: cfg.Routes.AutoComplete,
	}, log)

	// Reconciliador de efectos secundarios de entregas (0 lo desactiva).
	var reconciler *delivery.Reconciler
	if cfg.Delivery.ReconcileInterval > 0 {
		reconciler = delivery.NewReconciler(deliveryUC, cfg.Delivery.ReconcileInterval)
		if err := reconciler.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("iniciar reconciliador de entregas")
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
		BodyLimit:    16 * 1024 * 1024,
	})
	app.Use(recover.New())
	app.Use(httpRouter.AccessLog(log))
	app.Use(httpRouter.RequestTimeout(cfg.HTTP.RequestTimeout))

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(cfg.HTTP.SwaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: cfg.HTTP.SwaggerFile,
			Path:     "docs",
			Title:    "Envios API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := pool.Ping(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": cfg.App.Name})
		}
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpRouter.Router(app, httpRouter.RouterDeps{
		ShipmentUC: shipmentUC,
		BulkIntake: bulkIntake,
		FileParser: importer.Parse,
		RouteUC:    routeUC,
		DeliveryUC: deliveryUC,
		JWTSecret:  cfg.JWT.Secret,
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
	if reconciler != nil {
		if err := reconciler.Shutdown(); err != nil {
			log.Error().Err(err).Msg("apagado del reconciliador")
		}
	}
	stop()

	log.Info().Msg("aplicación detenida")
}
