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

	"github.com/jhoicas/inventario-ledger/internal/application/ledger"
	"github.com/jhoicas/inventario-ledger/internal/application/usecase"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/events"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/sqlite"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/telemetry"
	httpRouter "github.com/jhoicas/inventario-ledger/internal/interfaces/http"
	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

// store agrupa los adaptadores de persistencia del driver elegido.
type store struct {
	products repository.ProductRepository
	entries  repository.LedgerRepository
	txRunner ledger.TxRunner
	close    func()
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
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("db_driver", cfg.DB.Driver).
		Str("events_broker", cfg.Events.Broker).
		Msg("iniciando aplicación")

	ctx := context.Background()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Telemetry)
	if err != nil {
		log.Error().Err(err).Msg("configurar OpenTelemetry; se continúa sin trazas")
		shutdownTracing = func(context.Context) error { return nil }
	}

	st, err := openStore(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DB.Driver).Msg("conexión a la base de datos")
	}
	defer st.close()

	publisher, closePublisher := newPublisher(cfg.Events, log)
	defer closePublisher()

	applyUC := ledger.NewApplyChangeUseCase(st.txRunner, publisher, log)
	batchProcessor := ledger.NewBatchProcessor(st.products, applyUC, ledger.BatchConfig{
		Workers:     cfg.Ledger.BatchWorkers,
		ItemTimeout: cfg.Ledger.ItemTimeout,
	}, log)
	queryUC := ledger.NewQueryUseCase(st.txRunner, st.entries, st.products)
	productUC := usecase.NewProductUseCase(st.products, st.txRunner)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Stock Ledger API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "db_driver": cfg.DB.Driver})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		ProductUC:   productUC,
		ApplyChange: applyUC,
		Batch:       batchProcessor,
		Query:       queryUC,
		JWTSecret:   cfg.JWT.Secret,
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
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado de OpenTelemetry")
	}

	log.Info().Msg("aplicación detenida")
}

func openStore(ctx context.Context, cfg config.DBConfig) (*store, error) {
	if cfg.Driver == config.DriverSQLite {
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &store{
			products: sqlite.NewProductRepository(db),
			entries:  sqlite.NewLedgerRepository(db),
			txRunner: sqlite.NewTxRunner(db),
			close:    func() { _ = db.Close() },
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Migrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return &store{
		products: postgres.NewProductRepository(pool),
		entries:  postgres.NewLedgerRepository(pool),
		txRunner: postgres.NewTxRunner(pool),
		close:    pool.Close,
	}, nil
}

// newPublisher elige el broker de eventos. Si RabbitMQ no conecta se sigue sin eventos.
func newPublisher(cfg config.EventsConfig, log *logger.Logger) (ledger.EventPublisher, func()) {
	switch cfg.Broker {
	case config.BrokerKafka:
		p := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		return p, func() {
			if err := p.Close(); err != nil {
				log.Error().Err(err).Msg("cerrar publicador Kafka")
			}
		}
	case config.BrokerRabbitMQ:
		p, err := events.NewRabbitPublisher(cfg.RabbitURL, cfg.RabbitExchange, cfg.RabbitRoutingKey)
		if err != nil {
			log.Error().Err(err).Msg("conexión a RabbitMQ; eventos deshabilitados")
			return ledger.NopPublisher{}, func() {}
		}
		return p, func() {
			if err := p.Close(); err != nil {
				log.Error().Err(err).Msg("cerrar publicador RabbitMQ")
			}
		}
	default:
		return ledger.NopPublisher{}, func() {}
	}
}
