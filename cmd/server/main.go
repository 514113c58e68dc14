package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/platemind/entitlements/modules/recipes"
	"github.com/platemind/entitlements/pkg/billing"
	"github.com/platemind/entitlements/pkg/config"
	"github.com/platemind/entitlements/pkg/entitlement/mongostore"
	"github.com/platemind/entitlements/pkg/httpserver"
	"github.com/platemind/entitlements/pkg/logger"
	"github.com/platemind/entitlements/pkg/mongo"
	"github.com/platemind/entitlements/svc/subscription"
)

type appConfig struct {
	Env         string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"APP_NAME" envDefault:"entitlements"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		appCfg    appConfig
		httpCfg   httpserver.Config
		mongoCfg  mongo.Config
		paddleCfg billing.PaddleConfig
		subCfg    subscription.Config
		genCfg    generationConfig
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&httpCfg)
	config.MustLoad(&mongoCfg)
	config.MustLoad(&paddleCfg)
	config.MustLoad(&subCfg)
	config.MustLoad(&genCfg)

	log := logger.New(
		logger.WithEnvironment(appCfg.Env, appCfg.ServiceName),
		logger.WithContextValue("request_id", middleware.RequestIDKey),
	)
	logger.SetAsDefault(log)

	db, err := mongo.NewWithDatabase(ctx, mongoCfg)
	if err != nil {
		log.Error("mongo connection failed", logger.Error(err))
		os.Exit(1)
	}
	defer db.Client().Disconnect(context.Background()) //nolint:errcheck

	if err := mongostore.EnsureIndexes(ctx, db); err != nil {
		log.Error("mongo index setup failed", logger.Error(err))
		os.Exit(1)
	}

	provider, err := billing.NewPaddleProvider(paddleCfg)
	if err != nil {
		log.Error("paddle provider setup failed", logger.Error(err))
		os.Exit(1)
	}

	svc := subscription.New(
		subCfg,
		provider,
		mongostore.NewRecordStore(db),
		mongostore.NewCheckoutStore(db),
		mongostore.NewEventLedgerStore(db),
		subscription.WithLogger(log.With(logger.Component("subscription"))),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", httpserver.HealthCheckHandler(ctx, log))
	r.Get("/readyz", httpserver.HealthCheckHandler(ctx, log, mongo.Healthcheck(db.Client())))

	r.Mount("/subscription", svc.Router())
	r.Mount("/recipes", recipes.Router(recipes.RouterOptions{
		Gate:      svc,
		Generator: newGenerationClient(genCfg, log.With(logger.Component("generation"))),
		History:   newHistoryReader(db),
	}))

	srv := httpserver.NewFromConfig(httpCfg,
		httpserver.WithLogger(log),
		httpserver.WithStartHook(func(l *slog.Logger) {
			l.Info("http server listening", slog.String("addr", httpCfg.Addr), slog.String("env", appCfg.Env))
		}),
		httpserver.WithStopHook(func(l *slog.Logger) {
			l.Info("http server stopped")
		}),
	)

	if err := srv.Run(ctx, r); err != nil {
		log.Error("http server failed", logger.Error(err))
		os.Exit(1)
	}
}
