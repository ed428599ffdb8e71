package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/bandmate/backend/internal/config"
	"github.com/bandmate/backend/internal/db"
	"github.com/bandmate/backend/internal/handlers"
	"github.com/bandmate/backend/internal/httpserver"
	"github.com/bandmate/backend/internal/logging"
	"github.com/bandmate/backend/internal/middleware"
	"github.com/bandmate/backend/internal/store"
)

// Run bootstraps the Bandmate backend application.
func Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected command: serve or seed")
	}

	switch args[0] {
	case "serve":
		return serve(ctx)
	case "seed":
		return runSeed(ctx, args[1:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	backend, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.close()
	logger.Info("document store ready", "store", cfg.Store)

	deps := buildDependencies(backend.store, backend.health, cfg)

	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, deps)

	handler := middleware.RequestLogger(logger)(mux)

	srv := httpserver.New(cfg.AppPort, handler, logger, cfg.ShutdownTimeout)
	return srv.Run(ctx)
}

func newLogger(level string) (*slog.Logger, error) {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true, Level: lvl})), nil
}

// backend is an opened document store together with its health check and
// release hook.
type backend struct {
	store  store.Store
	health handlers.HealthCheck
	close  func()
}

func openStore(ctx context.Context, cfg config.Config) (backend, error) {
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := db.Connect(ctx, cfg.DatabaseURL, int32(cfg.DatabaseMaxConn))
		if err != nil {
			return backend{}, err
		}
		pg := store.NewPostgresStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return backend{}, err
		}
		return backend{store: pg, health: pool.Ping, close: pool.Close}, nil

	case config.StoreMongo:
		client, database, err := db.ConnectMongo(ctx, db.MongoConfig{
			URI:         cfg.MongoURI,
			Database:    cfg.MongoDatabase,
			MaxPoolSize: cfg.MongoMaxPool,
		})
		if err != nil {
			return backend{}, err
		}
		mg := store.NewMongoStore(database)
		if err := mg.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return backend{}, err
		}
		return backend{
			store: mg,
			health: func(ctx context.Context) error {
				return client.Ping(ctx, readpref.Primary())
			},
			close: func() {
				if err := client.Disconnect(context.Background()); err != nil {
					slog.Warn("disconnect mongodb", "error", err)
				}
			},
		}, nil

	case config.StoreMemory:
		slog.Warn("using in-memory store; data is lost on exit")
		return backend{
			store:  store.NewMemoryStore(),
			health: func(context.Context) error { return nil },
			close:  func() {},
		}, nil

	default:
		return backend{}, fmt.Errorf("unsupported store %q", cfg.Store)
	}
}
