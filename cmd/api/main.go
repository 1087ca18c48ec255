package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend-snsapp/internal/config"
	"backend-snsapp/internal/db"
	"backend-snsapp/internal/logger"
	"backend-snsapp/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

var mainDepsProvider = defaultDeps
var mainRunner = realMain

func main() {
	mainRunner(mainDepsProvider())
}

type mainDeps struct {
	loadConfig      func() config.Config
	newLogger       func(config.Config) (*logger.Logger, error)
	connectPostgres func(config.Config) (*pgxpool.Pool, error)
	migrate         func(context.Context, *pgxpool.Pool) error
	connectRedis    func(config.Config) *redis.Client
	notify          func(chan<- os.Signal, ...os.Signal)
	run             func(context.Context, config.Config, *pgxpool.Pool, *redis.Client, *logger.Logger, <-chan os.Signal, ListenFunc) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig: config.Load,
		newLogger: func(cfg config.Config) (*logger.Logger, error) {
			return logger.New("snsapp", cfg.LogLevel, cfg.LogDir)
		},
		connectPostgres: db.ConnectPostgres,
		migrate: func(ctx context.Context, pool *pgxpool.Pool) error {
			return db.Migrate(ctx, pool)
		},
		connectRedis: db.ConnectRedis,
		notify:       signal.Notify,
		run:          Run,
	}
}

func realMain(deps mainDeps) {
	cfg := deps.loadConfig()

	appLog, err := deps.newLogger(cfg)
	if err != nil {
		log.Printf("file logging disabled: %v", err)
		appLog, _ = logger.New("snsapp", cfg.LogLevel, "")
	}
	defer appLog.Close()

	pg, err := deps.connectPostgres(cfg)
	if err != nil {
		appLog.Errorf("postgres connection failed: %v", err)
	} else if err := deps.migrate(context.Background(), pg); err != nil {
		appLog.Errorf("schema migration failed: %v", err)
	}

	rdb := deps.connectRedis(cfg)
	if rdb == nil {
		appLog.Warnf("redis not configured, rate limiting is per instance")
	}

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := deps.run(context.Background(), cfg, pg, rdb, appLog, signals, nil); err != nil {
		appLog.Errorf("server exited with error: %v", err)
	}
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

// Run starts the HTTP server and waits for termination signals.
func Run(ctx context.Context, cfg config.Config, pg *pgxpool.Pool, rdb *redis.Client, appLog *logger.Logger, signals <-chan os.Signal, listen ListenFunc) error {
	srv := server.NewServer(cfg, pg, rdb, appLog)

	if listen == nil {
		listen = defaultListen
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()

	select {
	case <-signals:
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := shutdownFn(srv.App, shutdownCtx); err != nil {
		return err
	}
	if pg != nil {
		pg.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	return nil
}
