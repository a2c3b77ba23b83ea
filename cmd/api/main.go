package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend-livetrack/internal/config"
	"backend-livetrack/internal/db"
	"backend-livetrack/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 5 * time.Second

var mainDepsProvider = defaultDeps
var mainRunner = realMain

func main() {
	mainRunner(mainDepsProvider())
}

// Infra holds the optional backing services. Either may be nil, in which
// case the server falls back to in-process implementations.
type Infra struct {
	Postgres *pgxpool.Pool
	Redis    *redis.Client
}

func (i Infra) Close() {
	if i.Postgres != nil {
		i.Postgres.Close()
	}
	if i.Redis != nil {
		_ = i.Redis.Close()
	}
}

type mainDeps struct {
	loadConfig      func() config.Config
	connectPostgres func(config.Config) (*pgxpool.Pool, error)
	connectRedis    func(config.Config) *redis.Client
	notify          func(chan<- os.Signal, ...os.Signal)
	run             func(context.Context, config.Config, Infra, <-chan os.Signal, ListenFunc) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig:      config.Load,
		connectPostgres: db.ConnectPostgres,
		connectRedis:    db.ConnectRedis,
		notify:          signal.Notify,
		run:             Run,
	}
}

func realMain(deps mainDeps) {
	cfg := deps.loadConfig()
	if err := cfg.Validate(); err != nil {
		log.Printf("invalid configuration: %v", err)
		return
	}

	var infra Infra
	pg, err := deps.connectPostgres(cfg)
	if err != nil {
		log.Printf("postgres connection failed, using in-memory tracks: %v", err)
	} else {
		infra.Postgres = pg
	}
	infra.Redis = deps.connectRedis(cfg)

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := deps.run(context.Background(), cfg, infra, signals, nil); err != nil {
		log.Printf("server exited with error: %v", err)
	}
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

// Run serves until a signal, ctx cancellation or a listener failure. Live
// views are torn down before the backing services close.
func Run(ctx context.Context, cfg config.Config, infra Infra, signals <-chan os.Signal, listen ListenFunc) error {
	srv := server.NewServer(cfg, infra.Postgres, infra.Redis)
	defer infra.Close()

	if listen == nil {
		listen = defaultListen
	}
	log.Printf("live track api on %s (postgres=%t redis=%t snapping=%t)",
		cfg.ServerPort, infra.Postgres != nil, infra.Redis != nil, cfg.SnapEnabled && cfg.OSRMURL != "")

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()

	var listenErr error
	select {
	case <-signals:
	case <-ctx.Done():
	case listenErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := shutdownFn(srv.App, shutdownCtx)
	srv.Close()
	if listenErr != nil {
		return listenErr
	}
	return err
}
