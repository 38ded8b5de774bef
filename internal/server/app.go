// Package server wires configuration, storage, event publishing and the
// HTTP API together and runs them until the process is signalled.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/godex/internal/logging"
	"github.com/dmitrijs2005/godex/internal/server/config"
	"github.com/dmitrijs2005/godex/internal/server/events"
	"github.com/dmitrijs2005/godex/internal/server/httpapi"
	"github.com/dmitrijs2005/godex/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/godex/internal/server/services"
)

const tokenPurgeInterval = time.Hour

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	publisher events.Publisher

	userService *services.UserService
	handler     *httpapi.HTTPServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel, c.LogFormat)

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	checks := map[string]httpapi.ReadyCheck{
		"postgres": db.PingContext,
	}

	var publisher events.Publisher = events.Nop{}
	if c.NATSURL != "" {
		js, err := events.NewJetStreamPublisher(c.NATSURL, logger)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("nats init error: %w", err)
		}
		if err := js.EnsureStream(ctx, 10); err != nil {
			logger.Warn(ctx, "ensure nats stream", "error", err)
		}
		checks["nats"] = func(context.Context) error { return js.Ping() }
		publisher = js
	}

	us := services.NewUserService(db, rm, c, logger)
	router := httpapi.NewRouter(httpapi.RouterConfig{
		Users:          us,
		Home:           services.NewHomeService(db, rm, logger, publisher),
		Captures:       services.NewCaptureService(db, rm, logger, publisher),
		Accounts:       services.NewAccountService(db, rm, logger, publisher),
		Export:         services.NewExportService(db, rm, c, logger),
		JWTSecret:      []byte(c.SecretKey),
		CORSOrigins:    c.CORSOrigins,
		RequestTimeout: c.RequestTimeout,
		ReadyChecks:    checks,
	}, logger)

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		publisher:   publisher,
		userService: us,
		handler:     httpapi.NewHTTPServer(c.EndpointAddrHTTP, router, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.handler.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// purgeExpiredTokens drops expired refresh tokens once per interval.
func (app *App) purgeExpiredTokens(ctx context.Context) {
	ticker := time.NewTicker(tokenPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := app.userService.PurgeExpiredTokens(ctx, now)
			if err != nil {
				app.logger.Warn(ctx, "refresh token purge failed", "error", err)
				continue
			}
			if n > 0 {
				app.logger.Info(ctx, "expired refresh tokens purged", "count", n)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.purgeExpiredTokens(ctx)
	}()

	wg.Wait()

	app.publisher.Close()
	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}
