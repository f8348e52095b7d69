// Package server wires the gophstat HTTP service: it loads the credential
// store, applies migrations, builds the services and serves the API until
// a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/gophstat/internal/logging"
	"github.com/dmitrijs2005/gophstat/internal/server/auth"
	"github.com/dmitrijs2005/gophstat/internal/server/config"
	"github.com/dmitrijs2005/gophstat/internal/server/httpapi"
	"github.com/dmitrijs2005/gophstat/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophstat/internal/server/services"
)

// logOutput is where the app logger writes.
var logOutput io.Writer = os.Stdout

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	handler http.Handler
}

// NewApp opens the configured store, migrates it and builds the HTTP
// handler. The caller owns the returned App and must Close it.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.New(logOutput, c.LogFormat, c.LogLevel)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(c.LogLevel, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	rm, err := repomanager.NewRepositoryManager(c.DatabaseDriver)
	if err != nil {
		return nil, err
	}
	db, err := repomanager.Open(ctx, rm, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migrate error: %w", err)
	}

	codec, err := auth.NewJWTCodec([]byte(c.SecretKey), c.Algorithm)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	passwords := auth.NewPasswords(c.BcryptCost)

	authService := services.NewAuthService(db, rm, codec, passwords, c.AccessTokenValidityDuration)
	statsService, err := services.NewStatisticsService(c.MaxUploadSize, c.StatisticsVariance)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	archiver, err := services.NewArchiver(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	h := httpapi.NewHandler(logger, authService, authService, statsService,
		httpapi.WithArchiver(archiver),
		httpapi.WithPinger(db),
		httpapi.WithMaxUpload(c.MaxUploadSize),
	)

	logger.Info(ctx, "store ready", "driver", c.DatabaseDriver, "archive", c.S3Bucket != "")

	return &App{config: c, logger: logger, db: db, handler: httpapi.NewRouter(h)}, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (app *App) Handler() http.Handler {
	return app.handler
}

func (app *App) Close() error {
	return app.db.Close()
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config.EndpointAddrHTTP, app.handler, app.logger, app.config.ShutdownTimeout)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(ctx, "close db", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
