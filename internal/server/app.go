// Package server initializes and runs the MyCloud server: it opens the
// database, runs migrations, selects the blob backend, seeds the bootstrap
// administrator, and serves the HTTP API until shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dmitrijs2005/mycloud/internal/logging"
	"github.com/dmitrijs2005/mycloud/internal/server/auth"
	"github.com/dmitrijs2005/mycloud/internal/server/blob"
	"github.com/dmitrijs2005/mycloud/internal/server/config"
	"github.com/dmitrijs2005/mycloud/internal/server/httpapi"
	"github.com/dmitrijs2005/mycloud/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mycloud/internal/server/services"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	sessions *services.SessionService
	files    *services.FileService
	users    *services.UserService
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewJSON(os.Stdout)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	blobs, err := newBlobStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("blob storage init error: %w", err)
	}

	hasher := auth.NewBcryptHasher()
	quota := services.NewQuotaLedger(rm, logger)

	app := &App{
		config:   cfg,
		logger:   logger,
		db:       db,
		sessions: services.NewSessionService(db, rm, hasher, logger),
		files:    services.NewFileService(db, rm, blobs, quota, logger),
		users:    services.NewUserService(db, rm, hasher, blobs, logger),
	}

	if err := app.users.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminLogin, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return nil, fmt.Errorf("admin bootstrap error: %w", err)
	}

	return app, nil
}

func newBlobStorage(ctx context.Context, cfg *config.Config) (blob.Storage, error) {
	switch cfg.BlobBackend {
	case "s3":
		return blob.NewS3Storage(ctx, blob.S3Options{
			AccessKey:    cfg.S3RootUser,
			SecretKey:    cfg.S3RootPassword,
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
		})
	case "local":
		return blob.NewDiskStorage(cfg.MediaRoot)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
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
	handlers := httpapi.NewHandlers(app.sessions, app.files, app.users,
		app.config.SessionCookieTTL, app.logger)

	s := httpapi.NewServer(app.config.EndpointAddrHTTP, handlers.Router(app.config.CORSOrigins), app.logger)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
