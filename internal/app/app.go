// Package app initializes and runs the bookstore service.
// It configures logging, storage, authentication, the HTTP router and the
// optional gRPC server, and handles graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/patric-chuzhbe/bookstore/internal/auth"
	"github.com/patric-chuzhbe/bookstore/internal/config"
	"github.com/patric-chuzhbe/bookstore/internal/db/gormdb"
	"github.com/patric-chuzhbe/bookstore/internal/db/memorystorage"
	"github.com/patric-chuzhbe/bookstore/internal/db/postgresdb"
	"github.com/patric-chuzhbe/bookstore/internal/db/storage"
	"github.com/patric-chuzhbe/bookstore/internal/grpcserver"
	"github.com/patric-chuzhbe/bookstore/internal/ipchecker"
	"github.com/patric-chuzhbe/bookstore/internal/logger"
	"github.com/patric-chuzhbe/bookstore/internal/models"
	"github.com/patric-chuzhbe/bookstore/internal/ratelimit"
	"github.com/patric-chuzhbe/bookstore/internal/router"
	"github.com/patric-chuzhbe/bookstore/internal/service"
)

const (
	shutdownTimeout        = 10 * time.Second
	rateLimiterCleanupTick = time.Minute
)

// App owns the storage and the servers of the bookstore service.
type App struct {
	cfg          *config.Config
	db           storage.Storage
	rateLimiter  *ratelimit.RateLimiter
	httpHandler  http.Handler
	grpcServer   *grpc.Server
	grpcListener net.Listener
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up storage
// - setting up the router and middleware
// - setting up the gRPC server when GRPC_ADDRESS is given
func New() (*App, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}

	if err := logger.Init(cfg.LogLevel); err != nil {
		return nil, err
	}

	return newWithConfig(context.Background(), cfg)
}

func newWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	var err error
	app := &App{cfg: cfg}

	app.db, err = getStorageByType(ctx, cfg)
	if err != nil {
		return nil, err
	}

	theAuth := auth.New(app.db, []byte(cfg.JWTSecretKey), cfg.TokenTTL)
	svc := service.New(app.db, theAuth)

	checker, err := ipchecker.New(cfg.TrustedSubnet, ipchecker.WithTrustedProxies(cfg.TrustedProxies))
	if err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.rateLimiter = ratelimit.New(
		cfg.AuthRateLimit,
		cfg.AuthRateBurst,
		ratelimit.WithClientIPResolver(checker),
	)

	app.httpHandler = router.New(
		svc,
		theAuth,
		router.WithRateLimiter(app.rateLimiter),
		router.WithIPChecker(checker),
		router.WithGzip(cfg.EnableGzip),
	)

	if cfg.GRPCAddr != "" {
		app.grpcServer, app.grpcListener, err = grpcserver.NewGRPCServer(
			cfg.GRPCAddr,
			grpcserver.NewBookHandler(svc),
			theAuth,
		)
		if err != nil {
			_ = app.db.Close()
			return nil, err
		}
	}

	return app, nil
}

// Run starts the HTTP server (and the gRPC server, if configured) with
// graceful shutdown support. It returns once a termination signal arrives
// or a server fails.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.rateLimiter.StartCleanup(ctx, rateLimiterCleanupTick)

	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.httpHandler,
	}

	serverErrCh := make(chan error, 2)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if a.grpcServer != nil {
		logger.Log.Infoln("gRPC server running", "GRPCAddr", a.grpcListener.Addr().String())
		go func() {
			if err := a.grpcServer.Serve(a.grpcListener); err != nil {
				serverErrCh <- fmt.Errorf("gRPC server error: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Closing the storage and exiting...")
	case runErr = <-serverErrCh:
		logger.Log.Errorln("server failed", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("server shutdown error: %w", err))
	}

	if a.grpcServer != nil {
		a.grpcServer.GracefulStop()
	}

	return errors.Join(runErr, a.db.Close())
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Fprintln(os.Stderr, "Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.SQLiteFile != "" {
		return models.StorageTypeSQLite
	}

	return models.StorageTypeMemory
}

func getStorageByType(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		return postgresdb.New(
			ctx,
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
		)

	case models.StorageTypeSQLite:
		return gormdb.New(
			cfg.SQLiteFile,
			cfg.DBConnectionTimeout,
		)
	}

	return memorystorage.New()
}
