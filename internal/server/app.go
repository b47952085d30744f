// Package server wires storage, the account service, the REST API and the
// gRPC health endpoint, and runs them until the process is signalled.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/visadesk/internal/dbx"
	"github.com/dmitrijs2005/visadesk/internal/logging"
	"github.com/dmitrijs2005/visadesk/internal/server/api"
	"github.com/dmitrijs2005/visadesk/internal/server/config"
	"github.com/dmitrijs2005/visadesk/internal/server/metrics"
	"github.com/dmitrijs2005/visadesk/internal/server/repositories/memory"
	"github.com/dmitrijs2005/visadesk/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/visadesk/internal/server/services"
	"github.com/dmitrijs2005/visadesk/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	gs "github.com/dmitrijs2005/visadesk/internal/server/grpc"
)

const (
	serviceName     = "visadesk"
	shutdownTimeout = 10 * time.Second
	purgeInterval   = time.Hour
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	userService *services.UserService
	metrics     *metrics.Metrics
	// set once the HTTP listener is bound
	httpAddr chan net.Addr
}

// Storage is the persistence backend chosen from configuration.
type Storage struct {
	DB         *sql.DB
	Manager    repomanager.RepositoryManager
	Transactor dbx.Transactor
}

// OpenStorage connects to PostgreSQL and applies migrations when a DSN is
// configured. Without one it returns an in-memory backend.
func OpenStorage(ctx context.Context, c *config.Config, logger logging.Logger) (*Storage, error) {
	if c.DatabaseDSN == "" {
		logger.Warn(ctx, "no database DSN configured, using in-memory storage; data is lost on exit")
		rm := repomanager.NewMemoryRepositoryManager(memory.NewStore())
		return &Storage{Manager: rm, Transactor: rm.Transactor()}, nil
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	return &Storage{DB: db, Manager: rm, Transactor: dbx.NewSQLTransactor(db, nil)}, nil
}

// DBTX returns the database handle, or a nil interface for in-memory storage.
func (s *Storage) DBTX() dbx.DBTX {
	if s.DB == nil {
		return nil
	}
	return s.DB
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if c.SecretKey == config.DefaultSecretKey {
		logger.Warn(ctx, "using the default JWT secret; set JWT_SECRET in production")
	}

	st, err := OpenStorage(ctx, c, logger)
	if err != nil {
		return nil, err
	}

	us := services.NewUserService(st.DBTX(), st.Transactor, st.Manager, c,
		services.WithLogger(logger.With("module", "user_service")),
	)

	return &App{
		config:      c,
		logger:      logger,
		db:          st.DB,
		userService: us,
		metrics:     metrics.New(),
		httpAddr:    make(chan net.Addr, 1),
	}, nil
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
	router := api.NewRouter(app.userService, app.metrics, app.logger.With("module", "http"), app.config.CORSOrigin)
	srv := &http.Server{
		Handler:           otelhttp.NewHandler(router, serviceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	listen, err := net.Listen("tcp", app.config.HTTPAddr)
	if err != nil {
		app.logger.Error(ctx, "http listen failed", "error", err)
		cancelFunc()
		return
	}
	app.httpAddr <- listen.Addr()

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			app.logger.Error(ctx, "http shutdown failed", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())
	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "http server failed", "error", err)
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	var opts []gs.Option
	if app.db != nil {
		opts = append(opts, gs.WithPinger(app.db))
	}

	s := gs.NewHealthServer(app.config.GRPCAddr, app.logger, opts...)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// purgeRevokedTokens drops expired denylist rows periodically.
func (app *App) purgeRevokedTokens(ctx context.Context) {
	t := time.NewTicker(purgeInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := app.userService.PurgeRevokedTokens(ctx)
			if err != nil {
				app.logger.Error(ctx, "purge revoked tokens failed", "error", err)
				continue
			}
			if n > 0 {
				app.logger.Debug(ctx, "purged revoked tokens", "count", n)
			}
		}
	}
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, app.config.OTLPEndpoint, app.config.OTLPInsecure)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	if app.userService.RevocationEnabled() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.purgeRevokedTokens(ctx)
		}()
	}

	wg.Wait()

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := shutdownTracing(sctx); err != nil {
		app.logger.Error(sctx, "tracer shutdown failed", "error", err)
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			return fmt.Errorf("db close error: %w", err)
		}
	}

	app.logger.Info(sctx, "App stopped")
	return nil
}
