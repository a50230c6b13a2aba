// Package server wires the application together: config, logging, database,
// migrations, the auth components, and the HTTP server with graceful
// shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PhoenixRFA/backlogapp/internal/clock"
	"github.com/PhoenixRFA/backlogapp/internal/logging"
	"github.com/PhoenixRFA/backlogapp/internal/server/auth"
	"github.com/PhoenixRFA/backlogapp/internal/server/config"
	"github.com/PhoenixRFA/backlogapp/internal/server/hashing"
	"github.com/PhoenixRFA/backlogapp/internal/server/httpapi"
	"github.com/PhoenixRFA/backlogapp/internal/server/passgen"
	"github.com/PhoenixRFA/backlogapp/internal/server/repositories/repomanager"
	"github.com/PhoenixRFA/backlogapp/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *http.Server
}

// NewApp builds the whole server: opens the database, runs migrations, and
// constructs the component graph up to the HTTP router.
func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	hasher, err := hashing.New(c.PasswordHash)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("building password hasher: %w", err)
	}
	generator, err := passgen.New(c.PasswordGenerator)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("building password generator: %w", err)
	}

	clk := clock.System{}

	factory, err := auth.NewTokenFactory(c.JWT, clk)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("building token factory: %w", err)
	}

	users := services.NewUserService(rm.Users(db), hasher, generator, c.RefreshToken, clk)

	router := httpapi.NewRouter(users, factory, c.RefreshToken, logger)

	return &App{
		config: c,
		logger: logger,
		db:     db,
		server: &http.Server{Addr: c.EndpointAddrHTTP, Handler: router},
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

// Run serves HTTP until the context is cancelled or a signal arrives, then
// shuts the server down gracefully and closes the database.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "starting http server", "addr", app.server.Addr)
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		app.db.Close()
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "http shutdown", "error", err)
	}

	if err := app.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}
