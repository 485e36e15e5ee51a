package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/jrsteele09/go-nafath-server/internal/config"
	"github.com/jrsteele09/go-nafath-server/nafath"
	"github.com/jrsteele09/go-nafath-server/server"
	"github.com/jrsteele09/go-nafath-server/verification"
	"github.com/jrsteele09/go-nafath-server/verification/repofake"
	"github.com/jrsteele09/go-nafath-server/verification/sqlstore"
	"github.com/rs/zerolog/log"
)

// sessionStore is the repo the manager runs on, plus its lifecycle hooks
type sessionStore struct {
	repo        verification.Repo
	healthCheck func(ctx context.Context) error
	close       func() error
}

func serve(c config.Config) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(ctx, c)
	if err != nil {
		return err
	}
	defer closeStore(store)

	manager, err := newManager(ctx, c, store.repo)
	if err != nil {
		return err
	}
	if !manager.IsConfigured() {
		log.Warn().Msg("Nafath credentials are missing, verification is disabled and applicants must use manual entry")
	}

	go verification.RunSweeper(ctx, manager, c.GetNafathSweepInterval())

	var options []server.ServerOption
	if store.healthCheck != nil {
		options = append(options, server.WithHealthCheck(store.healthCheck))
	}
	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           server.New(c, manager, options...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- listenAndServe(httpServer)
	}()

	if err := waitForStopSignal(serverErr); err != nil {
		return err
	}
	cancel()
	if err := shutdown(httpServer); err != nil {
		return err
	}
	log.Info().Msg("Server stopped")
	return nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal(serverErr <-chan error) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
		return nil
	case err := <-serverErr:
		return err
	}
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func sweepOnce(ctx context.Context, c config.Config) error {
	store, err := openStore(ctx, c)
	if err != nil {
		return err
	}
	defer closeStore(store)

	manager, err := verification.NewManager(verification.Config{Provider: nafathConfig(c)}, store.repo)
	if err != nil {
		return err
	}
	deleted, err := manager.Sweep(ctx)
	if err != nil {
		return err
	}
	log.Info().Int64("deleted", deleted).Msg("Expired sessions purged")
	return nil
}

func migrateStore(ctx context.Context, c config.Config, forceVersion int) error {
	driver := c.GetStoreDriver()
	if driver == config.StoreDriverMemory {
		log.Info().Msg("Memory store has no migrations")
		return nil
	}

	store, err := sqlstore.Open(ctx, driver, c.GetDatabaseURL())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if forceVersion >= 0 {
		log.Warn().Int("version", forceVersion).Msg("Forcing migration version")
		if err := store.ForceVersion(forceVersion); err != nil {
			return err
		}
	}
	if err := store.Migrate(); err != nil {
		return err
	}
	log.Info().Str("driver", driver).Msg("Migrations applied")
	return nil
}

// openStore opens the configured session store. SQL stores are migrated on open.
func openStore(ctx context.Context, c config.Config) (*sessionStore, error) {
	driver := c.GetStoreDriver()
	switch driver {
	case config.StoreDriverMemory:
		log.Warn().Msg("Using the in-memory session store, sessions are lost on restart")
		return &sessionStore{repo: repofake.NewFakeSessionRepo()}, nil

	case config.StoreDriverPostgres, config.StoreDriverSQLite:
		store, err := sqlstore.Open(ctx, driver, c.GetDatabaseURL())
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(); err != nil {
			_ = store.Close()
			return nil, err
		}
		log.Info().Str("driver", driver).Msg("Session store ready")
		return &sessionStore{
			repo:        sqlstore.NewSessionRepo(store),
			healthCheck: store.DB.PingContext,
			close:       store.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", driver)
	}
}

func closeStore(store *sessionStore) {
	if store.close == nil {
		return
	}
	if err := store.close(); err != nil {
		log.Err(err).Msg("Failed to close session store")
	}
}

func nafathConfig(c config.Config) nafath.Config {
	return nafath.Config{
		BaseURL:      c.GetNafathBaseURL(),
		ClientID:     c.GetNafathClientID(),
		ClientSecret: c.GetNafathClientSecret(),
		RedirectURI:  c.GetNafathRedirectURI(),
		Scope:        c.GetNafathScope(),
		HTTPTimeout:  c.GetNafathHTTPTimeout(),
	}
}

// newManager builds the verification manager. With discovery enabled the provider
// endpoints come from the issuer's discovery document, falling back to the defaults.
func newManager(ctx context.Context, c config.Config, repo verification.Repo) (*verification.Manager, error) {
	providerConfig := nafathConfig(c)

	if c.GetNafathDiscovery() && providerConfig.IsConfigured() {
		endpoints, err := nafath.Discover(ctx, providerConfig.BaseURL, providerConfig.HTTPTimeout)
		if err != nil {
			log.Err(err).Msg("Nafath discovery failed, using default endpoints")
		} else {
			providerConfig.Endpoints = endpoints
		}
	}

	return verification.NewManager(verification.Config{
		Provider:   providerConfig,
		SessionTTL: c.GetNafathSessionTTL(),
	}, repo)
}
