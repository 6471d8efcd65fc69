package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/Tiliavir/trivial-focus-tracker/internal/app"
	"github.com/Tiliavir/trivial-focus-tracker/internal/auth"
	"github.com/Tiliavir/trivial-focus-tracker/internal/cloud"
	"github.com/Tiliavir/trivial-focus-tracker/internal/config"
	"github.com/Tiliavir/trivial-focus-tracker/internal/converter"
	"github.com/Tiliavir/trivial-focus-tracker/internal/docstore"
	"github.com/Tiliavir/trivial-focus-tracker/internal/logging"
	"github.com/Tiliavir/trivial-focus-tracker/internal/storage"
	"github.com/Tiliavir/trivial-focus-tracker/internal/tagparse"
)

// openApp builds the application from cfg. The returned close function
// flushes the stores and releases the remote; its error means data written
// during the command is not on disk.
func openApp(ctx context.Context, opts app.Options) (*app.App, func() error, error) {
	remote, closeRemote, err := newRemote(ctx)
	if err != nil {
		return nil, nil, err
	}

	opts.DataDir = cfg.DataDir
	opts.UserID = cfg.UserID
	opts.Remote = remote
	opts.Store = storage.Options{Debounce: cfg.Store.SaveDebounce}
	opts.Converter = newConverter()
	opts.Logger = logger
	if opts.TimerSeconds == 0 {
		opts.TimerSeconds = cfg.Timer.DefaultMinutes * 60
	}

	a, err := app.New(opts)
	if err != nil {
		closeRemote()
		return nil, nil, err
	}
	return a, func() error {
		defer closeRemote()
		if err := a.Close(); err != nil {
			return fmt.Errorf("saving data failed: %w", err)
		}
		return nil
	}, nil
}

// closeApp runs done and reports its error unless the command already
// failed, in which case it is only logged.
func closeApp(done func() error, err *error) {
	cerr := done()
	switch {
	case cerr == nil:
	case *err == nil:
		*err = cerr
	default:
		logger.Error().Err(cerr).Msg("final save failed")
	}
}

// newRemote returns the configured sync remote, or nil when sync is off.
func newRemote(ctx context.Context) (cloud.Remote, func(), error) {
	noop := func() {}
	log := logging.Component(logger, "remote")

	switch cfg.Sync.Backend {
	case config.BackendHTTP:
		client, err := httpClient(ctx)
		if err != nil {
			return nil, nil, err
		}
		return cloud.NewHTTPRemote(cfg.Sync.URL, client, cfg.Sync.PollInterval, log), noop, nil
	case config.BackendDir:
		return cloud.NewDirRemote(cfg.Sync.Dir, log), noop, nil
	case config.BackendSQLite:
		store, err := docstore.New(cfg.SyncDBPath())
		if err != nil {
			return nil, nil, err
		}
		return cloud.NewSQLRemote(store), func() { _ = store.Close() }, nil
	default:
		return nil, noop, nil
	}
}

func authConfig() auth.Config {
	return auth.Config{
		ClientID:      cfg.Auth.ClientID,
		DeviceAuthURL: cfg.Auth.DeviceAuthURL,
		TokenURL:      cfg.Auth.TokenURL,
		Scopes:        cfg.Auth.Scopes,
		TokenFile:     auth.TokenFilePath(cfg.DataDir),
		StaticToken:   cfg.Sync.Token,
	}
}

// httpClient returns an authenticated client, or a plain one when neither
// a static token nor an identity provider is configured.
func httpClient(ctx context.Context) (*http.Client, error) {
	ac := authConfig()
	if ac.StaticToken == "" && ac.ClientID == "" {
		return http.DefaultClient, nil
	}
	return auth.Client(ctx, ac)
}

func newConverter() tagparse.Converter {
	if !cfg.Converter.Enabled {
		return nil
	}
	key := os.Getenv(cfg.Converter.APIKeyEnv)
	if key == "" {
		logger.Warn().Str("env", cfg.Converter.APIKeyEnv).Msg("converter enabled but no API key set")
		return nil
	}
	return converter.New(key, cfg.Converter.Model, logging.Component(logger, "converter"))
}
