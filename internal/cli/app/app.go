package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/clipforge/clipforge-go/internal/state"
	"github.com/clipforge/clipforge-go/internal/state/drivers/sqlite"
	"github.com/clipforge/clipforge-go/pkg/clipsdk"
	"github.com/clipforge/clipforge-go/pkg/cryptox"
	"github.com/clipforge/clipforge-go/pkg/httpx"
	"github.com/clipforge/clipforge-go/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"

	// deviceIDKey is the settings key holding this install's provider
	// client identifier.
	deviceIDKey = "device_id"
)

// Application wires the config, local state database and SDK client into the
// objects the commands operate on.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       state.Store
	adapter  *stateAdapter
	deviceID string

	Client *clipsdk.Client
	Creds  *clipsdk.CredentialStore
	Orch   *clipsdk.Orchestrator
	Tokens *clipsdk.TokenCache
}

// New creates an Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "clipctl",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Sealed state needs its key configured before the store opens.
	if err := app.initSealingKey(); err != nil {
		return nil, err
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initDeviceID(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initSDK()

	return app, nil
}

// Logger returns the application logger.
func (app *Application) Logger() *slog.Logger { return app.logger }

// Config returns the resolved configuration.
func (app *Application) Config() Config { return app.cfg }

// DeviceID returns the per-install identifier sent to the identity provider.
func (app *Application) DeviceID() string { return app.deviceID }

// State returns the local state database.
func (app *Application) State() state.Store { return app.db }

// StateStore returns the SDK-facing view of the state database, for code
// that needs to hand it to SDK types directly (e.g. redirect surfaces).
func (app *Application) StateStore() clipsdk.StateStore { return app.adapter }

// Close releases the token cache and the state database.
func (app *Application) Close() error {
	if app.Tokens != nil {
		app.Tokens.Close()
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			return fmt.Errorf("failed to close state database: %w", err)
		}
	}
	return nil
}

// initSealingKey points the sealing layer at the configured key file,
// generating one on first run. Without a durable key, sealed sessions could
// not be read back by the next invocation.
func (app *Application) initSealingKey() error {
	path := app.cfg.MasterKeyPath()
	if path == "" {
		return nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
		key, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return fmt.Errorf("failed to generate sealing key: %w", err)
		}
		if err := os.WriteFile(path, []byte(key), 0o600); err != nil {
			return fmt.Errorf("failed to write sealing key: %w", err)
		}
		app.logger.Debug("minted sealing key", "path", path)
	}

	cryptox.SetMasterKeyPath(path)
	return nil
}

// initDatabase opens the state database and applies migrations.
func (app *Application) initDatabase() error {
	if err := os.MkdirAll(app.cfg.StateDir, 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabasePath())
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize state database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply state migrations: %w", err)
	}

	app.logger.Debug("state database ready", "path", app.cfg.DatabasePath())
	return nil
}

// initDeviceID loads the per-install identifier, minting one on first run.
// The provider associates approved PINs with this identifier, so it has to
// stay stable across invocations.
func (app *Application) initDeviceID() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	setting, err := app.db.Settings().Get(ctx, deviceIDKey)
	if err == nil && setting.Value != "" {
		app.deviceID = setting.Value
		return nil
	}

	id := uuid.NewString()
	if err := app.db.Settings().Put(ctx, deviceIDKey, id); err != nil {
		return fmt.Errorf("failed to persist device id: %w", err)
	}

	app.deviceID = id
	app.logger.Debug("minted device id", "device_id", id)
	return nil
}

// initSDK builds the backend client and the stateful layers over it.
func (app *Application) initSDK() {
	client := clipsdk.NewClient(app.cfg.ServerURL)
	client.Limiter = rate.NewLimiter(rate.Limit(app.cfg.RateLimitRPS), app.cfg.RateLimitBurst)

	// Transport chain, outermost first: fail fast when the backend is
	// down, identify ourselves, log each request.
	client.HTTPClient.Transport = &httpx.BreakerTransport{
		Breaker: httpx.NewBreaker(5, 30*time.Second),
		Base: &httpx.UserAgentTransport{
			UserAgent: "clipctl/" + BuildVersion,
			Base:      slogx.NewTransport(http.DefaultTransport, app.logger),
		},
	}

	app.adapter = newStateAdapter(app.db)
	creds := clipsdk.NewCredentialStore(client, app.adapter)

	orch := clipsdk.NewOrchestrator(client, creds, app.adapter, clipsdk.ProviderIdentity{
		AuthURL:  app.cfg.AuthURL,
		ClientID: app.deviceID,
		Product:  app.cfg.Product,
	})
	orch.PollInterval = app.cfg.PollInterval
	orch.PollAttempts = app.cfg.PollAttempts

	app.Client = client
	app.Creds = creds
	app.Orch = orch
	app.Tokens = clipsdk.NewTokenCache(client, creds)
}

// RequestContext bounds an API call with the configured request timeout and
// attaches the application logger. Media fetches should not use it; they
// stream for as long as the payload takes.
func (app *Application) RequestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = slogx.WithContext(ctx, app.logger)
	if app.cfg.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, app.cfg.RequestTimeout)
}
