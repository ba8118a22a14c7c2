package bootstrap

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/tokenbot/core/config"
	coredatabase "github.com/m3rciful/tokenbot/core/database"
	"github.com/m3rciful/tokenbot/core/logger"
	"github.com/m3rciful/tokenbot/core/secrets"
)

// Migrations locates the embedded SQL migrations applied at startup.
type Migrations struct {
	FS  fs.FS
	Dir string
}

// Options control the generic bootstrap pipeline.
type Options struct {
	Config     *coreconfig.Config
	Migrations Migrations

	LoggerInit     func(*coreconfig.Config) error
	ResolveSecrets func(context.Context, *coreconfig.Config) error
	Connect        func(coreconfig.DatabaseConfig) (*sqlx.DB, error)
	Migrate        func(coreconfig.DatabaseConfig, fs.FS, string) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
// DB is nil when no database driver is configured.
type Result struct {
	DB *sqlx.DB
}

// Close releases the resources held by the result.
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Run initializes the logger, resolves secrets, connects to the database and
// applies migrations.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	resolve := opts.ResolveSecrets
	if resolve == nil {
		resolve = resolveFromSSM
	}
	if err := resolve(ctx, opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: secrets resolution failed: %w", err)
	}

	dbCfg := opts.Config.Database
	if dbCfg.Driver == "" {
		return &Result{}, nil
	}

	if opts.Migrations.FS != nil {
		migrate := opts.Migrate
		if migrate == nil {
			migrate = coredatabase.RunMigrations
		}
		if err := migrate(dbCfg, opts.Migrations.FS, opts.Migrations.Dir); err != nil {
			return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
		}
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	return &Result{DB: db}, nil
}

func resolveFromSSM(ctx context.Context, cfg *coreconfig.Config) error {
	if cfg.OneShot.APISecretParam == "" {
		return nil
	}
	store, err := secrets.NewDefaultParamStore(ctx)
	if err != nil {
		return err
	}
	return secrets.ResolveOneShot(ctx, cfg, store)
}
