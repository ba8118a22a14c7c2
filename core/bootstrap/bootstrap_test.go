package bootstrap

import (
	"context"
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/tokenbot/core/config"
)

func noopLogger(*coreconfig.Config) error { return nil }

func TestRunWithoutDatabase(t *testing.T) {
	cfg := &coreconfig.Config{}
	var resolved bool
	res, err := Run(context.Background(), Options{
		Config:     cfg,
		LoggerInit: noopLogger,
		ResolveSecrets: func(context.Context, *coreconfig.Config) error {
			resolved = true
			return nil
		},
		Connect: func(coreconfig.DatabaseConfig) (*sqlx.DB, error) {
			t.Fatal("connect must not run without a driver")
			return nil, nil
		},
	})
	require.NoError(t, err)
	require.True(t, resolved)
	require.Nil(t, res.DB)
	require.NoError(t, res.Close())
}

func TestRunMigratesBeforeConnect(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.Database.Driver = coreconfig.DriverSQLite
	cfg.Database.Path = "ignored.db"

	var order []string
	migrations := fstest.MapFS{"m/000001_init.up.sql": {Data: []byte("--")}}
	_, err := Run(context.Background(), Options{
		Config:         cfg,
		Migrations:     Migrations{FS: migrations, Dir: "m"},
		LoggerInit:     noopLogger,
		ResolveSecrets: func(context.Context, *coreconfig.Config) error { return nil },
		Migrate: func(_ coreconfig.DatabaseConfig, fsys fs.FS, dir string) error {
			require.Equal(t, "m", dir)
			require.NotNil(t, fsys)
			order = append(order, "migrate")
			return nil
		},
		Connect: func(coreconfig.DatabaseConfig) (*sqlx.DB, error) {
			order = append(order, "connect")
			return nil, errors.New("unreachable")
		},
	})
	require.ErrorContains(t, err, "database initialization failed")
	require.Equal(t, []string{"migrate", "connect"}, order)
}

func TestRunSecretsFailure(t *testing.T) {
	_, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: noopLogger,
		ResolveSecrets: func(context.Context, *coreconfig.Config) error {
			return errors.New("denied")
		},
	})
	require.ErrorContains(t, err, "denied")
}

func TestRunNilConfig(t *testing.T) {
	_, err := Run(context.Background(), Options{})
	require.Error(t, err)
}
