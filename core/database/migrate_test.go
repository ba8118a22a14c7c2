package database

import (
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/tokenbot/core/config"
)

func TestListMigrationFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/000002_executions.up.sql":  {Data: []byte("--")},
		"migrations/000001_chats.up.sql":       {Data: []byte("--")},
		"migrations/000001_chats.down.sql":     {Data: []byte("--")},
		"migrations/nested/000003_skip.up.sql": {Data: []byte("--")},
	}
	require.Equal(t, []string{"000001_chats.up.sql", "000002_executions.up.sql"}, listMigrationFiles(fsys, "migrations"))
	require.Nil(t, listMigrationFiles(fsys, "missing"))
}

func TestSelectApplied(t *testing.T) {
	files := []string{"000001_a.up.sql", "000002_b.up.sql", "000003_c.up.sql"}
	require.Equal(t, []string{"000002_b.up.sql", "000003_c.up.sql"}, selectApplied(files, 1, 3))
	require.Nil(t, selectApplied(files, 3, 3))
}

func TestDSNAndMigrateURL(t *testing.T) {
	pg := coreconfig.DatabaseConfig{
		Driver: coreconfig.DriverPostgres, Host: "db", Port: "5432",
		User: "bot", Password: "p@ss", Name: "tokenbot", SSLMode: "disable",
	}
	require.Equal(t, "postgres", DriverName(pg))
	require.Equal(t, "user=bot password=p@ss host=db port=5432 dbname=tokenbot sslmode=disable", DSN(pg))
	require.Equal(t, "postgres://bot:p%40ss@db:5432/tokenbot?sslmode=disable", MigrateURL(pg))

	lite := coreconfig.DatabaseConfig{Driver: coreconfig.DriverSQLite, Path: "data/bot.db"}
	require.Equal(t, "sqlite", DriverName(lite))
	require.Equal(t, "sqlite://data/bot.db", MigrateURL(lite))
}

func TestConnectAndMigrateSQLite(t *testing.T) {
	cfg := coreconfig.DatabaseConfig{
		Driver: coreconfig.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "bot.db"),
	}
	fsys := fstest.MapFS{
		"m/000001_init.up.sql":   {Data: []byte("CREATE TABLE t (id INTEGER PRIMARY KEY);")},
		"m/000001_init.down.sql": {Data: []byte("DROP TABLE t;")},
	}
	require.NoError(t, RunMigrations(cfg, fsys, "m"))
	require.NoError(t, RunMigrations(cfg, fsys, "m"))

	db, err := Connect(cfg)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("INSERT INTO t (id) VALUES (1)")
	require.NoError(t, err)
}
