package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bmizerany/assert"
	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	assert.Equal(t, nil, err)
	assert.Equal(t, "127.0.0.1", cfg.DB.Host)
	assert.Equal(t, 3306, cfg.DB.Port)
	assert.Equal(t, "php", cfg.Migration.Interpreter)
	assert.Equal(t, "doctrine:migrations:execute", cfg.Migration.Subcommand)
	assert.Equal(t, time.Hour, cfg.Migration.Timeout)
	assert.Equal(t, "akeneo:batch:job", cfg.Launcher.Subcommand)
	assert.Equal(t, 2*time.Hour, cfg.Launcher.IdleTimeout)
	assert.Equal(t, CatalogLocal, cfg.Catalog.Source)
	assert.Equal(t, 5, cfg.History.Limit)
}

func TestLoadFileAndEnv(t *testing.T) {
	file := filepath.Join(t.TempDir(), "migbatch.yaml")
	content := `
db:
  host: db.internal
  name: pim
migration:
  entry_point: /srv/pim/bin/console
  timeout: 30m
history:
  limit: 3
`
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MIGBATCH_DB_PASSWORD", "secret")
	t.Setenv("MIGBATCH_MIGRATION_IDLE_TIMEOUT", "5m")

	cfg, err := Load(viper.New(), file)
	assert.Equal(t, nil, err)
	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, "secret", cfg.DB.Password)
	assert.Equal(t, "/srv/pim/bin/console", cfg.Migration.EntryPoint)
	assert.Equal(t, 30*time.Minute, cfg.Migration.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Migration.IdleTimeout)
	assert.Equal(t, 3, cfg.History.Limit)

	cmd := cfg.Migration.Template().Build("20230101120000")
	assert.Equal(t, "php", cmd.Path)
	assert.Equal(t, []string{"/srv/pim/bin/console", "doctrine:migrations:execute", "-q", "20230101120000"}, cmd.Args)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.NotEqual(t, nil, err)
}

func TestLoadRejectsFTPWithoutHost(t *testing.T) {
	t.Setenv("MIGBATCH_CATALOG_SOURCE", "ftp")
	_, err := Load(viper.New(), "")
	assert.NotEqual(t, nil, err)
	assert.T(t, strings.Contains(err.Error(), "catalog.ftp.host"))
}

func TestDSN(t *testing.T) {
	dsn := DBConfig{Host: "db", Port: 3307, User: "pim", Password: "pw", Name: "akeneo"}.DSN()
	assert.T(t, strings.HasPrefix(dsn, "pim:pw@tcp(db:3307)/akeneo?"))
	assert.T(t, strings.Contains(dsn, "parseTime=true"))
	assert.T(t, strings.Contains(dsn, "charset=utf8mb4"))
}
