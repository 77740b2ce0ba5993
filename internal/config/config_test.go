package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("APP_TIMEZONE", "")
	t.Setenv("ADMIN_IDS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, cfg.App.Location)
	assert.Equal(t, time.Hour, cfg.Telegram.InitDataMaxAge)
	assert.Empty(t, cfg.App.AdminIDs)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
}

func TestLoadAdminIDsAndDSN(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_IDS", "42, 7")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "rewards")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []int64{42, 7}, cfg.App.AdminIDs)
	assert.Contains(t, cfg.Database.DSN(), "@db:")
	assert.Contains(t, cfg.Database.DSN(), "/rewards?")
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRequiresBotToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN")

	// Migrations only need the database.
	db, err := LoadDatabase()
	require.NoError(t, err)
	assert.NotEmpty(t, db.DSN())
}

func TestLoadDatabaseDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "Memory")
	db, err := LoadDatabase()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, db.Driver)

	t.Setenv("DB_DRIVER", "sqlite")
	_, err = LoadDatabase()
	assert.Error(t, err)
}
