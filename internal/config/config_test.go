package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Server.TokenTTL)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, DriverRemote, cfg.Client.Driver)
	assert.Equal(t, "default", cfg.Client.DatabaseID)
	assert.Equal(t, "notes", cfg.Client.CollectionID)
	assert.Zero(t, cfg.Client.Timeout)
	assert.NotEmpty(t, cfg.Client.SessionPath)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("NOTES_SERVER_ADDR", ":9090")
	t.Setenv("NOTES_SERVER_TOKEN_TTL", "90m")
	t.Setenv("NOTES_STORE_DRIVER", "Mongo")
	t.Setenv("NOTES_REDIS_DB", "3")
	t.Setenv("NOTES_CLIENT_TIMEOUT", "5s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 90*time.Minute, cfg.Server.TokenTTL)
	assert.Equal(t, DriverMongo, cfg.Store.Driver)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 5*time.Second, cfg.Client.Timeout)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadCollectionAliases(t *testing.T) {
	t.Setenv("EXPO_PUBLIC_DATABASE_ID", "expo-db")
	t.Setenv("EXPO_PUBLIC_COLLECTION_ID", "expo-notes")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "expo-db", cfg.Client.DatabaseID)
	assert.Equal(t, "expo-notes", cfg.Client.CollectionID)

	t.Setenv("NOTES_DATABASE_ID", "notes-db")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "notes-db", cfg.Client.DatabaseID, "NOTES_DATABASE_ID wins over the EXPO alias")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notekeeper.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: warn
server:
  jwt_secret: from-file
  login_rate: 30
store:
  driver: memory
client:
  driver: sqlite
  collection_id: journal
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "from-file", cfg.Server.JWTSecret)
	assert.Equal(t, 30, cfg.Server.LoginRate)
	assert.Equal(t, 5, cfg.Server.LoginBurst, "unset keys keep defaults")
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, DriverSQLite, cfg.Client.Driver)
	assert.Equal(t, "journal", cfg.Client.CollectionID)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateServer(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Error(t, cfg.ValidateServer(), "jwt secret is required")

	cfg.Server.JWTSecret = "secret"
	assert.NoError(t, cfg.ValidateServer())

	cfg.Store.Driver = "postgres"
	assert.Error(t, cfg.ValidateServer())

	cfg.Store.Driver = DriverMemory
	cfg.Server.LoginRate = 0
	assert.Error(t, cfg.ValidateServer())
}

func TestValidateClient(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.NoError(t, cfg.ValidateClient())

	cfg.Client.CollectionID = ""
	assert.Error(t, cfg.ValidateClient())

	cfg.Client.CollectionID = "notes"
	cfg.Client.Driver = "carrier-pigeon"
	assert.Error(t, cfg.ValidateClient())

	cfg.Client.Driver = DriverMemory
	cfg.Client.Timeout = -time.Second
	assert.Error(t, cfg.ValidateClient())
}
