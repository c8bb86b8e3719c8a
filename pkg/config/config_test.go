package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
logging:
  level: debug
  format: json
database:
  url: "db1.example.com:27017,db2.example.com"
  name: karaf
  user_collection: accounts
  user_attributes: "email,phone"
  password_scheme: bcrypt
  connect_timeout: 5s
cache:
  ttl: 2m
  sweep_interval: 15s
shutdown_timeout: 45s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "db1.example.com:27017,db2.example.com", cfg.Database.URL)
	assert.Equal(t, "karaf", cfg.Database.Name)
	assert.Equal(t, "accounts", cfg.Database.UserCollection)
	assert.Equal(t, []string{"email", "phone"}, cfg.Database.AttributeList())
	assert.Equal(t, "bcrypt", cfg.Database.PasswordScheme)
	assert.Equal(t, 5*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 15*time.Second, cfg.Cache.SweepInterval)
	assert.Equal(t, 45*time.Second, cfg.ShutdownTimeout)

	// Unspecified sections fall back to defaults.
	assert.Equal(t, "groups", cfg.Database.GroupCollection)
	assert.Equal(t, 8080, cfg.API.Port)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), cfg)
}

func TestLoadInvalidConfigFails(t *testing.T) {
	path := writeConfigFile(t, `
logging:
  level: verbose
database:
  name: auth
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation")
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "logging: [unclosed")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveAndReloadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Database.URL = "db.example.com:27017"
	cfg.Database.PasswordScheme = "bcrypt"
	cfg.Cache.TTL = 90 * time.Second

	require.NoError(t, SaveConfig(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "db.example.com:27017", loaded.Database.URL)
	assert.Equal(t, "bcrypt", loaded.Database.PasswordScheme)
	assert.Equal(t, 90*time.Second, loaded.Cache.TTL)
}

func TestMustLoadMissingExplicitFile(t *testing.T) {
	_, err := MustLoad(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mongoauth init")
}
