package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vtt.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().Session, cfg.Session)
	assert.Equal(t, Defaults().Storage, cfg.Storage)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.True(t, cfg.Session.AutoGM)
	assert.Equal(t, DriverFile, cfg.Storage.Driver)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeConfig(t, `
addr: ":9000"
session:
  auto_gm: false
  queue_size: 64
storage:
  driver: sqlite
  dsn: /tmp/vtt.db
  autosave: last
redis:
  addr: localhost:6379
`)
	t.Setenv("VTT_QUEUE_SIZE", "32")
	t.Setenv("VTT_REDIS_CHANNEL", "table-1")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr)
	assert.False(t, cfg.Session.AutoGM)
	assert.Equal(t, 32, cfg.Session.QueueSize, "env wins over file")
	assert.Equal(t, 256, cfg.Session.SendBuffer, "untouched keys keep defaults")
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "last", cfg.Storage.Autosave)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "table-1", cfg.Redis.Channel)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeConfig(t, "addr: [unclosed"))
	assert.Error(t, err)

	t.Setenv("VTT_SEND_BUFFER", "many")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "no storage", mutate: func(c *Config) { c.Storage.Driver = DriverNone }},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "mongo" }, wantErr: "unknown storage.driver"},
		{name: "zero queue", mutate: func(c *Config) { c.Session.QueueSize = 0 }, wantErr: "queue_size"},
		{name: "negative buffer", mutate: func(c *Config) { c.Session.SendBuffer = -1 }, wantErr: "send_buffer"},
		{name: "sqlite without dsn", mutate: func(c *Config) { c.Storage.Driver = DriverSQLite }, wantErr: "storage.dsn"},
		{name: "file without dir", mutate: func(c *Config) { c.Storage.Dir = "" }, wantErr: "storage.dir"},
		{name: "autosave without storage", mutate: func(c *Config) {
			c.Storage.Driver = DriverNone
			c.Storage.Autosave = "last"
		}, wantErr: "need a storage driver"},
		{name: "redis without channel", mutate: func(c *Config) {
			c.Redis.Addr = "localhost:6379"
			c.Redis.Channel = ""
		}, wantErr: "redis.channel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
