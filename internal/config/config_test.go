package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "gorm", cfg.Broker.Backend)
	assert.Equal(t, "Administrators", cfg.Broker.AdminGroup)
	assert.Equal(t, "Projectmanager", cfg.Broker.ProjectLeaderGroup)
	assert.Equal(t, "Users", cfg.Broker.UsersGroup)
	assert.Equal(t, "Guest", cfg.Broker.GuestUser)
	assert.Equal(t, "Online", cfg.Broker.OnlineProject)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad(t *testing.T) {
	t.Run("reads a YAML file over the defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broker.yaml")
		content := []byte("server:\n  port: 9090\nbroker:\n  backend: memory\n  online_project: Live\n")
		require.NoError(t, os.WriteFile(path, content, 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "memory", cfg.Broker.Backend)
		assert.Equal(t, "Live", cfg.Broker.OnlineProject)
		assert.Equal(t, "Administrators", cfg.Broker.AdminGroup)
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		t.Setenv("BROKER_DATABASE_DRIVER", "sqlite")
		t.Setenv("BROKER_BROKER_GUEST_USER", "Anonymous")

		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, "sqlite", cfg.Database.Driver)
		assert.Equal(t, "Anonymous", cfg.Broker.GuestUser)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}

func TestAddr(t *testing.T) {
	server := ServerConfig{Host: "127.0.0.1", Port: 8080}
	assert.Equal(t, "127.0.0.1:8080", server.Addr())

	redis := RedisConfig{Host: "cache", Port: 6379}
	assert.Equal(t, "cache:6379", redis.Addr())
}
