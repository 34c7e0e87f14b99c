package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  name: sla-test
  env: production
  timezone: Europe/Berlin
server:
  port: 9090
database:
  driver: mysql
  host: db.internal
  port: 3306
  name: agentdash
  user: sla
  password: secret
redis:
  enabled: true
  host: cache.internal
scheduler:
  jobs_file: /etc/agentdash/jobs.yaml
`), 0o644))

	require.NoError(t, LoadFromFile(path))
	cfg := Get()
	require.NotNil(t, cfg)

	require.Equal(t, "sla-test", cfg.App.Name)
	require.True(t, cfg.App.IsProduction())
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
	require.Equal(t, "mysql", cfg.Database.Driver)
	require.Equal(t, "/etc/agentdash/jobs.yaml", cfg.Scheduler.JobsFile)

	// Defaults survive partial files.
	require.Equal(t, 25, cfg.Database.MaxOpenConns)
	require.Equal(t, 5*time.Minute, cfg.Redis.Cache.TTL)
	require.True(t, cfg.Scheduler.Enabled)
	require.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestDatabaseDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "postgres",
			cfg: DatabaseConfig{
				Driver: "postgres", Host: "localhost", Port: 5432,
				Name: "agentdash", User: "sla", Password: "pw", SSLMode: "disable",
			},
			want: "host=localhost port=5432 user=sla password=pw dbname=agentdash sslmode=disable",
		},
		{
			name: "mysql",
			cfg: DatabaseConfig{
				Driver: "mysql", Host: "db", Port: 3306,
				Name: "agentdash", User: "sla", Password: "pw",
			},
			want: "sla:pw@tcp(db:3306)/agentdash?parseTime=true",
		},
		{
			name: "sqlite with path",
			cfg:  DatabaseConfig{Driver: "sqlite3", Path: "/var/lib/agentdash.db"},
			want: "/var/lib/agentdash.db",
		},
		{
			name: "sqlite in memory",
			cfg:  DatabaseConfig{Driver: "sqlite3"},
			want: ":memory:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.cfg.DSN())
		})
	}
}

func TestRedisAddr(t *testing.T) {
	cfg := RedisConfig{Host: "cache.internal", Port: 6380}
	require.Equal(t, "cache.internal:6380", cfg.Addr())
}
