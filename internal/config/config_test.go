package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Addr != "0.0.0.0:8080" {
		t.Fatalf("unexpected addr: %q", cfg.Server.Addr)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Fatalf("unexpected shutdown timeout: %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Database.Driver != DriverSQLite || cfg.Database.Path != "data/users.db" {
		t.Fatalf("unexpected database config: %+v", cfg.Database)
	}
	if cfg.WorldTime.Timezone != "Asia/Kolkata" || cfg.WorldTime.Timeout != 3*time.Second {
		t.Fatalf("unexpected worldtime config: %+v", cfg.WorldTime)
	}
	if !strings.HasPrefix(cfg.WorldTime.BaseURL, "https://") {
		t.Fatalf("unexpected worldtime base url: %q", cfg.WorldTime.BaseURL)
	}
	if cfg.Pagination.DefaultSize != 10 || cfg.Pagination.MaxSize != 100 {
		t.Fatalf("unexpected pagination config: %+v", cfg.Pagination)
	}
	if !cfg.Metrics.Enabled {
		t.Fatal("metrics should be enabled by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("USERSVC_SERVER_ADDR", "127.0.0.1:9999")
	t.Setenv("USERSVC_DATABASE_DRIVER", "redis")
	t.Setenv("USERSVC_REDIS_ADDR", "cache:6379")
	t.Setenv("USERSVC_REDIS_DB", "3")
	t.Setenv("USERSVC_WORLDTIME_TIMEZONE", "Europe/Berlin")
	t.Setenv("USERSVC_WORLDTIME_TIMEOUT", "750ms")
	t.Setenv("USERSVC_PAGINATION_DEFAULTSIZE", "25")
	t.Setenv("USERSVC_METRICS_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9999" {
		t.Fatalf("addr override ignored: %q", cfg.Server.Addr)
	}
	if cfg.Database.Driver != DriverRedis || cfg.Redis.Addr != "cache:6379" || cfg.Redis.DB != 3 {
		t.Fatalf("redis override ignored: %+v %+v", cfg.Database, cfg.Redis)
	}
	if cfg.WorldTime.Timezone != "Europe/Berlin" || cfg.WorldTime.Timeout != 750*time.Millisecond {
		t.Fatalf("worldtime override ignored: %+v", cfg.WorldTime)
	}
	if cfg.Pagination.DefaultSize != 25 {
		t.Fatalf("pagination override ignored: %+v", cfg.Pagination)
	}
	if cfg.Metrics.Enabled {
		t.Fatal("metrics override ignored")
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown driver":         {"USERSVC_DATABASE_DRIVER": "mongo"},
		"postgres without dsn":   {"USERSVC_DATABASE_DRIVER": "postgres"},
		"empty timezone":         {"USERSVC_WORLDTIME_TIMEZONE": " "},
		"max below default":      {"USERSVC_PAGINATION_MAXSIZE": "5"},
		"non-positive page size": {"USERSVC_PAGINATION_DEFAULTSIZE": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
