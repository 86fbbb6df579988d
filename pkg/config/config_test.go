package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Quotes.FreshnessWindow != 30*time.Second {
		t.Fatalf("freshness default = %v", c.Quotes.FreshnessWindow)
	}
	if c.Scheduler.Tick != 30*time.Second {
		t.Fatalf("tick default = %v", c.Scheduler.Tick)
	}
	if c.Server.Port != 8080 {
		t.Fatalf("port default = %d", c.Server.Port)
	}
	if c.Provider.APIKey != "demo" {
		t.Fatalf("api key default = %q", c.Provider.APIKey)
	}
}

func TestParseKeepsExplicitValues(t *testing.T) {
	c, err := Parse([]byte("environment: prod\nscheduler:\n  tick: 5s\n  workers: 2\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Scheduler.Tick != 5*time.Second || c.Scheduler.Workers != 2 {
		t.Fatalf("unexpected scheduler config: %+v", c.Scheduler)
	}
}

func TestValidateKafkaNeedsBrokers(t *testing.T) {
	_, err := Parse([]byte("kafka:\n  enabled: true\n"))
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("environment: test\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("ALPHA_VANTAGE_API_KEY", "secret")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	c, err := LoadWithEnv(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Provider.APIKey != "secret" {
		t.Fatalf("api key = %q", c.Provider.APIKey)
	}
	if !c.Redis.Enabled || c.Redis.Host != "cache" || c.Redis.Port != 6380 {
		t.Fatalf("redis = %+v", c.Redis)
	}
	if !c.Kafka.Enabled || len(c.Kafka.Brokers) != 2 {
		t.Fatalf("kafka = %+v", c.Kafka)
	}
}

func TestParseExplicitFalseSurvivesDefaults(t *testing.T) {
	c, err := Parse([]byte("server:\n  cors: false\nmetrics:\n  enabled: false\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Server.CORS || c.Metrics.Enabled {
		t.Fatalf("explicit false overwritten: cors=%v metrics=%v", c.Server.CORS, c.Metrics.Enabled)
	}
}

func TestParseStorageTuning(t *testing.T) {
	c, err := Parse([]byte("redis:\n  pool:\n    size: 20\nclickhouse:\n  async_insert: true\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Redis.Pool.Size != 20 || c.Redis.Pool.MinIdleConns != 2 || c.Redis.Pool.Timeout != 5*time.Second {
		t.Fatalf("unexpected pool %+v", c.Redis.Pool)
	}
	if c.Redis.CleanupInterval != time.Minute || !c.Redis.Persist {
		t.Fatalf("cleanup=%v persist=%v", c.Redis.CleanupInterval, c.Redis.Persist)
	}
	if !c.ClickHouse.AsyncInsert || !c.ClickHouse.WaitForAsync || c.ClickHouse.MaxOpenConns != 10 {
		t.Fatalf("unexpected clickhouse %+v", c.ClickHouse)
	}

	if _, err := Parse([]byte("redis:\n  enabled: true\n  pool:\n    size: 0\n")); err == nil {
		t.Fatalf("expected error for empty redis pool")
	}
}
