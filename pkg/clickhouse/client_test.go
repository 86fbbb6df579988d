package clickhouse

import (
	"strings"
	"testing"
	"time"
)

func TestBuildDSNNative(t *testing.T) {
	dsn := buildDSN(ClientConfig{
		Host:        "ch",
		Port:        9000,
		Database:    "stockboard",
		User:        "default",
		DialTimeout: 5 * time.Second,
		MaxExecTime: 30 * time.Second,
	})
	if !strings.HasPrefix(dsn, "clickhouse://default:@ch:9000/stockboard?") {
		t.Fatalf("unexpected dsn prefix: %s", dsn)
	}
	if !strings.Contains(dsn, "dial_timeout=5s") || !strings.Contains(dsn, "max_execution_time=30") {
		t.Fatalf("missing params: %s", dsn)
	}
}

func TestBuildDSNHTTPAsync(t *testing.T) {
	dsn := buildDSN(ClientConfig{Host: "ch", Port: 8123, Database: "db", UseHTTP: true, AsyncInsert: true, WaitForAsync: true})
	if !strings.HasPrefix(dsn, "clickhouse+http://") {
		t.Fatalf("expected http scheme: %s", dsn)
	}
	if !strings.Contains(dsn, "?async_insert=1&wait_for_async_insert=1") {
		t.Fatalf("async params missing: %s", dsn)
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	if _, err := NewClient(); err == nil {
		t.Fatalf("expected error without host")
	}
}
