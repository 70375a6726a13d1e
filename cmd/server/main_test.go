package main

import (
	"log/slog"
	"testing"
	"time"

	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/api"
	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/events"
)

func TestConfigureEventQueueMemory(t *testing.T) {
	queue, err := configureEventQueue("", events.RedisQueueConfig{}, slog.Default())
	if err != nil {
		t.Fatalf("configureEventQueue returned error: %v", err)
	}
	if queue == nil {
		t.Fatalf("configureEventQueue returned nil queue for memory driver")
	}
}

func TestConfigureEventQueueNone(t *testing.T) {
	queue, err := configureEventQueue("none", events.RedisQueueConfig{}, slog.Default())
	if err != nil {
		t.Fatalf("configureEventQueue returned error: %v", err)
	}
	if queue != nil {
		t.Fatalf("expected nil queue for none driver")
	}
}

func TestConfigureEventQueueRedisMissingAddress(t *testing.T) {
	if _, err := configureEventQueue("redis", events.RedisQueueConfig{}, slog.Default()); err == nil {
		t.Fatal("configureEventQueue redis expected error when addr missing")
	}
}

func TestConfigureEventQueueUnknownDriver(t *testing.T) {
	if _, err := configureEventQueue("kafka", events.RedisQueueConfig{}, slog.Default()); err == nil {
		t.Fatal("expected error for unsupported queue driver")
	}
}

func TestResolveStorageDriverDefaultsToPostgres(t *testing.T) {
	driver, err := resolveStorageDriver("", "", "postgres://example")
	if err != nil {
		t.Fatalf("resolveStorageDriver returned error: %v", err)
	}
	if driver != "postgres" {
		t.Fatalf("expected postgres driver, got %q", driver)
	}
}

func TestResolveStorageDriverFallsBackToJSON(t *testing.T) {
	driver, err := resolveStorageDriver("", "", "")
	if err != nil {
		t.Fatalf("resolveStorageDriver returned error: %v", err)
	}
	if driver != "json" {
		t.Fatalf("expected json driver fallback, got %q", driver)
	}
}

func TestValidateProductionDatastoreRejectsNonPostgres(t *testing.T) {
	if err := validateProductionDatastore("json", "postgres://example"); err == nil {
		t.Fatal("expected error when production mode uses non-postgres driver")
	}
}

func TestValidateProductionDatastoreRequiresDSN(t *testing.T) {
	if err := validateProductionDatastore("postgres", ""); err == nil {
		t.Fatal("expected error when production mode lacks a DSN")
	}
}

func TestResolveSessionStoreConfig(t *testing.T) {
	cfg, err := resolveSessionStoreConfig("", "", "json", "", "", "")
	if err != nil {
		t.Fatalf("resolveSessionStoreConfig returned error: %v", err)
	}
	if cfg.Driver != "memory" {
		t.Fatalf("expected memory fallback, got %q", cfg.Driver)
	}

	cfg, err = resolveSessionStoreConfig("", "", "postgres", "postgres://storage", "", "")
	if err != nil {
		t.Fatalf("resolveSessionStoreConfig returned error: %v", err)
	}
	if cfg.Driver != "postgres" || cfg.DSN != "postgres://storage" {
		t.Fatalf("expected session store to inherit storage DSN, got %+v", cfg)
	}

	if _, err := resolveSessionStoreConfig("postgres", "", "json", "", "", ""); err == nil {
		t.Fatal("expected error when postgres session store has no DSN")
	}

	if _, err := resolveSessionStoreConfig("etcd", "", "json", "", "", ""); err == nil {
		t.Fatal("expected error for unsupported session store driver")
	}
}

func TestResolveSessionCookieSecureMode(t *testing.T) {
	t.Parallel()

	if mode := resolveSessionCookieSecureMode("production"); mode != api.SessionCookieSecureAlways {
		t.Fatalf("expected production mode to force secure cookies, got %v", mode)
	}
	if mode := resolveSessionCookieSecureMode("development"); mode != api.SessionCookieSecureAuto {
		t.Fatalf("expected development mode to keep auto secure cookies, got %v", mode)
	}
	if mode := resolveSessionCookieSecureMode(" "); mode != api.SessionCookieSecureAuto {
		t.Fatalf("expected empty mode to keep auto secure cookies, got %v", mode)
	}
}

func TestResolveMediaConfigFlagOverrides(t *testing.T) {
	cfg, err := resolveMediaConfig("http://media.internal:4242/api2", "", 0, 2*time.Second)
	if err != nil {
		t.Fatalf("resolveMediaConfig returned error: %v", err)
	}
	if !cfg.Enabled() {
		t.Fatal("expected media config to be enabled via flag")
	}
	if cfg.BaseURL != "http://media.internal:4242/api2" {
		t.Fatalf("unexpected base URL %q", cfg.BaseURL)
	}
	if cfg.Timeout != 2*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.Timeout)
	}
}

func TestResolveMediaConfigRequiresPortWithHost(t *testing.T) {
	if _, err := resolveMediaConfig("", "media.internal", 0, 0); err == nil {
		t.Fatal("expected error when host is set without a port")
	}
}

func TestResolveListenAddrDefaults(t *testing.T) {
	t.Parallel()

	if addr := resolveListenAddr("", "development", ""); addr != ":8080" {
		t.Fatalf("expected development default :8080, got %q", addr)
	}
	if addr := resolveListenAddr("", "production", ""); addr != ":80" {
		t.Fatalf("expected production default :80, got %q", addr)
	}
	if addr := resolveListenAddr(":9000", "production", ":7000"); addr != ":9000" {
		t.Fatalf("expected flag to win, got %q", addr)
	}
	if addr := resolveListenAddr("", "production", ":7000"); addr != ":7000" {
		t.Fatalf("expected env to win over default, got %q", addr)
	}
}

func TestSplitAndTrim(t *testing.T) {
	t.Parallel()

	got := splitAndTrim(" a, b ,,c ")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected result %v", got)
	}
	if splitAndTrim("  ") != nil {
		t.Fatal("expected nil for blank input")
	}
}
