package config

import (
    "strings"
    "testing"
    "time"
)

func setBase(t *testing.T) {
    t.Helper()
    t.Setenv("APP_ENV", "test")
    t.Setenv("JWT_SECRET", "secret")
    t.Setenv("STORAGE_DRIVER", "memory")
    t.Setenv("EVENT_BROKER", "none")
}

func TestLoadDefaults(t *testing.T) {
    setBase(t)
    cfg, err := Load()
    if err != nil {
        t.Fatalf("Load: %v", err)
    }
    if cfg.SignupPoints != 1000000 {
        t.Errorf("SignupPoints = %d", cfg.SignupPoints)
    }
    if cfg.CancelWindow != 3*time.Hour {
        t.Errorf("CancelWindow = %s", cfg.CancelWindow)
    }
    if cfg.BookingTxTimeout != 5*time.Second {
        t.Errorf("BookingTxTimeout = %s", cfg.BookingTxTimeout)
    }
    if !cfg.IsDevelopment() {
        t.Error("test env should count as development")
    }
}

func TestLoadReportsEveryProblem(t *testing.T) {
    setBase(t)
    t.Setenv("JWT_SECRET", "")
    t.Setenv("STORAGE_DRIVER", "mysql")
    t.Setenv("BOOKING_TX_TIMEOUT", "soon")
    t.Setenv("EVENT_BROKER", "carrier-pigeon")

    _, err := Load()
    if err == nil {
        t.Fatal("expected error")
    }
    msg := err.Error()
    for _, want := range []string{"JWT_SECRET", "DB_USER", "DB_HOST", "BOOKING_TX_TIMEOUT", "EVENT_BROKER"} {
        if !strings.Contains(msg, want) {
            t.Errorf("error does not mention %s: %s", want, msg)
        }
    }
}

func TestKafkaBrokerList(t *testing.T) {
    setBase(t)
    t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
    cfg, err := Load()
    if err != nil {
        t.Fatal(err)
    }
    if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
        t.Fatalf("KafkaBrokers = %v", cfg.KafkaBrokers)
    }
}

func TestRateLimitNormalization(t *testing.T) {
    t.Setenv("RATE_LIMIT_CAPACITY", "0")
    t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
    t.Setenv("RATE_LIMIT_TTL", "1s")
    rl := LoadRateLimitConfig()
    if rl.Capacity != 1 {
        t.Errorf("Capacity = %d", rl.Capacity)
    }
    if rl.TTL != 10*time.Second {
        t.Errorf("TTL = %s, want 5x refill interval", rl.TTL)
    }
}

func TestCacheMethods(t *testing.T) {
    t.Setenv("CACHE_METHODS", "get, head")
    cc := LoadCacheConfig()
    if !cc.Methods["GET"] || !cc.Methods["HEAD"] || cc.Methods["POST"] {
        t.Fatalf("Methods = %v", cc.Methods)
    }
}
