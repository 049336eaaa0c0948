package main

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "CORS_ALLOWED_ORIGINS", "AUTH_JWT_SECRET", "SEND_QUEUE_SIZE",
		"DB_PATH", "DB_DEBUG", "REDIS_ADDR", "REDIS_PRESENCE_TTL", "REQUIRE_ONLINE_BEFORE_JOIN",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	if cfg.API.Port != "3000" {
		t.Errorf("Port = %q, want 3000", cfg.API.Port)
	}
	if cfg.API.SendQueueSize != 64 {
		t.Errorf("SendQueueSize = %d, want 64", cfg.API.SendQueueSize)
	}
	if cfg.API.JWTSecret != "" {
		t.Errorf("JWTSecret = %q, want empty", cfg.API.JWTSecret)
	}
	if cfg.Store.DBPath != "pulsechat.db" {
		t.Errorf("DBPath = %q, want pulsechat.db", cfg.Store.DBPath)
	}
	if cfg.Store.RedisAddr != "" {
		t.Errorf("RedisAddr = %q, want empty", cfg.Store.RedisAddr)
	}
	if cfg.Store.PresenceTTL != 24*time.Hour {
		t.Errorf("PresenceTTL = %s, want 24h", cfg.Store.PresenceTTL)
	}
	if cfg.Chat.RequireOnlineBeforeJoin {
		t.Error("RequireOnlineBeforeJoin = true, want false")
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("SEND_QUEUE_SIZE", "128")
	t.Setenv("DB_PATH", "/tmp/chat.db")
	t.Setenv("DB_DEBUG", "true")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_PRESENCE_TTL", "90m")
	t.Setenv("REQUIRE_ONLINE_BEFORE_JOIN", "1")

	cfg := LoadConfig()

	if cfg.API.Port != "8081" || cfg.API.JWTSecret != "s3cret" || cfg.API.SendQueueSize != 128 {
		t.Errorf("API config = %+v", cfg.API)
	}
	if cfg.Store.DBPath != "/tmp/chat.db" || !cfg.Store.DBDebug || cfg.Store.RedisAddr != "localhost:6379" {
		t.Errorf("Store config = %+v", cfg.Store)
	}
	if cfg.Store.PresenceTTL != 90*time.Minute {
		t.Errorf("PresenceTTL = %s, want 90m", cfg.Store.PresenceTTL)
	}
	if !cfg.Chat.RequireOnlineBeforeJoin {
		t.Error("RequireOnlineBeforeJoin = false, want true")
	}
}

func TestLoadConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SEND_QUEUE_SIZE", "-5")
	t.Setenv("DB_DEBUG", "maybe")
	t.Setenv("REDIS_PRESENCE_TTL", "forever")

	cfg := LoadConfig()

	if cfg.API.SendQueueSize != 64 {
		t.Errorf("SendQueueSize = %d, want 64", cfg.API.SendQueueSize)
	}
	if cfg.Store.DBDebug {
		t.Error("DBDebug = true, want false")
	}
	if cfg.Store.PresenceTTL != 24*time.Hour {
		t.Errorf("PresenceTTL = %s, want 24h", cfg.Store.PresenceTTL)
	}
}
