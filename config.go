package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/example/pulsechat/modules/api"
	"github.com/example/pulsechat/modules/broadcast"
	"github.com/example/pulsechat/modules/chat"
	"github.com/example/pulsechat/modules/store"
)

// Config is the process configuration, read once from the environment.
type Config struct {
	API   api.Config
	Store store.Config
	Chat  chat.Options
}

// LoadConfig reads the configuration from environment variables.
func LoadConfig() Config {
	return Config{
		API: api.Config{
			Port:               getEnv("PORT", "3000"),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8080"),
			JWTSecret:          os.Getenv("AUTH_JWT_SECRET"),
			SendQueueSize:      getEnvInt("SEND_QUEUE_SIZE", broadcast.DefaultQueueSize),
		},
		Store: store.Config{
			DBPath:      getEnv("DB_PATH", "pulsechat.db"),
			DBDebug:     getEnvBool("DB_DEBUG", false),
			RedisAddr:   os.Getenv("REDIS_ADDR"),
			PresenceTTL: getEnvDuration("REDIS_PRESENCE_TTL", 24*time.Hour),
		},
		Chat: chat.Options{
			RequireOnlineBeforeJoin: getEnvBool("REQUIRE_ONLINE_BEFORE_JOIN", false),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("Invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("Invalid %s=%q, using %t", key, v, fallback)
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("Invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
