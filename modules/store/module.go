package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/example/pulsechat/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config holds store configuration.
type Config struct {
	DBPath      string
	DBDebug     bool
	RedisAddr   string // empty disables the Redis presence cache
	PresenceTTL time.Duration
}

// StoreModule persists messages and mirrors presence via GORM + SQLite.
type StoreModule struct {
	config Config
	db     *gorm.DB
	repo   *Repository
	redis  *redis.Client
	cache  *PresenceCache
	mirror *Mirror
	logger types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*StoreModule)(nil)
var _ mono.ServiceProviderModule = (*StoreModule)(nil)
var _ mono.EventConsumerModule = (*StoreModule)(nil)
var _ mono.HealthCheckableModule = (*StoreModule)(nil)

// NewModule creates a new StoreModule.
func NewModule(config Config, logger types.Logger) *StoreModule {
	if config.DBPath == "" {
		config.DBPath = "pulsechat.db"
	}
	return &StoreModule{
		config: config,
		logger: logger,
	}
}

// Name returns the module name.
func (m *StoreModule) Name() string {
	return "store"
}

// Health performs a health check on the database and the presence cache.
func (m *StoreModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get sql.DB: %v", err),
		}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	details := map[string]any{
		"driver":         "sqlite",
		"path":           m.config.DBPath,
		"presence_cache": "disabled",
	}
	// The cache is a best-effort mirror; its outage does not make the store unhealthy.
	if m.cache != nil {
		details["presence_cache"] = "ok"
		if err := m.cache.Ping(ctx); err != nil {
			details["presence_cache"] = err.Error()
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: details,
	}
}

// RegisterServices registers request-reply services in the service container.
// The framework prefixes service names with "services.store.".
func (m *StoreModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceInsertMessage, json.Unmarshal, json.Marshal, m.insertMessage,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceInsertMessage, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceMarkRead, json.Unmarshal, json.Marshal, m.markRead,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceMarkRead, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceGetPresence, json.Unmarshal, json.Marshal, m.getPresence,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGetPresence, err)
	}

	log.Printf("[store] Registered services: services.store.{%s,%s,%s}",
		ServiceInsertMessage, ServiceMarkRead, ServiceGetPresence)
	return nil
}

// RegisterEventConsumers subscribes the presence mirror to status changes.
func (m *StoreModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserStatusChangedV1, m.handleUserStatusChanged, m,
	); err != nil {
		return fmt.Errorf("failed to register UserStatusChanged consumer: %w", err)
	}

	log.Println("[store] Registered event consumers: UserStatusChanged")
	return nil
}

// Start opens the database, runs migrations and connects the optional cache.
func (m *StoreModule) Start(ctx context.Context) error {
	log.Printf("[store] Connecting to SQLite database: %s", m.config.DBPath)

	logLevel := logger.Silent
	if m.config.DBDebug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(m.config.DBPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := m.db.AutoMigrate(&MessageRecord{}, &UserPresence{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	m.repo = NewRepository(m.db)

	if m.config.RedisAddr != "" {
		m.redis = redis.NewClient(&redis.Options{
			Addr:         m.config.RedisAddr,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		})
		if err := m.redis.Ping(ctx).Err(); err != nil {
			m.logger.Warn("Presence cache unreachable, continuing without it",
				"addr", m.config.RedisAddr, "error", err)
			_ = m.redis.Close()
			m.redis = nil
		} else {
			m.cache = NewPresenceCache(m.redis, "presence:", m.config.PresenceTTL)
		}
	}
	m.mirror = NewMirror(m.repo, m.cache)

	log.Println("[store] Module started successfully")
	return nil
}

// Stop closes the cache client and the database connection.
func (m *StoreModule) Stop(_ context.Context) error {
	if m.redis != nil {
		if err := m.redis.Close(); err != nil {
			m.logger.Warn("Failed to close presence cache", "error", err)
		}
	}
	if m.db == nil {
		return nil
	}

	log.Println("[store] Closing database connection...")

	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	log.Println("[store] Database connection closed")
	return nil
}
