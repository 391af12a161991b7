// Package repositories provides data access layer implementations.
// It handles all database operations and data persistence logic.
package repositories

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"tierpay/internal/config"
	"tierpay/internal/models"
	"tierpay/internal/repositories/cache"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the global database instance used across the application.
var DB *gorm.DB
var CacheService *cache.CacheService
var RedisClient *redis.Client

// DBConfig holds database connection pool configuration
type DBConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func loadDBConfig() DBConfig {
	return DBConfig{
		MaxIdleConns:    config.GetIntEnv("DB_MAX_IDLE_CONNS", 10),
		MaxOpenConns:    config.GetIntEnv("DB_MAX_OPEN_CONNS", 100),
		ConnMaxLifetime: config.GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
		ConnMaxIdleTime: 30 * time.Minute,
	}
}

// InitDB initializes the database connection.
// It sets up the connection pool, performs migrations,
// and configures the redis cache.
func InitDB() error {
	db, err := openPostgres()
	if err != nil {
		return err
	}
	DB = db

	redisCfg := &cache.RedisConfig{
		Host:     config.GetEnv("REDIS_HOST", "localhost"),
		Port:     config.GetEnv("REDIS_PORT", "6379"),
		Password: config.GetEnv("REDIS_PASSWORD", ""),
		DB:       config.GetIntEnv("REDIS_DB", 0),
	}
	RedisClient = cache.NewRedisClient(redisCfg)
	CacheService = cache.NewCacheService(RedisClient, 24*time.Hour)

	if err := AutoMigrate(DB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	log.Println("PostgreSQL connected & migrations applied")
	return nil
}

// AutoMigrate creates or updates every table the service owns, plus the
// read-only tables it consumes so that development databases work out of the box.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Terminal{},
		&models.MerchantScanCode{},
		&models.RetiredScanCode{},
		&models.SessionBinding{},
		&models.Session{},
		&models.SessionEvent{},
		&models.Sale{},
		&models.InstallmentCommitment{},
		&models.CreditProfile{},
		&models.PaymentMethod{},
	)
}

func openPostgres() (*gorm.DB, error) {
	dsn := "host=" + config.GetEnv("DB_HOST", "localhost") +
		" user=" + config.GetEnv("DB_USER", "postgres") +
		" password=" + config.GetEnv("DB_PASSWORD", "postgres") +
		" dbname=" + config.GetEnv("DB_NAME", "tierpay") +
		" port=" + config.GetEnv("DB_PORT", "5432") +
		" sslmode=disable TimeZone=UTC"

	// Configure GORM logger to ignore "record not found" errors
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         newLogger,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	cfg := loadDBConfig()
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

// IsDuplicateKey reports whether err is a unique constraint violation. The
// string checks cover dialects that do not translate errors.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "23505")
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
