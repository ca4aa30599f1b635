package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"qwixxserver/models"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// LoadConfig reads .env (if present), then filename (if present), then lets
// environment variables override individual settings.
func LoadConfig(filename string) (models.Config, error) {
	_ = godotenv.Load()

	config := models.Config{
		Environment: "production",
		Port:        "8080",
		StoreDriver: "memory",
		SQLitePath:  "qwixx.db",
		DBSSLMode:   "disable",
		RoomLock:    "local",
		RedisAddr:   "localhost:6379",
		IdleRoomTTL: "24h",
	}

	configFile, err := os.Open(filename)
	switch {
	case err == nil:
		defer configFile.Close()
		if err := json.NewDecoder(configFile).Decode(&config); err != nil {
			return config, fmt.Errorf("decode %s: %w", filename, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return config, err
	}

	overrideString(&config.Environment, "APP_ENV")
	overrideString(&config.Port, "PORT")
	overrideString(&config.StoreDriver, "STORE_DRIVER")
	overrideString(&config.SQLitePath, "SQLITE_PATH")
	overrideString(&config.DBHost, "DB_HOST")
	overrideString(&config.DBUser, "DB_USER")
	overrideString(&config.DBPassword, "DB_PASSWORD")
	overrideString(&config.DBName, "DB_NAME")
	overrideString(&config.DBSSLMode, "DB_SSLMODE")
	overrideString(&config.RoomLock, "ROOM_LOCK")
	overrideString(&config.RedisAddr, "REDIS_ADDR")
	overrideString(&config.RedisPassword, "REDIS_PASSWORD")
	overrideString(&config.IdleRoomTTL, "IDLE_ROOM_TTL")
	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return config, fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		config.RedisDB = db
	}
	if v := os.Getenv("ALLOW_ORIGINS"); v != "" {
		config.AllowOrigins = strings.Split(v, ",")
	}

	return config, nil
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// OpenDatabase opens the gorm connection selected by config.StoreDriver and
// migrates the session tables.
func OpenDatabase(config models.Config, logger *zap.Logger) (*gorm.DB, error) {
	var db *gorm.DB
	var err error
	switch config.StoreDriver {
	case "postgres":
		db, err = InitPostgreSQL(config, logger)
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(config.SQLitePath), &gorm.Config{})
	default:
		return nil, fmt.Errorf("store driver %q has no database", config.StoreDriver)
	}
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	logger.Info("Database ready", zap.String("driver", config.StoreDriver))
	return db, nil
}

func InitPostgreSQL(config models.Config, logger *zap.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s dbname=%s password=%s sslmode=%s",
		config.DBHost, config.DBUser, config.DBName, config.DBPassword, config.DBSSLMode)

	const maxRetries = 3
	const retryInterval = 5 * time.Second
	var err error
	for i := 0; i <= maxRetries; i++ {
		var gormDB *gorm.DB
		gormDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			return gormDB, nil
		}
		logger.Error("Retrying database connection", zap.Int("retry", i), zap.Error(err))
		if i < maxRetries {
			time.Sleep(retryInterval)
		}
	}
	return nil, fmt.Errorf("connect to postgres: %w", err)
}

// AutoMigrate creates or updates the rooms and users tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Room{}, &models.User{}); err != nil {
		return fmt.Errorf("migrate session tables: %w", err)
	}
	return nil
}

func InitRedis(config models.Config, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		logger.Error("Failed to connect to Redis", zap.Error(err))
		return nil, err
	}

	logger.Info("Connected to Redis", zap.String("addr", config.RedisAddr))
	return rdb, nil
}
