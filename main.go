package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qwixxserver/database"           //session store, room locks and config
	"qwixxserver/games"              //game module registry
	"qwixxserver/gateway"            //realtime event handling
	"qwixxserver/internal/websocket" //connection hub
	"qwixxserver/models"
	"qwixxserver/qwixx"
	"qwixxserver/screens" //HTTP endpoints
	"qwixxserver/utils"   //logger, request logging and cron cleanup

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	config, err := database.LoadConfig("config.json")
	if err != nil {
		panic(err)
	}

	logger, err := utils.InitLogger(config.Environment)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	store, err := openStore(config, logger)
	if err != nil {
		logger.Fatal("Failed to open session store", zap.Error(err))
	}
	locker, err := openLocker(config, logger)
	if err != nil {
		logger.Fatal("Failed to set up room locks", zap.Error(err))
	}

	ttl, err := time.ParseDuration(config.IdleRoomTTL)
	if err != nil {
		logger.Fatal("Invalid idle_room_ttl", zap.String("value", config.IdleRoomTTL), zap.Error(err))
	}
	cleaner, err := utils.CronCleaner(store, ttl, logger)
	if err != nil {
		logger.Fatal("Failed to schedule room cleanup", zap.Error(err))
	}
	defer cleaner.Stop()

	registry := games.NewRegistry(qwixx.New(store, logger))
	hub := websocket.NewHub(config.AllowOrigins, logger)
	gw := gateway.New(store, registry, locker, hub, logger)

	router := gin.New()
	router.Use(gin.Recovery(), utils.RequestLogger(logger))
	router.Use(cors.New(corsConfig(config.AllowOrigins)))

	router.POST("/rooms", func(c *gin.Context) {
		screens.RoomCreate(c, store, registry, logger)
	})
	router.GET("/rooms/:roomId", func(c *gin.Context) {
		screens.RoomInfo(c, store, logger)
	})
	router.GET("/health", func(c *gin.Context) {
		screens.Health(c, hub.Connections)
	})
	router.GET("/ws", hub.ServeWS(gw))

	srv := &http.Server{Addr: ":" + config.Port, Handler: router}
	go func() {
		logger.Info("Listening", zap.String("addr", srv.Addr), zap.String("store", config.StoreDriver), zap.String("lock", config.RoomLock))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hub.Close()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func openStore(config models.Config, logger *zap.Logger) (database.SessionStore, error) {
	if config.StoreDriver == "memory" {
		logger.Info("Using in-memory session store")
		return database.NewMemoryStore(), nil
	}
	db, err := database.OpenDatabase(config, logger)
	if err != nil {
		return nil, err
	}
	return database.NewGormStore(db), nil
}

func openLocker(config models.Config, logger *zap.Logger) (database.RoomLocker, error) {
	switch config.RoomLock {
	case "redis":
		rdb, err := database.InitRedis(config, logger)
		if err != nil {
			return nil, err
		}
		return database.NewRedisLocker(rdb, ""), nil
	case "local", "":
		return database.NewLocalLocker(), nil
	default:
		return nil, errors.New("room_lock must be \"local\" or \"redis\", got " + config.RoomLock)
	}
}

func corsConfig(allowOrigins []string) cors.Config {
	config := cors.Config{
		AllowMethods:  []string{"GET", "POST"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(allowOrigins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowOrigins
	}
	return config
}
