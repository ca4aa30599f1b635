package utils

import (
	"context"
	"time"

	"qwixxserver/database"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CronCleaner purges rooms that nobody joined, or everybody left, within ttl.
// Call Stop on the returned scheduler at shutdown.
func CronCleaner(store database.SessionStore, ttl time.Duration, logger *zap.Logger) (*cron.Cron, error) {
	c := cron.New()

	if _, err := c.AddFunc("@every 10m", func() {
		PurgeIdleRooms(context.Background(), store, ttl, logger)
	}); err != nil {
		return nil, err
	}

	c.Start()
	return c, nil
}

// PurgeIdleRooms deletes empty rooms created more than ttl ago.
func PurgeIdleRooms(ctx context.Context, store database.SessionStore, ttl time.Duration, logger *zap.Logger) int64 {
	deleted, err := store.DeleteIdleRooms(ctx, time.Now().Add(-ttl))
	if err != nil {
		logger.Error("Failed to delete idle rooms", zap.Error(err))
		return 0
	}
	if deleted > 0 {
		logger.Info("Idle rooms deleted", zap.Int64("rooms_deleted", deleted))
	}
	return deleted
}
