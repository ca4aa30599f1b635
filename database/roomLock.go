package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RoomLocker serializes read-modify-write sequences on one room. The returned
// unlock function must be called exactly once.
type RoomLocker interface {
	Lock(ctx context.Context, roomID string) (unlock func(), err error)
}

// LocalLocker is a keyed mutex for a single server process.
type LocalLocker struct {
	mu    sync.Mutex
	rooms map[string]*roomMutex
}

type roomMutex struct {
	sem  chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{rooms: make(map[string]*roomMutex)}
}

func (l *LocalLocker) Lock(ctx context.Context, roomID string) (func(), error) {
	l.mu.Lock()
	rm, ok := l.rooms[roomID]
	if !ok {
		rm = &roomMutex{sem: make(chan struct{}, 1)}
		l.rooms[roomID] = rm
	}
	rm.refs++
	l.mu.Unlock()

	select {
	case rm.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(roomID, rm)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-rm.sem
			l.release(roomID, rm)
		})
	}, nil
}

func (l *LocalLocker) release(roomID string, rm *roomMutex) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rm.refs--
	if rm.refs == 0 {
		delete(l.rooms, roomID)
	}
}

// RedisLocker holds a short-lived Redis key per room so that several server
// processes sharing one database take turns on the same room.
type RedisLocker struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	retry     time.Duration
}

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

func NewRedisLocker(client *redis.Client, keyPrefix string) *RedisLocker {
	if client == nil {
		panic("redis client cannot be nil for RedisLocker")
	}
	if keyPrefix == "" {
		keyPrefix = "qwixx:"
	}
	return &RedisLocker{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       5 * time.Second,
		retry:     20 * time.Millisecond,
	}
}

func (l *RedisLocker) roomLockKey(roomID string) string {
	return fmt.Sprintf("%sroom:%s:lock", l.keyPrefix, roomID)
}

func (l *RedisLocker) Lock(ctx context.Context, roomID string) (func(), error) {
	key := l.roomLockKey(roomID)
	token := uuid.New().String()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("redis: lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// the key expires on its own if this fails
			_ = releaseScript.Run(context.Background(), l.client, []string{key}, token).Err()
		})
	}, nil
}
