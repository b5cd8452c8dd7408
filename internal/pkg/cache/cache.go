package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	redisstorage "github.com/gofiber/storage/redis"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ManuelReschke/MemberGate/internal/pkg/config"
)

// Redis logical databases: 0 for the client itself, the rest for fiber storages.
const (
	DatabaseLimiter = 1
	DatabaseCache   = 2
)

// Setup connects to the cache server. The client is returned even when the
// ping fails; the error tells the caller the server is unreachable for now.
func Setup(cfg config.CacheConfig, log *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Warn("could not connect to cache", zap.String("addr", cfg.Addr()), zap.Error(err))
		return client, err
	}
	log.Info("connected to cache", zap.String("addr", cfg.Addr()), zap.String("reply", pong))
	return client, nil
}

// NewFiberStorage opens a fiber.Storage on the same server as client, in a separate database.
func NewFiberStorage(client *redis.Client, database int) *redisstorage.Storage {
	opts := client.Options()
	host, port := "127.0.0.1", 6379
	if opts.Addr != "" {
		if h, p, err := net.SplitHostPort(opts.Addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		} else {
			host = opts.Addr
		}
	}

	return redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Username: opts.Username,
		Password: opts.Password,
		Database: database,
		Reset:    false,
	})
}

// GetJSON decodes the value stored under key into out. It reports false on a miss.
func GetJSON(store fiber.Storage, key string, out any) (bool, error) {
	raw, err := store.Get(key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores v as JSON under key for ttl.
func SetJSON(store fiber.Storage, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return store.Set(key, raw, ttl)
}
