// Package factory builds a state store from environment configuration
// so callers do not depend on a specific backend package.
package factory

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/eatingfood142434/Hackthe6ix/internal/config"
	"github.com/eatingfood142434/Hackthe6ix/state"
	redisstore "github.com/eatingfood142434/Hackthe6ix/state/redis"
	sqlitestore "github.com/eatingfood142434/Hackthe6ix/state/sqlite"
)

func FromEnv(ctx context.Context) (state.Store, error) {
	_ = ctx

	backend := strings.ToLower(config.GetenvDefault("WORKFLOW_STATE_BACKEND", "sqlite"))
	switch backend {
	case "sqlite":
		path := config.GetenvDefault("WORKFLOW_SQLITE_PATH", "./.workflow-engine/state.db")
		return sqlitestore.New(path)

	case "redis":
		return newRedisStoreFromEnv()

	case "none", "memory", "off":
		return nil, nil

	default:
		return nil, fmt.Errorf("unsupported WORKFLOW_STATE_BACKEND %q (use sqlite, redis, or none)", backend)
	}
}

func newRedisStoreFromEnv() (state.Store, error) {
	addr := config.GetenvDefault("WORKFLOW_REDIS_ADDR", "127.0.0.1:6379")
	password := strings.TrimSpace(os.Getenv("WORKFLOW_REDIS_PASSWORD"))
	db := config.ParseIntEnv("WORKFLOW_REDIS_DB", 0)
	ttl := config.ParseDurationEnv("WORKFLOW_REDIS_TTL", 72*time.Hour)

	opts := []redisstore.Option{
		redisstore.WithPassword(password),
		redisstore.WithDB(db),
		redisstore.WithTTL(ttl),
	}
	return redisstore.New(addr, opts...)
}
