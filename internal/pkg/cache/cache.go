package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

const planKeyPrefix = "account:plan:"

// Options describes how to reach the Redis compatible cache server.
type Options struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port.
func (o Options) Addr() string {
	return fmt.Sprintf("%s:%s", o.Host, o.Port)
}

// NewClient connects to the cache server. A failed ping is only logged so the
// service can start without a cache; callers treat cache errors as soft.
func NewClient(ctx context.Context, opts Options) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr(),
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	pong, err := client.Ping(pingCtx).Result()
	if err != nil {
		log.Warnf("Could not connect to cache at %s: %v", opts.Addr(), err)
	} else {
		log.Infof("Successfully connected to cache: %s", pong)
	}
	return client
}

// PlanKey is the cache key of an account's plan snapshot.
func PlanKey(accountID string) string {
	return planKeyPrefix + accountID
}

// PlanCache stores short lived plan snapshots read by the game dashboards.
type PlanCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPlanCache(client *redis.Client, ttl time.Duration) *PlanCache {
	return &PlanCache{client: client, ttl: ttl}
}

// GetPlan returns the cached plan and whether it was present.
func (c *PlanCache) GetPlan(ctx context.Context, accountID string) (string, bool, error) {
	val, err := c.client.Get(ctx, PlanKey(accountID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *PlanCache) SetPlan(ctx context.Context, accountID, plan string) error {
	return c.client.Set(ctx, PlanKey(accountID), plan, c.ttl).Err()
}

// InvalidatePlan removes the snapshot so the next read hits the database.
func (c *PlanCache) InvalidatePlan(ctx context.Context, accountID string) error {
	return c.client.Del(ctx, PlanKey(accountID)).Err()
}
