package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps the redis client used for the scan queue and the today-summary cache.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis with short timeouts.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// todayKey namespaces the cached summary by calendar day.
func todayKey(day string) string { return "transportal:today:" + day }

// SetTodaySummary caches the serialized summary for a calendar day.
func (r *Redis) SetTodaySummary(ctx context.Context, day string, payload []byte, ttl time.Duration) error {
	return r.Client.Set(ctx, todayKey(day), payload, ttl).Err()
}

// GetTodaySummary returns the cached summary for a day, or nil on miss.
func (r *Redis) GetTodaySummary(ctx context.Context, day string) ([]byte, error) {
	val, err := r.Client.Get(ctx, todayKey(day)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return val, err
}
