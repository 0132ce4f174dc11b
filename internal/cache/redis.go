package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"submission_service/internal/domain"
)

const statusKeyPrefix = "assignment-status:"

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) || err != nil {
		return nil, false
	}
	return val, true
}

func (r *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) {
	r.rdb.Set(ctx, key, data, ttl)
}

func (r *RedisCache) Delete(ctx context.Context, key string) {
	r.rdb.Del(ctx, key)
}

// GetStatus returns the cached assignment overview of a student. Any cache
// failure is reported as a miss.
func (r *RedisCache) GetStatus(ctx context.Context, studentID primitive.ObjectID) ([]*domain.AssignmentStatus, bool) {
	data, ok := r.Get(ctx, statusKey(studentID))
	if !ok {
		return nil, false
	}

	var statuses []*domain.AssignmentStatus
	if err := json.Unmarshal(data, &statuses); err != nil {
		return nil, false
	}
	return statuses, true
}

func (r *RedisCache) SetStatus(ctx context.Context, studentID primitive.ObjectID, statuses []*domain.AssignmentStatus) {
	data, err := json.Marshal(statuses)
	if err != nil {
		return
	}
	r.Set(ctx, statusKey(studentID), data, r.ttl)
}

func (r *RedisCache) InvalidateStatus(ctx context.Context, studentID primitive.ObjectID) {
	r.Delete(ctx, statusKey(studentID))
}

func statusKey(studentID primitive.ObjectID) string {
	return statusKeyPrefix + studentID.Hex()
}
