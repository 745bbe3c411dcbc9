package repository

import (
	"context"
	"time"

	chatdomain "intranet_chat/internal/chat/domain"
	errprocess "intranet_chat/pkg/err"

	"github.com/go-redis/redis/v8"
)

// CooldownRepository 以 SETNX 實作的冷卻鎖
type CooldownRepository interface {
	// Acquire 取得鎖回傳 true，冷卻中回傳 false
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release 通知沒寫成功時釋放，下一次按讚可以重試
	Release(ctx context.Context, key string) error
}

// ViewingChecker 判斷 member 是否正在看某個 entity
type ViewingChecker interface {
	IsViewing(ctx context.Context, userID, entityID string) (bool, error)
}

type redisCooldownRepository struct {
	client *redis.Client
}

// NewRedisCooldownRepository create a CooldownRepository
func NewRedisCooldownRepository(client *redis.Client) CooldownRepository {
	return &redisCooldownRepository{client: client}
}

func (r *redisCooldownRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, "locked", ttl).Result()
	if err != nil {
		return false, errprocess.Classify("acquire cooldown", err)
	}
	return ok, nil
}

func (r *redisCooldownRepository) Release(ctx context.Context, key string) error {
	return errprocess.Classify("release cooldown", r.client.Del(ctx, key).Err())
}

type redisViewingChecker struct {
	client *redis.Client
}

// NewRedisViewingChecker create a ViewingChecker
func NewRedisViewingChecker(client *redis.Client) ViewingChecker {
	return &redisViewingChecker{client: client}
}

func (r *redisViewingChecker) IsViewing(ctx context.Context, userID, entityID string) (bool, error) {
	val, err := r.client.Get(ctx, chatdomain.ViewingKey(userID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errprocess.Classify("is viewing", err)
	}
	return val == entityID, nil
}
