package repository

import (
	"context"
	"time"

	"intranet_chat/internal/chat/domain"
	errprocess "intranet_chat/pkg/err"

	"github.com/go-redis/redis/v8"
)

// ViewingRepository 記錄 member 目前正在看的聊天室，供通知判斷是否已讀
type ViewingRepository interface {
	// SetViewing entity 為空字串時刪除
	SetViewing(ctx context.Context, userID, entity string) error
	Clear(ctx context.Context, userID string) error
}

type redisViewingRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisViewingRepository create a ViewingRepository
func NewRedisViewingRepository(client *redis.Client, ttl time.Duration) ViewingRepository {
	return &redisViewingRepository{client: client, ttl: ttl}
}

func (r *redisViewingRepository) SetViewing(ctx context.Context, userID, entity string) error {
	if entity == "" {
		return r.Clear(ctx, userID)
	}
	return errprocess.Classify("set viewing", r.client.Set(ctx, domain.ViewingKey(userID), entity, r.ttl).Err())
}

func (r *redisViewingRepository) Clear(ctx context.Context, userID string) error {
	return errprocess.Classify("clear viewing", r.client.Del(ctx, domain.ViewingKey(userID)).Err())
}
