package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"intranet_chat/internal/chat/domain"
	errprocess "intranet_chat/pkg/err"
	"intranet_chat/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const presenceHash = "chat:presence"

// PresenceRepository 上線狀態存取
type PresenceRepository interface {
	// Write 覆寫紀錄並廣播 presence.changed
	Write(ctx context.Context, p domain.Presence) error
	// List 只回傳 ttl 內有刷新的紀錄
	List(ctx context.Context) ([]domain.Presence, error)
}

type redisPresenceRepository struct {
	client *redis.Client
	feed   EventFeed
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisPresenceRepository create a PresenceRepository, ttl <= 0 表示紀錄不過期
func NewRedisPresenceRepository(client *redis.Client, feed EventFeed, ttl time.Duration) PresenceRepository {
	return &redisPresenceRepository{client: client, feed: feed, ttl: ttl, now: time.Now}
}

func (r *redisPresenceRepository) Write(ctx context.Context, p domain.Presence) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal presence: %w", err)
	}
	if err := r.client.HSet(ctx, presenceHash, p.UserID, data).Err(); err != nil {
		return errprocess.Classify("write presence", err)
	}
	return r.feed.Publish(ctx, PresenceChannel, domain.EventPresenceChanged, p)
}

func (r *redisPresenceRepository) List(ctx context.Context) ([]domain.Presence, error) {
	all, err := r.client.HGetAll(ctx, presenceHash).Result()
	if err != nil {
		return nil, errprocess.Classify("list presence", err)
	}

	now := r.now()
	out := make([]domain.Presence, 0, len(all))
	var stale []string
	for id, raw := range all {
		var p domain.Presence
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			continue
		}
		// 連線的服務 crash 時不會寫離線，過期的紀錄直接清掉
		if p.Stale(now, r.ttl) {
			stale = append(stale, id)
			continue
		}
		out = append(out, p)
	}
	if len(stale) > 0 {
		if err := r.client.HDel(ctx, presenceHash, stale...).Err(); err != nil {
			logger.Log.Warn("drop stale presence", zap.Strings("user_ids", stale), zap.Error(err))
		}
	}
	return out, nil
}
