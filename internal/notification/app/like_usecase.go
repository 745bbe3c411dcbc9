package app

import (
	"context"
	"fmt"
	"time"

	"intranet_chat/internal/notification/domain"
	"intranet_chat/internal/notification/repository"
	errprocess "intranet_chat/pkg/err"
	"intranet_chat/pkg/logger"

	"go.uber.org/zap"
)

// DefaultLikeCooldown 同一個 (sender, recipient, post) 的冷卻時間
const DefaultLikeCooldown = 10 * time.Minute

// LikeResult 按讚通知結果
type LikeResult struct {
	Suppressed bool                `json:"suppressed"`
	Result     domain.UpsertResult `json:"result"`
}

// LikeUseCase 按讚通知，冷卻時間內只寫一次
type LikeUseCase struct {
	notifier Notifier
	cooldown repository.CooldownRepository
	ttl      time.Duration
}

// NewLikeUseCase create LikeUseCase
func NewLikeUseCase(notifier Notifier, cooldown repository.CooldownRepository, ttl time.Duration) *LikeUseCase {
	if ttl <= 0 {
		ttl = DefaultLikeCooldown
	}
	return &LikeUseCase{notifier: notifier, cooldown: cooldown, ttl: ttl}
}

// CooldownKey 依 sender + recipient + post
func CooldownKey(senderID, recipientID, postID string) string {
	return fmt.Sprintf("like:cooldown:%s:%s:%s", senderID, recipientID, postID)
}

// NotifyLike 自己按自己不通知；冷卻中回傳 Suppressed
func (uc *LikeUseCase) NotifyLike(ctx context.Context, senderID, recipientID, postID, title string) (LikeResult, error) {
	if senderID == "" || recipientID == "" || postID == "" {
		return LikeResult{}, errprocess.Validation("notify like", "sender, recipient and post are required")
	}
	if senderID == recipientID {
		return LikeResult{Suppressed: true}, nil
	}

	key := CooldownKey(senderID, recipientID, postID)
	acquired, err := uc.cooldown.Acquire(ctx, key, uc.ttl)
	if err != nil {
		return LikeResult{}, err
	}
	if !acquired {
		return LikeResult{Suppressed: true}, nil
	}

	res, err := uc.notifier.Notify(ctx, domain.Input{
		RecipientID: recipientID,
		SenderID:    senderID,
		Type:        domain.TypeLike,
		EntityID:    postID,
		Route:       "/posts/" + postID,
		Title:       "New like",
		Body:        title,
	})
	if err != nil {
		if relErr := uc.cooldown.Release(ctx, key); relErr != nil {
			logger.Log.Warn("release like cooldown", zap.String("key", key), zap.Error(relErr))
		}
		return LikeResult{}, err
	}
	return LikeResult{Result: res}, nil
}
