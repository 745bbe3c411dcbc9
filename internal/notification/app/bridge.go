package app

import (
	"context"
	"time"

	"intranet_chat/internal/notification/domain"
	"intranet_chat/internal/notification/repository"
	"intranet_chat/pkg/logger"
	"intranet_chat/pkg/metrics"
	"intranet_chat/pkg/sanitize"
	"intranet_chat/pkg/validate"

	"go.uber.org/zap"
)

const snippetLength = 140

// Notifier 寫入一筆通知
type Notifier interface {
	Notify(ctx context.Context, in domain.Input) (domain.UpsertResult, error)
}

// Bridge 把聊天、論壇事件轉成不重複的通知
type Bridge struct {
	repo    repository.NotificationRepository
	viewing repository.ViewingChecker
	queue   repository.PushQueue
	now     func() time.Time
}

// NewBridge create Bridge, queue 為 nil 時不推播
func NewBridge(repo repository.NotificationRepository, viewing repository.ViewingChecker, queue repository.PushQueue) *Bridge {
	return &Bridge{
		repo:    repo,
		viewing: viewing,
		queue:   queue,
		now:     time.Now,
	}
}

// Notify 以 recipient|type|entity upsert；收件者正在看該 entity 時直接標為已讀
func (b *Bridge) Notify(ctx context.Context, in domain.Input) (domain.UpsertResult, error) {
	if err := validate.Struct("notify", in); err != nil {
		return domain.UpsertResult{}, err
	}
	in.Title = sanitize.Text(in.Title)
	in.Body = sanitize.Snippet(in.Body, snippetLength)

	key := domain.Key(in.RecipientID, in.Type, in.EntityID)

	viewing, err := b.viewing.IsViewing(ctx, in.RecipientID, in.EntityID)
	if err != nil {
		logger.Log.Warn("viewing lookup failed", zap.String("recipient", in.RecipientID), zap.Error(err))
		viewing = false
	}

	created, err := b.repo.Upsert(ctx, key, in, viewing, b.now())
	if err != nil {
		metrics.NotificationUpserted(string(in.Type), "error")
		return domain.UpsertResult{}, err
	}

	res := domain.UpsertResult{Key: key, Created: created, Read: viewing}
	metrics.NotificationUpserted(string(in.Type), res.Outcome())

	if !viewing {
		b.enqueuePush(ctx, in)
	}
	return res, nil
}

// enqueuePush best effort
func (b *Bridge) enqueuePush(ctx context.Context, in domain.Input) {
	if b.queue == nil {
		return
	}

	badge, err := b.repo.CountUnread(ctx, in.RecipientID)
	if err != nil {
		logger.Log.Warn("count unread for badge", zap.String("recipient", in.RecipientID), zap.Error(err))
	}

	job := domain.PushJob{
		RecipientID: in.RecipientID,
		Title:       in.Title,
		Body:        in.Body,
		Route:       in.Route,
		Badge:       badge,
	}
	if err := b.queue.Enqueue(ctx, job); err != nil {
		logger.Log.Error("enqueue push", zap.String("recipient", in.RecipientID), zap.Error(err))
	}
}
