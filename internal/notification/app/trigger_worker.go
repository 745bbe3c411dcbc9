package app

import (
	"context"
	"errors"
	"fmt"

	"intranet_chat/internal/notification/domain"
	"intranet_chat/internal/notification/repository"
	errprocess "intranet_chat/pkg/err"
	"intranet_chat/pkg/logger"

	"go.uber.org/zap"
)

// TriggerWorker 消費 kafka 觸發事件並寫入通知
type TriggerWorker struct {
	notifier Notifier
	likes    *LikeUseCase
}

// NewTriggerWorker create TriggerWorker
func NewTriggerWorker(notifier Notifier, likes *LikeUseCase) *TriggerWorker {
	return &TriggerWorker{notifier: notifier, likes: likes}
}

// Run 阻塞直到 ctx 結束或 consumer 出錯
func (w *TriggerWorker) Run(ctx context.Context, consumer repository.TriggerConsumer) error {
	logger.Log.Info("trigger worker started")
	err := consumer.Consume(ctx, w.Handle)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Handle 依事件種類對每個 recipient 寫入通知
func (w *TriggerWorker) Handle(ctx context.Context, ev domain.TriggerEvent) error {
	var errs []error

	switch ev.Kind {
	case domain.TriggerMessageCreated:
		t := domain.TypeDirectChat
		if ev.Group {
			t = domain.TypeGroupChat
		}
		errs = w.fanOut(ctx, ev, t, ev.ConversationID, "/chat/"+ev.ConversationID, titleOr(ev.ActorName, "New message"))

	case domain.TriggerPostLiked:
		for _, r := range ev.Recipients {
			res, err := w.likes.NotifyLike(ctx, ev.ActorID, r, ev.EntityID, ev.Title)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if res.Suppressed {
				logger.Log.Debug("like suppressed", zap.String("sender", ev.ActorID), zap.String("post", ev.EntityID))
			}
		}

	case domain.TriggerCommentCreated:
		errs = w.fanOut(ctx, ev, domain.TypeComment, ev.EntityID, "/posts/"+ev.EntityID, titleOr(ev.Title, "New comment"))

	case domain.TriggerForumPosted:
		errs = w.fanOut(ctx, ev, domain.TypeForum, ev.EntityID, "/forum/"+ev.EntityID, titleOr(ev.Title, "New forum post"))

	default:
		return errprocess.Validation("handle trigger", fmt.Sprintf("unknown trigger kind %q", ev.Kind))
	}

	return errors.Join(errs...)
}

func (w *TriggerWorker) fanOut(ctx context.Context, ev domain.TriggerEvent, t domain.Type, entityID, route, title string) []error {
	var errs []error
	for _, r := range ev.Recipients {
		if r == ev.ActorID {
			continue
		}
		_, err := w.notifier.Notify(ctx, domain.Input{
			RecipientID: r,
			SenderID:    ev.ActorID,
			Type:        t,
			EntityID:    entityID,
			Route:       route,
			Title:       title,
			Body:        ev.Text,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", r, err))
		}
	}
	return errs
}

func titleOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
