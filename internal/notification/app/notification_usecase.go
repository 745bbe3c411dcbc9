package app

import (
	"context"

	"intranet_chat/internal/notification/domain"
	"intranet_chat/internal/notification/repository"
	errprocess "intranet_chat/pkg/err"
	"intranet_chat/pkg/validate"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// NotificationUseCase 通知匣
type NotificationUseCase struct {
	repo repository.NotificationRepository
	subs repository.PushSubscriptionRepository
}

// NewNotificationUseCase create NotificationUseCase, subs 可為 nil
func NewNotificationUseCase(repo repository.NotificationRepository, subs repository.PushSubscriptionRepository) *NotificationUseCase {
	return &NotificationUseCase{repo: repo, subs: subs}
}

// List 依 updated_at 倒序
func (uc *NotificationUseCase) List(ctx context.Context, recipientID string, limit, offset int64) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return uc.repo.List(ctx, recipientID, limit, offset)
}

// MarkRead 單筆已讀
func (uc *NotificationUseCase) MarkRead(ctx context.Context, recipientID, id string) error {
	if id == "" {
		return errprocess.Validation("mark read", "id is required")
	}
	return uc.repo.MarkRead(ctx, recipientID, id)
}

// MarkEntityRead 開啟聊天室時呼叫
func (uc *NotificationUseCase) MarkEntityRead(ctx context.Context, recipientID string, t domain.Type, entityID string) error {
	return uc.repo.MarkEntityRead(ctx, recipientID, t, entityID)
}

// MarkAllRead 全部已讀
func (uc *NotificationUseCase) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	return uc.repo.MarkAllRead(ctx, recipientID)
}

// UnreadCount 未讀數
func (uc *NotificationUseCase) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	return uc.repo.CountUnread(ctx, recipientID)
}

// RegisterPushSubscription 註冊瀏覽器推播
func (uc *NotificationUseCase) RegisterPushSubscription(ctx context.Context, memberID string, sub domain.PushSubscription) error {
	if uc.subs == nil {
		return errprocess.Validation("register push", "push is not enabled")
	}
	if err := validate.Struct("register push", sub); err != nil {
		return err
	}
	sub.ID = 0
	sub.MemberID = memberID
	return uc.subs.Save(ctx, &sub)
}
