package repository

import (
	"context"
	"fmt"

	"intranet_chat/internal/notification/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PushSubscriptionRepository web push 訂閱
type PushSubscriptionRepository interface {
	Save(ctx context.Context, sub *domain.PushSubscription) error
	ListByMember(ctx context.Context, memberID string) ([]domain.PushSubscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}

type gormPushSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormPushSubscriptionRepository create a PushSubscriptionRepository, 啟動時 AutoMigrate
func NewGormPushSubscriptionRepository(db *gorm.DB) (PushSubscriptionRepository, error) {
	if err := db.AutoMigrate(&domain.PushSubscription{}); err != nil {
		return nil, fmt.Errorf("migrate push_subscriptions: %w", err)
	}
	return &gormPushSubscriptionRepository{db: db}, nil
}

// Save 同一個 endpoint 重複註冊時更新 key 與 member
func (r *gormPushSubscriptionRepository) Save(ctx context.Context, sub *domain.PushSubscription) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"member_id", "p256dh", "auth"}),
	}).Create(sub).Error
}

func (r *gormPushSubscriptionRepository) ListByMember(ctx context.Context, memberID string) ([]domain.PushSubscription, error) {
	var subs []domain.PushSubscription
	err := r.db.WithContext(ctx).Where("member_id = ?", memberID).Find(&subs).Error
	return subs, err
}

func (r *gormPushSubscriptionRepository) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	return r.db.WithContext(ctx).Where("endpoint = ?", endpoint).Delete(&domain.PushSubscription{}).Error
}
