package app

import (
	"context"
	"time"

	"intranet_chat/internal/notification/domain"

	"github.com/stretchr/testify/mock"
)

// MockNotificationRepository Mock NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

// Upsert mock upsert
func (m *MockNotificationRepository) Upsert(ctx context.Context, key string, in domain.Input, read bool, now time.Time) (bool, error) {
	args := m.Called(ctx, key, in, read, now)
	return args.Bool(0), args.Error(1)
}

// List mock list
func (m *MockNotificationRepository) List(ctx context.Context, recipientID string, limit, offset int64) ([]domain.Notification, error) {
	args := m.Called(ctx, recipientID, limit, offset)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Notification), args.Error(1)
	}
	return nil, args.Error(1)
}

// MarkRead mock mark read
func (m *MockNotificationRepository) MarkRead(ctx context.Context, recipientID, id string) error {
	args := m.Called(ctx, recipientID, id)
	return args.Error(0)
}

// MarkEntityRead mock mark entity read
func (m *MockNotificationRepository) MarkEntityRead(ctx context.Context, recipientID string, t domain.Type, entityID string) error {
	args := m.Called(ctx, recipientID, t, entityID)
	return args.Error(0)
}

// MarkAllRead mock mark all read
func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).(int64), args.Error(1)
}

// CountUnread mock count unread
func (m *MockNotificationRepository) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).(int64), args.Error(1)
}

// MockViewingChecker Mock ViewingChecker
type MockViewingChecker struct {
	mock.Mock
}

// IsViewing mock is viewing
func (m *MockViewingChecker) IsViewing(ctx context.Context, userID, entityID string) (bool, error) {
	args := m.Called(ctx, userID, entityID)
	return args.Bool(0), args.Error(1)
}

// MockPushQueue Mock PushQueue
type MockPushQueue struct {
	mock.Mock
}

// Enqueue mock enqueue
func (m *MockPushQueue) Enqueue(ctx context.Context, job domain.PushJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// Consume mock consume
func (m *MockPushQueue) Consume(ctx context.Context, handler func(context.Context, domain.PushJob) error) error {
	args := m.Called(ctx, handler)
	return args.Error(0)
}

// MockCooldownRepository Mock CooldownRepository
type MockCooldownRepository struct {
	mock.Mock
}

// Acquire mock acquire
func (m *MockCooldownRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

// Release mock release
func (m *MockCooldownRepository) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockPushSubscriptionRepository Mock PushSubscriptionRepository
type MockPushSubscriptionRepository struct {
	mock.Mock
}

// Save mock save
func (m *MockPushSubscriptionRepository) Save(ctx context.Context, sub *domain.PushSubscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

// ListByMember mock list
func (m *MockPushSubscriptionRepository) ListByMember(ctx context.Context, memberID string) ([]domain.PushSubscription, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.PushSubscription), args.Error(1)
	}
	return nil, args.Error(1)
}

// DeleteByEndpoint mock delete
func (m *MockPushSubscriptionRepository) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	args := m.Called(ctx, endpoint)
	return args.Error(0)
}

// MockPushSender Mock PushSender
type MockPushSender struct {
	mock.Mock
}

// Send mock send
func (m *MockPushSender) Send(ctx context.Context, sub domain.PushSubscription, payload []byte) (int, error) {
	args := m.Called(ctx, sub, payload)
	return args.Int(0), args.Error(1)
}

// MockNotifier Mock Notifier
type MockNotifier struct {
	mock.Mock
}

// Notify mock notify
func (m *MockNotifier) Notify(ctx context.Context, in domain.Input) (domain.UpsertResult, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(domain.UpsertResult), args.Error(1)
}
