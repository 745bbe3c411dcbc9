package app

import (
	"context"
	"time"

	"intranet_chat/internal/chat/domain"
	notifdomain "intranet_chat/internal/notification/domain"

	"github.com/stretchr/testify/mock"
)

// MockMessageRepo Mock MessageRepository
type MockMessageRepo struct {
	mock.Mock
}

func (m *MockMessageRepo) Insert(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepo) FindByID(ctx context.Context, messageID string) (*domain.Message, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMessageRepo) FindLatest(ctx context.Context, conversationID string, limit int64) ([]domain.Message, error) {
	args := m.Called(ctx, conversationID, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMessageRepo) FindBefore(ctx context.Context, conversationID string, before time.Time, limit int64) ([]domain.Message, error) {
	args := m.Called(ctx, conversationID, before, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMessageRepo) FindUnreadFor(ctx context.Context, userID string, limit int64) ([]domain.Message, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMessageRepo) MarkRead(ctx context.Context, messageID, userID string) error {
	args := m.Called(ctx, messageID, userID)
	return args.Error(0)
}

func (m *MockMessageRepo) MarkConversationRead(ctx context.Context, conversationID, userID string) (int64, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessageRepo) Delete(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

func (m *MockMessageRepo) DeleteByConversation(ctx context.Context, conversationID string) (int64, error) {
	args := m.Called(ctx, conversationID)
	return args.Get(0).(int64), args.Error(1)
}

// MockConversationRepo Mock ConversationRepository
type MockConversationRepo struct {
	mock.Mock
}

func (m *MockConversationRepo) TouchOnSend(ctx context.Context, conv domain.Conversation, msg domain.Message, recipients []string) error {
	args := m.Called(ctx, conv, msg, recipients)
	return args.Error(0)
}

func (m *MockConversationRepo) ResetUnread(ctx context.Context, conversationID, userID string) error {
	args := m.Called(ctx, conversationID, userID)
	return args.Error(0)
}

func (m *MockConversationRepo) FindByID(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockConversationRepo) ListForUser(ctx context.Context, userID string) ([]domain.Conversation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockConversationRepo) ClearSummary(ctx context.Context, conversationID string) error {
	args := m.Called(ctx, conversationID)
	return args.Error(0)
}

// MockEventFeed Mock EventFeed
type MockEventFeed struct {
	mock.Mock
}

func (m *MockEventFeed) Publish(ctx context.Context, channel string, t domain.EventType, payload interface{}) error {
	args := m.Called(ctx, channel, t, payload)
	return args.Error(0)
}

func (m *MockEventFeed) Subscribe(ctx context.Context, channel string, handler func(domain.Event)) (domain.Subscription, error) {
	args := m.Called(ctx, channel, handler)
	if args.Get(0) != nil {
		return args.Get(0).(domain.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockTriggerPublisher Mock TriggerPublisher
type MockTriggerPublisher struct {
	mock.Mock
}

func (m *MockTriggerPublisher) Publish(ctx context.Context, ev notifdomain.TriggerEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

// MockAttachmentRepo Mock AttachmentRepository
type MockAttachmentRepo struct {
	mock.Mock
}

func (m *MockAttachmentRepo) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, path, data, contentType)
	return args.String(0), args.Error(1)
}

// MockAuthenticator Mock Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Reauthenticate(ctx context.Context, memberID, password string) error {
	args := m.Called(ctx, memberID, password)
	return args.Error(0)
}

// MockMemberDirectory Mock MemberDirectory
type MockMemberDirectory struct {
	mock.Mock
}

func (m *MockMemberDirectory) ListActiveMemberIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) != nil {
		return args.Get(0).([]string), args.Error(1)
	}
	return nil, args.Error(1)
}
