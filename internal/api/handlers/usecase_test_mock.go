package handlers

import (
	"context"

	notifdomain "intranet_chat/internal/notification/domain"

	"github.com/stretchr/testify/mock"
)

// MockTriggerPublisher Mock TriggerPublisher
type MockTriggerPublisher struct {
	mock.Mock
}

func (m *MockTriggerPublisher) Publish(ctx context.Context, ev notifdomain.TriggerEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

// MockMemberLister Mock MemberLister
type MockMemberLister struct {
	mock.Mock
}

func (m *MockMemberLister) ListActiveMemberIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) != nil {
		return args.Get(0).([]string), args.Error(1)
	}
	return nil, args.Error(1)
}
