package app

import (
	"context"
	"errors"
	"testing"

	"intranet_chat/internal/notification/domain"
	errprocess "intranet_chat/pkg/err"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func chatInput() domain.Input {
	return domain.Input{
		RecipientID: "bob",
		SenderID:    "alice",
		Type:        domain.TypeDirectChat,
		EntityID:    "alice_bob",
		Route:       "/chat/alice_bob",
		Title:       "alice",
		Body:        "<b>hola</b>",
	}
}

func TestBridge_Notify_CreatesUnreadAndEnqueuesPush(t *testing.T) {
	ctx := context.Background()
	repo := new(MockNotificationRepository)
	viewing := new(MockViewingChecker)
	queue := new(MockPushQueue)

	viewing.On("IsViewing", ctx, "bob", "alice_bob").Return(false, nil)
	repo.On("Upsert", ctx, "bob|direct_chat|alice_bob", mock.MatchedBy(func(in domain.Input) bool {
		return in.Body == "hola"
	}), false, mock.Anything).Return(true, nil)
	repo.On("CountUnread", ctx, "bob").Return(int64(3), nil)
	queue.On("Enqueue", ctx, mock.MatchedBy(func(job domain.PushJob) bool {
		return job.RecipientID == "bob" && job.Badge == 3 && job.Body == "hola"
	})).Return(nil)

	res, err := NewBridge(repo, viewing, queue).Notify(ctx, chatInput())
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.False(t, res.Read)
	assert.Equal(t, "created", res.Outcome())

	repo.AssertExpectations(t)
	viewing.AssertExpectations(t)
	queue.AssertExpectations(t)
}

func TestBridge_Notify_ViewingWritesReadWithoutPush(t *testing.T) {
	ctx := context.Background()
	repo := new(MockNotificationRepository)
	viewing := new(MockViewingChecker)
	queue := new(MockPushQueue)

	viewing.On("IsViewing", ctx, "bob", "alice_bob").Return(true, nil)
	repo.On("Upsert", ctx, "bob|direct_chat|alice_bob", mock.Anything, true, mock.Anything).Return(false, nil)

	res, err := NewBridge(repo, viewing, queue).Notify(ctx, chatInput())
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.True(t, res.Read)
	assert.Equal(t, "merged", res.Outcome())

	queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
}

func TestBridge_Notify_ViewingLookupFailureCountsAsUnread(t *testing.T) {
	ctx := context.Background()
	repo := new(MockNotificationRepository)
	viewing := new(MockViewingChecker)

	viewing.On("IsViewing", ctx, "bob", "alice_bob").Return(false, errors.New("redis down"))
	repo.On("Upsert", ctx, mock.Anything, mock.Anything, false, mock.Anything).Return(true, nil)

	res, err := NewBridge(repo, viewing, nil).Notify(ctx, chatInput())
	require.NoError(t, err)
	assert.False(t, res.Read)
}

func TestBridge_Notify_RejectsInvalidInputBeforeIO(t *testing.T) {
	repo := new(MockNotificationRepository)
	viewing := new(MockViewingChecker)

	in := chatInput()
	in.Type = "poke"
	_, err := NewBridge(repo, viewing, nil).Notify(context.Background(), in)
	assert.ErrorIs(t, err, errprocess.ErrValidation)

	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	viewing.AssertNotCalled(t, "IsViewing", mock.Anything, mock.Anything, mock.Anything)
}
