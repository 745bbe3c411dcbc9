package app

import (
	"context"
	"testing"
	"time"

	"intranet_chat/internal/notification/domain"
	errprocess "intranet_chat/pkg/err"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLikeUseCase_ThreeLikesInsideCooldownNotifyOnce(t *testing.T) {
	ctx := context.Background()
	cooldown := new(MockCooldownRepository)
	notifier := new(MockNotifier)

	key := CooldownKey("alice", "bob", "post-1")
	cooldown.On("Acquire", ctx, key, time.Minute).Return(true, nil).Once()
	cooldown.On("Acquire", ctx, key, time.Minute).Return(false, nil)
	notifier.On("Notify", ctx, mock.MatchedBy(func(in domain.Input) bool {
		return in.Type == domain.TypeLike && in.RecipientID == "bob" && in.EntityID == "post-1"
	})).Return(domain.UpsertResult{Key: "bob|like|post-1", Created: true}, nil).Once()

	uc := NewLikeUseCase(notifier, cooldown, time.Minute)

	suppressed := 0
	for i := 0; i < 3; i++ {
		res, err := uc.NotifyLike(ctx, "alice", "bob", "post-1", "my post")
		require.NoError(t, err)
		if res.Suppressed {
			suppressed++
		}
	}

	assert.Equal(t, 2, suppressed)
	notifier.AssertNumberOfCalls(t, "Notify", 1)
	cooldown.AssertExpectations(t)
}

func TestLikeUseCase_FailedNotifyReleasesCooldown(t *testing.T) {
	ctx := context.Background()
	cooldown := new(MockCooldownRepository)
	notifier := new(MockNotifier)

	key := CooldownKey("alice", "bob", "post-1")
	cooldown.On("Acquire", ctx, key, time.Minute).Return(true, nil).Twice()
	cooldown.On("Release", ctx, key).Return(nil).Once()
	notifier.On("Notify", ctx, mock.Anything).Return(domain.UpsertResult{}, errprocess.Wrap(errprocess.ErrTransient, "upsert notification", nil)).Once()
	notifier.On("Notify", ctx, mock.Anything).Return(domain.UpsertResult{Key: "bob|like|post-1", Created: true}, nil).Once()

	uc := NewLikeUseCase(notifier, cooldown, time.Minute)

	_, err := uc.NotifyLike(ctx, "alice", "bob", "post-1", "my post")
	assert.ErrorIs(t, err, errprocess.ErrTransient)

	// 同一個冷卻時間內重試仍然會通知
	res, err := uc.NotifyLike(ctx, "alice", "bob", "post-1", "my post")
	require.NoError(t, err)
	assert.False(t, res.Suppressed)
	assert.True(t, res.Result.Created)

	notifier.AssertNumberOfCalls(t, "Notify", 2)
	cooldown.AssertExpectations(t)
}

func TestLikeUseCase_SelfLikeIsSkipped(t *testing.T) {
	cooldown := new(MockCooldownRepository)
	notifier := new(MockNotifier)

	res, err := NewLikeUseCase(notifier, cooldown, 0).NotifyLike(context.Background(), "bob", "bob", "post-1", "")
	require.NoError(t, err)
	assert.True(t, res.Suppressed)
	cooldown.AssertNotCalled(t, "Acquire", mock.Anything, mock.Anything, mock.Anything)
}

func TestCooldownKey_DistinguishesSenders(t *testing.T) {
	assert.NotEqual(t, CooldownKey("alice", "bob", "p"), CooldownKey("carol", "bob", "p"))
}

func TestNewLikeUseCase_DefaultCooldown(t *testing.T) {
	uc := NewLikeUseCase(nil, nil, 0)
	assert.Equal(t, DefaultLikeCooldown, uc.ttl)
}
