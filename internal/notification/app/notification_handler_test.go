package app

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"intranet_chat/internal/notification/domain"
	errprocess "intranet_chat/pkg/err"
	"intranet_chat/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func newTestApp(h *NotificationHandler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(middlewares.TokenMemberID, "bob")
		return c.Next()
	})
	app.Get("/notifications", h.List)
	app.Post("/notifications/:id/read", h.MarkRead)
	app.Post("/notifications/push-subscriptions", h.RegisterPushSubscription)
	return app
}

func TestNotificationHandler_List(t *testing.T) {
	repo := new(MockNotificationRepository)
	repo.On("List", mock.Anything, "bob", int64(5), int64(0)).Return([]domain.Notification{{ID: "bob|like|p1", Type: domain.TypeLike}}, nil)

	app := newTestApp(NewNotificationHandler(NewNotificationUseCase(repo, nil)))
	resp, err := app.Test(httptest.NewRequest("GET", "/notifications?limit=5", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		OK    bool                  `json:"ok"`
		Items []domain.Notification `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.OK)
	assert.Len(t, body.Items, 1)
}

func TestNotificationHandler_MarkReadNotFound(t *testing.T) {
	repo := new(MockNotificationRepository)
	repo.On("MarkRead", mock.Anything, "bob", "missing").Return(errprocess.Classify("mark notification read", mongo.ErrNoDocuments))

	app := newTestApp(NewNotificationHandler(NewNotificationUseCase(repo, nil)))
	resp, err := app.Test(httptest.NewRequest("POST", "/notifications/missing/read", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestNotificationHandler_RegisterPushSubscriptionValidates(t *testing.T) {
	subs := new(MockPushSubscriptionRepository)
	app := newTestApp(NewNotificationHandler(NewNotificationUseCase(new(MockNotificationRepository), subs)))

	req := httptest.NewRequest("POST", "/notifications/push-subscriptions", strings.NewReader(`{"endpoint":"not a url"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	subs.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestNotificationUseCase_RegisterPushSubscriptionBindsMember(t *testing.T) {
	subs := new(MockPushSubscriptionRepository)
	subs.On("Save", mock.Anything, mock.MatchedBy(func(s *domain.PushSubscription) bool {
		return s.MemberID == "bob"
	})).Return(nil)

	uc := NewNotificationUseCase(new(MockNotificationRepository), subs)
	err := uc.RegisterPushSubscription(context.Background(), "bob", domain.PushSubscription{
		MemberID: "mallory",
		Endpoint: "https://push.example/1",
		P256dh:   "key",
		Auth:     "auth",
	})
	assert.NoError(t, err)
	subs.AssertExpectations(t)
}
