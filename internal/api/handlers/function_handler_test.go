package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	notifdomain "intranet_chat/internal/notification/domain"
	"intranet_chat/pkg/logger"
	"intranet_chat/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newFnApp(triggers *MockTriggerPublisher, members *MockMemberLister) *fiber.App {
	logger.SetNewNop()
	h := NewFunctionHandler(triggers, members)
	h.now = func() time.Time { return fixedNow }

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(middlewares.TokenMemberID, "alice")
		return c.Next()
	})
	app.Post("/fn/like", h.Like)
	app.Post("/fn/comment", h.Comment)
	app.Post("/fn/forum", h.Forum)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return resp.StatusCode, out
}

func TestFunctionHandler_Like(t *testing.T) {
	triggers := new(MockTriggerPublisher)
	app := newFnApp(triggers, new(MockMemberLister))

	triggers.On("Publish", mock.Anything, notifdomain.TriggerEvent{
		Kind:       notifdomain.TriggerPostLiked,
		ActorID:    "alice",
		EntityID:   "post-1",
		Recipients: []string{"bob"},
		Title:      "Lunch",
		OccurredAt: fixedNow,
	}).Return(nil).Once()

	status, body := postJSON(t, app, "/fn/like", `{"post_id":"post-1","post_owner_id":"bob","title":"Lunch"}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "post.liked queued", body["text"])
	triggers.AssertExpectations(t)
}

func TestFunctionHandler_Comment(t *testing.T) {
	triggers := new(MockTriggerPublisher)
	app := newFnApp(triggers, new(MockMemberLister))

	triggers.On("Publish", mock.Anything, mock.MatchedBy(func(ev notifdomain.TriggerEvent) bool {
		return ev.Kind == notifdomain.TriggerCommentCreated && ev.Text == "nice" && ev.Recipients[0] == "bob"
	})).Return(nil).Once()

	status, body := postJSON(t, app, "/fn/comment", `{"post_id":"post-1","post_owner_id":"bob","text":"nice"}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["ok"])
	triggers.AssertExpectations(t)
}

func TestFunctionHandler_ForumFansOutToActiveMembers(t *testing.T) {
	triggers := new(MockTriggerPublisher)
	members := new(MockMemberLister)
	app := newFnApp(triggers, members)

	members.On("ListActiveMemberIDs", mock.Anything).Return([]string{"alice", "bob", "carol"}, nil).Once()
	triggers.On("Publish", mock.Anything, mock.MatchedBy(func(ev notifdomain.TriggerEvent) bool {
		return ev.Kind == notifdomain.TriggerForumPosted && len(ev.Recipients) == 3 && ev.EntityID == "forum-7"
	})).Return(nil).Once()

	status, body := postJSON(t, app, "/fn/forum", `{"forum_id":"forum-7","title":"Townhall"}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "forum.posted queued", body["text"])
	triggers.AssertExpectations(t)
	members.AssertExpectations(t)
}

func TestFunctionHandler_Errors(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		triggers := new(MockTriggerPublisher)
		app := newFnApp(triggers, new(MockMemberLister))

		status, body := postJSON(t, app, "/fn/like", `{"post_id":""}`)
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, false, body["ok"])
		assert.NotEmpty(t, body["error"])
		triggers.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("bad body", func(t *testing.T) {
		app := newFnApp(new(MockTriggerPublisher), new(MockMemberLister))
		status, body := postJSON(t, app, "/fn/comment", `{`)
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, false, body["ok"])
	})

	t.Run("publish failure", func(t *testing.T) {
		triggers := new(MockTriggerPublisher)
		app := newFnApp(triggers, new(MockMemberLister))
		triggers.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

		status, body := postJSON(t, app, "/fn/like", `{"post_id":"p","post_owner_id":"bob"}`)
		assert.Equal(t, fiber.StatusServiceUnavailable, status)
		assert.Equal(t, false, body["ok"])
	})

	t.Run("member listing failure", func(t *testing.T) {
		triggers := new(MockTriggerPublisher)
		members := new(MockMemberLister)
		app := newFnApp(triggers, members)
		members.On("ListActiveMemberIDs", mock.Anything).Return(nil, errors.New("db gone")).Once()

		status, body := postJSON(t, app, "/fn/forum", `{"forum_id":"f","title":"t"}`)
		assert.Equal(t, fiber.StatusInternalServerError, status)
		assert.Equal(t, false, body["ok"])
		triggers.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})
}

func TestDebugLogFlag(t *testing.T) {
	logger.SetNewNop()
	app := fiber.New()
	app.Get("/", ConnectCheck)
	app.Post("/debug", DebugLogFlag)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/debug?service=api&status=true", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/debug?service=api&status=maybe", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
