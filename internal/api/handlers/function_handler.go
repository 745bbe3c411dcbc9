package handlers

import (
	"context"
	"time"

	notifdomain "intranet_chat/internal/notification/domain"
	notifrepo "intranet_chat/internal/notification/repository"
	errprocess "intranet_chat/pkg/err"
	"intranet_chat/pkg/logger"
	"intranet_chat/pkg/middlewares"
	"intranet_chat/pkg/validate"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// MemberLister 論壇新貼文通知所有啟用中的 member
type MemberLister interface {
	ListActiveMemberIDs(ctx context.Context) ([]string, error)
}

// LikeRequest POST /fn/like
type LikeRequest struct {
	PostID      string `json:"post_id" validate:"required,max=128"`
	PostOwnerID string `json:"post_owner_id" validate:"required,max=64"`
	Title       string `json:"title" validate:"max=200"`
}

// CommentRequest POST /fn/comment
type CommentRequest struct {
	PostID      string `json:"post_id" validate:"required,max=128"`
	PostOwnerID string `json:"post_owner_id" validate:"required,max=64"`
	Title       string `json:"title" validate:"max=200"`
	Text        string `json:"text" validate:"required,max=2000"`
}

// ForumRequest POST /fn/forum
type ForumRequest struct {
	ForumID string `json:"forum_id" validate:"required,max=128"`
	Title   string `json:"title" validate:"required,max=200"`
	Text    string `json:"text" validate:"max=2000"`
}

// FunctionHandler 前端呼叫的 function endpoint，寫入 kafka 後由 notification worker 處理
type FunctionHandler struct {
	triggers notifrepo.TriggerPublisher
	members  MemberLister
	now      func() time.Time
}

// NewFunctionHandler create FunctionHandler
func NewFunctionHandler(triggers notifrepo.TriggerPublisher, members MemberLister) *FunctionHandler {
	return &FunctionHandler{triggers: triggers, members: members, now: time.Now}
}

// Like 貼文按讚
// @Summary 貼文按讚通知
// @Tags Function
// @Accept json
// @Produce json
// @Param request body LikeRequest true "按讚資料"
// @Success 200 {object} map[string]interface{} "{ok, text}"
// @Failure 400 {object} map[string]interface{} "{ok, error}"
// @Security BearerAuth
// @Router /fn/like [post]
func (h *FunctionHandler) Like(c *fiber.Ctx) error {
	var req LikeRequest
	if err := h.bind(c, "like", &req); err != nil {
		return fnFail(c, err)
	}
	ev := notifdomain.TriggerEvent{
		Kind:       notifdomain.TriggerPostLiked,
		ActorID:    middlewares.MemberID(c),
		EntityID:   req.PostID,
		Recipients: []string{req.PostOwnerID},
		Title:      req.Title,
	}
	return h.publish(c, ev)
}

// Comment 新留言
// @Summary 留言通知
// @Tags Function
// @Accept json
// @Produce json
// @Param request body CommentRequest true "留言資料"
// @Success 200 {object} map[string]interface{} "{ok, text}"
// @Failure 400 {object} map[string]interface{} "{ok, error}"
// @Security BearerAuth
// @Router /fn/comment [post]
func (h *FunctionHandler) Comment(c *fiber.Ctx) error {
	var req CommentRequest
	if err := h.bind(c, "comment", &req); err != nil {
		return fnFail(c, err)
	}
	ev := notifdomain.TriggerEvent{
		Kind:       notifdomain.TriggerCommentCreated,
		ActorID:    middlewares.MemberID(c),
		EntityID:   req.PostID,
		Recipients: []string{req.PostOwnerID},
		Title:      req.Title,
		Text:       req.Text,
	}
	return h.publish(c, ev)
}

// Forum 論壇新貼文，通知所有人
// @Summary 論壇新貼文通知
// @Tags Function
// @Accept json
// @Produce json
// @Param request body ForumRequest true "貼文資料"
// @Success 200 {object} map[string]interface{} "{ok, text}"
// @Failure 400 {object} map[string]interface{} "{ok, error}"
// @Security BearerAuth
// @Router /fn/forum [post]
func (h *FunctionHandler) Forum(c *fiber.Ctx) error {
	var req ForumRequest
	if err := h.bind(c, "forum", &req); err != nil {
		return fnFail(c, err)
	}

	recipients, err := h.members.ListActiveMemberIDs(c.UserContext())
	if err != nil {
		return fnFail(c, errprocess.Classify("list members", err))
	}
	ev := notifdomain.TriggerEvent{
		Kind:       notifdomain.TriggerForumPosted,
		ActorID:    middlewares.MemberID(c),
		EntityID:   req.ForumID,
		Recipients: recipients,
		Title:      req.Title,
		Text:       req.Text,
	}
	return h.publish(c, ev)
}

func (h *FunctionHandler) bind(c *fiber.Ctx, op string, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return errprocess.Validation(op, "invalid request body")
	}
	return validate.Struct(op, req)
}

func (h *FunctionHandler) publish(c *fiber.Ctx, ev notifdomain.TriggerEvent) error {
	ev.OccurredAt = h.now().UTC()
	if err := h.triggers.Publish(c.UserContext(), ev); err != nil {
		logger.Log.Error("publish trigger", zap.String("kind", string(ev.Kind)), zap.String("actor", ev.ActorID), zap.Error(err))
		return fnFail(c, errprocess.Wrap(errprocess.ErrTransient, "publish trigger", err))
	}
	logger.Log.Info("trigger published", zap.String("kind", string(ev.Kind)), zap.String("entity", ev.EntityID), zap.Int("recipients", len(ev.Recipients)))
	return c.JSON(fiber.Map{"ok": true, "text": string(ev.Kind) + " queued"})
}

func fnFail(c *fiber.Ctx, err error) error {
	return c.Status(errprocess.HTTPStatus(err)).JSON(fiber.Map{"ok": false, "error": err.Error()})
}
