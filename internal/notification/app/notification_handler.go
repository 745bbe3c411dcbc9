package app

import (
	"intranet_chat/internal/notification/domain"
	errprocess "intranet_chat/pkg/err"
	"intranet_chat/pkg/logger"
	"intranet_chat/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// NotificationHandler 通知匣 HTTP API
type NotificationHandler struct {
	uc *NotificationUseCase
}

// NewNotificationHandler create NotificationHandler
func NewNotificationHandler(uc *NotificationUseCase) *NotificationHandler {
	return &NotificationHandler{uc: uc}
}

// List 取得通知
// @Summary 取得通知列表
// @Tags Notifications
// @Produce json
// @Param limit query int false "筆數"
// @Param offset query int false "略過筆數"
// @Success 200 {object} map[string]interface{} "通知列表"
// @Failure 401 {object} map[string]interface{} "未登入"
// @Router /notifications [get]
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	memberID := middlewares.MemberID(c)
	items, err := h.uc.List(c.UserContext(), memberID, int64(c.QueryInt("limit", defaultPageSize)), int64(c.QueryInt("offset", 0)))
	if err != nil {
		return fail(c, "list notifications", err)
	}
	if items == nil {
		items = []domain.Notification{}
	}
	return c.JSON(fiber.Map{"ok": true, "items": items})
}

// MarkRead 單筆已讀
// @Summary 單筆通知已讀
// @Tags Notifications
// @Produce json
// @Param id path string true "通知 id"
// @Success 200 {object} map[string]interface{} "ok"
// @Failure 404 {object} map[string]interface{} "找不到"
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	if err := h.uc.MarkRead(c.UserContext(), middlewares.MemberID(c), c.Params("id")); err != nil {
		return fail(c, "mark read", err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// MarkAllRead 全部已讀
// @Summary 全部通知已讀
// @Tags Notifications
// @Produce json
// @Success 200 {object} map[string]interface{} "更新筆數"
// @Router /notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	n, err := h.uc.MarkAllRead(c.UserContext(), middlewares.MemberID(c))
	if err != nil {
		return fail(c, "mark all read", err)
	}
	return c.JSON(fiber.Map{"ok": true, "updated": n})
}

// UnreadCount 未讀數
// @Summary 未讀通知數
// @Tags Notifications
// @Produce json
// @Success 200 {object} map[string]interface{} "未讀數"
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	n, err := h.uc.UnreadCount(c.UserContext(), middlewares.MemberID(c))
	if err != nil {
		return fail(c, "unread count", err)
	}
	return c.JSON(fiber.Map{"ok": true, "unread": n})
}

// RegisterPushSubscription 註冊 web push
// @Summary 註冊瀏覽器推播訂閱
// @Tags Notifications
// @Accept json
// @Produce json
// @Param request body domain.PushSubscription true "訂閱資料"
// @Success 200 {object} map[string]interface{} "ok"
// @Failure 400 {object} map[string]interface{} "格式錯誤"
// @Router /notifications/push-subscriptions [post]
func (h *NotificationHandler) RegisterPushSubscription(c *fiber.Ctx) error {
	var sub domain.PushSubscription
	if err := c.BodyParser(&sub); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "invalid request"})
	}
	if err := h.uc.RegisterPushSubscription(c.UserContext(), middlewares.MemberID(c), sub); err != nil {
		return fail(c, "register push", err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func fail(c *fiber.Ctx, op string, err error) error {
	logger.Log.Error(op, zap.String("member_id", middlewares.MemberID(c)), zap.Error(err))
	return c.Status(errprocess.HTTPStatus(err)).JSON(fiber.Map{"ok": false, "error": err.Error()})
}
