package router

import (
	"intranet_chat/internal/notification/app"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes 通知匣路由，需掛在 JWT middleware 之後
func RegisterRoutes(r fiber.Router, h *app.NotificationHandler) {
	g := r.Group("/notifications")
	g.Get("/", h.List)
	g.Get("/unread-count", h.UnreadCount)
	g.Post("/read-all", h.MarkAllRead)
	g.Post("/push-subscriptions", h.RegisterPushSubscription)
	g.Post("/:id/read", h.MarkRead)
}
