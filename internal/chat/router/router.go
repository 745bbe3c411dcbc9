package router

import (
	"context"

	"intranet_chat/internal/chat/app"
	"intranet_chat/pkg/metrics"
	"intranet_chat/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes 註冊聊天服務路由
func RegisterRoutes(r *fiber.App, chatWebsocket *app.ChatWebsocketHandler, attachments *app.AttachmentHandler) {
	r.Get("/metrics", metrics.Handler())

	r.Use(middlewares.JWTMiddleware())

	r.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		chatWebsocket.HandleConnection(context.Background(), c)
	}))

	r.Post("/chat/attachments", attachments.Upload)
}
