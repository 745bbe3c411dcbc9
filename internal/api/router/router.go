package router

import (
	"intranet_chat/internal/api/handlers"
	memberapp "intranet_chat/internal/member/app"
	notifapp "intranet_chat/internal/notification/app"
	notifrouter "intranet_chat/internal/notification/router"
	"intranet_chat/pkg/metrics"
	"intranet_chat/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
)

// RegisterRoutes 註冊 gateway 路由
// @title Intranet Chat API
// @version 1.0
// @description API documentation for the intranet chat gateway
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func RegisterRoutes(app *fiber.App,
	memberHandler *memberapp.MemberHandler,
	notificationHandler *notifapp.NotificationHandler,
	fnHandler *handlers.FunctionHandler,
) {
	app.Use(metrics.FiberMiddleware())
	app.Get("/metrics", metrics.Handler())
	app.Get("/swagger/*", swagger.HandlerDefault)
	app.Get("/", handlers.ConnectCheck)
	app.Post("/debug", handlers.DebugLogFlag)

	memberRoutes := app.Group("/member")
	memberRoutes.Post("/register", memberHandler.Register)
	memberRoutes.Post("/login", memberHandler.Login)

	memberRoutes.Use(middlewares.JWTMiddleware())
	memberRoutes.Post("/logout", memberHandler.Logout)
	memberRoutes.Get("/me", memberHandler.Me)
	memberRoutes.Get("/session", memberHandler.CheckSession)

	auth := app.Group("", middlewares.JWTMiddleware())
	notifrouter.RegisterRoutes(auth, notificationHandler)

	fn := auth.Group("/fn")
	fn.Post("/like", fnHandler.Like)
	fn.Post("/comment", fnHandler.Comment)
	fn.Post("/forum", fnHandler.Forum)
}
