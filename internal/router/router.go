package router

import (
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/route"

	"WorkoutMate/config"
	"WorkoutMate/internal/handler"
	"WorkoutMate/internal/middleware"
	"WorkoutMate/internal/service"
)

// Handlers 路由依赖，测试中可以替换
type Handlers struct {
	Communities *handler.CommunityHandler
	Reminders   *handler.ReminderHandler
	// Auth 为 nil 时使用 JWT 认证中间件
	Auth app.HandlerFunc
	// RateLimit 为 false 时不挂限流中间件
	RateLimit bool
}

func Register(h *server.Hertz) {
	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.RequestIDMiddleware())
	h.Use(middleware.CORSMiddleware(config.Cfg.CORSAllowOrigins))
	h.Use(middleware.RequestMetricsMiddleware())

	Mount(h.Engine, Handlers{
		Communities: handler.NewCommunityHandler(service.Community()),
		Reminders:   handler.NewReminderHandler(service.Reminder()),
		RateLimit:   config.Cfg.RateLimitEnabled,
	})
}

func Mount(e *route.Engine, hs Handlers) {
	e.GET("/healthz", handler.Healthz)

	auth := hs.Auth
	if auth == nil {
		auth = middleware.AuthMiddleware()
	}
	limit := func(mw func() app.HandlerFunc) []app.HandlerFunc {
		if !hs.RateLimit {
			return nil
		}
		return []app.HandlerFunc{mw()}
	}

	v1 := e.Group("/v1", auth)

	v1.GET("/home/communities", hs.Communities.Home)

	communities := v1.Group("/communities")
	{
		// search 必须在 /:id 之前注册
		communities.GET("/search", append(limit(middleware.SearchRateLimitMiddleware), hs.Communities.Search)...)
		communities.GET("/:id", hs.Communities.Detail)
		communities.GET("/:id/status", hs.Communities.Status)
		communities.GET("/:id/feed", hs.Communities.Feed)
		communities.POST("/:id/certified", hs.Communities.Certified)
		communities.GET("/:id/leaderboard", hs.Communities.Leaderboard)
		communities.GET("/:id/shame", hs.Communities.Shame)

		communities.GET("/:id/reminders", hs.Reminders.Get)
		communities.POST("/:id/reminders", append(limit(middleware.ReminderRateLimitMiddleware), hs.Reminders.Subscribe)...)
		communities.DELETE("/:id/reminders", append(limit(middleware.ReminderRateLimitMiddleware), hs.Reminders.Unsubscribe)...)
	}
}
