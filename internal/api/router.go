// internal/api/router.go
package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/ScribeNest/internal/auth"
	"github.com/Corphon/ScribeNest/internal/config"
	"github.com/Corphon/ScribeNest/internal/di"
	"github.com/Corphon/ScribeNest/internal/services"
	"github.com/Corphon/ScribeNest/internal/utils"
)

// Router HTTP 路由及其后台资源
type Router struct {
	Engine  *gin.Engine
	Handler *Handler
	limiter *RateLimiter
}

// SetupRouter 从容器取出服务并配置路由
func SetupRouter(cfg *config.Config, container *di.Container) (*Router, error) {
	logger, err := di.Resolve[*utils.Logger](container, di.Logger)
	if err != nil {
		return nil, err
	}
	authClient, err := di.Resolve[*auth.Client](container, di.AuthClient)
	if err != nil {
		return nil, fmt.Errorf("认证服务未正确初始化: %w", err)
	}
	promptService, err := di.Resolve[*services.PromptService](container, di.PromptService)
	if err != nil {
		return nil, fmt.Errorf("提示词服务未正确初始化: %w", err)
	}
	workService, err := di.Resolve[*services.WorkService](container, di.WorkService)
	if err != nil {
		return nil, fmt.Errorf("作品服务未正确初始化: %w", err)
	}
	membershipService, err := di.Resolve[*services.MembershipService](container, di.MembershipService)
	if err != nil {
		return nil, fmt.Errorf("会员服务未正确初始化: %w", err)
	}
	health, _ := container.Get(di.Store).(HealthChecker)
	metrics, ok := container.Get(di.Metrics).(*utils.Metrics)
	if !ok {
		metrics = utils.NewMetrics()
	}

	handler := &Handler{
		Auth:       authClient,
		Prompts:    promptService,
		Works:      workService,
		Membership: membershipService,
		Health:     health,
		Sessions:   NewPromptSessions(logger),
		Response:   NewResponseHelper(),
		Logger:     logger,
		Metrics:    metrics,
	}

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggerMiddleware(logger), MetricsMiddleware(metrics), CORSMiddleware())

	limit := cfg.RateLimitPerMinute
	if limit <= 0 {
		limit = 100
	}
	limiter := NewRateLimiter(limit, time.Minute)
	requireAuth := RequireAuth(authClient)

	// WebSocket 支持
	r.GET("/ws/prompts", requireAuth, handler.PromptWebSocket)

	// ===============================
	// API路由组
	// ===============================
	api := r.Group("/api")
	api.Use(limiter.Middleware(ByIP))
	{
		api.GET("/health", handler.HealthCheck)
		api.GET("/metrics", requireAuth, handler.MetricsSnapshot)

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", handler.Register)
			authGroup.POST("/login", handler.Login)
			authGroup.GET("/callback", handler.Callback)
			authGroup.POST("/logout", requireAuth, handler.Logout)
			authGroup.GET("/me", requireAuth, handler.Me)
		}

		api.GET("/account", requireAuth, handler.Account)

		promptsGroup := api.Group("/prompts", requireAuth)
		{
			promptsGroup.GET("", handler.ListPrompts)
			promptsGroup.POST("", handler.CreatePrompt)
		}

		worksGroup := api.Group("/works", requireAuth)
		{
			worksGroup.GET("", handler.ListWorks)
			worksGroup.POST("", handler.CreateWork)
			worksGroup.GET("/:id", handler.GetWork)
			worksGroup.POST("/:id/chapters", handler.AddChapter)
			worksGroup.POST("/:id/association", handler.Associate)
		}
	}

	return &Router{Engine: r, Handler: handler, limiter: limiter}, nil
}

// Close 关闭 WebSocket 会话并停止限流清理
func (r *Router) Close() {
	r.Handler.Sessions.CloseAll()
	r.limiter.Stop()
}
