// internal/api/handlers.go
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/ScribeNest/internal/auth"
	"github.com/Corphon/ScribeNest/internal/services"
	"github.com/Corphon/ScribeNest/internal/utils"
)

const (
	MsgRegisterSuccess = "注册成功，请验证您的邮箱"
	MsgEmailConfirmed  = "邮箱验证成功！"
	MsgBadRequestBody  = "请求格式不正确"
)

// HealthChecker 健康检查
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Handler 处理API请求
type Handler struct {
	Auth       *auth.Client
	Prompts    *services.PromptService
	Works      *services.WorkService
	Membership *services.MembershipService
	Health     HealthChecker
	Sessions   *PromptSessions
	Response   *ResponseHelper
	Logger     *utils.Logger
	Metrics    *utils.Metrics
}

// RegisterRequest 注册请求，userId 为显示名称
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	UserID   string `json:"userId"`
}

// Register 用户注册。响应体保持 {success, message, user, needsEmailConfirmation} 结构。
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": MsgBadRequestBody})
		return
	}

	res, err := h.Auth.Register(c.Request.Context(), req.Email, req.Password, req.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": MsgInternalError})
		return
	}
	if !res.Success {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": res.ErrorMessage})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":                true,
		"message":                MsgRegisterSuccess,
		"user":                   res.User,
		"needsEmailConfirmation": res.NeedsEmailConfirmation,
	})
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 邮箱密码登录
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, MsgBadRequestBody)
		return
	}

	user, session, err := h.Auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, gin.H{"user": user, "session": session}, "登录成功")
}

// Logout 退出登录
func (h *Handler) Logout(c *gin.Context) {
	if err := h.Auth.SignOut(c.Request.Context(), c.GetString(tokenKey)); err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, nil, "已退出登录")
}

// Me 当前用户
func (h *Handler) Me(c *gin.Context) {
	h.Response.Success(c, currentUser(c))
}

// Callback 邮箱验证回调
func (h *Handler) Callback(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		h.Response.BadRequest(c, auth.MsgConfirmInvalid)
		return
	}
	if err := h.Auth.ConfirmEmail(c.Request.Context(), token); err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, nil, MsgEmailConfirmed)
}

// Account 账号面板：用户信息、会员等级与字数额度
func (h *Handler) Account(c *gin.Context) {
	view := h.Membership.Panel(currentUser(c)).Open(c.Request.Context())
	h.Response.Success(c, view)
}

// HealthCheck 存活检查
func (h *Handler) HealthCheck(c *gin.Context) {
	status := gin.H{"status": "ok", "time": time.Now().Format(time.RFC3339)}
	if h.Health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.Health.Ping(ctx); err != nil {
			h.Logger.Error("数据库健康检查失败", map[string]interface{}{"error": err})
			h.Response.Error(c, http.StatusServiceUnavailable, ErrorInternalError, "数据库不可用")
			return
		}
	}
	h.Response.Success(c, status)
}

// MetricsSnapshot 进程内指标快照
func (h *Handler) MetricsSnapshot(c *gin.Context) {
	snap := h.Metrics.Snapshot()
	snap.Gauges["ws_prompt_sessions"] = int64(h.Sessions.Count())
	h.Response.Success(c, snap)
}
