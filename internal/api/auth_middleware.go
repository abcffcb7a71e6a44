// internal/api/auth_middleware.go
package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/ScribeNest/internal/auth"
	"github.com/Corphon/ScribeNest/internal/models"
)

const (
	userKey  = "user"
	tokenKey = "access_token"
)

// MsgLoginRequired 未登录时的提示
const MsgLoginRequired = "请先登录"

// bearerToken 读取 Authorization: Bearer，WebSocket 握手时也接受 access_token 查询参数
func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return strings.TrimSpace(c.Query("access_token"))
}

// RequireAuth 校验访问令牌并把用户放入上下文
func RequireAuth(client *auth.Client) gin.HandlerFunc {
	rh := NewResponseHelper()
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			rh.Unauthorized(c, MsgLoginRequired)
			c.Abort()
			return
		}

		user, err := client.CurrentUser(c.Request.Context(), token)
		if err != nil {
			rh.AppError(c, err)
			c.Abort()
			return
		}

		c.Set(userKey, user)
		c.Set(tokenKey, token)
		c.Next()
	}
}

// currentUser 取出 RequireAuth 放入的用户
func currentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}
