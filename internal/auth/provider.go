package auth

import (
	"context"

	"github.com/Corphon/ScribeNest/internal/models"
)

// SignUpResult 注册结果；需要邮箱验证时 Session 为空
type SignUpResult struct {
	User    *models.User
	Session *models.Session
}

// Provider 认证服务。
// 业务拒绝（邮箱已注册、密码错误等）以 ErrorTypeProvider 类型的 AppError 返回，
// 消息可直接展示给用户。
type Provider interface {
	SignUp(ctx context.Context, email, password, displayName string) (*SignUpResult, error)
	SignIn(ctx context.Context, email, password string) (*models.User, *models.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	CurrentUser(ctx context.Context, accessToken string) (*models.User, error)
	ConfirmEmail(ctx context.Context, confirmToken string) error
}
