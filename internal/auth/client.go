package auth

import (
	"context"

	apperrors "github.com/Corphon/ScribeNest/internal/errors"
	"github.com/Corphon/ScribeNest/internal/models"
	"github.com/Corphon/ScribeNest/internal/utils"
	"github.com/Corphon/ScribeNest/internal/validate"
)

// MsgRegisterFailed 注册发生未预期错误时的通用消息
const MsgRegisterFailed = "注册失败，请稍后重试"

// RegisterResult 注册结果
type RegisterResult struct {
	Success                bool         `json:"success"`
	User                   *models.User `json:"user,omitempty"`
	NeedsEmailConfirmation bool         `json:"needsEmailConfirmation"`
	ErrorMessage           string       `json:"error,omitempty"`
}

// Client 在认证服务之前做本地校验
type Client struct {
	provider       Provider
	allowedDomains []string
	logger         *utils.Logger
}

// NewClient 创建客户端；allowedDomains 为空时使用默认邮箱域名
func NewClient(provider Provider, allowedDomains []string, logger *utils.Logger) *Client {
	if len(allowedDomains) == 0 {
		allowedDomains = validate.DefaultEmailDomains
	}
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &Client{provider: provider, allowedDomains: allowedDomains, logger: logger}
}

// AllowedDomains 允许注册的邮箱域名
func (c *Client) AllowedDomains() []string { return c.allowedDomains }

// Register 校验通过后才调用认证服务。
// 校验失败或服务拒绝时 err 为空、Success 为 false；只有未预期错误才返回 err。
func (c *Client) Register(ctx context.Context, email, password, displayName string) (RegisterResult, error) {
	if err := validate.Registration(email, password, displayName, c.allowedDomains); err != nil {
		return RegisterResult{ErrorMessage: apperrors.MessageOf(err, err.Error())}, nil
	}

	res, err := c.provider.SignUp(ctx, email, password, displayName)
	if err != nil {
		switch apperrors.TypeOf(err) {
		case apperrors.ErrorTypeProvider, apperrors.ErrorTypeValidation, apperrors.ErrorTypeConflict:
			c.logger.Warn("注册被拒绝", map[string]interface{}{"email": email, "error": err})
			return RegisterResult{ErrorMessage: apperrors.MessageOf(err, MsgRegisterFailed)}, nil
		}
		c.logger.Error("注册失败", map[string]interface{}{"email": email, "error": err})
		return RegisterResult{ErrorMessage: MsgRegisterFailed}, err
	}

	c.logger.Info("用户注册成功", map[string]interface{}{"user_id": res.User.ID})
	return RegisterResult{
		Success:                true,
		User:                   res.User,
		NeedsEmailConfirmation: res.Session == nil,
	}, nil
}

// SignIn 登录
func (c *Client) SignIn(ctx context.Context, email, password string) (*models.User, *models.Session, error) {
	user, session, err := c.provider.SignIn(ctx, email, password)
	if err != nil {
		c.logger.Warn("登录失败", map[string]interface{}{"email": email, "error": err})
		return nil, nil, err
	}
	return user, session, nil
}

// SignOut 退出登录
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if err := c.provider.SignOut(ctx, accessToken); err != nil {
		c.logger.Warn("退出登录失败", map[string]interface{}{"error": err})
		return err
	}
	return nil
}

// CurrentUser 当前登录用户
func (c *Client) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	return c.provider.CurrentUser(ctx, accessToken)
}

// ConfirmEmail 确认邮箱
func (c *Client) ConfirmEmail(ctx context.Context, confirmToken string) error {
	if err := c.provider.ConfirmEmail(ctx, confirmToken); err != nil {
		c.logger.Warn("邮箱验证失败", map[string]interface{}{"error": err})
		return err
	}
	return nil
}
