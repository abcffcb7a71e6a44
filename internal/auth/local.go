package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/Corphon/ScribeNest/internal/errors"
	"github.com/Corphon/ScribeNest/internal/models"
	"github.com/Corphon/ScribeNest/internal/storage"
	"github.com/Corphon/ScribeNest/internal/utils"
)

const (
	MsgEmailTaken         = "该邮箱已被注册"
	MsgInvalidCredentials = "邮箱或密码错误"
	MsgEmailNotConfirmed  = "邮箱尚未验证，请先完成邮箱验证"
	MsgConfirmInvalid     = "验证链接无效或已过期"
	MsgSessionInvalid     = "登录已失效，请重新登录"
)

// UserStore LocalProvider 依赖的存储，由 storage.SQLStore 实现
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id string) error
	UserByID(ctx context.Context, id string) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	TouchLastLogin(ctx context.Context, userID string, at time.Time) error
	PutConfirmation(ctx context.Context, tokenID, userID string, expiresAt time.Time) error
	ConsumeConfirmation(ctx context.Context, tokenID string, now time.Time) (string, error)
	RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

// ConfirmationSender 投递邮箱验证链接
type ConfirmationSender interface {
	SendConfirmation(ctx context.Context, user *models.User, link string) error
}

// LogSender 将验证链接写入日志，用于本地部署
type LogSender struct {
	Logger *utils.Logger
}

func (s LogSender) SendConfirmation(_ context.Context, user *models.User, link string) error {
	s.Logger.Info("邮箱验证链接", map[string]interface{}{"user_id": user.ID, "email": user.Email, "link": link})
	return nil
}

// LocalOptions LocalProvider 配置
type LocalOptions struct {
	Access                   TokenConfig
	ConfirmationTTL          time.Duration
	RequireEmailConfirmation bool
	// 验证链接的站点地址，例如 http://localhost:3000
	SiteURL    string
	BcryptCost int
}

// LocalProvider 基于本地存储的认证服务
type LocalProvider struct {
	store  UserStore
	sender ConfirmationSender
	opts   LocalOptions
	logger *utils.Logger
	now    func() time.Time
}

// NewLocalProvider 创建本地认证服务；sender 为空时使用 LogSender
func NewLocalProvider(store UserStore, sender ConfirmationSender, opts LocalOptions, logger *utils.Logger) *LocalProvider {
	if logger == nil {
		logger = utils.GetLogger()
	}
	if sender == nil {
		sender = LogSender{Logger: logger}
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.ConfirmationTTL <= 0 {
		opts.ConfirmationTTL = 24 * time.Hour
	}
	return &LocalProvider{store: store, sender: sender, opts: opts, logger: logger, now: time.Now}
}

func (p *LocalProvider) confirmConfig() *TokenConfig {
	return &TokenConfig{Secret: p.opts.Access.Secret, Expiration: p.opts.ConfirmationTTL, Issuer: p.opts.Access.Issuer}
}

// SignUp 注册新用户
func (p *LocalProvider) SignUp(ctx context.Context, email, password, displayName string) (*SignUpResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.opts.BcryptCost)
	if err != nil {
		return nil, apperrors.NewProcessingError("密码加密失败", err)
	}

	user := &models.User{
		ID:             uuid.NewString(),
		Email:          email,
		DisplayName:    strings.TrimSpace(displayName),
		PasswordHash:   string(hash),
		EmailConfirmed: !p.opts.RequireEmailConfirmation,
		CreatedAt:      p.now().UTC(),
	}
	if err := p.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apperrors.NewConflictError(MsgEmailTaken, err)
		}
		return nil, apperrors.NewProcessingError("创建用户失败", err)
	}

	if p.opts.RequireEmailConfirmation {
		if err := p.sendConfirmation(ctx, user); err != nil {
			// 验证邮件未送达时撤回账号，允许用户用同一邮箱重新注册
			if derr := p.store.DeleteUser(ctx, user.ID); derr != nil {
				p.logger.Warn("撤回未验证用户失败", map[string]interface{}{"user_id": user.ID, "error": derr.Error()})
			}
			return nil, apperrors.WrapError(err, "注册失败", apperrors.ErrorTypeError)
		}
		return &SignUpResult{User: user}, nil
	}

	session, err := p.issueSession(user)
	if err != nil {
		return nil, err
	}
	return &SignUpResult{User: user, Session: session}, nil
}

func (p *LocalProvider) sendConfirmation(ctx context.Context, user *models.User) error {
	token, claims, err := GenerateToken(user.ID, PurposeConfirm, p.confirmConfig())
	if err != nil {
		return apperrors.NewProcessingError("生成验证令牌失败", err)
	}
	if err := p.store.PutConfirmation(ctx, claims.ID, user.ID, claims.ExpiresAt.Time); err != nil {
		return apperrors.NewProcessingError("保存验证令牌失败", err)
	}

	link := strings.TrimRight(p.opts.SiteURL, "/") + "/api/auth/callback?token=" + url.QueryEscape(token)
	if err := p.sender.SendConfirmation(ctx, user, link); err != nil {
		return apperrors.NewProviderError("发送验证邮件失败", err)
	}
	return nil
}

func (p *LocalProvider) issueSession(user *models.User) (*models.Session, error) {
	token, claims, err := GenerateToken(user.ID, PurposeAccess, &p.opts.Access)
	if err != nil {
		return nil, apperrors.NewProcessingError("生成访问令牌失败", err)
	}
	return &models.Session{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   claims.ExpiresAt.Time,
		User:        user,
	}, nil
}

// SignIn 邮箱密码登录
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*models.User, *models.Session, error) {
	user, err := p.store.UserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, apperrors.NewProviderError(MsgInvalidCredentials, nil)
	}
	if err != nil {
		return nil, nil, apperrors.NewProcessingError("查询用户失败", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, apperrors.NewProviderError(MsgInvalidCredentials, nil)
	}
	if p.opts.RequireEmailConfirmation && !user.EmailConfirmed {
		return nil, nil, apperrors.NewProviderError(MsgEmailNotConfirmed, nil)
	}

	now := p.now().UTC()
	if err := p.store.TouchLastLogin(ctx, user.ID, now); err != nil {
		p.logger.Warn("更新登录时间失败", map[string]interface{}{"user_id": user.ID, "error": err})
	} else {
		user.LastLogin = now
	}

	session, err := p.issueSession(user)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

// SignOut 吊销访问令牌
func (p *LocalProvider) SignOut(ctx context.Context, accessToken string) error {
	claims, err := ParseToken(accessToken, PurposeAccess, &p.opts.Access)
	if err != nil {
		return apperrors.NewUnauthorizedError(MsgSessionInvalid, err)
	}
	if err := p.store.RevokeToken(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return apperrors.NewProcessingError("退出登录失败", err)
	}
	return nil
}

// CurrentUser 根据访问令牌返回用户
func (p *LocalProvider) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := ParseToken(accessToken, PurposeAccess, &p.opts.Access)
	if err != nil {
		return nil, apperrors.NewUnauthorizedError(MsgSessionInvalid, err)
	}
	revoked, err := p.store.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return nil, apperrors.NewProcessingError("查询会话失败", err)
	}
	if revoked {
		return nil, apperrors.NewUnauthorizedError(MsgSessionInvalid, nil)
	}

	user, err := p.store.UserByID(ctx, claims.Subject)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperrors.NewUnauthorizedError(MsgSessionInvalid, err)
	}
	if err != nil {
		return nil, apperrors.NewProcessingError("查询用户失败", err)
	}
	return user, nil
}

// ConfirmEmail 校验验证令牌并确认邮箱，令牌只能使用一次
func (p *LocalProvider) ConfirmEmail(ctx context.Context, confirmToken string) error {
	claims, err := ParseToken(confirmToken, PurposeConfirm, p.confirmConfig())
	if err != nil {
		return apperrors.NewProviderError(MsgConfirmInvalid, err)
	}
	userID, err := p.store.ConsumeConfirmation(ctx, claims.ID, p.now())
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.NewProviderError(MsgConfirmInvalid, err)
	}
	if err != nil {
		return apperrors.NewProcessingError("确认邮箱失败", err)
	}
	if userID != claims.Subject {
		return apperrors.NewProviderError(MsgConfirmInvalid, nil)
	}
	return nil
}
