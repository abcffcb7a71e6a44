// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Corphon/ScribeNest/internal/account"
	"github.com/Corphon/ScribeNest/internal/api"
	"github.com/Corphon/ScribeNest/internal/auth"
	"github.com/Corphon/ScribeNest/internal/config"
	"github.com/Corphon/ScribeNest/internal/di"
	"github.com/Corphon/ScribeNest/internal/services"
	"github.com/Corphon/ScribeNest/internal/storage"
	"github.com/Corphon/ScribeNest/internal/utils"
)

const (
	shutdownTimeout = 30 * time.Second
	tokenIssuer     = "scribenest"
	// 仅调试模式下使用，生产环境必须配置 SCRIBE_AUTH_SECRET
	debugSecret = "scribenest-debug-secret"
)

// App 应用程序实例，持有全部服务与底层资源
type App struct {
	Config    *config.Config
	Logger    *utils.Logger
	Store     *storage.SQLStore
	Files     *storage.FileStorage
	Container *di.Container
	Router    *api.Router
	server    *http.Server
}

// New 按依赖顺序初始化存储、服务与路由
func New(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*App, error) {
	if logger == nil {
		logger = utils.GetLogger()
	}
	a := &App{Config: cfg, Logger: logger, Container: di.NewContainer()}

	store, err := storage.OpenSQLStore(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	a.Store = store

	files, err := storage.NewFileStorage(cfg.WorksDir(), logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Files = files

	secret, err := authSecret(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	if cfg.AuthSecret == "" {
		logger.Warn("未配置 SCRIBE_AUTH_SECRET，使用临时密钥", map[string]interface{}{"debug": cfg.DebugMode})
	}

	provider := auth.NewLocalProvider(store, nil, auth.LocalOptions{
		Access:                   auth.TokenConfig{Secret: secret, Expiration: cfg.TokenTTL, Issuer: tokenIssuer},
		ConfirmationTTL:          cfg.ConfirmationTTL,
		RequireEmailConfirmation: cfg.RequireEmailConfirmation,
		SiteURL:                  cfg.SiteURL,
	}, logger)

	c := a.Container
	c.Register(di.ConfigService, cfg)
	c.Register(di.Logger, logger)
	c.Register(di.Metrics, utils.NewMetrics())
	c.Register(di.Store, store)
	c.Register(di.AuthClient, auth.NewClient(provider, cfg.AllowedEmailDomains, logger))
	c.Register(di.PromptService, services.NewPromptService(store, logger))
	c.Register(di.WorkService, services.NewWorkService(storage.NewWorkStore(files), services.NewLockManager(), logger))
	c.Register(di.MembershipService, services.NewMembershipService(store, logger))

	router, err := api.SetupRouter(cfg, c)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Router = router

	logger.Info("应用初始化完成", map[string]interface{}{"services": c.Names()})
	return a, nil
}

// authSecret 返回签名密钥；调试模式下未配置时使用固定密钥，否则随机生成
func authSecret(cfg *config.Config) ([]byte, error) {
	if cfg.AuthSecret != "" {
		return []byte(cfg.AuthSecret), nil
	}
	if cfg.DebugMode {
		return []byte(debugSecret), nil
	}
	return auth.GenerateSecureKey(32)
}

// Handler 返回 HTTP 处理器
func (a *App) Handler() http.Handler {
	return a.Router.Engine
}

// Run 启动服务器，ctx 取消后优雅关闭
func (a *App) Run(ctx context.Context) error {
	a.server = &http.Server{
		Addr:              ":" + a.Config.Port,
		Handler:           a.Router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("服务器启动", map[string]interface{}{"port": a.Config.Port})
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("启动服务器失败: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.Logger.Info("正在关闭服务器...", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// WebSocket 连接不受 Shutdown 管理，需单独关闭
	a.Router.Close()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("服务器强制关闭: %w", err)
	}
	a.Logger.Info("服务器优雅关闭完成", nil)
	return nil
}

// Membership 会员服务
func (a *App) Membership() *services.MembershipService {
	s, _ := di.Resolve[*services.MembershipService](a.Container, di.MembershipService)
	return s
}

// Prompts 提示词服务
func (a *App) Prompts() *services.PromptService {
	s, _ := di.Resolve[*services.PromptService](a.Container, di.PromptService)
	return s
}

// Works 作品服务
func (a *App) Works() *services.WorkService {
	s, _ := di.Resolve[*services.WorkService](a.Container, di.WorkService)
	return s
}

// AccountSource 会员与字数查询源
func (a *App) AccountSource() account.Source {
	return a.Store
}

// Close 释放资源，可重复调用
func (a *App) Close() {
	if a.Router != nil {
		a.Router.Close()
		a.Router = nil
	}
	if a.Files != nil {
		if err := a.Files.Close(); err != nil {
			a.Logger.Warn("关闭文件存储失败", map[string]interface{}{"error": err})
		}
		a.Files = nil
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Warn("关闭数据库失败", map[string]interface{}{"error": err})
		}
		a.Store = nil
	}
}
