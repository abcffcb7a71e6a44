package prompts

import (
	"context"
	"sync"
	"time"

	"github.com/Corphon/ScribeNest/internal/models"
	"github.com/Corphon/ScribeNest/internal/utils"
)

// Fetcher 按分类拉取提示词。调用方身份由实现自行绑定。
type Fetcher interface {
	FetchByCategory(ctx context.Context, promptType models.PromptType, category models.PromptCategory) ([]models.Prompt, error)
}

// FetcherFunc 函数适配器
type FetcherFunc func(ctx context.Context, promptType models.PromptType, category models.PromptCategory) ([]models.Prompt, error)

func (f FetcherFunc) FetchByCategory(ctx context.Context, promptType models.PromptType, category models.PromptCategory) ([]models.Prompt, error) {
	return f(ctx, promptType, category)
}

// CompleteFunc 接收拉取结果
type CompleteFunc func(req LoadRequest, items []models.Prompt, err error)

// Loader 在后台执行拉取，结果通过回调交还宿主
type Loader struct {
	fetcher Fetcher
	timeout time.Duration
	logger  *utils.Logger
	wg      sync.WaitGroup
}

// NewLoader 创建加载器；timeout 为 0 时不设超时
func NewLoader(fetcher Fetcher, timeout time.Duration, logger *utils.Logger) *Loader {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &Loader{fetcher: fetcher, timeout: timeout, logger: logger}
}

// Fetch 同步执行一次拉取
func (l *Loader) Fetch(ctx context.Context, req LoadRequest) ([]models.Prompt, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	items, err := l.fetcher.FetchByCategory(ctx, req.PromptType, req.Category)
	if err != nil {
		l.logger.Error("加载提示词失败", map[string]interface{}{
			"seq":      req.Seq,
			"type":     string(req.PromptType),
			"category": string(req.Category),
			"error":    err,
		})
		return nil, err
	}
	return items, nil
}

// Load 在新的 goroutine 中拉取并调用 done
func (l *Loader) Load(ctx context.Context, req LoadRequest, done CompleteFunc) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		items, err := l.Fetch(ctx, req)
		done(req, items, err)
	}()
}

// Wait 等待所有后台拉取结束
func (l *Loader) Wait() {
	l.wg.Wait()
}
