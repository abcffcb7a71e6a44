// internal/services/prompt_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Corphon/ScribeNest/internal/errors"
	"github.com/Corphon/ScribeNest/internal/models"
	"github.com/Corphon/ScribeNest/internal/prompts"
	"github.com/Corphon/ScribeNest/internal/storage"
	"github.com/Corphon/ScribeNest/internal/utils"
	"github.com/Corphon/ScribeNest/internal/validate"
)

// PromptStore 提示词存储
type PromptStore interface {
	PutPrompt(ctx context.Context, p *models.Prompt) error
	ListPrompts(ctx context.Context, f storage.PromptFilter) ([]models.Prompt, error)
}

// PromptService 提示词查询与创建
type PromptService struct {
	store  PromptStore
	logger *utils.Logger
	now    func() time.Time
}

// NewPromptService 创建提示词服务
func NewPromptService(store PromptStore, logger *utils.Logger) *PromptService {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &PromptService{store: store, logger: logger, now: time.Now}
}

// FetchByCategory 按分类查询：
// recommended 为系统账号的公开提示词，community 为其他用户的公开提示词，own 为调用者自己的全部提示词。
func (s *PromptService) FetchByCategory(ctx context.Context, userID string, promptType models.PromptType, category models.PromptCategory) ([]models.Prompt, error) {
	if !promptType.Valid() {
		return nil, apperrors.NewValidationError("不支持的提示词类型", nil)
	}

	filter := storage.PromptFilter{Type: promptType}
	switch category {
	case models.CategoryRecommended:
		filter.OwnerID = models.SystemOwnerID
		filter.PublicOnly = true
	case models.CategoryCommunity:
		filter.PublicOnly = true
		filter.ExcludeOwner = userID
		if userID == "" {
			filter.ExcludeOwner = models.SystemOwnerID
		}
	case models.CategoryOwn:
		if userID == "" {
			return []models.Prompt{}, nil
		}
		filter.OwnerID = userID
	default:
		return nil, apperrors.NewValidationError("不支持的提示词分类", nil)
	}

	items, err := s.store.ListPrompts(ctx, filter)
	if err != nil {
		return nil, apperrors.NewProcessingError(prompts.LoadFailedMessage, err)
	}

	// 社区分类不包含系统推荐
	if category == models.CategoryCommunity {
		out := items[:0]
		for _, p := range items {
			if p.OwnerID != models.SystemOwnerID {
				out = append(out, p)
			}
		}
		items = out
	}
	return items, nil
}

// ForUser 返回绑定调用者身份的 Fetcher
func (s *PromptService) ForUser(userID string) prompts.Fetcher {
	return prompts.FetcherFunc(func(ctx context.Context, promptType models.PromptType, category models.PromptCategory) ([]models.Prompt, error) {
		return s.FetchByCategory(ctx, userID, promptType, category)
	})
}

// CreatePromptInput 创建提示词的参数
type CreatePromptInput struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Content     string            `json:"content"`
	Type        models.PromptType `json:"type"`
	IsPublic    bool              `json:"isPublic"`
}

// Create 为用户创建提示词
func (s *PromptService) Create(ctx context.Context, ownerID string, in CreatePromptInput) (*models.Prompt, error) {
	if err := validate.Title(in.Title); err != nil {
		return nil, err
	}
	if err := validate.Description(in.Description); err != nil {
		return nil, err
	}
	if err := validate.Content(in.Content); err != nil {
		return nil, err
	}
	if !in.Type.Valid() {
		return nil, apperrors.NewValidationError("不支持的提示词类型", nil)
	}

	p := &models.Prompt{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Content:     in.Content,
		Type:        in.Type,
		OwnerID:     ownerID,
		IsPublic:    in.IsPublic,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.PutPrompt(ctx, p); err != nil {
		return nil, apperrors.NewProcessingError("保存提示词失败", err)
	}

	s.logger.Info("创建提示词", map[string]interface{}{"prompt_id": p.ID, "owner_id": ownerID, "type": string(p.Type)})
	return p, nil
}

// Seed 写入系统推荐提示词，ID 相同的条目会被覆盖
func (s *PromptService) Seed(ctx context.Context, seeds []SeedPrompt) (int, error) {
	base := s.now().UTC()
	for i, seed := range seeds {
		p, err := seed.toPrompt(base.Add(-time.Duration(i) * time.Second))
		if err != nil {
			return i, fmt.Errorf("第 %d 条提示词无效: %w", i+1, err)
		}
		if err := s.store.PutPrompt(ctx, p); err != nil {
			return i, apperrors.NewProcessingError("保存提示词失败", err)
		}
	}
	s.logger.Info("导入推荐提示词", map[string]interface{}{"count": len(seeds)})
	return len(seeds), nil
}
