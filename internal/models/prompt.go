// internal/models/prompt.go
package models

import "time"

// PromptType 提示词用途
type PromptType string

const (
	PromptAIWriting   PromptType = "ai_writing"
	PromptAIPolishing PromptType = "ai_polishing"
	PromptAIAnalysis  PromptType = "ai_analysis"
)

// Valid 是否为支持的提示词类型
func (t PromptType) Valid() bool {
	switch t {
	case PromptAIWriting, PromptAIPolishing, PromptAIAnalysis:
		return true
	}
	return false
}

// Label 提示词类型的显示名称
func (t PromptType) Label() string {
	switch t {
	case PromptAIWriting:
		return "AI写作"
	case PromptAIPolishing:
		return "AI润色"
	case PromptAIAnalysis:
		return "AI分析"
	default:
		return string(t)
	}
}

// PromptCategory 提示词选择窗口的分类筛选
type PromptCategory string

const (
	// 系统账号发布的公开提示词
	CategoryRecommended PromptCategory = "recommended"
	// 其他用户发布的公开提示词
	CategoryCommunity PromptCategory = "community"
	// 当前用户自己的提示词
	CategoryOwn PromptCategory = "own"
)

// Valid 是否为支持的分类
func (c PromptCategory) Valid() bool {
	switch c {
	case CategoryRecommended, CategoryCommunity, CategoryOwn:
		return true
	}
	return false
}

// SystemOwnerID 推荐提示词的作者账号
const SystemOwnerID = "system"

// Prompt 提示词
type Prompt struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Content     string     `json:"content,omitempty"`
	Type        PromptType `json:"type"`
	OwnerID     string     `json:"owner_id"`
	IsPublic    bool       `json:"is_public"`
	CreatedAt   time.Time  `json:"created_at"`
}
