// Package prompts 实现提示词选择窗口的状态机。
//
// Browser 只维护状态；按分类拉取数据由宿主通过 Fetcher 完成，
// 结果再经 Complete 交回状态机。
package prompts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Corphon/ScribeNest/internal/models"
)

// PageSize 每次显示和追加的条数
const PageSize = 20

// LoadFailedMessage 拉取失败时展示的消息
const LoadFailedMessage = "加载提示词失败"

const (
	emptySearchMessage = "没有找到匹配的提示词"
	emptyListMessage   = "暂无提示词"
)

var (
	ErrNoSelection     = errors.New("未选择提示词")
	ErrUnknownPrompt   = errors.New("提示词不在当前列表中")
	ErrInvalidCategory = errors.New("不支持的提示词分类")
)

// Status 加载状态
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// LoadRequest 一次待执行的拉取
type LoadRequest struct {
	Seq        uint64
	PromptType models.PromptType
	Category   models.PromptCategory
}

// Browser 提示词选择状态。由单个宿主 goroutine 持有。
type Browser struct {
	promptType        models.PromptType
	initialSelectedID string

	category     models.PromptCategory
	source       []models.Prompt
	searchTerm   string
	visibleCount int
	selected     *models.Prompt

	status Status
	errMsg string
	loaded bool
	seq    uint64
}

// New 打开选择窗口，初始分类为推荐；此时尚未发起拉取
func New(promptType models.PromptType, initialSelectedID string) *Browser {
	return &Browser{
		promptType:        promptType,
		initialSelectedID: initialSelectedID,
		category:          models.CategoryRecommended,
		visibleCount:      PageSize,
		status:            StatusIdle,
	}
}

// Start 首次打开或重新打开窗口。
// 已有有效缓存或正在加载时返回 false，宿主无需拉取。
func (b *Browser) Start() (LoadRequest, bool) {
	if b.loaded || b.status == StatusLoading {
		return LoadRequest{}, false
	}
	return b.begin(), true
}

// SetCategory 切换分类并开始拉取。切换到不同分类会清除已选项。
func (b *Browser) SetCategory(category models.PromptCategory) (LoadRequest, error) {
	if !category.Valid() {
		return LoadRequest{}, fmt.Errorf("%w: %s", ErrInvalidCategory, category)
	}
	if category != b.category {
		b.category = category
		b.selected = nil
	}
	b.visibleCount = PageSize
	return b.begin(), nil
}

// Refresh 重新拉取当前分类
func (b *Browser) Refresh() LoadRequest {
	return b.begin()
}

func (b *Browser) begin() LoadRequest {
	b.seq++
	b.status = StatusLoading
	b.loaded = false
	b.errMsg = ""
	return LoadRequest{Seq: b.seq, PromptType: b.promptType, Category: b.category}
}

// Complete 应用一次拉取结果。多个结果按到达顺序应用，后到者生效。
func (b *Browser) Complete(req LoadRequest, items []models.Prompt, err error) {
	b.visibleCount = PageSize
	if err != nil {
		b.source = nil
		b.status = StatusError
		b.errMsg = LoadFailedMessage
		b.loaded = false
		return
	}

	b.source = items
	b.status = StatusReady
	b.errMsg = ""
	b.loaded = true

	if b.initialSelectedID != "" {
		if p, ok := b.find(b.initialSelectedID); ok {
			b.selected = &p
		}
	}
}

// SetSearchTerm 本地过滤，不重新拉取，已展开的页数保持不变
func (b *Browser) SetSearchTerm(term string) {
	b.searchTerm = term
}

// RequestMore 追加一页。没有更多或正在加载时返回 false。
func (b *Browser) RequestMore() bool {
	if b.status == StatusLoading || !b.HasMore() {
		return false
	}
	b.visibleCount += PageSize
	return true
}

// Filtered 按搜索词过滤后的列表，保持拉取顺序
func (b *Browser) Filtered() []models.Prompt {
	term := strings.ToLower(b.searchTerm)
	if term == "" {
		return b.source
	}
	out := make([]models.Prompt, 0, len(b.source))
	for _, p := range b.source {
		if strings.Contains(strings.ToLower(p.Title), term) ||
			strings.Contains(strings.ToLower(p.Description), term) {
			out = append(out, p)
		}
	}
	return out
}

// VisibleItems 当前可见的前 visibleCount 条
func (b *Browser) VisibleItems() []models.Prompt {
	filtered := b.Filtered()
	return filtered[:min(b.visibleCount, len(filtered))]
}

// HasMore 过滤结果是否超出可见数量
func (b *Browser) HasMore() bool {
	return len(b.Filtered()) > b.visibleCount
}

// Select 选中当前列表中的一条提示词
func (b *Browser) Select(id string) error {
	p, ok := b.find(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPrompt, id)
	}
	b.selected = &p
	return nil
}

// ConfirmSelection 返回已选中的提示词
func (b *Browser) ConfirmSelection() (models.Prompt, error) {
	if b.selected == nil {
		return models.Prompt{}, ErrNoSelection
	}
	return *b.selected, nil
}

// EmptyMessage 列表为空时的提示，非空时返回空字符串
func (b *Browser) EmptyMessage() string {
	if b.status != StatusReady || len(b.Filtered()) > 0 {
		return ""
	}
	if b.searchTerm != "" {
		return emptySearchMessage
	}
	return emptyListMessage
}

func (b *Browser) find(id string) (models.Prompt, bool) {
	for _, p := range b.source {
		if p.ID == id {
			return p, true
		}
	}
	return models.Prompt{}, false
}

func (b *Browser) PromptType() models.PromptType   { return b.promptType }
func (b *Browser) Category() models.PromptCategory { return b.category }
func (b *Browser) SearchTerm() string              { return b.searchTerm }
func (b *Browser) VisibleCount() int               { return b.visibleCount }
func (b *Browser) Status() Status                  { return b.status }
func (b *Browser) Error() string                   { return b.errMsg }
func (b *Browser) Loaded() bool                    { return b.loaded }

// SelectedID 已选中的提示词 ID，无选中时为空
func (b *Browser) SelectedID() string {
	if b.selected == nil {
		return ""
	}
	return b.selected.ID
}

// Snapshot 可序列化的当前视图
type Snapshot struct {
	PromptType   models.PromptType     `json:"promptType"`
	Category     models.PromptCategory `json:"category"`
	SearchTerm   string                `json:"searchTerm"`
	Status       Status                `json:"status"`
	Error        string                `json:"error,omitempty"`
	Items        []models.Prompt       `json:"items"`
	Total        int                   `json:"total"`
	VisibleCount int                   `json:"visibleCount"`
	HasMore      bool                  `json:"hasMore"`
	SelectedID   string                `json:"selectedId,omitempty"`
	EmptyMessage string                `json:"emptyMessage,omitempty"`
}

// Snapshot 生成当前视图
func (b *Browser) Snapshot() Snapshot {
	items := b.VisibleItems()
	if items == nil {
		items = []models.Prompt{}
	}
	return Snapshot{
		PromptType:   b.promptType,
		Category:     b.category,
		SearchTerm:   b.searchTerm,
		Status:       b.status,
		Error:        b.errMsg,
		Items:        items,
		Total:        len(b.Filtered()),
		VisibleCount: b.visibleCount,
		HasMore:      b.HasMore(),
		SelectedID:   b.SelectedID(),
		EmptyMessage: b.EmptyMessage(),
	}
}
