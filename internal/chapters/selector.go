// Package chapters 实现章节关联窗口的选择逻辑。
//
// Selector 是一个纯状态机：宿主界面把用户操作（勾选、自动关联开关、
// 前N章预设、确认）转发给它，它不做任何 I/O。
package chapters

import (
	"errors"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/Corphon/ScribeNest/internal/models"
)

// Presets 支持的前N章预设
var Presets = []int{5, 15, 30, 50}

const previewLength = 60

var (
	ErrIndexOutOfRange = errors.New("章节下标越界")
	ErrInvalidPreset   = errors.New("不支持的关联章节数")
	ErrClosed          = errors.New("章节关联窗口已关闭")
)

// Options 打开窗口时的初始状态
type Options struct {
	Descending         bool
	Selected           []int
	AutoAssociate      bool
	AutoAssociateCount int
}

// Decision 确认后交给调用方的结果
type Decision struct {
	SelectedIndices    []int `json:"selected_chapters"`
	AutoAssociate      bool  `json:"is_auto_associate"`
	AutoAssociateCount int   `json:"auto_associate_count"`
}

// Row 按显示顺序排列的一行
type Row struct {
	Index    int    `json:"index"`
	Label    string `json:"label"`
	Preview  string `json:"preview"`
	Selected bool   `json:"selected"`
}

// Selector 章节关联状态。不支持并发访问，由单个宿主持有。
type Selector struct {
	chapters   []models.Chapter
	descending bool
	selected   map[int]struct{}
	auto       bool
	autoCount  int
	closed     bool
}

// New 创建选择器；初始选中项中的越界下标会被忽略
func New(chapters []models.Chapter, opts Options) *Selector {
	s := &Selector{
		chapters:   chapters,
		descending: opts.Descending,
		selected:   make(map[int]struct{}, len(opts.Selected)),
		auto:       opts.AutoAssociate,
		autoCount:  opts.AutoAssociateCount,
	}
	for _, i := range opts.Selected {
		if i >= 0 && i < len(chapters) {
			s.selected[i] = struct{}{}
		}
	}
	return s
}

// Len 章节总数
func (s *Selector) Len() int { return len(s.chapters) }

// Descending 是否倒序显示（最新章节在前）
func (s *Selector) Descending() bool { return s.descending }

// AutoAssociate 自动关联是否开启
func (s *Selector) AutoAssociate() bool { return s.auto }

// AutoAssociateCount 最近一次应用的预设数量，0 表示无或自定义
func (s *Selector) AutoAssociateCount() int { return s.autoCount }

// Closed 是否已确认关闭
func (s *Selector) Closed() bool { return s.closed }

// IsSelected 下标是否被选中
func (s *Selector) IsSelected(index int) bool {
	_, ok := s.selected[index]
	return ok
}

// Selected 选中的下标，升序
func (s *Selector) Selected() []int {
	out := make([]int, 0, len(s.selected))
	for i := range s.selected {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Toggle 切换单个章节的选中状态，不影响自动关联标记
func (s *Selector) Toggle(index int) error {
	if s.closed {
		return ErrClosed
	}
	if index < 0 || index >= len(s.chapters) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	if _, ok := s.selected[index]; ok {
		delete(s.selected, index)
	} else {
		s.selected[index] = struct{}{}
	}
	return nil
}

// SetAutoAssociate 设置自动关联开关。关闭时只清除预设数量，保留已选章节。
func (s *Selector) SetAutoAssociate(enabled bool) {
	if s.closed {
		return
	}
	s.auto = enabled
	if !enabled {
		s.autoCount = 0
	}
}

// ToggleAutoAssociate 翻转自动关联开关
func (s *Selector) ToggleAutoAssociate() {
	s.SetAutoAssociate(!s.auto)
}

// ApplyFirstN 应用前N章预设。
//
// 再次应用当前预设会清空选择并关闭自动关联，手动勾选的章节也一并清除。
// 章节列表为空时不做任何改变。
func (s *Selector) ApplyFirstN(n int) error {
	if s.closed {
		return ErrClosed
	}
	if !IsPreset(n) {
		return fmt.Errorf("%w: %d", ErrInvalidPreset, n)
	}
	if len(s.chapters) == 0 {
		return nil
	}

	if s.autoCount == n {
		s.selected = map[int]struct{}{}
		s.autoCount = 0
		s.auto = false
		return nil
	}

	s.autoCount = n
	s.auto = true
	s.selected = make(map[int]struct{}, n)
	for _, i := range FirstN(len(s.chapters), n, s.descending) {
		s.selected[i] = struct{}{}
	}
	return nil
}

// Confirm 返回最终结果并关闭窗口
func (s *Selector) Confirm() Decision {
	s.closed = true
	return Decision{
		SelectedIndices:    s.Selected(),
		AutoAssociate:      s.auto,
		AutoAssociateCount: s.autoCount,
	}
}

// Rows 按当前显示顺序返回章节行
func (s *Selector) Rows() []Row {
	rows := make([]Row, 0, len(s.chapters))
	for k := range s.chapters {
		i := k
		if s.descending {
			i = len(s.chapters) - 1 - k
		}
		rows = append(rows, Row{
			Index:    i,
			Label:    fmt.Sprintf("第 %d 章", i+1),
			Preview:  Preview(s.chapters[i].Content),
			Selected: s.IsSelected(i),
		})
	}
	return rows
}

// Summary 形如 "已选择: 3/12"
func (s *Selector) Summary() string {
	return fmt.Sprintf("已选择: %d/%d", len(s.selected), len(s.chapters))
}

// IsPreset n 是否为支持的预设
func IsPreset(n int) bool {
	for _, p := range Presets {
		if p == n {
			return true
		}
	}
	return false
}

// FirstN 计算用户当前看到的"前N章"对应的下标，升序。
// 倒序显示时是最新的 N 章 [max(0,L-n), L-1]，正序时是 [0, min(n,L)-1]。
func FirstN(length, n int, descending bool) []int {
	if length <= 0 || n <= 0 {
		return []int{}
	}
	start, end := 0, min(n, length)
	if descending {
		start, end = max(0, length-n), length
	}
	out := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, i)
	}
	return out
}

// Preview 正文前60个字符，超出时加省略号
func Preview(content string) string {
	if content == "" {
		return "(无内容)"
	}
	if utf8.RuneCountInString(content) <= previewLength {
		return content
	}
	runes := []rune(content)
	return string(runes[:previewLength]) + "..."
}
