package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Corphon/ScribeNest/internal/chapters"
)

// ChapterPicker 章节关联窗口
//
// 按键：↑/↓ 移动，空格 勾选，a 切换自动关联，1-4 选择前 5/15/30/50 章，
// enter 确认，esc 取消。
type ChapterPicker struct {
	sel    *chapters.Selector
	rows   []chapters.Row
	cursor int
	offset int
	height int

	decision  chapters.Decision
	confirmed bool
	cancelled bool
	err       string
}

// NewChapterPicker 创建章节关联窗口
func NewChapterPicker(sel *chapters.Selector) ChapterPicker {
	return ChapterPicker{sel: sel, rows: sel.Rows(), height: 15}
}

// Decision 确认后的结果；未确认时 ok 为 false
func (m ChapterPicker) Decision() (chapters.Decision, bool) {
	return m.decision, m.confirmed
}

// Cancelled 是否按 esc 关闭
func (m ChapterPicker) Cancelled() bool { return m.cancelled }

func (m ChapterPicker) Init() tea.Cmd { return nil }

func (m ChapterPicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = max(msg.Height-8, 3)
		m.clampScroll()
	case tea.KeyMsg:
		m.err = ""
		switch msg.String() {
		case "up", "k":
			m.move(-1)
		case "down", "j":
			m.move(+1)
		case " ":
			if len(m.rows) > 0 {
				if err := m.sel.Toggle(m.rows[m.cursor].Index); err != nil {
					m.err = err.Error()
				}
			}
		case "a":
			m.sel.ToggleAutoAssociate()
		case "1", "2", "3", "4":
			n := chapters.Presets[msg.String()[0]-'1']
			if err := m.sel.ApplyFirstN(n); err != nil {
				m.err = err.Error()
			}
		case "enter":
			m.decision = m.sel.Confirm()
			m.confirmed = true
			return m, tea.Quit
		case "esc", "ctrl+c", "q":
			m.cancelled = true
			return m, tea.Quit
		}
		m.rows = m.sel.Rows()
	}
	return m, nil
}

func (m *ChapterPicker) move(delta int) {
	if len(m.rows) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.rows)-1)
	m.clampScroll()
}

func (m *ChapterPicker) clampScroll() {
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.height {
		m.offset = m.cursor - m.height + 1
	}
}

func (m ChapterPicker) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("关联章节") + "  " + mutedStyle.Render(m.sel.Summary()) + "\n\n")

	auto := "自动关联: 关"
	if m.sel.AutoAssociate() {
		auto = fmt.Sprintf("自动关联: 开 (最近 %d 章)", m.sel.AutoAssociateCount())
	}
	presets := make([]string, len(chapters.Presets))
	for i, n := range chapters.Presets {
		label := fmt.Sprintf("%d:前%d章", i+1, n)
		if m.sel.AutoAssociate() && m.sel.AutoAssociateCount() == n {
			label = activeTab.Render(label)
		}
		presets[i] = label
	}
	b.WriteString(auto + "   " + strings.Join(presets, " ") + "\n\n")

	if len(m.rows) == 0 {
		b.WriteString(mutedStyle.Render("暂无章节") + "\n")
	}
	end := min(m.offset+m.height, len(m.rows))
	for i := m.offset; i < end; i++ {
		r := m.rows[i]
		cursor := "  "
		label := r.Label
		if i == m.cursor {
			cursor = "> "
			label = cursorStyle.Render(label)
		}
		fmt.Fprintf(&b, "%s%s %s  %s\n", cursor, checkbox(r.Selected), label, mutedStyle.Render(r.Preview))
	}

	if m.err != "" {
		b.WriteString("\n" + errorStyle.Render(m.err) + "\n")
	}
	b.WriteString("\n" + mutedStyle.Render("空格 勾选 · a 自动关联 · 1-4 预设 · enter 确认 · esc 取消"))
	return b.String()
}
