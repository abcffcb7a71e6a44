package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/Corphon/ScribeNest/internal/models"
	"github.com/Corphon/ScribeNest/internal/prompts"
)

// 每行折算的滚动高度，翻页判定与网页端共用 prompts.NearBottom
const lineHeight = 40.0

var categories = []struct {
	value models.PromptCategory
	label string
}{
	{models.CategoryRecommended, "推荐"},
	{models.CategoryCommunity, "社区"},
	{models.CategoryOwn, "我的"},
}

// promptsLoadedMsg 后台拉取完成
type promptsLoadedMsg struct {
	req   prompts.LoadRequest
	items []models.Prompt
	err   error
}

// PromptPicker 提示词选择窗口
type PromptPicker struct {
	ctx     context.Context
	browser *prompts.Browser
	loader  *prompts.Loader

	search    textinput.Model
	searching bool
	spinner   spinner.Model
	preview   viewport.Model
	renderer  *glamour.TermRenderer

	cursor int
	offset int
	height int
	width  int

	chosen    *models.Prompt
	cancelled bool
	notice    string
}

// NewPromptPicker 创建提示词选择窗口。glamourStyle 为空时使用 dark。
func NewPromptPicker(ctx context.Context, browser *prompts.Browser, loader *prompts.Loader, glamourStyle string) PromptPicker {
	ti := textinput.New()
	ti.Placeholder = "搜索标题或描述"
	ti.Prompt = "/ "
	ti.CharLimit = 100

	if glamourStyle == "" {
		glamourStyle = "dark"
	}
	renderer, err := glamour.NewTermRenderer(glamour.WithStandardStyle(glamourStyle), glamour.WithWordWrap(60))
	if err != nil {
		renderer = nil
	}

	return PromptPicker{
		ctx:      ctx,
		browser:  browser,
		loader:   loader,
		search:   ti,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		preview:  viewport.New(64, 12),
		renderer: renderer,
		height:   12,
		width:    100,
	}
}

// Chosen 确认选择的提示词；取消或未确认时为 nil
func (m PromptPicker) Chosen() *models.Prompt { return m.chosen }

// Cancelled 是否按 esc 关闭
func (m PromptPicker) Cancelled() bool { return m.cancelled }

// Browser 底层状态
func (m PromptPicker) Browser() *prompts.Browser { return m.browser }

func (m PromptPicker) fetch(req prompts.LoadRequest) tea.Cmd {
	ctx, loader := m.ctx, m.loader
	return func() tea.Msg {
		items, err := loader.Fetch(ctx, req)
		return promptsLoadedMsg{req: req, items: items, err: err}
	}
}

func (m PromptPicker) Init() tea.Cmd {
	if req, ok := m.browser.Start(); ok {
		return tea.Batch(m.fetch(req), m.spinner.Tick)
	}
	return nil
}

func (m PromptPicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = max(msg.Height-10, 3)
		m.preview.Width = max(msg.Width/2-4, 20)
		m.preview.Height = m.height
		m.clampScroll()
		m.refreshPreview()
		return m, nil

	case promptsLoadedMsg:
		m.browser.Complete(msg.req, msg.items, msg.err)
		m.cursor, m.offset = 0, 0
		m.refreshPreview()
		return m, nil

	case spinner.TickMsg:
		if m.browser.Status() != prompts.StatusLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m PromptPicker) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.searching = false
		m.search.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != m.browser.SearchTerm() {
		m.browser.SetSearchTerm(m.search.Value())
		m.cursor, m.offset = 0, 0
		m.refreshPreview()
	}
	return m, cmd
}

func (m PromptPicker) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""
	switch msg.String() {
	case "ctrl+c", "esc", "q":
		m.cancelled = true
		return m, tea.Quit
	case "/":
		m.searching = true
		return m, m.search.Focus()
	case "tab", "shift+tab":
		step := 1
		if msg.String() == "shift+tab" {
			step = len(categories) - 1
		}
		return m.switchCategory(categories[(m.categoryIndex()+step)%len(categories)].value)
	case "r":
		req := m.browser.Refresh()
		return m, tea.Batch(m.fetch(req), m.spinner.Tick)
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(+1)
	case "pgdown":
		m.preview.HalfViewDown()
	case "pgup":
		m.preview.HalfViewUp()
	case " ":
		if p, ok := m.current(); ok {
			_ = m.browser.Select(p.ID)
		}
	case "enter":
		if p, ok := m.current(); ok {
			_ = m.browser.Select(p.ID)
		}
		p, err := m.browser.ConfirmSelection()
		if err != nil {
			m.notice = "请先选择一个提示词"
			return m, nil
		}
		m.chosen = &p
		return m, tea.Quit
	}
	return m, nil
}

func (m PromptPicker) switchCategory(c models.PromptCategory) (tea.Model, tea.Cmd) {
	req, err := m.browser.SetCategory(c)
	if err != nil {
		m.notice = err.Error()
		return m, nil
	}
	m.cursor, m.offset = 0, 0
	m.refreshPreview()
	return m, tea.Batch(m.fetch(req), m.spinner.Tick)
}

func (m PromptPicker) categoryIndex() int {
	for i, c := range categories {
		if c.value == m.browser.Category() {
			return i
		}
	}
	return 0
}

func (m PromptPicker) current() (models.Prompt, bool) {
	items := m.browser.VisibleItems()
	if m.cursor < 0 || m.cursor >= len(items) {
		return models.Prompt{}, false
	}
	return items[m.cursor], true
}

func (m *PromptPicker) move(delta int) {
	n := len(m.browser.VisibleItems())
	if n == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), n-1)
	m.clampScroll()
	if prompts.NearBottom(float64(m.offset)*lineHeight, float64(m.height)*lineHeight, float64(n)*lineHeight) {
		m.browser.RequestMore()
	}
	m.refreshPreview()
}

func (m *PromptPicker) clampScroll() {
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.height {
		m.offset = m.cursor - m.height + 1
	}
}

func (m *PromptPicker) refreshPreview() {
	p, ok := m.current()
	if !ok {
		m.preview.SetContent("")
		return
	}
	md := fmt.Sprintf("# %s\n\n%s\n\n---\n\n%s", p.Title, p.Description, p.Content)
	if m.renderer != nil {
		if out, err := m.renderer.Render(md); err == nil {
			m.preview.SetContent(out)
			m.preview.GotoTop()
			return
		}
	}
	m.preview.SetContent(md)
	m.preview.GotoTop()
}

func (m PromptPicker) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("选择提示词 · "+m.browser.PromptType().Label()) + "\n")

	tabs := make([]string, len(categories))
	for i, c := range categories {
		if c.value == m.browser.Category() {
			tabs[i] = activeTab.Render(c.label)
		} else {
			tabs[i] = inactiveTab.Render(c.label)
		}
	}
	b.WriteString(strings.Join(tabs, "  ") + "\n")
	if m.searching || m.browser.SearchTerm() != "" {
		b.WriteString(m.search.View() + "\n")
	}
	b.WriteString("\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.listView(), "  ", paneStyle.Render(m.preview.View())))

	if m.notice != "" {
		b.WriteString("\n" + errorStyle.Render(m.notice))
	}
	b.WriteString("\n" + mutedStyle.Render("tab 分类 · / 搜索 · 空格 选中 · enter 确认 · r 刷新 · esc 取消"))
	return b.String()
}

func (m PromptPicker) listView() string {
	switch m.browser.Status() {
	case prompts.StatusLoading:
		return m.spinner.View() + " 加载中..."
	case prompts.StatusError:
		return errorStyle.Render(m.browser.Error()) + "\n" + mutedStyle.Render("按 r 重试")
	}
	if msg := m.browser.EmptyMessage(); msg != "" {
		return mutedStyle.Render(msg)
	}

	items := m.browser.VisibleItems()
	var b strings.Builder
	end := min(m.offset+m.height, len(items))
	for i := m.offset; i < end; i++ {
		p := items[i]
		cursor := "  "
		title := p.Title
		if i == m.cursor {
			cursor = "> "
			title = cursorStyle.Render(title)
		}
		fmt.Fprintf(&b, "%s%s %s\n", cursor, checkbox(p.ID == m.browser.SelectedID()), title)
	}
	shown := fmt.Sprintf("%d/%d", len(items), len(m.browser.Filtered()))
	if m.browser.HasMore() {
		shown += " ↓"
	}
	b.WriteString(mutedStyle.Render(shown))
	return b.String()
}
