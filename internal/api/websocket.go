// internal/api/websocket.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Corphon/ScribeNest/internal/models"
	"github.com/Corphon/ScribeNest/internal/prompts"
	"github.com/Corphon/ScribeNest/internal/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 32
	fetchLimit = 15 * time.Second
)

// WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ClientMessage 客户端发来的操作
type ClientMessage struct {
	// category | search | scroll | more | select | confirm | refresh
	Type         string                `json:"type"`
	Category     models.PromptCategory `json:"category,omitempty"`
	Term         string                `json:"term,omitempty"`
	ID           string                `json:"id,omitempty"`
	ScrollTop    float64               `json:"scrollTop,omitempty"`
	ClientHeight float64               `json:"clientHeight,omitempty"`
	ScrollHeight float64               `json:"scrollHeight,omitempty"`
}

type stateMessage struct {
	Type string `json:"type"`
	prompts.Snapshot
}

type selectedMessage struct {
	Type   string        `json:"type"`
	Prompt models.Prompt `json:"prompt"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// PromptSessions 统计并关闭活跃的提示词选择会话
type PromptSessions struct {
	mu       sync.Mutex
	sessions map[*promptSession]struct{}
	wg       sync.WaitGroup
	logger   *utils.Logger
}

// NewPromptSessions 创建会话管理器
func NewPromptSessions(logger *utils.Logger) *PromptSessions {
	return &PromptSessions{sessions: make(map[*promptSession]struct{}), logger: logger}
}

// Count 活跃会话数
func (m *PromptSessions) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// CloseAll 关闭全部会话并等待退出
func (m *PromptSessions) CloseAll() {
	m.mu.Lock()
	for s := range m.sessions {
		s.closeConn()
	}
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *PromptSessions) add(s *promptSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s] = struct{}{}
	m.wg.Add(1)
}

func (m *PromptSessions) remove(s *promptSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, s)
	m.wg.Done()
}

// promptSession 一个连接对应一个提示词选择窗口。
// browser 只在持有 mu 时访问；读循环与后台拉取回调都经过 mu 串行化。
type promptSession struct {
	conn    *websocket.Conn
	userID  string
	browser *prompts.Browser
	loader  *prompts.Loader
	logger  *utils.Logger
	metrics *utils.Metrics

	mu     sync.Mutex
	send   chan []byte
	state  *latestSlot
	closed int32
}

// PromptWebSocket GET /ws/prompts?type=ai_writing&selected=<id>
func (h *Handler) PromptWebSocket(c *gin.Context) {
	promptType := models.PromptType(c.DefaultQuery("type", string(models.PromptAIWriting)))
	if !promptType.Valid() {
		h.Response.BadRequest(c, "不支持的提示词类型")
		return
	}
	user := currentUser(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Warn("WebSocket 升级失败", map[string]interface{}{"error": err})
		return
	}

	s := &promptSession{
		conn:    conn,
		userID:  user.ID,
		browser: prompts.New(promptType, c.Query("selected")),
		loader:  prompts.NewLoader(h.Prompts.ForUser(user.ID), fetchLimit, h.Logger),
		logger:  h.Logger,
		metrics: h.Metrics,
		send:    make(chan []byte, sendBuffer),
		state:   newLatestSlot(),
	}

	h.Sessions.add(s)
	defer h.Sessions.remove(s)

	h.Logger.Info("提示词选择会话已连接", map[string]interface{}{"user_id": user.ID, "type": string(promptType)})
	s.run(context.WithoutCancel(c.Request.Context()))
	h.Logger.Info("提示词选择会话已断开", map[string]interface{}{"user_id": user.ID})
}

func (s *promptSession) run(ctx context.Context) {
	writerDone := make(chan struct{})
	go s.writeLoop(writerDone)

	s.mu.Lock()
	if req, ok := s.browser.Start(); ok {
		s.load(ctx, req)
	}
	s.pushState()
	s.mu.Unlock()

	s.readLoop(ctx)

	s.closeConn()
	s.loader.Wait()

	s.mu.Lock()
	close(s.send)
	s.mu.Unlock()
	<-writerDone
}

// load 需持有 mu
func (s *promptSession) load(ctx context.Context, req prompts.LoadRequest) {
	s.loader.Load(ctx, req, func(r prompts.LoadRequest, items []models.Prompt, err error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.browser.Complete(r, items, err)
		s.metrics.Inc("prompt_loads_total")
		if err != nil {
			s.metrics.Inc("prompt_load_failures_total")
		}
		s.pushState()
	})
}

func (s *promptSession) readLoop(ctx context.Context) {
	s.conn.SetReadLimit(64 * 1024)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("WebSocket 读取失败", map[string]interface{}{"user_id": s.userID, "error": err})
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.mu.Lock()
			s.enqueue(errorMessage{Type: "error", Code: ErrorBadRequest, Message: MsgBadRequestBody})
			s.mu.Unlock()
			continue
		}

		s.mu.Lock()
		s.handle(ctx, msg)
		s.mu.Unlock()
	}
}

// handle 需持有 mu
func (s *promptSession) handle(ctx context.Context, msg ClientMessage) {
	switch msg.Type {
	case "category":
		req, err := s.browser.SetCategory(msg.Category)
		if err != nil {
			s.enqueue(errorMessage{Type: "error", Code: ErrorBadRequest, Message: "不支持的提示词分类"})
			return
		}
		s.load(ctx, req)
	case "refresh":
		s.load(ctx, s.browser.Refresh())
	case "search":
		s.browser.SetSearchTerm(msg.Term)
	case "scroll":
		if !prompts.NearBottom(msg.ScrollTop, msg.ClientHeight, msg.ScrollHeight) || !s.browser.RequestMore() {
			return
		}
	case "more":
		if !s.browser.RequestMore() {
			return
		}
	case "select":
		if err := s.browser.Select(msg.ID); err != nil {
			s.enqueue(errorMessage{Type: "error", Code: ErrorNotFound, Message: "提示词不存在"})
			return
		}
	case "confirm":
		p, err := s.browser.ConfirmSelection()
		if err != nil {
			s.enqueue(errorMessage{Type: "error", Code: ErrorNoSelection, Message: "请先选择一个提示词"})
			return
		}
		s.enqueue(selectedMessage{Type: "selected", Prompt: p})
		return
	default:
		s.enqueue(errorMessage{Type: "error", Code: ErrorBadRequest, Message: "未知消息类型"})
		return
	}
	s.pushState()
}

// pushState 需持有 mu；状态快照只保留最新一份，不占用消息队列
func (s *promptSession) pushState() {
	if atomic.LoadInt32(&s.closed) == 1 {
		return
	}
	data, err := json.Marshal(stateMessage{Type: "state", Snapshot: s.browser.Snapshot()})
	if err != nil {
		s.logger.Error("序列化消息失败", map[string]interface{}{"error": err})
		return
	}
	s.state.put(data)
}

// enqueue 需持有 mu；队列满时丢弃
func (s *promptSession) enqueue(v interface{}) {
	if atomic.LoadInt32(&s.closed) == 1 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("序列化消息失败", map[string]interface{}{"error": err})
		return
	}
	select {
	case s.send <- data:
	default:
		s.logger.Warn("消息队列已满，消息被丢弃", map[string]interface{}{"user_id": s.userID})
	}
}

// writeLoop 优先写出待发送的状态快照，再处理队列中的事件消息
func (s *promptSession) writeLoop(done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	write := func(messageType int, data []byte) {
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(messageType, data); err != nil {
			s.closeConn()
		}
	}

	for {
		if data := s.state.take(); data != nil {
			write(websocket.TextMessage, data)
			continue
		}
		select {
		case <-s.state.ready:
		case data, ok := <-s.send:
			if !ok {
				return
			}
			write(websocket.TextMessage, data)
		case <-ticker.C:
			write(websocket.PingMessage, nil)
		}
	}
}

// latestSlot 保存最新一份待发送数据，新数据覆盖旧数据
type latestSlot struct {
	mu    sync.Mutex
	data  []byte
	ready chan struct{}
}

func newLatestSlot() *latestSlot {
	return &latestSlot{ready: make(chan struct{}, 1)}
}

func (l *latestSlot) put(data []byte) {
	l.mu.Lock()
	l.data = data
	l.mu.Unlock()
	select {
	case l.ready <- struct{}{}:
	default:
	}
}

func (l *latestSlot) take() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	data := l.data
	l.data = nil
	return data
}

func (s *promptSession) closeConn() {
	if atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		_ = s.conn.Close()
	}
}
