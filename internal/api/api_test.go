package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"golang.org/x/crypto/bcrypt"

	"github.com/Corphon/ScribeNest/internal/auth"
	"github.com/Corphon/ScribeNest/internal/config"
	"github.com/Corphon/ScribeNest/internal/di"
	"github.com/Corphon/ScribeNest/internal/models"
	"github.com/Corphon/ScribeNest/internal/services"
	"github.com/Corphon/ScribeNest/internal/storage"
	"github.com/Corphon/ScribeNest/internal/utils"
)

type testEnv struct {
	router *Router
	store  *storage.SQLStore
	server *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	ctx := context.Background()
	logger := utils.NewLogger(zapcore.AddSync(io.Discard))

	store, err := storage.OpenSQLStore(ctx, filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	files, err := storage.NewFileStorage(filepath.Join(dir, "works"), logger)
	require.NoError(t, err)

	provider := auth.NewLocalProvider(store, nil, auth.LocalOptions{
		Access:     auth.TokenConfig{Secret: []byte("test-secret"), Expiration: time.Hour, Issuer: "test"},
		BcryptCost: bcrypt.MinCost,
		SiteURL:    "http://localhost:3000",
	}, logger)

	c := di.NewContainer()
	c.Register(di.Logger, logger)
	c.Register(di.Store, store)
	c.Register(di.AuthClient, auth.NewClient(provider, nil, logger))
	c.Register(di.PromptService, services.NewPromptService(store, logger))
	c.Register(di.WorkService, services.NewWorkService(storage.NewWorkStore(files), services.NewLockManager(), logger))
	c.Register(di.MembershipService, services.NewMembershipService(store, logger))

	router, err := SetupRouter(&config.Config{DebugMode: true, RateLimitPerMinute: 1000}, c)
	require.NoError(t, err)

	env := &testEnv{router: router, store: store, server: httptest.NewServer(router.Engine)}
	t.Cleanup(func() {
		router.Close()
		env.server.Close()
		_ = files.Close()
		_ = store.Close()
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.Engine.ServeHTTP(w, req)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

// signUp 注册并登录，返回访问令牌与用户ID
func (e *testEnv) signUp(t *testing.T, email string) (string, string) {
	t.Helper()
	code, body := e.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"email": email, "password": "secret123", "userId": "writer"})
	require.Equal(t, http.StatusOK, code, body)

	code, body = e.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": "secret123"})
	require.Equal(t, http.StatusOK, code, body)
	data := body["data"].(map[string]interface{})
	session := data["session"].(map[string]interface{})
	user := data["user"].(map[string]interface{})
	return session["access_token"].(string), user["id"].(string)
}

func TestRegisterResponses(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"email": "a@qq.com", "password": "secret123", "userId": "作者"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, MsgRegisterSuccess, body["message"])
	assert.Equal(t, false, body["needsEmailConfirmation"])
	assert.NotNil(t, body["user"])

	code, body = env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"email": "a@qq.com", "password": "secret123", "userId": "作者"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, auth.MsgEmailTaken, body["message"])

	code, body = env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"email": "b@example.com", "password": "secret123", "userId": "作者"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "只支持 @qq.com、@163.com 和 @gmail.com 邮箱注册", body["message"])

	code, body = env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"email": "c@qq.com", "password": "123", "userId": "作者"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "密码长度至少为6个字符", body["message"])
}

func TestRegisterBadBody(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader("{"))
	w := httptest.NewRecorder()
	env.router.Engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), MsgBadRequestBody)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodGet, "/api/account", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, false, body["success"])

	code, _ = env.do(t, http.MethodGet, "/api/prompts", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signUp(t, "out@gmail.com")

	code, _ := env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = env.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestAccountPanel(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.signUp(t, "vip@163.com")

	until := time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, env.store.PutMembership(context.Background(), &models.Membership{
		UserID: userID, Level: models.MemberGold, SubscriptionEndDate: &until,
		RemainingMonthlyQuota: 1000000, RemainingDailyUsage: 800, DailyUsageLimit: 1000,
	}))
	require.NoError(t, env.store.PutWordQuota(context.Background(), &models.WordQuota{
		UserID: userID, RemainingQuota: 123456, RemainingDailyUsage: 10, DailyUsageLimit: 50,
	}))

	code, body := env.do(t, http.MethodGet, "/api/account", token, nil)
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "writer", data["displayName"])
	assert.Equal(t, userID, data["uid"])
	membership := data["membership"].(map[string]interface{})
	assert.Equal(t, "黄金会员", membership["label"])
	assert.Equal(t, "2030-01-02", membership["expiresAt"])
	assert.Equal(t, "1,000,000", membership["monthlyQuota"])
	assert.Equal(t, "800/1000", membership["dailyUsage"])
	quota := data["wordQuota"].(map[string]interface{})
	assert.Equal(t, "123,456", quota["remaining"])
	assert.Equal(t, "10/50", quota["dailyUsage"])
}

func TestPromptListing(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signUp(t, "p@qq.com")
	ctx := context.Background()

	for i := 0; i < 45; i++ {
		require.NoError(t, env.store.PutPrompt(ctx, &models.Prompt{
			ID: "sys-" + string(rune('a'+i%26)) + string(rune('a'+i/26)), Title: "推荐", Type: models.PromptAIWriting,
			OwnerID: models.SystemOwnerID, IsPublic: true, CreatedAt: time.Now().Add(-time.Duration(i) * time.Minute),
		}))
	}

	code, body := env.do(t, http.MethodGet, "/api/prompts?type=ai_writing", token, nil)
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]interface{})
	assert.Len(t, data["items"], 20)
	assert.EqualValues(t, 45, data["total"])
	assert.Equal(t, true, data["hasMore"])

	code, body = env.do(t, http.MethodGet, "/api/prompts?type=ai_writing&limit=45", token, nil)
	require.Equal(t, http.StatusOK, code)
	data = body["data"].(map[string]interface{})
	assert.Len(t, data["items"], 45)
	assert.Equal(t, false, data["hasMore"])

	code, body = env.do(t, http.MethodGet, "/api/prompts?type=ai_writing&category=own", token, nil)
	require.Equal(t, http.StatusOK, code)
	data = body["data"].(map[string]interface{})
	assert.Empty(t, data["items"])
	assert.Equal(t, "暂无提示词", data["emptyMessage"])

	code, _ = env.do(t, http.MethodGet, "/api/prompts?category=bogus", token, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCreatePrompt(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.signUp(t, "own@qq.com")

	code, body := env.do(t, http.MethodPost, "/api/prompts", token, gin.H{"title": "", "content": "x", "type": "ai_writing"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "标题不能为空", body["error"].(map[string]interface{})["message"])

	code, body = env.do(t, http.MethodPost, "/api/prompts", token, gin.H{"title": "我的", "content": "写一段", "type": "ai_writing"})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, userID, body["data"].(map[string]interface{})["owner_id"])

	code, body = env.do(t, http.MethodGet, "/api/prompts?category=own&q=%E6%88%91%E7%9A%84", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"].(map[string]interface{})["items"], 1)
}

func TestWorkAssociationFlow(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signUp(t, "w@qq.com")

	code, body := env.do(t, http.MethodPost, "/api/works", token, gin.H{"title": "长篇", "isDescending": true})
	require.Equal(t, http.StatusCreated, code, body)
	workID := body["data"].(map[string]interface{})["id"].(string)

	for i := 0; i < 20; i++ {
		code, _ = env.do(t, http.MethodPost, "/api/works/"+workID+"/chapters", token, gin.H{"title": "章", "content": "正文"})
		require.Equal(t, http.StatusCreated, code)
	}

	code, body = env.do(t, http.MethodPost, "/api/works/"+workID+"/association", token, gin.H{
		"ops": []gin.H{{"op": "preset", "n": 5}},
	})
	require.Equal(t, http.StatusOK, code, body)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{15.0, 16.0, 17.0, 18.0, 19.0}, data["selected_chapters"])
	assert.Equal(t, true, data["is_auto_associate"])
	assert.EqualValues(t, 5, data["auto_associate_count"])

	code, body = env.do(t, http.MethodGet, "/api/works/"+workID, token, nil)
	require.Equal(t, http.StatusOK, code)
	data = body["data"].(map[string]interface{})
	assert.Equal(t, "已选择: 5/20", data["summary"])
	rows := data["rows"].([]interface{})
	require.Len(t, rows, 20)
	assert.Equal(t, "第 20 章", rows[0].(map[string]interface{})["label"])

	code, _ = env.do(t, http.MethodPost, "/api/works/"+workID+"/association", token, gin.H{
		"ops": []gin.H{{"op": "preset", "n": 7}},
	})
	assert.Equal(t, http.StatusBadRequest, code)

	other, _ := env.signUp(t, "x@qq.com")
	code, _ = env.do(t, http.MethodGet, "/api/works/"+workID, other, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)
	code, body := env.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signUp(t, "m@qq.com")

	code, _ := env.do(t, http.MethodGet, "/api/prompts", token, nil)
	require.Equal(t, http.StatusOK, code)

	code, body := env.do(t, http.MethodGet, "/api/metrics", token, nil)
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]interface{})
	counters := data["counters"].(map[string]interface{})
	assert.EqualValues(t, 1, counters["prompt_loads_total"])
	assert.GreaterOrEqual(t, counters["http_requests_total"].(float64), 3.0)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()

	ok, remaining, _ := rl.Allow("ip")
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)
	ok, _, _ = rl.Allow("ip")
	assert.True(t, ok)
	ok, _, _ = rl.Allow("ip")
	assert.False(t, ok)
	ok, _, _ = rl.Allow("other")
	assert.True(t, ok)
}

func readState(t *testing.T, conn *websocket.Conn, until func(map[string]interface{}) bool) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg map[string]interface{}
		require.NoError(t, conn.ReadJSON(&msg))
		if until(msg) {
			return msg
		}
	}
}

func TestPromptWebSocketSession(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signUp(t, "ws@qq.com")
	ctx := context.Background()
	require.NoError(t, env.store.PutPrompt(ctx, &models.Prompt{
		ID: "rec-1", Title: "推荐一", Type: models.PromptAIWriting, OwnerID: models.SystemOwnerID, IsPublic: true, CreatedAt: time.Now(),
	}))

	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/prompts?type=ai_writing&access_token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	ready := func(m map[string]interface{}) bool { return m["type"] == "state" && m["status"] == "ready" }
	state := readState(t, conn, ready)
	assert.EqualValues(t, 1, state["total"])

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "confirm"}))
	msg := readState(t, conn, func(m map[string]interface{}) bool { return m["type"] == "error" })
	assert.Equal(t, ErrorNoSelection, msg["code"])

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "select", ID: "rec-1"}))
	state = readState(t, conn, func(m map[string]interface{}) bool { return m["type"] == "state" && m["selectedId"] == "rec-1" })
	assert.Equal(t, "rec-1", state["selectedId"])

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "confirm"}))
	msg = readState(t, conn, func(m map[string]interface{}) bool { return m["type"] == "selected" })
	assert.Equal(t, "rec-1", msg["prompt"].(map[string]interface{})["id"])

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "category", Category: models.CategoryOwn}))
	state = readState(t, conn, func(m map[string]interface{}) bool { return ready(m) && m["category"] == "own" })
	assert.Equal(t, "暂无提示词", state["emptyMessage"])
	assert.Empty(t, state["selectedId"])

	require.Eventually(t, func() bool { return env.router.Handler.Sessions.Count() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return env.router.Handler.Sessions.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}
