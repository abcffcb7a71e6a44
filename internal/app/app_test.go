package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/Corphon/ScribeNest/internal/config"
	"github.com/Corphon/ScribeNest/internal/di"
	"github.com/Corphon/ScribeNest/internal/utils"
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		Port:               "0",
		DataDir:            filepath.Join(dir, "data"),
		LogDir:             filepath.Join(dir, "logs"),
		DatabasePath:       filepath.Join(dir, "data", "scribenest.db"),
		DebugMode:          true,
		TokenTTL:           time.Hour,
		ConfirmationTTL:    time.Hour,
		SiteURL:            "http://localhost:3000",
		RateLimitPerMinute: 100,
	}
}

func quietLogger() *utils.Logger {
	return utils.NewLogger(zapcore.AddSync(io.Discard))
}

func TestNewRegistersServices(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, cfg.EnsureDirectories())

	a, err := New(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []string{
		di.AuthClient, di.ConfigService, di.Logger, di.MembershipService, di.Metrics, di.PromptService, di.Store, di.WorkService,
	}, a.Container.Names())
	assert.NotNil(t, a.Membership())
	assert.NotNil(t, a.Prompts())
	assert.NotNil(t, a.Works())
	assert.NotNil(t, a.AccountSource())

	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	a.Close()
	a.Close()
}

func TestAuthSecret(t *testing.T) {
	cfg := &config.Config{AuthSecret: "configured"}
	secret, err := authSecret(cfg)
	require.NoError(t, err)
	assert.Equal(t, []byte("configured"), secret)

	cfg = &config.Config{DebugMode: true}
	secret, err = authSecret(cfg)
	require.NoError(t, err)
	assert.Equal(t, []byte(debugSecret), secret)

	cfg = &config.Config{}
	a, err := authSecret(cfg)
	require.NoError(t, err)
	b, err := authSecret(cfg)
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, cfg.EnsureDirectories())

	a, err := New(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run 未在取消后返回")
	}
}

func TestNewFailsOnBadDatabasePath(t *testing.T) {
	cfg := testConfig(t)
	cfg.DatabasePath = filepath.Join(cfg.DataDir, "missing", "nested", "db.sqlite")

	_, err := New(context.Background(), cfg, quietLogger())
	assert.Error(t, err)
}
