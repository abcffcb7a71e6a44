package storage

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zapcore"

	"github.com/Corphon/ScribeNest/internal/models"
	"github.com/Corphon/ScribeNest/internal/utils"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// database/sql 连接池的后台 goroutine
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

func openStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := OpenSQLStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newUser(id, email string) *models.User {
	return &models.User{
		ID:           id,
		Email:        email,
		DisplayName:  "写手" + id,
		PasswordHash: "hash",
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	s, err := OpenSQLStore(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenSQLStore(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestUpSection(t *testing.T) {
	got := upSection("-- +migrate Up\nCREATE TABLE a(x);\n-- +migrate Down\nDROP TABLE a;")
	assert.Equal(t, "\nCREATE TABLE a(x);\n", got)
	assert.Equal(t, "SELECT 1;", upSection("SELECT 1;"))
}

func TestUserRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	require.NoError(t, s.CreateUser(ctx, newUser("u1", "Writer@QQ.com")))
	assert.ErrorIs(t, s.CreateUser(ctx, newUser("u2", "writer@qq.com")), ErrDuplicate)

	u, err := s.UserByEmail(ctx, "WRITER@qq.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "writer@qq.com", u.Email)
	assert.Equal(t, "hash", u.PasswordHash)
	assert.True(t, u.LastLogin.IsZero())

	at := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.TouchLastLogin(ctx, "u1", at))
	u, err = s.UserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, at, u.LastLogin)

	_, err = s.UserByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConfirmationLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	require.NoError(t, s.CreateUser(ctx, newUser("u1", "a@qq.com")))

	now := time.Now()
	require.NoError(t, s.PutConfirmation(ctx, "tok", "u1", now.Add(time.Hour)))
	require.NoError(t, s.PutConfirmation(ctx, "old", "u1", now.Add(-time.Minute)))

	_, err := s.ConsumeConfirmation(ctx, "old", now)
	assert.ErrorIs(t, err, ErrNotFound)

	userID, err := s.ConsumeConfirmation(ctx, "tok", now)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)

	u, err := s.UserByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, u.EmailConfirmed)

	_, err = s.ConsumeConfirmation(ctx, "tok", now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteUserCascadesConfirmations(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	require.NoError(t, s.CreateUser(ctx, newUser("u1", "gone@qq.com")))
	require.NoError(t, s.PutConfirmation(ctx, "tok", "u1", time.Now().Add(time.Hour)))

	require.NoError(t, s.DeleteUser(ctx, "u1"))
	assert.ErrorIs(t, s.DeleteUser(ctx, "u1"), ErrNotFound)

	_, err := s.UserByEmail(ctx, "gone@qq.com")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.ConsumeConfirmation(ctx, "tok", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.CreateUser(ctx, newUser("u2", "gone@qq.com")))
}

func TestRevokedTokens(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	revoked, err := s.IsTokenRevoked(ctx, "jti")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.RevokeToken(ctx, "jti", time.Now().Add(time.Hour)))
	revoked, err = s.IsTokenRevoked(ctx, "jti")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestMembershipAndQuota(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	_, err := s.Membership(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	m := &models.Membership{
		UserID:                "u1",
		Level:                 models.MemberGold,
		SubscriptionEndDate:   &end,
		RemainingMonthlyQuota: 1234567,
		RemainingDailyUsage:   8,
		DailyUsageLimit:       10,
		UpdatedAt:             end,
	}
	require.NoError(t, s.PutMembership(ctx, m))
	m.RemainingDailyUsage = 7
	require.NoError(t, s.PutMembership(ctx, m))

	got, err := s.Membership(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.MemberGold, got.Level)
	require.NotNil(t, got.SubscriptionEndDate)
	assert.Equal(t, end, *got.SubscriptionEndDate)
	assert.Equal(t, 7, got.RemainingDailyUsage)

	require.NoError(t, s.PutWordQuota(ctx, &models.WordQuota{UserID: "u1", RemainingQuota: 50000, RemainingDailyUsage: 3, DailyUsageLimit: 5, UpdatedAt: end}))
	q, err := s.WordQuota(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(50000), q.RemainingQuota)
	assert.Equal(t, 5, q.DailyUsageLimit)
}

func TestListPromptsFilters(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	seed := []models.Prompt{
		{ID: "sys1", Title: "推荐1", Type: models.PromptAIWriting, OwnerID: models.SystemOwnerID, IsPublic: true, CreatedAt: base},
		{ID: "sys2", Title: "推荐2", Type: models.PromptAIPolishing, OwnerID: models.SystemOwnerID, IsPublic: true, CreatedAt: base},
		{ID: "pub", Title: "社区", Type: models.PromptAIWriting, OwnerID: "u2", IsPublic: true, CreatedAt: base.Add(time.Hour)},
		{ID: "priv", Title: "私有", Type: models.PromptAIWriting, OwnerID: "u2", CreatedAt: base},
		{ID: "mine", Title: "我的", Type: models.PromptAIWriting, OwnerID: "u1", CreatedAt: base},
	}
	for i := range seed {
		require.NoError(t, s.PutPrompt(ctx, &seed[i]))
	}

	ids := func(ps []models.Prompt) []string {
		out := []string{}
		for _, p := range ps {
			out = append(out, p.ID)
		}
		return out
	}

	got, err := s.ListPrompts(ctx, PromptFilter{Type: models.PromptAIWriting, OwnerID: models.SystemOwnerID, PublicOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"sys1"}, ids(got))

	got, err = s.ListPrompts(ctx, PromptFilter{Type: models.PromptAIWriting, ExcludeOwner: "u1", PublicOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"pub", "sys1"}, ids(got))

	got, err = s.ListPrompts(ctx, PromptFilter{Type: models.PromptAIWriting, OwnerID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"mine"}, ids(got))
}

func TestWorkStore(t *testing.T) {
	files, err := NewFileStorage(t.TempDir(), utils.NewLogger(zapcore.AddSync(&bytes.Buffer{})))
	require.NoError(t, err)
	defer files.Close()
	works := NewWorkStore(files)

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	w1 := &models.Work{ID: "w1", OwnerID: "u1", Title: "长夜", Chapters: []models.Chapter{{Title: "一", Content: "开端"}}, UpdatedAt: now}
	w2 := &models.Work{ID: "w2", OwnerID: "u1", Title: "晨光", UpdatedAt: now.Add(time.Hour)}
	w3 := &models.Work{ID: "w3", OwnerID: "u2", Title: "别人的", UpdatedAt: now}
	for _, w := range []*models.Work{w1, w2, w3} {
		require.NoError(t, works.SaveWork(w))
	}

	got, err := works.LoadWork("w1")
	require.NoError(t, err)
	assert.Equal(t, "开端", got.Chapters[0].Content)

	// 写入后缓存失效
	w1.Title = "长夜（修订）"
	require.NoError(t, works.SaveWork(w1))
	got, err = works.LoadWork("w1")
	require.NoError(t, err)
	assert.Equal(t, "长夜（修订）", got.Title)

	list, err := works.ListWorks("u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "w2", list[0].ID)

	require.NoError(t, works.DeleteWork("w2"))
	_, err = works.LoadWork("w2")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, works.DeleteWork("w2"), ErrNotFound)
}
