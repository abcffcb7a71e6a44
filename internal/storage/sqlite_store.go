// internal/storage/sqlite_store.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Corphon/ScribeNest/internal/models"
	"github.com/Corphon/ScribeNest/internal/storage/migrations"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("记录不存在")
	// ErrDuplicate 唯一约束冲突
	ErrDuplicate = errors.New("记录已存在")
)

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil || t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

// SQLStore 用户、会员额度与提示词的 SQLite 存储
type SQLStore struct {
	db *sql.DB
}

// OpenSQLStore 打开数据库并执行迁移
func OpenSQLStore(ctx context.Context, path string) (*SQLStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("数据库路径不能为空")
	}

	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	// 单写者，避免 SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS, "."); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLStore{db: db}, nil
}

// Close 关闭数据库
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping 健康检查
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ---------------- 用户 ----------------

// CreateUser 新建用户，邮箱重复时返回 ErrDuplicate
func (s *SQLStore) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO users (id, email, display_name, password_hash, email_confirmed, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, strings.ToLower(u.Email), u.DisplayName, u.PasswordHash, u.EmailConfirmed, toMillis(u.CreatedAt))
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("保存用户失败: %w", err)
	}
	return nil
}

const userColumns = `id, email, display_name, password_hash, email_confirmed, created_at, last_login`

func scanUser(row *sql.Row) (*models.User, error) {
	var (
		u         models.User
		createdAt int64
		lastLogin sql.NullInt64
	)
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.EmailConfirmed, &createdAt, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("读取用户失败: %w", err)
	}
	u.CreatedAt = fromMillis(createdAt)
	if lastLogin.Valid {
		u.LastLogin = fromMillis(lastLogin.Int64)
	}
	return &u, nil
}

// DeleteUser 删除用户，邮箱验证记录随外键级联删除
func (s *SQLStore) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("删除用户失败: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UserByID 按 ID 查询用户
func (s *SQLStore) UserByID(ctx context.Context, id string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// UserByEmail 按邮箱查询用户，不区分大小写
func (s *SQLStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(email)))
}

// TouchLastLogin 更新最后登录时间
func (s *SQLStore) TouchLastLogin(ctx context.Context, userID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, toMillis(at), userID)
	if err != nil {
		return fmt.Errorf("更新登录时间失败: %w", err)
	}
	return nil
}

// ---------------- 邮箱验证 ----------------

// PutConfirmation 记录一次待验证的邮箱确认
func (s *SQLStore) PutConfirmation(ctx context.Context, tokenID, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO email_confirmations (token_id, user_id, expires_at) VALUES (?, ?, ?)`,
		tokenID, userID, toMillis(expiresAt))
	if err != nil {
		return fmt.Errorf("保存邮箱验证记录失败: %w", err)
	}
	return nil
}

// ConsumeConfirmation 标记验证记录已使用并确认用户邮箱。
// 记录不存在、已使用或已过期时返回 ErrNotFound。
func (s *SQLStore) ConsumeConfirmation(ctx context.Context, tokenID string, now time.Time) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("开始事务失败: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var userID string
	err = tx.QueryRowContext(ctx, `
SELECT user_id FROM email_confirmations
WHERE token_id = ? AND used_at IS NULL AND expires_at > ?`, tokenID, toMillis(now)).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("读取邮箱验证记录失败: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE email_confirmations SET used_at = ? WHERE token_id = ?`, toMillis(now), tokenID); err != nil {
		return "", fmt.Errorf("更新邮箱验证记录失败: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET email_confirmed = 1 WHERE id = ?`, userID); err != nil {
		return "", fmt.Errorf("确认邮箱失败: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("提交事务失败: %w", err)
	}
	return userID, nil
}

// ---------------- 会话吊销 ----------------

// RevokeToken 吊销访问令牌，同时清理已过期的吊销记录
func (s *SQLStore) RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO revoked_tokens (token_id, expires_at) VALUES (?, ?)`,
		tokenID, toMillis(expiresAt)); err != nil {
		return fmt.Errorf("吊销令牌失败: %w", err)
	}
	_, _ = s.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < ?`, toMillis(time.Now()))
	return nil
}

// IsTokenRevoked 令牌是否已被吊销
func (s *SQLStore) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	var found int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM revoked_tokens WHERE token_id = ?`, tokenID).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("查询令牌状态失败: %w", err)
	}
	return true, nil
}

// ---------------- 会员与字数额度 ----------------

// Membership 查询会员信息
func (s *SQLStore) Membership(ctx context.Context, userID string) (*models.Membership, error) {
	var (
		m         models.Membership
		level     string
		endDate   sql.NullInt64
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT user_id, level, subscription_end_date, remaining_monthly_quota,
       remaining_daily_usage, daily_usage_limit, updated_at
FROM huiyuan WHERE user_id = ?`, userID).
		Scan(&m.UserID, &level, &endDate, &m.RemainingMonthlyQuota, &m.RemainingDailyUsage, &m.DailyUsageLimit, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("读取会员信息失败: %w", err)
	}
	m.Level = models.MemberLevel(level)
	if endDate.Valid {
		t := fromMillis(endDate.Int64)
		m.SubscriptionEndDate = &t
	}
	m.UpdatedAt = fromMillis(updatedAt)
	return &m, nil
}

// PutMembership 写入或覆盖会员信息
func (s *SQLStore) PutMembership(ctx context.Context, m *models.Membership) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO huiyuan (user_id, level, subscription_end_date, remaining_monthly_quota,
                     remaining_daily_usage, daily_usage_limit, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
    level = excluded.level,
    subscription_end_date = excluded.subscription_end_date,
    remaining_monthly_quota = excluded.remaining_monthly_quota,
    remaining_daily_usage = excluded.remaining_daily_usage,
    daily_usage_limit = excluded.daily_usage_limit,
    updated_at = excluded.updated_at`,
		m.UserID, string(m.Level), nullMillis(m.SubscriptionEndDate), m.RemainingMonthlyQuota,
		m.RemainingDailyUsage, m.DailyUsageLimit, toMillis(m.UpdatedAt))
	if err != nil {
		return fmt.Errorf("保存会员信息失败: %w", err)
	}
	return nil
}

// WordQuota 查询字数额度
func (s *SQLStore) WordQuota(ctx context.Context, userID string) (*models.WordQuota, error) {
	var (
		q         models.WordQuota
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT user_id, remaining_quota, remaining_daily_usage, daily_usage_limit, updated_at
FROM zishu WHERE user_id = ?`, userID).
		Scan(&q.UserID, &q.RemainingQuota, &q.RemainingDailyUsage, &q.DailyUsageLimit, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("读取字数额度失败: %w", err)
	}
	q.UpdatedAt = fromMillis(updatedAt)
	return &q, nil
}

// PutWordQuota 写入或覆盖字数额度
func (s *SQLStore) PutWordQuota(ctx context.Context, q *models.WordQuota) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO zishu (user_id, remaining_quota, remaining_daily_usage, daily_usage_limit, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
    remaining_quota = excluded.remaining_quota,
    remaining_daily_usage = excluded.remaining_daily_usage,
    daily_usage_limit = excluded.daily_usage_limit,
    updated_at = excluded.updated_at`,
		q.UserID, q.RemainingQuota, q.RemainingDailyUsage, q.DailyUsageLimit, toMillis(q.UpdatedAt))
	if err != nil {
		return fmt.Errorf("保存字数额度失败: %w", err)
	}
	return nil
}

// ---------------- 提示词 ----------------

// PromptFilter 提示词查询条件，零值字段不参与过滤
type PromptFilter struct {
	Type         models.PromptType
	OwnerID      string
	ExcludeOwner string
	PublicOnly   bool
}

// PutPrompt 写入或覆盖提示词
func (s *SQLStore) PutPrompt(ctx context.Context, p *models.Prompt) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO prompts (id, title, description, content, type, owner_id, is_public, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    title = excluded.title,
    description = excluded.description,
    content = excluded.content,
    type = excluded.type,
    is_public = excluded.is_public`,
		p.ID, p.Title, p.Description, p.Content, string(p.Type), p.OwnerID, p.IsPublic, toMillis(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("保存提示词失败: %w", err)
	}
	return nil
}

// ListPrompts 按创建时间倒序列出提示词
func (s *SQLStore) ListPrompts(ctx context.Context, f PromptFilter) ([]models.Prompt, error) {
	var (
		where []string
		args  []any
	)
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.ExcludeOwner != "" {
		where = append(where, "owner_id <> ?")
		args = append(args, f.ExcludeOwner)
	}
	if f.PublicOnly {
		where = append(where, "is_public = 1")
	}

	query := `SELECT id, title, description, content, type, owner_id, is_public, created_at FROM prompts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询提示词失败: %w", err)
	}
	defer rows.Close()

	out := []models.Prompt{}
	for rows.Next() {
		var (
			p         models.Prompt
			typ       string
			createdAt int64
		)
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Content, &typ, &p.OwnerID, &p.IsPublic, &createdAt); err != nil {
			return nil, fmt.Errorf("读取提示词失败: %w", err)
		}
		p.Type = models.PromptType(typ)
		p.CreatedAt = fromMillis(createdAt)
		out = append(out, p)
	}
	return out, rows.Err()
}
