// Package account 汇总账号面板所需的会员与字数额度信息。
package account

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Corphon/ScribeNest/internal/models"
	"github.com/Corphon/ScribeNest/internal/storage"
	"github.com/Corphon/ScribeNest/internal/utils"
)

// Source 会员与字数额度数据源，记录不存在时返回 storage.ErrNotFound
type Source interface {
	Membership(ctx context.Context, userID string) (*models.Membership, error)
	WordQuota(ctx context.Context, userID string) (*models.WordQuota, error)
}

// Snapshot 一次查询的结果，查询失败或无记录的部分为空
type Snapshot struct {
	Membership *models.Membership
	WordQuota  *models.WordQuota
}

// Lookup 并行查询两类数据并等待全部完成。
// 任一查询失败只记录日志，不影响另一部分。
func Lookup(ctx context.Context, src Source, userID string, logger *utils.Logger) Snapshot {
	if logger == nil {
		logger = utils.GetLogger()
	}

	var (
		snap Snapshot
		g    errgroup.Group
	)
	g.Go(func() error {
		m, err := src.Membership(ctx, userID)
		if err != nil {
			logFailure(logger, "获取会员信息失败", userID, err)
			return nil
		}
		snap.Membership = m
		return nil
	})
	g.Go(func() error {
		q, err := src.WordQuota(ctx, userID)
		if err != nil {
			logFailure(logger, "获取字数信息失败", userID, err)
			return nil
		}
		snap.WordQuota = q
		return nil
	})
	_ = g.Wait()
	return snap
}

func logFailure(logger *utils.Logger, msg, userID string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	logger.Warn(msg, map[string]interface{}{"user_id": userID, "error": err})
}

// Status 面板加载状态
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
)

// Panel 账号面板。首次打开时查询，之后使用缓存直到 Invalidate。
type Panel struct {
	src    Source
	user   *models.User
	logger *utils.Logger

	mu     sync.Mutex
	status Status
	loaded bool
	snap   Snapshot
}

// NewPanel 为已登录用户创建面板
func NewPanel(src Source, user *models.User, logger *utils.Logger) *Panel {
	return &Panel{src: src, user: user, logger: logger, status: StatusIdle}
}

// Open 打开面板，缓存有效时不重新查询
func (p *Panel) Open(ctx context.Context) View {
	p.mu.Lock()
	if p.loaded {
		defer p.mu.Unlock()
		return p.view()
	}
	p.status = StatusLoading
	p.mu.Unlock()

	snap := Lookup(ctx, p.src, p.user.ID, p.logger)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap = snap
	p.status = StatusReady
	p.loaded = true
	return p.view()
}

// Invalidate 使缓存失效，下次 Open 重新查询
func (p *Panel) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loaded = false
	p.status = StatusIdle
}

// Status 当前状态
func (p *Panel) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// View 面板展示数据
type View struct {
	DisplayName string          `json:"displayName"`
	Email       string          `json:"email"`
	UID         string          `json:"uid"`
	Membership  *MembershipView `json:"membership,omitempty"`
	WordQuota   *WordQuotaView  `json:"wordQuota,omitempty"`
}

// MembershipView 会员信息。免费会员不展示到期时间和额度。
type MembershipView struct {
	Level        models.MemberLevel `json:"level"`
	Label        string             `json:"label"`
	ShowDetails  bool               `json:"showDetails"`
	ExpiresAt    string             `json:"expiresAt,omitempty"`
	MonthlyQuota string             `json:"monthlyQuota,omitempty"`
	DailyUsage   string             `json:"dailyUsage,omitempty"`
}

// WordQuotaView 字数额度
type WordQuotaView struct {
	Remaining  string `json:"remaining"`
	DailyUsage string `json:"dailyUsage"`
}

func (p *Panel) view() View {
	return BuildView(p.user, p.snap)
}

// BuildView 把查询结果整理为展示数据
func BuildView(user *models.User, snap Snapshot) View {
	v := View{DisplayName: user.Label()}
	if user != nil {
		v.Email = user.Email
		v.UID = user.ID
	}

	if m := snap.Membership; m != nil {
		mv := &MembershipView{
			Level:       m.Level,
			Label:       m.Level.Label(),
			ShowDetails: m.Level != models.MemberFree,
		}
		if mv.ShowDetails {
			if m.SubscriptionEndDate != nil {
				mv.ExpiresAt = m.SubscriptionEndDate.Format("2006-01-02")
			}
			mv.MonthlyQuota = utils.FormatNumber(m.RemainingMonthlyQuota)
			mv.DailyUsage = fmt.Sprintf("%d/%d", m.RemainingDailyUsage, m.DailyUsageLimit)
		}
		v.Membership = mv
	}

	if q := snap.WordQuota; q != nil {
		v.WordQuota = &WordQuotaView{
			Remaining:  utils.FormatNumber(q.RemainingQuota),
			DailyUsage: fmt.Sprintf("%d/%d", q.RemainingDailyUsage, q.DailyUsageLimit),
		}
	}
	return v
}
