package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Corphon/ScribeNest/internal/account"
	apperrors "github.com/Corphon/ScribeNest/internal/errors"
	"github.com/Corphon/ScribeNest/internal/models"
	"github.com/Corphon/ScribeNest/internal/utils"
)

// QuotaStore 会员与字数额度存储
type QuotaStore interface {
	account.Source
	PutMembership(ctx context.Context, m *models.Membership) error
	PutWordQuota(ctx context.Context, q *models.WordQuota) error
}

// MembershipService 会员等级与额度管理
type MembershipService struct {
	store  QuotaStore
	logger *utils.Logger
	now    func() time.Time
}

// NewMembershipService 创建会员服务
func NewMembershipService(store QuotaStore, logger *utils.Logger) *MembershipService {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &MembershipService{store: store, logger: logger, now: time.Now}
}

// Grant 设置会员等级；until 为空表示不限期
func (s *MembershipService) Grant(ctx context.Context, userID string, level models.MemberLevel, until *time.Time, monthlyQuota int64, dailyLimit int) (*models.Membership, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("用户ID不能为空", nil)
	}
	if !level.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("未知会员等级: %s", level), nil)
	}
	if monthlyQuota < 0 || dailyLimit < 0 {
		return nil, apperrors.NewValidationError("额度不能为负数", nil)
	}

	m := &models.Membership{
		UserID:                userID,
		Level:                 level,
		SubscriptionEndDate:   until,
		RemainingMonthlyQuota: monthlyQuota,
		RemainingDailyUsage:   dailyLimit,
		DailyUsageLimit:       dailyLimit,
		UpdatedAt:             s.now().UTC(),
	}
	if err := s.store.PutMembership(ctx, m); err != nil {
		return nil, apperrors.NewProcessingError("保存会员信息失败", err)
	}
	s.logger.Info("设置会员等级", map[string]interface{}{"user_id": userID, "level": string(level)})
	return m, nil
}

// SetWordQuota 设置字数额度
func (s *MembershipService) SetWordQuota(ctx context.Context, userID string, remaining int64, dailyLimit int) (*models.WordQuota, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("用户ID不能为空", nil)
	}
	if remaining < 0 || dailyLimit < 0 {
		return nil, apperrors.NewValidationError("额度不能为负数", nil)
	}

	q := &models.WordQuota{
		UserID:              userID,
		RemainingQuota:      remaining,
		RemainingDailyUsage: dailyLimit,
		DailyUsageLimit:     dailyLimit,
		UpdatedAt:           s.now().UTC(),
	}
	if err := s.store.PutWordQuota(ctx, q); err != nil {
		return nil, apperrors.NewProcessingError("保存字数额度失败", err)
	}
	s.logger.Info("设置字数额度", map[string]interface{}{"user_id": userID, "remaining": remaining})
	return q, nil
}

// Panel 为用户创建账号面板
func (s *MembershipService) Panel(user *models.User) *account.Panel {
	return account.NewPanel(s.store, user, s.logger)
}
