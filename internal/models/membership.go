// internal/models/membership.go
package models

import "time"

// MemberLevel 会员等级
type MemberLevel string

const (
	MemberFree      MemberLevel = "free"
	MemberNormal    MemberLevel = "normal"
	MemberGold      MemberLevel = "gold"
	MemberBlackGold MemberLevel = "black_gold"
)

// Label 会员等级的显示名称，未知等级原样返回
func (l MemberLevel) Label() string {
	switch l {
	case MemberFree:
		return "免费会员"
	case MemberNormal:
		return "普通会员"
	case MemberGold:
		return "黄金会员"
	case MemberBlackGold:
		return "黑金会员"
	default:
		return string(l)
	}
}

// Valid 是否为已知等级
func (l MemberLevel) Valid() bool {
	switch l {
	case MemberFree, MemberNormal, MemberGold, MemberBlackGold:
		return true
	}
	return false
}

// Membership 会员信息
type Membership struct {
	UserID                string      `json:"user_id"`
	Level                 MemberLevel `json:"level"`
	SubscriptionEndDate   *time.Time  `json:"subscription_end_date,omitempty"`
	RemainingMonthlyQuota int64       `json:"remaining_monthly_quota"`
	RemainingDailyUsage   int         `json:"remaining_daily_usage"`
	DailyUsageLimit       int         `json:"daily_usage_limit"`
	UpdatedAt             time.Time   `json:"updated_at"`
}

// WordQuota 字数额度
type WordQuota struct {
	UserID              string    `json:"user_id"`
	RemainingQuota      int64     `json:"remaining_quota"`
	RemainingDailyUsage int       `json:"remaining_daily_usage"`
	DailyUsageLimit     int       `json:"daily_usage_limit"`
	UpdatedAt           time.Time `json:"updated_at"`
}
