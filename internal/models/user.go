// internal/models/user.go
package models

import "time"

// User 用户信息
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	DisplayName    string    `json:"display_name,omitempty"`
	EmailConfirmed bool      `json:"email_confirmed"`
	CreatedAt      time.Time `json:"created_at"`
	LastLogin      time.Time `json:"last_login,omitempty"`
	// 只在存储层使用，不参与序列化
	PasswordHash string `json:"-"`
}

// Metadata 用户元数据，name 与 display_name 均为显示名称
func (u *User) Metadata() map[string]string {
	return map[string]string{
		"name":         u.DisplayName,
		"display_name": u.DisplayName,
	}
}

// Label 账号面板显示的用户名，未设置时返回占位文本
func (u *User) Label() string {
	if u == nil || u.DisplayName == "" {
		return "未设置"
	}
	return u.DisplayName
}

// Session 登录会话
type Session struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        *User     `json:"user"`
}
