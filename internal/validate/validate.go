// Package validate 提供表单字段校验，返回可直接展示给用户的错误消息。
package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"

	apperrors "github.com/Corphon/ScribeNest/internal/errors"
)

// 校验失败时展示给用户的消息
const (
	MsgTitleRequired       = "标题不能为空"
	MsgTitleTooLong        = "标题不能超过100个字符"
	MsgContentRequired     = "内容不能为空"
	MsgDescriptionTooLong  = "描述不能超过500个字符"
	MsgAPIKeyRequired      = "API密钥不能为空"
	MsgAPIKeyInvalid       = "API密钥格式不正确"
	MsgEmailRequired       = "邮箱不能为空"
	MsgEmailInvalid        = "邮箱格式不正确"
	MsgPasswordTooShort    = "密码长度至少为6个字符"
	MsgDisplayNameInvalid  = "用户名不能为空且长度不能超过50个字符"
	MsgRegisterFieldsEmpty = "邮箱、密码和用户名都是必填项"
)

const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
	MinPasswordLength    = 6
	MaxDisplayNameLength = 50
)

// DefaultEmailDomains 允许注册的邮箱域名
var DefaultEmailDomains = []string{"qq.com", "163.com", "gmail.com"}

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	apiKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{10,}$`)
)

// Title 校验标题
func Title(title string) error {
	if strings.TrimSpace(title) == "" {
		return apperrors.NewValidationError(MsgTitleRequired, nil)
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return apperrors.NewValidationError(MsgTitleTooLong, nil)
	}
	return nil
}

// Content 校验正文
func Content(content string) error {
	if strings.TrimSpace(content) == "" {
		return apperrors.NewValidationError(MsgContentRequired, nil)
	}
	return nil
}

// Description 校验描述，允许为空
func Description(description string) error {
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return apperrors.NewValidationError(MsgDescriptionTooLong, nil)
	}
	return nil
}

// APIKey 校验 API 密钥格式
func APIKey(apiKey string) error {
	if strings.TrimSpace(apiKey) == "" {
		return apperrors.NewValidationError(MsgAPIKeyRequired, nil)
	}
	if !apiKeyPattern.MatchString(apiKey) {
		return apperrors.NewValidationError(MsgAPIKeyInvalid, nil)
	}
	return nil
}

// EmailDomain 校验邮箱格式以及域名是否在允许列表中
func EmailDomain(email string, allowed []string) error {
	if strings.TrimSpace(email) == "" {
		return apperrors.NewValidationError(MsgEmailRequired, nil)
	}
	if !emailPattern.MatchString(email) {
		return apperrors.NewValidationError(MsgEmailInvalid, nil)
	}
	if len(allowed) == 0 {
		allowed = DefaultEmailDomains
	}

	domain := strings.ToLower(email[strings.Index(email, "@")+1:])
	for _, d := range allowed {
		if domain == strings.ToLower(d) {
			return nil
		}
	}
	return apperrors.NewValidationError(DomainMessage(allowed), nil)
}

// DomainMessage 域名不在允许列表时的提示，例如 "只支持 @qq.com、@163.com 和 @gmail.com 邮箱注册"
func DomainMessage(allowed []string) string {
	if len(allowed) == 0 {
		allowed = DefaultEmailDomains
	}
	names := make([]string, len(allowed))
	for i, d := range allowed {
		names[i] = "@" + d
	}

	var list string
	if len(names) == 1 {
		list = names[0]
	} else {
		list = strings.Join(names[:len(names)-1], "、") + " 和 " + names[len(names)-1]
	}
	return "只支持 " + list + " 邮箱注册"
}

// Password 校验密码长度
func Password(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return apperrors.NewValidationError(MsgPasswordTooShort, nil)
	}
	return nil
}

// DisplayName 校验用户名（显示名称）
func DisplayName(name string) error {
	if strings.TrimSpace(name) == "" || utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return apperrors.NewValidationError(MsgDisplayNameInvalid, nil)
	}
	return nil
}

// Registration 注册表单的完整校验，按 必填 → 邮箱 → 密码 → 用户名 的顺序返回第一个错误
func Registration(email, password, displayName string, allowedDomains []string) error {
	if email == "" || password == "" || displayName == "" {
		return apperrors.NewValidationError(MsgRegisterFieldsEmpty, nil)
	}
	if err := EmailDomain(email, allowedDomains); err != nil {
		return err
	}
	if err := Password(password); err != nil {
		return err
	}
	return DisplayName(displayName)
}
