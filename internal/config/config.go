// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config 包含应用程序的所有配置
type Config struct {
	// 基础配置
	Port      string `env:"SCRIBE_PORT"       envDefault:"8080"`
	DataDir   string `env:"SCRIBE_DATA_DIR"   envDefault:"data"`
	LogDir    string `env:"SCRIBE_LOG_DIR"    envDefault:"logs"`
	DebugMode bool   `env:"SCRIBE_DEBUG_MODE" envDefault:"true"`
	// 为空时使用 DataDir/scribenest.db
	DatabasePath string `env:"SCRIBE_DB_PATH"`

	// 认证相关配置
	AuthSecret               string        `env:"SCRIBE_AUTH_SECRET"`
	TokenTTL                 time.Duration `env:"SCRIBE_TOKEN_TTL"                  envDefault:"24h"`
	ConfirmationTTL          time.Duration `env:"SCRIBE_CONFIRMATION_TTL"           envDefault:"24h"`
	RequireEmailConfirmation bool          `env:"SCRIBE_REQUIRE_EMAIL_CONFIRMATION" envDefault:"true"`
	SiteURL                  string        `env:"SCRIBE_SITE_URL"                   envDefault:"http://localhost:3000"`
	AllowedEmailDomains      []string      `env:"SCRIBE_ALLOWED_EMAIL_DOMAINS"      envDefault:"qq.com,163.com,gmail.com" envSeparator:","`

	// 每分钟每个IP的请求上限
	RateLimitPerMinute int `env:"SCRIBE_RATE_LIMIT_PER_MINUTE" envDefault:"100"`
}

// Load 从 .env 文件（可选）和环境变量加载配置
func Load(envFiles ...string) (*Config, error) {
	// .env 文件不存在时忽略
	_ = godotenv.Load(envFiles...)

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("解析环境变量失败: %w", err)
	}

	cfg.Port = strings.TrimSpace(cfg.Port)
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(cfg.DataDir, "scribenest.db")
	}
	domains := make([]string, 0, len(cfg.AllowedEmailDomains))
	for _, d := range cfg.AllowedEmailDomains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			domains = append(domains, d)
		}
	}
	cfg.AllowedEmailDomains = domains

	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("SCRIBE_TOKEN_TTL 必须为正数")
	}
	if cfg.ConfirmationTTL <= 0 {
		return nil, fmt.Errorf("SCRIBE_CONFIRMATION_TTL 必须为正数")
	}

	return cfg, nil
}

// WorksDir 作品与章节的 JSON 存储目录
func (c *Config) WorksDir() string {
	return filepath.Join(c.DataDir, "works")
}

// LogFile 当天的日志文件路径
func (c *Config) LogFile(now time.Time) string {
	return filepath.Join(c.LogDir, fmt.Sprintf("scribenest_%s.log", now.Format("2006-01-02")))
}

// EnsureDirectories 创建应用所需的目录结构
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.DataDir,
		c.WorksDir(),
		c.LogDir,
		filepath.Dir(c.DatabasePath),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建目录失败 %s: %w", dir, err)
		}
	}
	return nil
}
