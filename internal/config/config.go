// Package config 提供配置管理
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/paiban/mediatheque/pkg/model"
)

// Config 应用配置
type Config struct {
	App      AppConfig      `toml:"app"`
	Database DatabaseConfig `toml:"database"`
	API      APIConfig      `toml:"api"`
	Planning PlanningConfig `toml:"planning"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name      string `toml:"name"`
	Env       string `toml:"env"`
	Port      int    `toml:"port"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"` // json | console
}

// DatabaseConfig 数据库配置，未启用时排班结果不落库
type DatabaseConfig struct {
	Enabled         bool          `toml:"enabled"`
	Host            string        `toml:"host"`
	Port            int           `toml:"port"`
	Name            string        `toml:"name"`
	User            string        `toml:"user"`
	Password        string        `toml:"password"`
	SSLMode         string        `toml:"ssl_mode"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// APIConfig API配置
type APIConfig struct {
	Timeout     time.Duration `toml:"timeout"`
	MaxUploadMB int64         `toml:"max_upload_mb"`
	Keys        []string      `toml:"keys"` // 为空时不校验密钥
	RateLimit   int           `toml:"rate_limit"`
}

// PlanningConfig 排班引擎配置
type PlanningConfig struct {
	Workers   int           `toml:"workers"`
	Timeout   time.Duration `toml:"timeout"`
	RulesFile string        `toml:"rules_file"`
	Rules     model.Rules   `toml:"-"`
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load 从环境变量加载配置，PLANNING_RULES_FILE 指向的 TOML 文件覆盖默认规则
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:      getEnv("APP_NAME", "mediatheque"),
			Env:       getEnv("APP_ENV", "development"),
			Port:      getEnvInt("APP_PORT", 7012),
			LogLevel:  getEnv("APP_LOG_LEVEL", "info"),
			LogFormat: getEnv("APP_LOG_FORMAT", "json"),
		},
		Database: DatabaseConfig{
			Enabled:         getEnvBool("DB_ENABLED", false),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "mediatheque"),
			User:            getEnv("DB_USER", "mediatheque"),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		API: APIConfig{
			Timeout:     getEnvDuration("API_TIMEOUT", 30*time.Second),
			MaxUploadMB: int64(getEnvInt("API_MAX_UPLOAD_MB", 20)),
			Keys:        getEnvList("API_KEYS"),
			RateLimit:   getEnvInt("API_RATE_LIMIT", 60),
		},
		Planning: PlanningConfig{
			Workers:   getEnvInt("PLANNING_WORKERS", 4),
			Timeout:   getEnvDuration("PLANNING_TIMEOUT", 20*time.Second),
			RulesFile: getEnv("PLANNING_RULES_FILE", ""),
			Rules:     model.DefaultRules(),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	if cfg.Planning.RulesFile != "" {
		data, err := os.ReadFile(cfg.Planning.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("读取规则文件失败: %w", err)
		}
		rules, err := ParseRules(data, cfg.Planning.Rules)
		if err != nil {
			return nil, fmt.Errorf("规则文件 %s: %w", cfg.Planning.RulesFile, err)
		}
		cfg.Planning.Rules = rules
	}

	return cfg, nil
}

// rulesDocument 规则文件结构：
//
//	[rules]
//	ideal_max = 150
//	exception_window = "12:00-14:00"
//	temp_days = ["Mercredi", "Samedi"]
type rulesDocument struct {
	Rules model.Rules `toml:"rules"`
}

// rulesExtras 需要转换类型的规则项
type rulesExtras struct {
	Rules struct {
		ExceptionWindow *string   `toml:"exception_window"`
		TemporaryDays   *[]string `toml:"temp_days"`
	} `toml:"rules"`
}

// ParseRules 以 base 为底解析 TOML 规则，文件中未出现的键保持不变
// exception_window 为空字符串时取消例外窗口
func ParseRules(data []byte, base model.Rules) (model.Rules, error) {
	doc := rulesDocument{Rules: base}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return base, err
	}
	var extras rulesExtras
	if err := toml.Unmarshal(data, &extras); err != nil {
		return base, err
	}
	rules := doc.Rules

	if raw := extras.Rules.ExceptionWindow; raw != nil {
		if strings.TrimSpace(*raw) == "" {
			rules.ExceptionWindow = nil
		} else {
			tr, ok := model.ParseRange(*raw)
			if !ok {
				return base, fmt.Errorf("exception_window 无效: %q", *raw)
			}
			rules.ExceptionWindow = &tr
		}
	}
	if list := extras.Rules.TemporaryDays; list != nil {
		days := make([]model.Day, 0, len(*list))
		for _, raw := range *list {
			d, ok := model.ParseDay(raw)
			if !ok {
				return base, fmt.Errorf("temp_days 中的服务日无效: %q", raw)
			}
			days = append(days, d)
		}
		rules.TemporaryDays = days
	}

	for name, v := range map[string]int{
		"ideal_max":     rules.IdealMaxMinutes,
		"tolerated_max": rules.ToleratedMaxMinutes,
		"min_break":     rules.MinBreakMinutes,
	} {
		if v <= 0 {
			return base, fmt.Errorf("%s 必须大于 0", name)
		}
	}
	return rules, nil
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// 辅助函数
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList 逗号分隔的列表
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
