// Package logger 提供统一的日志框架
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level 日志级别
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// Config 日志配置
type Config struct {
	Level      string `toml:"level" json:"level"`
	Format     string `toml:"format" json:"format"` // json/console
	Output     string `toml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `toml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `toml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器
func Init(cfg Config) {
	once.Do(func() {
		level := parseLevel(cfg.Level)
		zerolog.SetGlobalLevel(level)

		var output io.Writer
		switch cfg.Output {
		case "stderr":
			output = os.Stderr
		case "file":
			if cfg.FilePath != "" {
				f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
				if err == nil {
					output = f
				} else {
					output = os.Stdout
				}
			} else {
				output = os.Stdout
			}
		default:
			output = os.Stdout
		}

		if cfg.Format == "console" {
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: cfg.TimeFormat,
			}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器
func Get() *zerolog.Logger {
	if logger.GetLevel() == zerolog.Disabled {
		Init(DefaultConfig())
	}
	return &logger
}

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	clientIDKey  ctxKey = "client_id"
)

// ContextWithRequestID 在上下文中记录请求ID
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// ContextWithClient 在上下文中记录调用方（API 密钥名称）
func ContextWithClient(ctx context.Context, client string) context.Context {
	return context.WithValue(ctx, clientIDKey, client)
}

// RequestID 上下文中的请求ID
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithContext 从上下文创建日志器
func WithContext(ctx context.Context) *zerolog.Logger {
	l := Get().With().Logger()

	// 添加请求ID
	if reqID, ok := ctx.Value(requestIDKey).(string); ok {
		l = l.With().Str("request_id", reqID).Logger()
	}

	// 添加调用方标识
	if client, ok := ctx.Value(clientIDKey).(string); ok {
		l = l.With().Str("client_id", client).Logger()
	}

	return &l
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// Fatal 记录致命错误日志
func Fatal() *zerolog.Event {
	return Get().Fatal()
}

// WithField 添加字段
func WithField(key string, value interface{}) *zerolog.Logger {
	l := Get().With().Interface(key, value).Logger()
	return &l
}

// PlanningLogger 排班引擎专用日志器
type PlanningLogger struct {
	base *zerolog.Logger
}

// NewPlanningLogger 创建排班引擎日志器
func NewPlanningLogger() *PlanningLogger {
	l := Get().With().Str("component", "planning").Logger()
	return &PlanningLogger{base: &l}
}

// ForPlan 绑定排班ID
func (l *PlanningLogger) ForPlan(planID string) *PlanningLogger {
	sub := l.base.With().Str("plan_id", planID).Logger()
	return &PlanningLogger{base: &sub}
}

// StartPlan 记录月度排班开始
func (l *PlanningLogger) StartPlan(year, month, agents, weeks int) {
	l.base.Info().
		Int("year", year).
		Int("month", month).
		Int("agents", agents).
		Int("weeks", weeks).
		Msg("开始生成月度排班")
}

// StartWeek 记录单周排班开始
func (l *PlanningLogger) StartWeek(week, days int, saturdayColor string) {
	l.base.Debug().
		Int("week", week).
		Int("days", days).
		Str("saturday_color", saturdayColor).
		Msg("开始生成周排班")
}

// Replacement 记录一次替换
func (l *PlanningLogger) Replacement(day, slot, section, replaced, replacement, reason string) {
	l.base.Debug().
		Str("day", day).
		Str("slot", slot).
		Str("section", section).
		Str("replaced", replaced).
		Str("replacement", replacement).
		Str("reason", reason).
		Msg("人员替换")
}

// SlotAlert 记录时段告警
func (l *PlanningLogger) SlotAlert(day, slot, alert string) {
	l.base.Warn().
		Str("day", day).
		Str("slot", slot).
		Str("alert", alert).
		Msg("时段告警")
}

// ConstraintViolation 记录约束违反
func (l *PlanningLogger) ConstraintViolation(constraint, details string) {
	l.base.Debug().
		Str("constraint", constraint).
		Str("details", details).
		Msg("约束违反")
}

// WeekComplete 记录单周排班完成
func (l *PlanningLogger) WeekComplete(week int, duration time.Duration, alerts int) {
	l.base.Info().
		Int("week", week).
		Dur("duration", duration).
		Int("alerts", alerts).
		Msg("周排班生成完成")
}

// PlanComplete 记录月度排班完成
func (l *PlanningLogger) PlanComplete(duration time.Duration, weeks, alerts int) {
	l.base.Info().
		Dur("duration", duration).
		Int("weeks", weeks).
		Int("alerts", alerts).
		Msg("月度排班生成完成")
}
