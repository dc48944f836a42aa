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
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
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

// ctxKey 上下文键类型
type ctxKey string

const (
	// RequestIDKey 请求ID
	RequestIDKey ctxKey = "request_id"
	// RunIDKey 求解运行ID
	RunIDKey ctxKey = "run_id"
	// BusinessLineKey 业务线
	BusinessLineKey ctxKey = "business_line"
)

// ContextWith 在上下文中写入日志字段
func ContextWith(ctx context.Context, key ctxKey, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

// RequestID 从上下文读取请求ID
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// WithContext 从上下文创建日志器
func WithContext(ctx context.Context) *zerolog.Logger {
	c := Get().With()
	for _, key := range []ctxKey{RequestIDKey, RunIDKey, BusinessLineKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			c = c.Str(string(key), v)
		}
	}
	l := c.Logger()
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

// SchedulerLogger 排程引擎专用日志器
type SchedulerLogger struct {
	base *zerolog.Logger
}

// NewSchedulerLogger 创建排程引擎日志器
func NewSchedulerLogger() *SchedulerLogger {
	l := Get().With().Str("component", "scheduler").Logger()
	return &SchedulerLogger{base: &l}
}

// StartSolve 记录单个医生求解开始
func (l *SchedulerLogger) StartSolve(runID, providerID string, days, facilities int) {
	l.base.Info().
		Str("run_id", runID).
		Str("provider_id", providerID).
		Int("days", days).
		Int("facilities", facilities).
		Msg("开始求解排程")
}

// ConstraintConflict 记录约束冲突
func (l *SchedulerLogger) ConstraintConflict(providerID, date, facilityID, reason string) {
	l.base.Warn().
		Str("provider_id", providerID).
		Str("date", date).
		Str("facility_id", facilityID).
		Str("reason", reason).
		Msg("约束冲突，已排除该必访要求")
}

// RequiredVisitUnmet 记录未满足的必访
func (l *SchedulerLogger) RequiredVisitUnmet(providerID, date, facilityID, reason string) {
	l.base.Warn().
		Str("provider_id", providerID).
		Str("date", date).
		Str("facility_id", facilityID).
		Str("reason", reason).
		Msg("必访未满足")
}

// SolveComplete 记录求解完成
func (l *SchedulerLogger) SolveComplete(runID, providerID string, duration time.Duration, status string, objective float64) {
	l.base.Info().
		Str("run_id", runID).
		Str("provider_id", providerID).
		Dur("duration", duration).
		Str("status", status).
		Float64("objective", objective).
		Msg("排程求解完成")
}

// BatchComplete 记录业务线批量求解完成
func (l *SchedulerLogger) BatchComplete(runID, businessLine string, providers, failed int, duration time.Duration) {
	l.base.Info().
		Str("run_id", runID).
		Str("business_line", businessLine).
		Int("providers", providers).
		Int("failed", failed).
		Dur("duration", duration).
		Msg("业务线批量排程完成")
}
