// Package config 提供配置管理
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// BatchStrategySequentialIndependent 业务线批量模式：各医生独立求解，共享同一份需求，不做跨医生容量协调
const BatchStrategySequentialIndependent = "sequential_independent"

// Config 应用配置
type Config struct {
	App           AppConfig       `yaml:"app"`
	Database      DatabaseConfig  `yaml:"database"`
	Redis         RedisConfig     `yaml:"redis"`
	API           APIConfig       `yaml:"api"`
	Scheduler     SchedulerConfig `yaml:"scheduler"`
	Batch         BatchConfig     `yaml:"batch"`
	Data          DataConfig      `yaml:"data"`
	Metrics       MetricsConfig   `yaml:"metrics"`
	Tracing       TracingConfig   `yaml:"tracing"`
	BusinessLines []string        `yaml:"business_lines"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name      string `yaml:"name"`
	Env       string `yaml:"env"`
	Port      int    `yaml:"port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"` // postgres(lib/pq) / pgx
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"pool_size"`
	TTL      time.Duration `yaml:"ttl"`
}

// Addr 返回Redis地址
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// APIConfig API配置
type APIConfig struct {
	RateLimit int           `yaml:"rate_limit"` // 每秒请求数
	Burst     int           `yaml:"burst"`
	Timeout   time.Duration `yaml:"timeout"`
	CORS      CORSConfig    `yaml:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	Enabled bool     `yaml:"enabled"`
	Origins []string `yaml:"origins"`
}

// SchedulerConfig 排程引擎配置
type SchedulerConfig struct {
	DefaultTimeout       time.Duration `yaml:"default_timeout"`
	MaxTimeout           time.Duration `yaml:"max_timeout"`
	MaxIterations        int           `yaml:"max_iterations"`
	OptimizationLevel    int           `yaml:"optimization_level"` // 1=仅构造, 2=平衡, 3=深度搜索
	PlateauThreshold     int           `yaml:"plateau_threshold"`
	Seed                 int64         `yaml:"seed"`
	StrictRequiredVisits bool          `yaml:"strict_required_visits"`
	RejectOverCapacity   bool          `yaml:"reject_over_capacity"`
}

// BatchConfig 业务线批量配置
type BatchConfig struct {
	Strategy string `yaml:"strategy"`
	Workers  int    `yaml:"workers"`
}

// DataConfig 普查与距离数据来源
type DataConfig struct {
	Source     string `yaml:"source"` // csv / postgres
	Dir        string `yaml:"dir"`
	CensusFile string `yaml:"census_file"`
	Proration  string `yaml:"proration"` // full / workdays
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// TracingConfig 链路追踪配置
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:      "visitplan",
			Env:       "development",
			Port:      7012,
			LogLevel:  "info",
			LogFormat: "console",
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			Host:            "localhost",
			Port:            5432,
			Name:            "visitplan",
			User:            "visitplan",
			Password:        "visitplan",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Host:     "localhost",
			Port:     6379,
			PoolSize: 10,
			TTL:      24 * time.Hour,
		},
		API: APIConfig{
			RateLimit: 100,
			Burst:     200,
			Timeout:   60 * time.Second,
			CORS: CORSConfig{
				Enabled: true,
				Origins: []string{"*"},
			},
		},
		Scheduler: SchedulerConfig{
			DefaultTimeout:    15 * time.Second,
			MaxTimeout:        120 * time.Second,
			MaxIterations:     2000,
			OptimizationLevel: 2,
			PlateauThreshold:  200,
			Seed:              42,
		},
		Batch: BatchConfig{
			Strategy: BatchStrategySequentialIndependent,
			Workers:  1,
		},
		Data: DataConfig{
			Source:     "csv",
			Dir:        "data",
			CensusFile: "census.csv",
			Proration:  "full",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			ServiceName: "visitplan",
		},
		BusinessLines: []string{
			"Wisconsin Geriatrics",
			"Florida Geriatrics",
			"Minnesota Geriatrics",
			"Minnesota ADAPT",
		},
	}
}

// Load 加载配置：默认值 -> CONFIG_FILE 指定的 YAML -> 环境变量
func Load() (*Config, error) {
	return LoadFile(os.Getenv("CONFIG_FILE"))
}

// LoadFile 从指定 YAML 文件加载配置，path 为空时只使用默认值与环境变量
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv 环境变量覆盖
func (c *Config) applyEnv() {
	c.App.Name = getEnv("APP_NAME", c.App.Name)
	c.App.Env = getEnv("APP_ENV", c.App.Env)
	c.App.Port = getEnvInt("APP_PORT", c.App.Port)
	c.App.LogLevel = getEnv("APP_LOG_LEVEL", c.App.LogLevel)
	c.App.LogFormat = getEnv("APP_LOG_FORMAT", c.App.LogFormat)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("DB_PORT", c.Database.Port)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.SSLMode = getEnv("DB_SSL_MODE", c.Database.SSLMode)
	c.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.ConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", c.Database.ConnMaxLifetime)

	c.Redis.Enabled = getEnvBool("REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Host = getEnv("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = getEnvInt("REDIS_PORT", c.Redis.Port)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)
	c.Redis.PoolSize = getEnvInt("REDIS_POOL_SIZE", c.Redis.PoolSize)
	c.Redis.TTL = getEnvDuration("REDIS_TTL", c.Redis.TTL)

	c.API.RateLimit = getEnvInt("API_RATE_LIMIT", c.API.RateLimit)
	c.API.Burst = getEnvInt("API_BURST", c.API.Burst)
	c.API.Timeout = getEnvDuration("API_TIMEOUT", c.API.Timeout)
	c.API.CORS.Enabled = getEnvBool("API_CORS_ENABLED", c.API.CORS.Enabled)
	if origins := getEnv("API_CORS_ORIGINS", ""); origins != "" {
		c.API.CORS.Origins = strings.Split(origins, ",")
	}

	c.Scheduler.DefaultTimeout = getEnvDuration("SCHEDULER_TIMEOUT", c.Scheduler.DefaultTimeout)
	c.Scheduler.MaxTimeout = getEnvDuration("SCHEDULER_MAX_TIMEOUT", c.Scheduler.MaxTimeout)
	c.Scheduler.MaxIterations = getEnvInt("SCHEDULER_MAX_ITERATIONS", c.Scheduler.MaxIterations)
	c.Scheduler.OptimizationLevel = getEnvInt("SCHEDULER_OPTIMIZATION_LEVEL", c.Scheduler.OptimizationLevel)
	c.Scheduler.PlateauThreshold = getEnvInt("SCHEDULER_PLATEAU_THRESHOLD", c.Scheduler.PlateauThreshold)
	c.Scheduler.Seed = int64(getEnvInt("SCHEDULER_SEED", int(c.Scheduler.Seed)))
	c.Scheduler.StrictRequiredVisits = getEnvBool("SCHEDULER_STRICT_REQUIRED_VISITS", c.Scheduler.StrictRequiredVisits)
	c.Scheduler.RejectOverCapacity = getEnvBool("SCHEDULER_REJECT_OVER_CAPACITY", c.Scheduler.RejectOverCapacity)

	c.Batch.Strategy = getEnv("BATCH_STRATEGY", c.Batch.Strategy)
	c.Batch.Workers = getEnvInt("BATCH_WORKERS", c.Batch.Workers)

	c.Data.Source = getEnv("DATA_SOURCE", c.Data.Source)
	c.Data.Dir = getEnv("DATA_DIR", c.Data.Dir)
	c.Data.CensusFile = getEnv("DATA_CENSUS_FILE", c.Data.CensusFile)
	c.Data.Proration = getEnv("DATA_PRORATION", c.Data.Proration)

	c.Metrics.Enabled = getEnvBool("METRICS_ENABLED", c.Metrics.Enabled)
	c.Metrics.Path = getEnv("METRICS_PATH", c.Metrics.Path)
	c.Tracing.Enabled = getEnvBool("TRACING_ENABLED", c.Tracing.Enabled)

	if lines := getEnv("BUSINESS_LINES", ""); lines != "" {
		c.BusinessLines = strings.Split(lines, ",")
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Batch.Strategy != BatchStrategySequentialIndependent {
		return fmt.Errorf("不支持的批量策略 %q，仅支持 %q", c.Batch.Strategy, BatchStrategySequentialIndependent)
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers 必须 >= 1，实际为 %d", c.Batch.Workers)
	}
	if c.Scheduler.OptimizationLevel < 1 || c.Scheduler.OptimizationLevel > 3 {
		return fmt.Errorf("scheduler.optimization_level 取值 1-3，实际为 %d", c.Scheduler.OptimizationLevel)
	}
	if c.Scheduler.DefaultTimeout <= 0 {
		return fmt.Errorf("scheduler.default_timeout 必须为正")
	}
	switch c.Data.Source {
	case "csv", "postgres":
	default:
		return fmt.Errorf("不支持的数据源 %q", c.Data.Source)
	}
	switch c.Data.Proration {
	case "full", "workdays":
	default:
		return fmt.Errorf("不支持的需求折算方式 %q", c.Data.Proration)
	}
	switch c.Database.Driver {
	case "postgres", "pgx":
	default:
		return fmt.Errorf("不支持的数据库驱动 %q", c.Database.Driver)
	}
	if len(c.BusinessLines) == 0 {
		return fmt.Errorf("至少需要配置一个业务线")
	}
	return nil
}

// HasBusinessLine 检查业务线是否已配置
func (c *Config) HasBusinessLine(name string) bool {
	for _, bl := range c.BusinessLines {
		if bl == name {
			return true
		}
	}
	return false
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
