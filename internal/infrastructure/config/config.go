// Package config 负责加载并归一化服务的启动配置。
// 配置来源优先级：环境变量 > 配置文件 > 内置默认值。
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/joho/godotenv"
)

const (
	envConfPath       = "CONF_PATH"
	envServiceName    = "SERVICE_NAME"
	envServiceVersion = "SERVICE_VERSION"
	envAppEnv         = "APP_ENV"
	envDatabaseURL    = "DATABASE_URL"
	envPort           = "PORT"
	envCronSecret     = "CRON_SECRET"
)

var envFileNames = []string{".env.local", ".env"}

const (
	defaultConfPath    = "configs/config.yaml"
	defaultHTTPAddr    = ":8080"
	defaultServiceName = "ytpm-export"
)

// Params 包含构造配置所需的运行时输入参数。
type Params struct {
	ConfPath string // 配置文件路径（可为空，使用默认值）
}

// HTTPConfig 描述 HTTP 服务监听配置。
type HTTPConfig struct {
	Addr    string `json:"addr"`
	Timeout string `json:"timeout"` // time.ParseDuration 格式
}

// ServerConfig 聚合服务端传输层配置。
type ServerConfig struct {
	HTTP HTTPConfig `json:"http"`
}

// PostgresConfig 描述 PostgreSQL 连接池配置。
type PostgresConfig struct {
	DSN                      string `json:"dsn"`
	MaxOpenConns             int32  `json:"max_open_conns"`
	MinOpenConns             int32  `json:"min_open_conns"`
	Schema                   string `json:"schema"`
	EnablePreparedStatements bool   `json:"enable_prepared_statements"`
}

// DataConfig 聚合数据层配置。
type DataConfig struct {
	Postgres PostgresConfig `json:"postgres"`
}

// QuotaConfig 描述配额账本配置。
type QuotaConfig struct {
	DailyLimit int64 `json:"daily_limit"`
}

// AutoResumeConfig 描述自动续抓调度配置。时长字段为 time.ParseDuration 格式。
type AutoResumeConfig struct {
	Cooldown        string `json:"cooldown"`
	AttemptInterval string `json:"attempt_interval"`
	TickInterval    string `json:"tick_interval"`
	MaxUsersPerRun  int    `json:"max_users_per_run"`
}

// YouTubeConfig 描述 YouTube 客户端的限速与重试配置。
type YouTubeConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second"`
	MaxRetries        uint64  `json:"max_retries"`
}

// CronConfig 描述定时任务入口的鉴权配置。Secret 只从环境变量读取。
type CronConfig struct {
	Secret string `json:"-"`
}

// ServiceMetadata 保存服务标识信息，供日志组件使用。
type ServiceMetadata struct {
	Name        string
	Version     string
	Environment string
	InstanceID  string
}

// Bootstrap 聚合全部启动配置。
type Bootstrap struct {
	Server     ServerConfig     `json:"server"`
	Data       DataConfig       `json:"data"`
	Quota      QuotaConfig      `json:"quota"`
	AutoResume AutoResumeConfig `json:"auto_resume"`
	YouTube    YouTubeConfig    `json:"youtube"`
	Cron       CronConfig       `json:"-"`
	Service    ServiceMetadata  `json:"-"`
}

// NewBootstrap 加载配置文件并套用环境变量覆盖，返回归一化后的配置。
func NewBootstrap(params Params) (*Bootstrap, func(), error) {
	loadEnvFiles()

	confPath := params.ConfPath
	if confPath == "" {
		confPath = os.Getenv(envConfPath)
	}
	if confPath == "" {
		confPath = defaultConfPath
	}

	var bc Bootstrap
	cleanup := func() {}

	if _, err := os.Stat(confPath); err == nil {
		c := config.New(config.WithSource(file.NewSource(confPath)))
		if err := c.Load(); err != nil {
			return nil, nil, fmt.Errorf("load config %q: %w", confPath, err)
		}
		if err := c.Scan(&bc); err != nil {
			_ = c.Close()
			return nil, nil, fmt.Errorf("scan config %q: %w", confPath, err)
		}
		cleanup = func() { _ = c.Close() }
	}

	applyEnvOverrides(&bc)
	applyDefaults(&bc)

	if bc.Data.Postgres.DSN == "" {
		cleanup()
		return nil, nil, fmt.Errorf("postgres DSN is required (set %s)", envDatabaseURL)
	}
	return &bc, cleanup, nil
}

// loadEnvFiles 从工作目录加载 .env.local / .env（先到先得，不覆盖已有变量）。
func loadEnvFiles() {
	for _, name := range envFileNames {
		path := filepath.Clean(name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}

func applyEnvOverrides(bc *Bootstrap) {
	if dsn := os.Getenv(envDatabaseURL); dsn != "" {
		bc.Data.Postgres.DSN = dsn
	}
	if port := os.Getenv(envPort); port != "" {
		bc.Server.HTTP.Addr = net.JoinHostPort("", port)
	}
	if secret := os.Getenv(envCronSecret); secret != "" {
		bc.Cron.Secret = secret
	}
	if name := os.Getenv(envServiceName); name != "" {
		bc.Service.Name = name
	}
	if version := os.Getenv(envServiceVersion); version != "" {
		bc.Service.Version = version
	}
	if env := os.Getenv(envAppEnv); env != "" {
		bc.Service.Environment = env
	}
}

func applyDefaults(bc *Bootstrap) {
	if bc.Server.HTTP.Addr == "" {
		bc.Server.HTTP.Addr = defaultHTTPAddr
	}
	if bc.Service.Name == "" {
		bc.Service.Name = defaultServiceName
	}
	if bc.Service.Version == "" {
		bc.Service.Version = "dev"
	}
	if bc.Service.Environment == "" {
		bc.Service.Environment = "development"
	}
	if bc.Service.InstanceID == "" {
		host, _ := os.Hostname()
		bc.Service.InstanceID = host
	}
}

// Duration 解析 time.ParseDuration 格式的配置值；空串或非法值返回零值，
// 由使用方套用自身默认值。
func Duration(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0
	}
	return d
}
