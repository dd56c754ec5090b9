package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Billing   BillingConfig   `mapstructure:"billing"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Audit     AuditConfig     `mapstructure:"audit"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // mysql 或 sqlite
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	Path         string `mapstructure:"path"` // sqlite 文件路径
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type AuthConfig struct {
	InternalKey string `mapstructure:"internal_key"`
	JWTSecret   string `mapstructure:"jwt_secret"`
}

type BillingConfig struct {
	DefaultPlanCode string  `mapstructure:"default_plan_code"` // 用户初始化时的默认计划
	DefaultPlanDays int     `mapstructure:"default_plan_days"`
	PlanDays        int     `mapstructure:"plan_days"` // 付费计划有效期（天）
	InitialBalance  float64 `mapstructure:"initial_balance"`
}

type SchedulerConfig struct {
	ResetIntervalMinutes int `mapstructure:"reset_interval_minutes"`
}

type AuditConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	QueueName string `mapstructure:"queue_name"`
}

func Load(configPath string) (*Config, error) {
	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	// 检查 config.local.yaml 是否存在
	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// 环境变量覆盖
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Billing.DefaultPlanCode == "" {
		cfg.Billing.DefaultPlanCode = "0000"
	}
	if cfg.Billing.DefaultPlanDays <= 0 {
		cfg.Billing.DefaultPlanDays = 365
	}
	if cfg.Billing.PlanDays <= 0 {
		cfg.Billing.PlanDays = 30
	}
	if cfg.Scheduler.ResetIntervalMinutes <= 0 {
		cfg.Scheduler.ResetIntervalMinutes = 5
	}
	if cfg.Audit.QueueName == "" {
		cfg.Audit.QueueName = "billing_audit_events"
	}
}
