package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultConfigYAML 内置默认配置
//
//go:embed config.yaml
var DefaultConfigYAML []byte

// Config 应用配置
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Database  DatabaseConfig   `mapstructure:"database"`
	JWT       JWTConfig        `mapstructure:"jwt"`
	Email     EmailConfig      `mapstructure:"email"`
	ML        MLConfig         `mapstructure:"ml"`
	RateLimit RateLimitConfig  `mapstructure:"ratelimit"`
	Pathogens []PathogenConfig `mapstructure:"pathogens"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"` // mysql / sqlite
	Host       string `mapstructure:"host"`
	Port       string `mapstructure:"port"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	DBName     string `mapstructure:"dbname"`
	Charset    string `mapstructure:"charset"`
	SQLitePath string `mapstructure:"sqlite_path"`
	LogLevel   string `mapstructure:"log_level"` // silent / error / warn / info
}

// DSN MySQL 连接串
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=True&loc=Local&multiStatements=true",
		d.Username, d.Password, d.Host, d.Port, d.DBName, d.Charset)
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret      string        `mapstructure:"secret"`
	ExpireHours int           `mapstructure:"expire_hours"`
	ExpireTime  time.Duration `mapstructure:"-"`
}

// EmailConfig 邮件配置（模型晋级通知）
type EmailConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Host       string   `mapstructure:"host"`
	Port       int      `mapstructure:"port"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	From       string   `mapstructure:"from"`
	Recipients []string `mapstructure:"recipients"`
}

// MLConfig 分类模型与版本策略
type MLConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	ModelType         string `mapstructure:"model_type"`
	Neighbors         int    `mapstructure:"neighbors"`
	MinSamples        int    `mapstructure:"min_samples"`
	TeachingThreshold int    `mapstructure:"teaching_threshold"`
	PromotionInterval int    `mapstructure:"promotion_interval"`
}

// RateLimitConfig 批量分类接口限流
type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

// Window 限流窗口
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// PathogenConfig 病原体及其通道
type PathogenConfig struct {
	Code     string          `mapstructure:"code"`
	Channels []ChannelConfig `mapstructure:"channels"`
}

// ChannelConfig 通道与检测靶标
type ChannelConfig struct {
	Fluorophore string `mapstructure:"fluorophore"`
	Target      string `mapstructure:"target"`
}

// LoadConfig 加载配置
// 优先级: 环境变量 > 外部配置文件 > 嵌入的默认配置
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// 1. 首先加载嵌入的默认配置
	if err := v.ReadConfig(bytes.NewReader(DefaultConfigYAML)); err != nil {
		return nil, fmt.Errorf("读取内置配置失败: %w", err)
	}

	// 2. 尝试加载外部配置文件（可选，用于覆盖默认配置）
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.MergeInConfig(); err != nil {
			log.Printf("警告: 无法读取指定配置文件 %s: %v", configPath, err)
		} else {
			log.Printf("已合并外部配置文件: %s", configPath)
		}
	} else {
		externalViper := viper.New()
		externalViper.SetConfigName("config")
		externalViper.SetConfigType("yaml")
		externalViper.AddConfigPath(".")
		externalViper.AddConfigPath("/etc/qpcrml")
		externalViper.AddConfigPath("$HOME/.qpcrml")

		if err := externalViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(externalViper.AllSettings()); err != nil {
				log.Printf("警告: 合并外部配置失败: %v", err)
			} else {
				log.Printf("已合并外部配置文件: %s", externalViper.ConfigFileUsed())
			}
		}
	}

	// 3. 环境变量覆盖，如 QPCRML_DATABASE_DRIVER=sqlite
	v.SetEnvPrefix("QPCRML")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	cfg.applyDefaults()

	return &cfg, nil
}

// MustLoadConfig 加载配置，失败则 panic
func MustLoadConfig(configPath string) *Config {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		panic(fmt.Sprintf("加载配置失败: %v", err))
	}
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.JWT.ExpireHours <= 0 {
		cfg.JWT.ExpireHours = 24
	}
	cfg.JWT.ExpireTime = time.Duration(cfg.JWT.ExpireHours) * time.Hour

	if cfg.ML.ModelType == "" {
		cfg.ML.ModelType = "curve_classifier"
	}
	if cfg.ML.Neighbors <= 0 {
		cfg.ML.Neighbors = 5
	}
	if cfg.ML.MinSamples < cfg.ML.Neighbors {
		cfg.ML.MinSamples = cfg.ML.Neighbors
	}
	if cfg.ML.TeachingThreshold <= 0 {
		cfg.ML.TeachingThreshold = 40
	}
	if cfg.ML.PromotionInterval <= 0 {
		cfg.ML.PromotionInterval = 40
	}
	if cfg.RateLimit.MaxRequests <= 0 {
		cfg.RateLimit.MaxRequests = 60
	}
	if cfg.RateLimit.WindowSeconds <= 0 {
		cfg.RateLimit.WindowSeconds = 60
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "mysql"
	}
}

// PrintConfig 打印当前配置（隐藏敏感信息）
func (cfg *Config) PrintConfig() {
	log.Printf("当前配置:")
	log.Printf("  服务器: %s (模式: %s)", cfg.Server.Port, cfg.Server.Mode)
	if cfg.Database.Driver == "sqlite" {
		log.Printf("  数据库: sqlite %s", cfg.Database.SQLitePath)
	} else {
		log.Printf("  数据库: %s@%s:%s/%s",
			cfg.Database.Username,
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.DBName)
	}
	log.Printf("  模型: enabled=%v k=%d 教学期阈值=%d 晋级间隔=%d",
		cfg.ML.Enabled, cfg.ML.Neighbors, cfg.ML.TeachingThreshold, cfg.ML.PromotionInterval)
	log.Printf("  邮件通知: %v", cfg.Email.Enabled)
}
