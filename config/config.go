package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Clarifai  ClarifaiConfig  `mapstructure:"clarifai"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Detection DetectionConfig `mapstructure:"detection"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type ClarifaiConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	PAT        string        `mapstructure:"pat"`
	UserID     string        `mapstructure:"user_id"`
	AppID      string        `mapstructure:"app_id"`
	WorkflowID string        `mapstructure:"workflow_id"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type TelegramConfig struct {
	Token       string `mapstructure:"token"`
	ChatID      string `mapstructure:"chat_id"` // 数字ID或 @频道用户名
	APIEndpoint string `mapstructure:"api_endpoint"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type UploadConfig struct {
	MaxSize       int64  `mapstructure:"max_size"`
	MaxBase64Size int64  `mapstructure:"max_base64_size"`
	UploadDir     string `mapstructure:"upload_dir"`
}

// DetectionConfig 控制哪些检测结果会被标注
type DetectionConfig struct {
	TargetCategory string `mapstructure:"target_category"`
	Label          string `mapstructure:"label"`
}

// Load 从 YAML 文件加载配置，环境变量覆盖密钥类配置
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return unmarshal(v)
}

// New 使用默认配置路径加载配置。只有配置文件不存在时才退回默认值和环境变量，
// 其他错误（格式错误、类型不匹配）直接返回。
func New() (*Config, error) {
	return loadOrDefault("config.yaml")
}

func loadOrDefault(configPath string) (*Config, error) {
	cfg, err := Load(configPath)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return unmarshal(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Server.Port != "" && !strings.Contains(cfg.Server.Port, ":") {
		cfg.Server.Port = ":" + cfg.Server.Port
	}
	return &cfg, nil
}

func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("clarifai.pat", "KEY_PAT")
	_ = v.BindEnv("telegram.token", "KEY_TELEGRAM_TOKEN")
	_ = v.BindEnv("telegram.chat_id", "KEY_CHAT_ID")
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("server.mode", "GIN_MODE")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":3000")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)

	v.SetDefault("clarifai.base_url", "https://api.clarifai.com")
	v.SetDefault("clarifai.user_id", "clarifai")
	v.SetDefault("clarifai.app_id", "main")
	v.SetDefault("clarifai.workflow_id", "General-Detection")
	v.SetDefault("clarifai.timeout", 30*time.Second)

	v.SetDefault("telegram.api_endpoint", "https://api.telegram.org/bot%s/%s")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("upload.max_size", 10*1024*1024)
	v.SetDefault("upload.max_base64_size", 10*1024*1024)
	v.SetDefault("upload.upload_dir", "./uploads")

	v.SetDefault("detection.target_category", "person")
	v.SetDefault("detection.label", "Persona")
}
