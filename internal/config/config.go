package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"
)

// Config 保存应用程序配置。
type Config struct {
	App      AppConfig      `json:"app"`
	MySQL    MySQLConfig    `json:"mysql"`
	Redis    RedisConfig    `json:"redis"`
	Email    EmailConfig    `json:"email"`
	Security SecurityConfig `json:"security"`
}

// AppConfig 应用程序基础配置。
type AppConfig struct {
	Env            string        `json:"env"`              // 运行环境: local / prod
	LogLevel       string        `json:"log_level"`        // 日志级别: debug / info / warn / error
	HTTPAddr       string        `json:"http_addr"`        // API 服务监听地址
	PublicBaseURL  string        `json:"public_base_url"`  // 对外站点根地址，重置链接以它为前缀
	TokenTTL       time.Duration `json:"token_ttl"`        // 会话令牌有效期（如 "168h"）
	ResetTokenTTL  time.Duration `json:"reset_token_ttl"`  // 重置令牌有效期（如 "1h"）
	StoreTimeout   time.Duration `json:"store_timeout"`    // 单次存储操作超时（如 "3s"）
	PasswordMinLen int           `json:"password_min_len"` // 密码最小长度
	BcryptCost     int           `json:"bcrypt_cost"`      // bcrypt 成本因子
	ActivityTTL    time.Duration `json:"activity_ttl"`     // 用户活跃标记保留时间
	MaxListLimit   int           `json:"max_list_limit"`   // 列表接口单次返回上限

	// 邮件投递配置
	MailWorkers       int           `json:"mail_workers"`        // 进程内邮件 worker 数
	MailQueueCapacity int           `json:"mail_queue_capacity"` // 进程内邮件缓冲容量
	MailSendTimeout   time.Duration `json:"mail_send_timeout"`   // 单封邮件发送超时

	// Redis Streams 邮件队列配置
	EnableMailQueue bool   `json:"enable_mail_queue"` // 是否启用 Redis Streams 邮件队列（开关）
	MailQueueStream string `json:"mail_queue_stream"` // Redis Stream 名称
	MailQueueGroup  string `json:"mail_queue_group"`  // Consumer Group 名称
}

// MySQLConfig MySQL 数据库配置。
type MySQLConfig struct {
	DSN string `json:"dsn"` // 数据库连接字符串
}

// RedisConfig Redis 缓存配置。
type RedisConfig struct {
	Addr     string `json:"addr"`     // Redis 地址 (host:port)
	Password string `json:"password"` // Redis 密码
}

// EmailConfig 邮件通知配置。
type EmailConfig struct {
	SMTPHost  string `json:"smtp_host"`
	SMTPPort  int    `json:"smtp_port"`
	SMTPUser  string `json:"smtp_user"`
	SMTPPass  string `json:"smtp_pass"`
	FromEmail string `json:"from_email"`
}

// SecurityConfig 安全相关配置。
type SecurityConfig struct {
	JWTSecret string `json:"jwt_secret"` // JWT 签名密钥
}

// Load 从 JSON 文件加载配置。
//
// 它会尝试读取 configs/config.json 文件，如果不存在则使用默认值。
//
// 参数:
//
//	configPath: 配置文件路径（如果为空则使用默认路径 "configs/config.json"）
//
// 返回值:
//
//	*Config: 加载完成的配置对象
//	error: 加载失败返回错误
func Load(configPath ...string) (*Config, error) {
	path := "configs/config.json"
	if len(configPath) > 0 && configPath[0] != "" {
		path = configPath[0]
	}

	// 如果配置文件不存在，使用默认配置
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := getDefaultConfig()
		// 即使没有配置文件，也允许环境变量覆盖默认值
		applyEnvOverrides(cfg)
		return cfg, nil
	}

	// 读取配置文件
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// 解析 JSON
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	// 应用默认值（对于未设置的字段）
	applyDefaults(cfg)

	// 环境变量优先覆盖配置
	applyEnvOverrides(cfg)

	return cfg, nil
}

// getDefaultConfig 返回默认配置。
func getDefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Env:            "local",
			LogLevel:       "info",
			HTTPAddr:       ":8080",
			PublicBaseURL:  "http://localhost:8080",
			TokenTTL:       7 * 24 * time.Hour,
			ResetTokenTTL:  1 * time.Hour,
			StoreTimeout:   3 * time.Second,
			PasswordMinLen: 8,
			BcryptCost:     12,
			ActivityTTL:    24 * time.Hour,
			MaxListLimit:   100,

			MailWorkers:       4,
			MailQueueCapacity: 256,
			MailSendTimeout:   15 * time.Second,

			// Redis Streams 默认配置
			EnableMailQueue: false, // 默认关闭，渐进式升级
			MailQueueStream: "joyxora:mail:queue",
			MailQueueGroup:  "mailer_group",
		},
		MySQL: MySQLConfig{
			DSN: "root:password@tcp(localhost:3306)/joyxora?parseTime=true&loc=Local",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
		},
		Email: EmailConfig{
			SMTPHost:  "smtp.gmail.com",
			SMTPPort:  587,
			SMTPUser:  "",
			SMTPPass:  "",
			FromEmail: "",
		},
		Security: SecurityConfig{
			JWTSecret: "dev_secret_change_me",
		},
	}
}

// applyDefaults 对未设置的字段应用默认值。
func applyDefaults(cfg *Config) {
	defaults := getDefaultConfig()

	if cfg.App.Env == "" {
		cfg.App.Env = defaults.App.Env
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = defaults.App.LogLevel
	}
	if cfg.App.HTTPAddr == "" {
		cfg.App.HTTPAddr = defaults.App.HTTPAddr
	}
	if cfg.App.PublicBaseURL == "" {
		cfg.App.PublicBaseURL = defaults.App.PublicBaseURL
	}
	if cfg.App.TokenTTL == 0 {
		cfg.App.TokenTTL = defaults.App.TokenTTL
	}
	if cfg.App.ResetTokenTTL == 0 {
		cfg.App.ResetTokenTTL = defaults.App.ResetTokenTTL
	}
	if cfg.App.StoreTimeout == 0 {
		cfg.App.StoreTimeout = defaults.App.StoreTimeout
	}
	if cfg.App.PasswordMinLen == 0 {
		cfg.App.PasswordMinLen = defaults.App.PasswordMinLen
	}
	if cfg.App.BcryptCost == 0 {
		cfg.App.BcryptCost = defaults.App.BcryptCost
	}
	if cfg.App.ActivityTTL == 0 {
		cfg.App.ActivityTTL = defaults.App.ActivityTTL
	}
	if cfg.App.MaxListLimit == 0 {
		cfg.App.MaxListLimit = defaults.App.MaxListLimit
	}
	if cfg.App.MailWorkers == 0 {
		cfg.App.MailWorkers = defaults.App.MailWorkers
	}
	if cfg.App.MailQueueCapacity == 0 {
		cfg.App.MailQueueCapacity = defaults.App.MailQueueCapacity
	}
	if cfg.App.MailSendTimeout == 0 {
		cfg.App.MailSendTimeout = defaults.App.MailSendTimeout
	}
	// Redis Streams 默认值
	if cfg.App.MailQueueStream == "" {
		cfg.App.MailQueueStream = defaults.App.MailQueueStream
	}
	if cfg.App.MailQueueGroup == "" {
		cfg.App.MailQueueGroup = defaults.App.MailQueueGroup
	}
	if cfg.Security.JWTSecret == "" {
		cfg.Security.JWTSecret = defaults.Security.JWTSecret
	}
	if cfg.Email.SMTPPort == 0 {
		cfg.Email.SMTPPort = defaults.Email.SMTPPort
	}
}

func applyEnvOverrides(cfg *Config) {
	viper.AutomaticEnv()

	_ = viper.BindEnv("db_host", "DB_HOST")
	_ = viper.BindEnv("db_password", "DB_PASSWORD")
	_ = viper.BindEnv("redis_addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis_password", "REDIS_PASSWORD")
	_ = viper.BindEnv("smtp_pass", "SMTP_PASS")
	_ = viper.BindEnv("jwt_secret", "JWT_SECRET")

	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.App.Env = v
	}
	if v := os.Getenv("APP_LOG_LEVEL"); v != "" {
		cfg.App.LogLevel = v
	}
	if v := os.Getenv("APP_HTTP_ADDR"); v != "" {
		cfg.App.HTTPAddr = v
	}
	if v := os.Getenv("APP_PUBLIC_BASE_URL"); v != "" {
		cfg.App.PublicBaseURL = v
	}
	if v := os.Getenv("APP_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.App.TokenTTL = d
		}
	}
	if v := os.Getenv("APP_RESET_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.App.ResetTokenTTL = d
		}
	}
	if v := os.Getenv("APP_STORE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.App.StoreTimeout = d
		}
	}
	if v := os.Getenv("APP_PASSWORD_MIN_LEN"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.App.PasswordMinLen = i
		}
	}
	if v := os.Getenv("APP_BCRYPT_COST"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.App.BcryptCost = i
		}
	}
	if v := os.Getenv("APP_ACTIVITY_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.App.ActivityTTL = d
		}
	}
	if v := os.Getenv("APP_MAX_LIST_LIMIT"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.App.MaxListLimit = i
		}
	}
	if v := os.Getenv("APP_MAIL_WORKERS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.App.MailWorkers = i
		}
	}
	if v := os.Getenv("APP_MAIL_QUEUE_CAPACITY"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.App.MailQueueCapacity = i
		}
	}
	if v := os.Getenv("APP_MAIL_SEND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.App.MailSendTimeout = d
		}
	}

	// Redis Streams 环境变量
	if v := os.Getenv("APP_ENABLE_MAIL_QUEUE"); v != "" {
		cfg.App.EnableMailQueue = v == "true" || v == "1"
	}
	if v := os.Getenv("APP_MAIL_QUEUE_STREAM"); v != "" {
		cfg.App.MailQueueStream = v
	}
	if v := os.Getenv("APP_MAIL_QUEUE_GROUP"); v != "" {
		cfg.App.MailQueueGroup = v
	}

	if v := viper.GetString("jwt_secret"); v != "" {
		cfg.Security.JWTSecret = v
	}

	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.MySQL.DSN = v
	} else if hasAnyEnv("DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME") || viper.GetString("db_host") != "" || viper.GetString("db_password") != "" {
		parsed := parseMySQLDSN(cfg.MySQL.DSN)
		if v := viper.GetString("db_host"); v != "" {
			host := v
			port := getenvDefault("DB_PORT", parsed.Addr, "3306")
			parsed.Addr = host + ":" + port
		} else if v := os.Getenv("DB_PORT"); v != "" {
			host := parsed.Addr
			if strings.Contains(host, ":") {
				host = strings.Split(host, ":")[0]
			}
			parsed.Addr = host + ":" + v
		}
		if v := os.Getenv("DB_USER"); v != "" {
			parsed.User = v
		}
		if v := viper.GetString("db_password"); v != "" {
			parsed.Passwd = v
		}
		if v := os.Getenv("DB_NAME"); v != "" {
			parsed.DBName = v
		}
		cfg.MySQL.DSN = parsed.FormatDSN()
	}

	if v := viper.GetString("redis_addr"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := viper.GetString("redis_password"); v != "" {
		cfg.Redis.Password = v
	}

	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.Email.SMTPHost = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Email.SMTPPort = i
		}
	}
	if v := os.Getenv("SMTP_USER"); v != "" {
		cfg.Email.SMTPUser = v
	}
	if v := viper.GetString("smtp_pass"); v != "" {
		cfg.Email.SMTPPass = v
	}
	if v := os.Getenv("SMTP_FROM"); v != "" {
		cfg.Email.FromEmail = v
	}
}

func hasAnyEnv(keys ...string) bool {
	for _, key := range keys {
		if os.Getenv(key) != "" {
			return true
		}
	}
	return false
}

func getenvDefault(envKey, fallbackAddr, defaultValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if fallbackAddr == "" {
		return defaultValue
	}
	if strings.Contains(fallbackAddr, ":") {
		parts := strings.Split(fallbackAddr, ":")
		if len(parts) == 2 && parts[1] != "" {
			return parts[1]
		}
	}
	return defaultValue
}

func parseMySQLDSN(dsn string) *mysql.Config {
	if dsn == "" {
		return &mysql.Config{
			User:   "root",
			Passwd: "",
			Net:    "tcp",
			Addr:   "localhost:3306",
			DBName: "joyxora",
			Params: map[string]string{
				"parseTime": "true",
				"loc":       "Local",
			},
		}
	}
	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		return &mysql.Config{
			User:   "root",
			Passwd: "",
			Net:    "tcp",
			Addr:   "localhost:3306",
			DBName: "joyxora",
			Params: map[string]string{
				"parseTime": "true",
				"loc":       "Local",
			},
		}
	}
	return parsed
}

// UnmarshalJSON 自定义 JSON 解析，支持时间Duration字符串。
func (a *AppConfig) UnmarshalJSON(data []byte) error {
	type Alias AppConfig
	aux := &struct {
		TokenTTL        string `json:"token_ttl"`
		ResetTokenTTL   string `json:"reset_token_ttl"`
		StoreTimeout    string `json:"store_timeout"`
		ActivityTTL     string `json:"activity_ttl"`
		MailSendTimeout string `json:"mail_send_timeout"`
		*Alias
	}{
		Alias: (*Alias)(a),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.TokenTTL != "" {
		duration, err := time.ParseDuration(aux.TokenTTL)
		if err != nil {
			return fmt.Errorf("invalid token_ttl format: %w", err)
		}
		a.TokenTTL = duration
	}
	if aux.ResetTokenTTL != "" {
		duration, err := time.ParseDuration(aux.ResetTokenTTL)
		if err != nil {
			return fmt.Errorf("invalid reset_token_ttl format: %w", err)
		}
		a.ResetTokenTTL = duration
	}
	if aux.StoreTimeout != "" {
		duration, err := time.ParseDuration(aux.StoreTimeout)
		if err != nil {
			return fmt.Errorf("invalid store_timeout format: %w", err)
		}
		a.StoreTimeout = duration
	}
	if aux.ActivityTTL != "" {
		duration, err := time.ParseDuration(aux.ActivityTTL)
		if err != nil {
			return fmt.Errorf("invalid activity_ttl format: %w", err)
		}
		a.ActivityTTL = duration
	}
	if aux.MailSendTimeout != "" {
		duration, err := time.ParseDuration(aux.MailSendTimeout)
		if err != nil {
			return fmt.Errorf("invalid mail_send_timeout format: %w", err)
		}
		a.MailSendTimeout = duration
	}

	return nil
}
