package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Policy       PolicyConfig       `mapstructure:"policy"`
	Log          LogConfig          `mapstructure:"log"`
	Notification NotificationConfig `mapstructure:"notification"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Seed         SeedConfig         `mapstructure:"seed"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	Name string `mapstructure:"name"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // mysql, sqlite, memory
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Database        string `mapstructure:"database"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 秒
	LogLevel        string `mapstructure:"log_level"`         // SQL日志级别: silent/error/warn/info
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWT        JWTConfig   `mapstructure:"jwt"`
	LDAP       LDAPConfig  `mapstructure:"ldap"`
	Local      LocalConfig `mapstructure:"local"`
	CookieName string      `mapstructure:"cookie_name"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret            string `mapstructure:"secret"`
	AccessTokenExpire int    `mapstructure:"access_token_expire"` // 秒
	GuestTokenExpire  int    `mapstructure:"guest_token_expire"`  // 秒
}

func (c JWTConfig) AccessTTL() time.Duration {
	return time.Duration(c.AccessTokenExpire) * time.Second
}

func (c JWTConfig) GuestTTL() time.Duration {
	return time.Duration(c.GuestTokenExpire) * time.Second
}

// LDAPConfig LDAP配置
type LDAPConfig struct {
	Enabled      bool           `mapstructure:"enabled"`
	Host         string         `mapstructure:"host"`
	Port         int            `mapstructure:"port"`
	UseSSL       bool           `mapstructure:"use_ssl"`
	BindDN       string         `mapstructure:"bind_dn"`
	BindPassword string         `mapstructure:"bind_password"`
	BaseDN       string         `mapstructure:"base_dn"`
	UserFilter   string         `mapstructure:"user_filter"`
	Attributes   LDAPAttributes `mapstructure:"attributes"`
}

// LDAPAttributes LDAP属性映射
type LDAPAttributes struct {
	Username    string `mapstructure:"username"`
	Email       string `mapstructure:"email"`
	DisplayName string `mapstructure:"display_name"`
}

// LocalConfig 本地用户配置
type LocalConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// PolicyConfig 授权策略中可调整的部分
type PolicyConfig struct {
	// Lead 是否可以修改任意任务状态；false 时仅限其负责的项目
	LeadGlobalTaskStatus bool `mapstructure:"lead_global_task_status"`
	// 访客码首次使用后是否立即失效
	GuestSingleUse      bool `mapstructure:"guest_single_use"`
	MinAccessCodeLength int  `mapstructure:"min_access_code_length"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string `mapstructure:"level"`  // debug, info, warn, error
	Format   string `mapstructure:"format"` // json, console
	Output   string `mapstructure:"output"` // stdout, file
	FilePath string `mapstructure:"file_path"`
}

// NotificationConfig 通知配置
type NotificationConfig struct {
	Enabled     bool        `mapstructure:"enabled"`
	Providers   []string    `mapstructure:"providers"` // log, lark, email
	LarkWebhook string      `mapstructure:"lark_webhook"`
	Email       EmailConfig `mapstructure:"email"`
	Timeout     string      `mapstructure:"timeout"`
}

// EmailConfig 邮件发送配置, 优先 SMTP, 否则走 Resend API
type EmailConfig struct {
	FromEmail    string `mapstructure:"from_email"`
	ResendAPIKey string `mapstructure:"resend_api_key"`
	SMTPEnabled  bool   `mapstructure:"smtp_enabled"`
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     string `mapstructure:"smtp_port"`
	SMTPUser     string `mapstructure:"smtp_user"`
	SMTPPass     string `mapstructure:"smtp_pass"`
}

// SchedulerConfig 定时任务配置
type SchedulerConfig struct {
	TokenCleanupCron string `mapstructure:"token_cleanup_cron"` // 秒 分 时 日 月 周
}

// SeedConfig 初始化数据
type SeedConfig struct {
	File string `mapstructure:"file"`
}

// Load 加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// 设置配置文件路径
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// 读取环境变量
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if config.Auth.JWT.Secret == "" {
		return nil, fmt.Errorf("auth.jwt.secret 未配置")
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "taskhub")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.conn_max_lifetime", 3600)
	v.SetDefault("database.log_level", "silent")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("auth.jwt.access_token_expire", 7*24*3600)
	v.SetDefault("auth.jwt.guest_token_expire", 30*24*3600)
	v.SetDefault("auth.local.enabled", true)
	v.SetDefault("auth.cookie_name", "token")

	v.SetDefault("policy.lead_global_task_status", true)
	v.SetDefault("policy.guest_single_use", false)
	v.SetDefault("policy.min_access_code_length", 6)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("notification.providers", []string{"log"})
	v.SetDefault("notification.timeout", "10s")

	v.SetDefault("scheduler.token_cleanup_cron", "0 0 3 * * *")
}

// GetDSN 获取数据库DSN
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.Username,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}
