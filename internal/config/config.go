package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/devqr/internal/constants"
	"github.com/devqr/internal/logger"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀（例如 DEVQR_STORAGE_QR_DIR）
const EnvPrefix = "DEVQR"

// Config 应用配置结构
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	QR       QRConfig       `mapstructure:"qr"`
	Probe    ProbeConfig    `mapstructure:"probe"`
	Server   ServerConfig   `mapstructure:"server"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Mode     string `mapstructure:"mode"`     // debug / release
	Timezone string `mapstructure:"timezone"` // 记录时间戳所用时区
}

// Location 解析配置时区，失败时回退到本地时区
func (c AppConfig) Location() *time.Location {
	name := strings.TrimSpace(c.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.Warnw("config_timezone_invalid", "timezone", name, "error", err)
		return time.Local
	}
	return loc
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // sqlite / postgres
	DSN    string             `mapstructure:"dsn"`
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// StorageConfig 本地文件产物配置
type StorageConfig struct {
	QRDir      string `mapstructure:"qr_dir"`
	ExportPath string `mapstructure:"export_path"`
}

// QRConfig 二维码生成配置
type QRConfig struct {
	SizePx        int    `mapstructure:"size_px"`
	DefaultFormat string `mapstructure:"default_format"`
}

// ProbeConfig OpenOCD 探针配置
type ProbeConfig struct {
	OpenOCDPath    string `mapstructure:"openocd_path"`
	InterfaceCfg   string `mapstructure:"interface_cfg"`
	TargetCfg      string `mapstructure:"target_cfg"`
	UIDAddress     string `mapstructure:"uid_address"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	WorkDir        string `mapstructure:"work_dir"`
}

// Timeout 返回探针调用超时
func (c ProbeConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return time.Duration(constants.ProbeDefaultTimeoutSec) * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ServerConfig 本地 HTTP 服务配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// Addr 返回监听地址
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// Load 加载配置；configFile 为空时按默认路径查找 config.yml
func Load(configFile string) (*Config, error) {
	v := viper.New()
	if path := strings.TrimSpace(configFile); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./etc")
		v.AddConfigPath("$HOME/.devqr")
	}

	setDefaults(v)

	// 环境变量支持：storage.qr_dir -> DEVQR_STORAGE_QR_DIR
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config failed: %w", err)
		}
		logger.Debugw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Debugw("config_file_loaded", "file", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.mode", constants.ModeRelease)
	v.SetDefault("app.timezone", constants.DefaultTimezone)

	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "devqr.log")
	v.SetDefault("log.max_size_mb", 20)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", constants.DefaultDatabaseDSN)
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)

	v.SetDefault("storage.qr_dir", constants.DefaultQRDir)
	v.SetDefault("storage.export_path", constants.DefaultExportPath)

	v.SetDefault("qr.size_px", constants.QRDefaultSizePx)
	v.SetDefault("qr.default_format", "olarm")

	v.SetDefault("probe.openocd_path", constants.ProbeDefaultBinary)
	v.SetDefault("probe.interface_cfg", constants.ProbeDefaultInterfaceCfg)
	v.SetDefault("probe.target_cfg", constants.ProbeDefaultTargetCfg)
	v.SetDefault("probe.uid_address", constants.ProbeDefaultUIDAddress)
	v.SetDefault("probe.timeout_seconds", constants.ProbeDefaultTimeoutSec)
	v.SetDefault("probe.work_dir", "")

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "8090")

	v.SetDefault("cors.allowed_origins", []string{})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Cache-Control",
		"X-Requested-With",
		"X-Request-ID",
	})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 600)
}
