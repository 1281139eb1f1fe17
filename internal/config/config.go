package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Risk      RiskConfig      `mapstructure:"risk"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN returns the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DashboardConfig 仪表盘缓存
type DashboardConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// RiskConfig WIP风险阈值
type RiskConfig struct {
	ShortQtyRatio    float64 `mapstructure:"short_qty_ratio"`
	ShortQtyDays     int     `mapstructure:"short_qty_days"`
	PaceElapsedRatio float64 `mapstructure:"pace_elapsed_ratio"`
	PaceFactor       float64 `mapstructure:"pace_factor"`
	SewingNeckWIP    float64 `mapstructure:"sewing_neck_wip"`
	MaterialAtRisk   int     `mapstructure:"material_at_risk_days"`
}

// RateLimitConfig uses the ulule formatted rate, e.g. "100-M".
type RateLimitConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Rate    string `mapstructure:"rate"`
}

func Load() (*Config, error) {
	v := viper.New()

	// 设置配置文件
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVariables(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "gsm")
	v.SetDefault("database.dbname", "gsm")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", 10*time.Minute)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("minio.bucket", "gsm-reports")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("dashboard.cache_ttl", 5*time.Minute)

	v.SetDefault("risk.short_qty_ratio", 0.95)
	v.SetDefault("risk.short_qty_days", 3)
	v.SetDefault("risk.pace_elapsed_ratio", 0.5)
	v.SetDefault("risk.pace_factor", 0.8)
	v.SetDefault("risk.sewing_neck_wip", 5000)
	v.SetDefault("risk.material_at_risk_days", 3)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.rate", "100-M")
}

// envBindings maps config keys to the deployment's plain env names.
var envBindings = map[string]string{
	"server.port":       "SERVER_PORT",
	"server.mode":       "SERVER_MODE",
	"database.host":     "DB_HOST",
	"database.port":     "DB_PORT",
	"database.user":     "DB_USER",
	"database.password": "DB_PASSWORD",
	"database.dbname":   "DB_NAME",
	"redis.enabled":     "REDIS_ENABLED",
	"redis.host":        "REDIS_HOST",
	"redis.port":        "REDIS_PORT",
	"redis.password":    "REDIS_PASSWORD",
	"minio.endpoint":    "MINIO_ENDPOINT",
	"minio.access_key":  "MINIO_ACCESS_KEY",
	"minio.secret_key":  "MINIO_SECRET_KEY",
	"minio.bucket":      "MINIO_BUCKET",
	"jwt.secret":        "JWT_SECRET",
	"log.level":         "LOG_LEVEL",
	"ratelimit.rate":    "RATE_LIMIT",
}

func bindEnvVariables(v *viper.Viper) {
	for key, env := range envBindings {
		v.BindEnv(key, env)
	}
}

// Validate 启动前检查必填项和阈值范围
func (c *Config) Validate() error {
	var errs []string
	if c.JWT.Secret == "" {
		errs = append(errs, "jwt.secret is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.RateLimit.Enabled && c.RateLimit.Rate == "" {
		errs = append(errs, "ratelimit.rate is required when rate limiting is enabled")
	}
	r := c.Risk
	for name, ratio := range map[string]float64{
		"risk.short_qty_ratio":    r.ShortQtyRatio,
		"risk.pace_elapsed_ratio": r.PaceElapsedRatio,
		"risk.pace_factor":        r.PaceFactor,
	} {
		if ratio <= 0 || ratio > 1 {
			errs = append(errs, fmt.Sprintf("%s must be in (0, 1], got %v", name, ratio))
		}
	}
	if r.ShortQtyDays < 0 || r.MaterialAtRisk < 0 || r.SewingNeckWIP < 0 {
		errs = append(errs, "risk day and quantity thresholds must not be negative")
	}
	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}
