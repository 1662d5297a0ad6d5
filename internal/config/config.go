package config

import (
	"os"
	"strconv"
)

// Config estate-data（楼层平面图引擎 HTTP API）配置
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled bool
	Database  DatabaseConfig
	Redis     struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
	Layout struct {
		PxPerMeter float64 // 像素/米 换算比例（默认 80）
	}
	Listing ListingConfig
}

// DatabaseConfig PostgreSQL 连接配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 生成 PostgreSQL DSN
func (c *DatabaseConfig) GetDSN() string {
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Database +
		" sslmode=" + c.SSLMode
}

// ListingConfig 外部房源发布服务配置（发布楼层后推送房间清单）
type ListingConfig struct {
	Enabled bool   // 是否启用推送（默认 false）
	BaseURL string // 房源服务地址（如 "http://localhost:9090"）
	APIKey  string // API Key（可选）
	Timeout int    // 请求超时（秒）
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// DB不可用时 main 会降级到内存库存
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "estate")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "20"), 20)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0
	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Layout.PxPerMeter = parseFloat(getEnv("PX_PER_METER", "80"), 80)

	// 房源推送配置（默认禁用）
	cfg.Listing.Enabled = getEnv("LISTING_ENABLED", "false") == "true"
	cfg.Listing.BaseURL = getEnv("LISTING_BASE_URL", "http://localhost:9090")
	cfg.Listing.APIKey = getEnv("LISTING_API_KEY", "")
	cfg.Listing.Timeout = parseInt(getEnv("LISTING_TIMEOUT", "10"), 10)

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseFloat(s string, def float64) float64 {
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return def
}
