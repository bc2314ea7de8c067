package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jengzang/ifta-backend-go/internal/analysis/foundation"
	"github.com/jengzang/ifta-backend-go/internal/logger"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Tracking TrackingConfig `yaml:"tracking"`
	Geocode  GeocodeConfig  `yaml:"geocode"`
	Redis    RedisConfig    `yaml:"redis"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Log      logger.Config  `yaml:"log"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port            string        `yaml:"port"`
	JWTSecret       string        `yaml:"jwt_secret"`        // signs tracking session tokens
	RateLimit       int           `yaml:"rate_limit"`        // requests per window per IP, 0 disables
	RateWindow      time.Duration `yaml:"rate_window"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// TrackingConfig controls the live tracking pipeline
type TrackingConfig struct {
	Thresholds        foundation.Thresholds `yaml:"thresholds"`
	StatsRefreshEvery int                   `yaml:"stats_refresh_every"` // accepted fixes between trip stat refreshes
	SessionTTL        time.Duration         `yaml:"session_ttl"`
}

// GeocodeConfig controls reverse geocoding of fixes to jurisdictions
type GeocodeConfig struct {
	Provider           string        `yaml:"provider"` // google or static
	APIKey             string        `yaml:"api_key"`
	StaticJurisdiction string        `yaml:"static_jurisdiction"`
	Timeout            time.Duration `yaml:"timeout"`
	Cache              string        `yaml:"cache"` // memory, redis or none
	CacheTTL           time.Duration `yaml:"cache_ttl"`
	ReuseRadiusM       float64       `yaml:"reuse_radius_m"`
	CellPrecision      uint          `yaml:"cell_precision"`
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// MQTTConfig device transport; an empty broker disables the subscriber
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            ":8080",
			JWTSecret:       "your-secret-key-change-in-production",
			RateLimit:       600,
			RateWindow:      time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "./data/ifta.db",
		},
		Tracking: TrackingConfig{
			Thresholds:        foundation.DefaultThresholds,
			StatsRefreshEvery: 10,
			SessionTTL:        72 * time.Hour,
		},
		Geocode: GeocodeConfig{
			Provider:      "google",
			Timeout:       10 * time.Second,
			Cache:         "memory",
			CacheTTL:      5 * time.Minute,
			ReuseRadiusM:  500,
			CellPrecision: 7,
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "ifta:geocode:",
		},
		MQTT: MQTTConfig{
			ClientID: "ifta-backend",
			Topic:    "ifta/+/fixes",
			QoS:      1,
		},
		Log: logger.Config{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load 加载配置: defaults, then the YAML file at path (optional), then
// environment overrides
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Server.JWTSecret = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv("GOOGLE_MAPS_API_KEY"); v != "" {
		cfg.Geocode.APIKey = v
	}
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimit = n
		}
	}
}

// Validate checks values that would otherwise fail later at startup
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Server.JWTSecret == "" {
		return errors.New("jwt secret is required")
	}
	switch c.Geocode.Provider {
	case "google", "static":
	default:
		return fmt.Errorf("unknown geocode provider: %q", c.Geocode.Provider)
	}
	switch c.Geocode.Cache {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("unknown geocode cache: %q", c.Geocode.Cache)
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("invalid mqtt qos: %d", c.MQTT.QoS)
	}
	if c.Tracking.StatsRefreshEvery <= 0 {
		c.Tracking.StatsRefreshEvery = 10
	}
	return nil
}
