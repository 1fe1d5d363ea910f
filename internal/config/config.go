package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"vegprice-service/internal/utils"
)

type HTTPConfig struct {
	Host        string
	Port        int
	MaxUploadMB int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	AccessSecret string
}

type InferenceConfig struct {
	URL     string
	Timeout time.Duration
}

type DetectionConfig struct {
	ConfidenceThreshold float64
	DefaultLocation     string
	ImageMaxWidth       int
	ImageMaxHeight      int
	ImageMaxPixels      int
	RandomSeed          uint64
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	PublicBaseURL string
}

type Config struct {
	Environment string
	LogLevel    string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Inference   InferenceConfig
	Detection   DetectionConfig
	Storage     StorageConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")

	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("MAX_UPLOAD_MB", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("INFERENCE_TIMEOUT", "10s")
	v.SetDefault("DETECTION_CONFIDENCE_THRESHOLD", 0.6)
	v.SetDefault("DEFAULT_LOCATION", "Delhi")
	v.SetDefault("IMAGE_MAX_WIDTH", 640)
	v.SetDefault("IMAGE_MAX_HEIGHT", 480)
	v.SetDefault("IMAGE_MAX_PIXELS", 40_000_000)
	v.SetDefault("S3_REGION", "auto")

	_ = v.ReadInConfig()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		HTTP: HTTPConfig{
			Host:        v.GetString("HTTP_HOST"),
			Port:        v.GetInt("HTTP_PORT"),
			MaxUploadMB: v.GetInt("MAX_UPLOAD_MB"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Inference: InferenceConfig{
			URL:     v.GetString("INFERENCE_URL"),
			Timeout: v.GetDuration("INFERENCE_TIMEOUT"),
		},
		Detection: DetectionConfig{
			ConfidenceThreshold: v.GetFloat64("DETECTION_CONFIDENCE_THRESHOLD"),
			DefaultLocation:     utils.NormalizeLocation(v.GetString("DEFAULT_LOCATION")),
			ImageMaxWidth:       v.GetInt("IMAGE_MAX_WIDTH"),
			ImageMaxHeight:      v.GetInt("IMAGE_MAX_HEIGHT"),
			ImageMaxPixels:      v.GetInt("IMAGE_MAX_PIXELS"),
			RandomSeed:          v.GetUint64("RANDOM_SEED"),
		},
		Storage: StorageConfig{
			Endpoint:      v.GetString("S3_ENDPOINT"),
			AccessKey:     v.GetString("S3_ACCESS_KEY_ID"),
			SecretKey:     v.GetString("S3_SECRET_ACCESS_KEY"),
			Bucket:        v.GetString("S3_BUCKET"),
			Region:        v.GetString("S3_REGION"),
			PublicBaseURL: v.GetString("S3_PUBLIC_BASE_URL"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be in 1..65535, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	if t := cfg.Detection.ConfidenceThreshold; t < 0 || t > 1 {
		return fmt.Errorf("DETECTION_CONFIDENCE_THRESHOLD must be in [0,1], got %v", t)
	}
	if cfg.Detection.ImageMaxWidth <= 0 || cfg.Detection.ImageMaxHeight <= 0 {
		return fmt.Errorf("IMAGE_MAX_WIDTH and IMAGE_MAX_HEIGHT must be positive")
	}
	if cfg.Detection.ImageMaxPixels <= 0 {
		return fmt.Errorf("IMAGE_MAX_PIXELS must be positive")
	}
	if cfg.Detection.DefaultLocation == "" {
		return fmt.Errorf("DEFAULT_LOCATION is required")
	}
	return nil
}

// StorageEnabled сообщает, заданы ли все параметры S3-хранилища для архива снимков.
func (c *Config) StorageEnabled() bool {
	s := c.Storage
	return s.Endpoint != "" && s.AccessKey != "" && s.SecretKey != "" && s.Bucket != ""
}
