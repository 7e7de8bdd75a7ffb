package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	JWTSecret              string
	CORSOrigins            string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	StatsCacheTTL          time.Duration
	UploadMaxBytes         int64
	UploadSessionTTL       time.Duration
	SeedEnabled            bool
	SeedToken              string
	NotificationChannel    string
	AlertAttendance        float64
	AlertMarks             float64
	AlertFeeDays           int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// AuthEnabled reports whether bearer tokens are required on mentor routes.
func (c Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("DWATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Dropout Watch API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.url", "file:dropout_watch?mode=memory&cache=shared")
	v.SetDefault("cors.origins", "*")
	v.SetDefault("cloudinary.folder", "dropout-watch/reports")
	v.SetDefault("stats.cache_ttl", "5m")
	v.SetDefault("upload.max_bytes", 5*1024*1024)
	v.SetDefault("upload.session_ttl", "1h")
	v.SetDefault("seed.enabled", true)
	v.SetDefault("notification.channel", "dropout-watch.notifications")
	v.SetDefault("alert.attendance", 75.0)
	v.SetDefault("alert.marks", 60.0)
	v.SetDefault("alert.fee_days", 30)

	ttl, err := parseDuration(v.GetString("stats.cache_ttl"), 5*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid stats cache ttl: %w", err)
	}

	sessionTTL, err := parseDuration(v.GetString("upload.session_ttl"), time.Hour)
	if err != nil {
		return Config{}, fmt.Errorf("invalid upload session ttl: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		CORSOrigins:            v.GetString("cors.origins"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		StatsCacheTTL:          ttl,
		UploadMaxBytes:         v.GetInt64("upload.max_bytes"),
		UploadSessionTTL:       sessionTTL,
		SeedEnabled:            v.GetBool("seed.enabled"),
		SeedToken:              v.GetString("seed.token"),
		NotificationChannel:    v.GetString("notification.channel"),
		AlertAttendance:        v.GetFloat64("alert.attendance"),
		AlertMarks:             v.GetFloat64("alert.marks"),
		AlertFeeDays:           v.GetInt("alert.fee_days"),
	}

	if cfg.UploadMaxBytes <= 0 {
		cfg.UploadMaxBytes = 5 * 1024 * 1024
	}

	if cfg.SeedEnabled && cfg.AppEnv == "production" && cfg.SeedToken == "" {
		return Config{}, fmt.Errorf("seed token must be provided when seeding is enabled in production")
	}

	return cfg, nil
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}
