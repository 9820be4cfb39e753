package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Session store backends
const (
	SessionStorePostgres = "postgres"
	SessionStoreMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	CORS     CORSConfig
	FarmAPI  FarmAPIConfig
	Weather  WeatherConfig
	Redis    RedisConfig
	NATS     NATSConfig
	Editor   EditorConfig
	Map      MapConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	PoolMin  int
	PoolMax  int
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// FarmAPIConfig points at the Farm REST API.
type FarmAPIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// WeatherConfig configures the weather provider.
type WeatherConfig struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// RedisConfig configures the weather cache. An empty Addr disables caching.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NATSConfig configures boundary events. An empty URL logs events instead.
type NATSConfig struct {
	URL       string
	JetStream bool
}

// EditorConfig configures boundary editing sessions.
type EditorConfig struct {
	SessionStore string
	CommitWindow time.Duration
}

// MapConfig holds the map canvas fallback view.
type MapConfig struct {
	CenterLat   float64
	CenterLng   float64
	WideZoom    int
	FocusedZoom int
}

// Load reads configuration from a .env file, when one exists, and the environment.
// Variables already set in the environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if err := loadDotEnv(envFiles...); err != nil {
		return nil, err
	}

	v := viper.New()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "farmboard")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_POOL_MIN", 2)
	v.SetDefault("DB_POOL_MAX", 10)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("FARM_API_URL", "http://localhost:8000/api")
	v.SetDefault("FARM_API_TIMEOUT", "15s")
	v.SetDefault("WEATHER_API_URL", "https://api.openweathermap.org/data/2.5")
	v.SetDefault("WEATHER_TIMEOUT", "5s")
	v.SetDefault("WEATHER_CACHE_TTL", "10m")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("NATS_JETSTREAM", false)
	v.SetDefault("SESSION_STORE", SessionStorePostgres)
	v.SetDefault("EDITOR_COMMIT_WINDOW", "100ms")
	v.SetDefault("MAP_CENTER_LAT", 34.0)
	v.SetDefault("MAP_CENTER_LNG", 9.0)
	v.SetDefault("MAP_WIDE_ZOOM", 7)
	v.SetDefault("MAP_FOCUSED_ZOOM", 13)

	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			PoolMin:  v.GetInt("DB_POOL_MIN"),
			PoolMax:  v.GetInt("DB_POOL_MAX"),
		},
		CORS: CORSConfig{
			Origins: parseOrigins(v.GetString("CORS_ORIGINS")),
		},
		FarmAPI: FarmAPIConfig{
			BaseURL: v.GetString("FARM_API_URL"),
			Timeout: v.GetDuration("FARM_API_TIMEOUT"),
		},
		Weather: WeatherConfig{
			BaseURL:  v.GetString("WEATHER_API_URL"),
			APIKey:   v.GetString("WEATHER_API_KEY"),
			Timeout:  v.GetDuration("WEATHER_TIMEOUT"),
			CacheTTL: v.GetDuration("WEATHER_CACHE_TTL"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		NATS: NATSConfig{
			URL:       v.GetString("NATS_URL"),
			JetStream: v.GetBool("NATS_JETSTREAM"),
		},
		Editor: EditorConfig{
			SessionStore: strings.ToLower(v.GetString("SESSION_STORE")),
			CommitWindow: v.GetDuration("EDITOR_COMMIT_WINDOW"),
		},
		Map: MapConfig{
			CenterLat:   v.GetFloat64("MAP_CENTER_LAT"),
			CenterLng:   v.GetFloat64("MAP_CENTER_LNG"),
			WideZoom:    v.GetInt("MAP_WIDE_ZOOM"),
			FocusedZoom: v.GetInt("MAP_FOCUSED_ZOOM"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads the given files, or .env when none are given. Missing files are
// skipped.
func loadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// UsesPostgres reports whether editor sessions are stored in PostgreSQL.
func (c *Config) UsesPostgres() bool {
	return c.Editor.SessionStore == SessionStorePostgres
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Editor.SessionStore {
	case SessionStorePostgres:
		if err := c.Database.validate(); err != nil {
			return err
		}
	case SessionStoreMemory:
	default:
		return fmt.Errorf("SESSION_STORE must be %q or %q", SessionStorePostgres, SessionStoreMemory)
	}
	if c.Editor.CommitWindow < 0 {
		return fmt.Errorf("EDITOR_COMMIT_WINDOW must be non-negative")
	}

	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	if c.FarmAPI.BaseURL == "" {
		return fmt.Errorf("FARM_API_URL is required")
	}
	if c.FarmAPI.Timeout <= 0 {
		return fmt.Errorf("FARM_API_TIMEOUT must be positive")
	}
	if c.Weather.Timeout <= 0 {
		return fmt.Errorf("WEATHER_TIMEOUT must be positive")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("REDIS_DB must be non-negative")
	}

	if c.Map.CenterLat < -90 || c.Map.CenterLat > 90 {
		return fmt.Errorf("MAP_CENTER_LAT must be between -90 and 90")
	}
	if c.Map.CenterLng < -180 || c.Map.CenterLng > 180 {
		return fmt.Errorf("MAP_CENTER_LNG must be between -180 and 180")
	}
	if c.Map.WideZoom < 0 || c.Map.FocusedZoom > 22 || c.Map.WideZoom > c.Map.FocusedZoom {
		return fmt.Errorf("map zoom levels must satisfy 0 <= MAP_WIDE_ZOOM <= MAP_FOCUSED_ZOOM <= 22")
	}

	return nil
}

func (d DatabaseConfig) validate() error {
	if d.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if d.Port == "" {
		return fmt.Errorf("DB_PORT is required")
	}
	if d.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if d.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if d.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if d.PoolMin < 0 {
		return fmt.Errorf("DB_POOL_MIN must be non-negative")
	}
	if d.PoolMax < 1 {
		return fmt.Errorf("DB_POOL_MAX must be at least 1")
	}
	if d.PoolMin > d.PoolMax {
		return fmt.Errorf("DB_POOL_MIN must be less than or equal to DB_POOL_MAX")
	}
	return nil
}

// parseOrigins splits a comma-separated list, dropping blanks.
func parseOrigins(origins string) []string {
	result := []string{}
	for _, part := range strings.Split(origins, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
