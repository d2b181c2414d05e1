package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Weather   WeatherConfig   `mapstructure:"weather"`
	Quote     QuoteConfig     `mapstructure:"quote"`
	Sun       SunConfig       `mapstructure:"sun"`
	Fonts     FontsConfig     `mapstructure:"fonts"`
	Icons     IconsConfig     `mapstructure:"icons"`
	Log       LogConfig       `mapstructure:"log"`
	Collector CollectorConfig `mapstructure:"collector"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Database  DatabaseConfig  `mapstructure:"database"`
}

type ServerConfig struct {
	Port    int  `mapstructure:"port" validate:"min=1,max=65535"`
	Enabled bool `mapstructure:"enabled"`
}

// WeatherConfig holds the provider credentials and the panel's location.
type WeatherConfig struct {
	Host           string        `mapstructure:"host" validate:"required"`
	KeyID          string        `mapstructure:"key_id"`
	SubjectID      string        `mapstructure:"subject_id"`
	PrivateKeyPath string        `mapstructure:"private_key_path"`
	Location       string        `mapstructure:"location" validate:"required"`
	City           string        `mapstructure:"city"`
	Latitude       float64       `mapstructure:"latitude" validate:"min=-90,max=90"`
	Longitude      float64       `mapstructure:"longitude" validate:"min=-180,max=180"`
	Timezone       string        `mapstructure:"timezone" validate:"required"`
	Horizon        string        `mapstructure:"horizon" validate:"oneof=3d 7d 10d 15d 30d"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl" validate:"gt=0"`
	Timeout        time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type QuoteConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// SunConfig selects where sunrise and sunset come from: "openmeteo" asks
// Open-Meteo and falls back to the local computation, "local" never leaves
// the process.
type SunConfig struct {
	Provider string `mapstructure:"provider" validate:"oneof=openmeteo local"`
}

type FontsConfig struct {
	Text    string `mapstructure:"text"`
	Numeric string `mapstructure:"numeric"`
}

type IconsConfig struct {
	Dir string `mapstructure:"dir"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Environment string `mapstructure:"environment"`
	File        string `mapstructure:"file"`
	MaxSizeMB   int    `mapstructure:"max_size_mb" validate:"min=0"`
	MaxBackups  int    `mapstructure:"max_backups" validate:"min=0"`
	MaxAgeDays  int    `mapstructure:"max_age_days" validate:"min=0"`
	DebugDir    string `mapstructure:"debug_dir"`
}

type CollectorConfig struct {
	Interval  time.Duration `mapstructure:"interval" validate:"gte=1s"`
	Enabled   bool          `mapstructure:"enabled"`
	Retention time.Duration `mapstructure:"retention"`
}

type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker" validate:"required_if=Enabled true"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
}

type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

// envBindings keeps the variable names deployments already use.
var envBindings = map[string]string{
	"weather.private_key_path": "QW_PRIVATE_KEY_PATH",
	"weather.key_id":           "QW_KEY_ID",
	"weather.subject_id":       "QW_SUB_ID",
	"weather.host":             "QW_API_HOST",
	"weather.location":         "DEFAULT_LOCATION",
	"weather.city":             "DEFAULT_CITY",
	"weather.latitude":         "DEFAULT_LATITUDE",
	"weather.longitude":        "DEFAULT_LONGITUDE",
	"weather.timezone":         "DEFAULT_TIMEZONE",
	"log.level":                "LOG_LEVEL",
	"log.environment":          "APP_ENV",
	"fonts.text":               "FONT_PATH",
	"fonts.numeric":            "NUMERIC_FONT_PATH",
	"icons.dir":                "ICON_DIR",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.enabled", true)
	v.SetDefault("weather.host", "devapi.qweather.com")
	v.SetDefault("weather.location", "101010100")
	v.SetDefault("weather.city", "北京")
	v.SetDefault("weather.latitude", 39.9042)
	v.SetDefault("weather.longitude", 116.4074)
	v.SetDefault("weather.timezone", "Asia/Shanghai")
	v.SetDefault("weather.horizon", "3d")
	v.SetDefault("weather.cache_ttl", "1h")
	v.SetDefault("weather.timeout", "10s")
	v.SetDefault("quote.base_url", "https://v1.hitokoto.cn")
	v.SetDefault("quote.timeout", "5s")
	v.SetDefault("sun.provider", "local")
	v.SetDefault("fonts.text", "./assets/fonts/text.ttf")
	v.SetDefault("fonts.numeric", "./assets/fonts/numeric.ttf")
	v.SetDefault("icons.dir", "./assets/icons")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.environment", "dev")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("collector.interval", "10m")
	v.SetDefault("collector.enabled", true)
	v.SetDefault("collector.retention", "168h")
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topic_prefix", "deskhud")
	v.SetDefault("mqtt.client_id", "deskhud")
	v.SetDefault("database.enabled", true)
	v.SetDefault("database.path", "./data/deskhud.db")
}

// Load reads configuration from defaults, an optional yaml file, a .env file
// in the working directory and the environment, in increasing precedence.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/deskhud")
	}

	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and that the timezone is known.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.LoadLocation(c.Weather.Timezone); err != nil {
		return fmt.Errorf("invalid config: weather.timezone: %w", err)
	}
	return nil
}

// Location returns the configured time zone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Weather.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
