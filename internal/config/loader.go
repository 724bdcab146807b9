package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the loader.
const EnvPrefix = "SCHEDULER"

// ConfigFileEnv names the environment variable holding the config file path.
const ConfigFileEnv = EnvPrefix + "_CONFIG"

// Config captures the scheduler service configuration.
type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Database DatabaseConfig `mapstructure:"database"`
	Booking  BookingConfig  `mapstructure:"booking"`
	Session  SessionConfig  `mapstructure:"session"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
	Catalog  []SectorConfig `mapstructure:"catalog"`
}

type HTTPConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig selects the store. For sqlite DSN is a file path, for
// postgres a connection string.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// BookingConfig holds the booking window, duration bounds and the zone
// booking times are interpreted in.
type BookingConfig struct {
	MinHour     int    `mapstructure:"min_hour"`
	MaxHour     int    `mapstructure:"max_hour"`
	MinDuration int    `mapstructure:"min_duration"`
	MaxDuration int    `mapstructure:"max_duration"`
	Location    string `mapstructure:"location"`
}

// LoadLocation resolves the configured zone.
func (b BookingConfig) LoadLocation() (*time.Location, error) {
	return time.LoadLocation(b.Location)
}

type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type CacheConfig struct {
	Driver     string        `mapstructure:"driver"`
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// SectorConfig lists a sector's rooms for catalog synchronisation.
type SectorConfig struct {
	Name  string       `mapstructure:"name"`
	Rooms []RoomConfig `mapstructure:"rooms"`
}

type RoomConfig struct {
	Name      string   `mapstructure:"name"`
	Capacity  int      `mapstructure:"capacity"`
	Equipment []string `mapstructure:"equipment"`
}

var defaults = map[string]any{
	"http.port":                  8080,
	"http.read_timeout":          "15s",
	"http.write_timeout":         "15s",
	"database.driver":            "sqlite",
	"database.dsn":               "scheduler.db",
	"database.busy_timeout":      "5s",
	"database.max_open_conns":    10,
	"database.max_idle_conns":    5,
	"database.conn_max_lifetime": "5m",
	"booking.min_hour":           9,
	"booking.max_hour":           23,
	"booking.min_duration":       1,
	"booking.max_duration":       8,
	"booking.location":           "Europe/Rome",
	"session.ttl":                "24h",
	"cache.driver":               "memory",
	"cache.ttl":                  "30s",
	"cache.max_entries":          256,
	"redis.addr":                 "",
	"redis.password":             "",
	"redis.db":                   0,
	"log.level":                  "info",
}

var (
	intKeys      = []string{"http.port", "database.max_open_conns", "database.max_idle_conns", "booking.min_hour", "booking.max_hour", "booking.min_duration", "booking.max_duration", "cache.max_entries", "redis.db"}
	durationKeys = []string{"http.read_timeout", "http.write_timeout", "database.busy_timeout", "database.conn_max_lifetime", "session.ttl", "cache.ttl"}
)

// Load reads configuration from the optional YAML file at path, falling back
// to SCHEDULER_CONFIG, then applies SCHEDULER_* environment overrides on top
// of the defaults.
//
// Missing and invalid entries are collected and reported together with
// localized messages.
func Load(path string) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = strings.TrimSpace(os.Getenv(ConfigFileEnv))
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("設定ファイルを読み込めません: %s: %w", path, err)
		}
	}

	invalid := make([]string, 0, 2)
	for _, key := range intKeys {
		if _, err := strconv.Atoi(strings.TrimSpace(v.GetString(key))); err != nil {
			invalid = append(invalid, key)
		}
	}
	for _, key := range durationKeys {
		if _, err := time.ParseDuration(strings.TrimSpace(v.GetString(key))); err != nil {
			invalid = append(invalid, key)
		}
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("設定値が不正です: %s", strings.Join(envNames(invalid), ", "))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("設定値を解釈できません: %w", err)
	}
	cfg.normalize()

	return cfg, cfg.Validate()
}

func (c *Config) normalize() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Database.DSN = strings.TrimSpace(c.Database.DSN)
	c.Cache.Driver = strings.ToLower(strings.TrimSpace(c.Cache.Driver))
	c.Redis.Addr = strings.TrimSpace(c.Redis.Addr)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Booking.Location = strings.TrimSpace(c.Booking.Location)
}

// Validate reports missing and invalid entries in a single error.
func (c Config) Validate() error {
	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		invalid = append(invalid, "http.port")
	}
	if c.HTTP.ReadTimeout <= 0 {
		invalid = append(invalid, "http.read_timeout")
	}
	if c.HTTP.WriteTimeout <= 0 {
		invalid = append(invalid, "http.write_timeout")
	}

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		invalid = append(invalid, "database.driver")
	}
	if c.Database.DSN == "" {
		missing = append(missing, "database.dsn")
	}
	if c.Database.BusyTimeout < 0 {
		invalid = append(invalid, "database.busy_timeout")
	}
	if c.Database.MaxOpenConns < 0 {
		invalid = append(invalid, "database.max_open_conns")
	}
	if c.Database.MaxIdleConns < 0 {
		invalid = append(invalid, "database.max_idle_conns")
	}

	if c.Booking.MinHour < 0 || c.Booking.MinHour > 23 || c.Booking.MinHour > c.Booking.MaxHour {
		invalid = append(invalid, "booking.min_hour")
	}
	if c.Booking.MaxHour < 0 || c.Booking.MaxHour > 23 {
		invalid = append(invalid, "booking.max_hour")
	}
	if c.Booking.MinDuration <= 0 || c.Booking.MinDuration > c.Booking.MaxDuration {
		invalid = append(invalid, "booking.min_duration")
	}
	if c.Booking.Location == "" {
		missing = append(missing, "booking.location")
	} else if _, err := c.Booking.LoadLocation(); err != nil {
		invalid = append(invalid, "booking.location")
	}

	if c.Session.TTL <= 0 {
		invalid = append(invalid, "session.ttl")
	}

	switch c.Cache.Driver {
	case "none", "memory":
	case "redis":
		if c.Redis.Addr == "" {
			missing = append(missing, "redis.addr")
		}
	default:
		invalid = append(invalid, "cache.driver")
	}
	if c.Cache.TTL <= 0 {
		invalid = append(invalid, "cache.ttl")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		invalid = append(invalid, "log.level")
	}

	for i, sector := range c.Catalog {
		if strings.TrimSpace(sector.Name) == "" {
			missing = append(missing, fmt.Sprintf("catalog[%d].name", i))
		}
		for j, room := range sector.Rooms {
			if strings.TrimSpace(room.Name) == "" {
				missing = append(missing, fmt.Sprintf("catalog[%d].rooms[%d].name", i, j))
			}
			if room.Capacity <= 0 {
				invalid = append(invalid, fmt.Sprintf("catalog[%d].rooms[%d].capacity", i, j))
			}
		}
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("必須の設定値が設定されていません: %s", strings.Join(envNames(missing), ", ")))
	}
	if len(invalid) > 0 {
		errs = append(errs, fmt.Errorf("設定値が不正です: %s", strings.Join(envNames(invalid), ", ")))
	}
	return errors.Join(errs...)
}

// envNames renders keys with the environment variable that overrides them.
func envNames(keys []string) []string {
	out := make([]string, len(keys))
	for i, key := range keys {
		if strings.Contains(key, "[") {
			out[i] = key
			continue
		}
		out[i] = key + " (" + EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_")) + ")"
	}
	return out
}
