package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
// It is built once in main and passed down; nothing reads the environment later.
type Config struct {
	Server struct {
		Addr         string
		CookieSecure bool
	}
	Database struct {
		Path         string
		StoreTimeout time.Duration
	}
	Auth struct {
		AccessTokenSecret  string
		AccessTokenExpiry  time.Duration
		RefreshTokenSecret string
		RefreshTokenExpiry time.Duration
		HashCost           int
		HashWorkers        int
	}
	Session struct {
		Backend string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Storage struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
	}
	AWS struct {
		Profile string
	}
	Log struct {
		Level string
	}
}

const (
	SessionBackendSQLite = "sqlite"
	SessionBackendRedis  = "redis"
)

// env names that do not follow the SECTION_KEY pattern
var envAliases = map[string]string{
	"auth.accesstokensecret":  "ACCESS_TOKEN_SECRET",
	"auth.accesstokenexpiry":  "ACCESS_TOKEN_EXPIRY",
	"auth.refreshtokensecret": "REFRESH_TOKEN_SECRET",
	"auth.refreshtokenexpiry": "REFRESH_TOKEN_EXPIRY",
	"auth.hashcost":           "PASSWORD_HASH_COST",
	"auth.hashworkers":        "PASSWORD_HASH_WORKERS",
	"server.cookiesecure":     "COOKIE_SECURE",
	"database.storetimeout":   "STORE_TIMEOUT",
	"session.backend":         "SESSION_BACKEND",
	"storage.keyprefix":       "STORAGE_KEY_PREFIX",
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	v.SetDefault("server.addr", "0.0.0.0:8000")
	v.SetDefault("server.cookiesecure", true)
	v.SetDefault("database.path", "data/vidtube.db")
	v.SetDefault("database.storetimeout", "5s")
	v.SetDefault("auth.accesstokensecret", "")
	v.SetDefault("auth.accesstokenexpiry", "15m")
	v.SetDefault("auth.refreshtokensecret", "")
	v.SetDefault("auth.refreshtokenexpiry", "10d")
	v.SetDefault("auth.hashcost", 10)
	v.SetDefault("auth.hashworkers", 0)
	v.SetDefault("session.backend", SessionBackendSQLite)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "uploads")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("log.level", "info")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	var err error

	cfg.Server.Addr = v.GetString("server.addr")
	cfg.Server.CookieSecure = v.GetBool("server.cookiesecure")
	cfg.Database.Path = v.GetString("database.path")
	if cfg.Database.StoreTimeout, err = ParseDuration(v.GetString("database.storetimeout")); err != nil {
		return Config{}, fmt.Errorf("STORE_TIMEOUT: %w", err)
	}

	cfg.Auth.AccessTokenSecret = strings.TrimSpace(v.GetString("auth.accesstokensecret"))
	cfg.Auth.RefreshTokenSecret = strings.TrimSpace(v.GetString("auth.refreshtokensecret"))
	if cfg.Auth.AccessTokenExpiry, err = ParseDuration(v.GetString("auth.accesstokenexpiry")); err != nil {
		return Config{}, fmt.Errorf("ACCESS_TOKEN_EXPIRY: %w", err)
	}
	if cfg.Auth.RefreshTokenExpiry, err = ParseDuration(v.GetString("auth.refreshtokenexpiry")); err != nil {
		return Config{}, fmt.Errorf("REFRESH_TOKEN_EXPIRY: %w", err)
	}
	cfg.Auth.HashCost = v.GetInt("auth.hashcost")
	cfg.Auth.HashWorkers = v.GetInt("auth.hashworkers")

	cfg.Session.Backend = strings.ToLower(strings.TrimSpace(v.GetString("session.backend")))
	cfg.Redis.Addr = v.GetString("redis.addr")
	cfg.Redis.Password = v.GetString("redis.password")
	cfg.Redis.DB = v.GetInt("redis.db")

	cfg.Storage.Bucket = v.GetString("storage.bucket")
	cfg.Storage.KeyPrefix = v.GetString("storage.keyprefix")
	cfg.Storage.Region = v.GetString("storage.region")
	cfg.Storage.Endpoint = v.GetString("storage.endpoint")
	cfg.AWS.Profile = v.GetString("aws.profile")
	cfg.Log.Level = v.GetString("log.level")

	return cfg, nil
}

// Validate reports every setting that would make the process unsafe to start.
func (c Config) Validate() error {
	var errs []error
	if c.Auth.AccessTokenSecret == "" {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET is required"))
	}
	if c.Auth.RefreshTokenSecret == "" {
		errs = append(errs, errors.New("REFRESH_TOKEN_SECRET is required"))
	}
	if c.Auth.AccessTokenSecret != "" && c.Auth.AccessTokenSecret == c.Auth.RefreshTokenSecret {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ"))
	}
	if c.Auth.AccessTokenExpiry <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_EXPIRY must be positive"))
	}
	if c.Auth.RefreshTokenExpiry <= 0 {
		errs = append(errs, errors.New("REFRESH_TOKEN_EXPIRY must be positive"))
	}
	if c.Auth.HashCost < 10 || c.Auth.HashCost > 31 {
		errs = append(errs, errors.New("PASSWORD_HASH_COST must be between 10 and 31"))
	}
	switch c.Session.Backend {
	case SessionBackendSQLite, SessionBackendRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_BACKEND %q", c.Session.Backend))
	}
	if c.Storage.Bucket == "" {
		errs = append(errs, errors.New("STORAGE_BUCKET is required"))
	}
	return errors.Join(errs...)
}

// ParseDuration accepts Go durations ("15m", "1h30m") and whole days ("10d").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

func loadDotEnv() {
	file, err := os.Open(".env")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		partsIndex := strings.Index(line, "=")
		if partsIndex <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:partsIndex])
		value := strings.TrimSpace(line[partsIndex+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
