package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"riftbound/pkg/database"
)

type ServerConfig struct {
	HTTPAddr       string   `yaml:"http_addr" toml:"http_addr"`
	TCPAddr        string   `yaml:"tcp_addr" toml:"tcp_addr"`
	GRPCAddr       string   `yaml:"grpc_addr" toml:"grpc_addr"`
	TrustedProxies []string `yaml:"trusted_proxies" toml:"trusted_proxies"`
}

type AuthConfig struct {
	JWTSecret   string        `yaml:"jwt_secret" toml:"jwt_secret"`
	JWTIssuer   string        `yaml:"jwt_issuer" toml:"jwt_issuer"`
	JWTDuration time.Duration `yaml:"jwt_duration" toml:"jwt_duration"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr" toml:"addr"`
	DraftTTL time.Duration `yaml:"draft_ttl" toml:"draft_ttl"`
}

// LimitsConfig throttles the write-heavy deck endpoints per user.
type LimitsConfig struct {
	SavePerMinute int `yaml:"save_per_minute" toml:"save_per_minute"`
	SaveBurst     int `yaml:"save_burst" toml:"save_burst"`
}

type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
}

type MaintenanceConfig struct {
	CheckpointSpec string `yaml:"checkpoint_spec" toml:"checkpoint_spec"`
	OptimizeSpec   string `yaml:"optimize_spec" toml:"optimize_spec"`
}

type Config struct {
	Server      ServerConfig      `yaml:"server" toml:"server"`
	Database    database.Config   `yaml:"database" toml:"database"`
	Auth        AuthConfig        `yaml:"auth" toml:"auth"`
	Redis       RedisConfig       `yaml:"redis" toml:"redis"`
	Limits      LimitsConfig      `yaml:"limits" toml:"limits"`
	Log         LogConfig         `yaml:"log" toml:"log"`
	Maintenance MaintenanceConfig `yaml:"maintenance" toml:"maintenance"`
}

func Defaults() Config {
	return Config{
		Server: ServerConfig{
			HTTPAddr:       ":8080",
			TCPAddr:        ":7070",
			GRPCAddr:       ":9090",
			TrustedProxies: []string{"127.0.0.1"},
		},
		Database: database.DefaultConfig(),
		Auth: AuthConfig{
			// dev default (change for production)
			JWTSecret:   "dev-secret-change-me",
			JWTIssuer:   "riftbound",
			JWTDuration: 24 * time.Hour,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			DraftTTL: 24 * time.Hour,
		},
		Limits: LimitsConfig{
			SavePerMinute: 30,
			SaveBurst:     5,
		},
		Log: LogConfig{Level: "info"},
		Maintenance: MaintenanceConfig{
			CheckpointSpec: "@every 15m",
			OptimizeSpec:   "0 4 * * *",
		},
	}
}

// Load layers configuration: defaults, then the first config file found
// (RIFTBOUND_CONFIG, config/riftbound.yaml, config/riftbound.toml), then
// .env and RIFTBOUND_* environment variables.
func Load() (Config, error) {
	cfg := Defaults()

	if err := loadFile(&cfg); err != nil {
		return Config{}, err
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func loadFile(cfg *Config) error {
	candidates := []string{
		filepath.Join("config", "riftbound.yaml"),
		filepath.Join("config", "riftbound.toml"),
	}
	if p := os.Getenv("RIFTBOUND_CONFIG"); p != "" {
		candidates = []string{p}
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return decodeFile(path, cfg)
	}
	return nil
}

func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("parse TOML config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read YAML config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse YAML config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config file %s", path)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Server.HTTPAddr = getEnvString("RIFTBOUND_HTTP_ADDR", cfg.Server.HTTPAddr)
	cfg.Server.TCPAddr = getEnvString("RIFTBOUND_TCP_ADDR", cfg.Server.TCPAddr)
	cfg.Server.GRPCAddr = getEnvString("RIFTBOUND_GRPC_ADDR", cfg.Server.GRPCAddr)
	cfg.Database.Path = getEnvString("RIFTBOUND_DB_PATH", cfg.Database.Path)
	cfg.Auth.JWTSecret = getEnvString("RIFTBOUND_JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.JWTIssuer = getEnvString("RIFTBOUND_JWT_ISSUER", cfg.Auth.JWTIssuer)
	cfg.Redis.Addr = getEnvString("RIFTBOUND_REDIS_ADDR", cfg.Redis.Addr)
	cfg.Log.Level = getEnvString("RIFTBOUND_LOG_LEVEL", cfg.Log.Level)

	if v := os.Getenv("RIFTBOUND_JWT_TTL_HOURS"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RIFTBOUND_JWT_TTL_HOURS: %w", err)
		}
		cfg.Auth.JWTDuration = time.Duration(hours) * time.Hour
	}
	if v := os.Getenv("RIFTBOUND_DRAFT_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RIFTBOUND_DRAFT_TTL: %w", err)
		}
		cfg.Redis.DraftTTL = d
	}

	var err error
	if cfg.Limits.SavePerMinute, err = getEnvInt("RIFTBOUND_SAVE_PER_MINUTE", cfg.Limits.SavePerMinute); err != nil {
		return err
	}
	if cfg.Limits.SaveBurst, err = getEnvInt("RIFTBOUND_SAVE_BURST", cfg.Limits.SaveBurst); err != nil {
		return err
	}
	return nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("http address is required")
	}
	if len(c.Auth.JWTSecret) < 8 {
		return fmt.Errorf("jwt secret must be at least 8 characters")
	}
	if c.Auth.JWTDuration <= 0 {
		return fmt.Errorf("jwt duration must be positive")
	}
	if c.Redis.DraftTTL <= 0 {
		return fmt.Errorf("draft ttl must be positive")
	}
	if c.Limits.SavePerMinute < 0 || c.Limits.SaveBurst < 0 {
		return fmt.Errorf("rate limits cannot be negative")
	}
	return nil
}

func getEnvString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
