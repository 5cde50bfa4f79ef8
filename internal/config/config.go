package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"fabrik/internal/economy"
)

type APIConfig struct {
	Addr          string
	StorageDriver string // postgres | sqlite | memory
	DatabaseURL   string
	SQLitePath    string
	ItemsFile     string

	WorkTimeout  time.Duration
	WorkMin      int64
	WorkMax      int64
	DailyTimeout time.Duration
	DailyMin     int64
	DailyMax     int64

	SafeTransfers bool
	RefreshEvery  time.Duration
}

type CLIConfig struct {
	APIBaseURL string
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("FABRIK_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:          addr,
		StorageDriver: strings.ToLower(envDefault("FABRIK_STORAGE_DRIVER", "postgres")),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SQLitePath:    envDefault("FABRIK_SQLITE_PATH", "fabrik.db"),
		ItemsFile:     strings.TrimSpace(os.Getenv("FABRIK_ITEMS_FILE")),
		WorkTimeout:   envDurationDefault("FABRIK_WORK_TIMEOUT", 5*time.Hour),
		WorkMin:       envInt64Default("FABRIK_WORK_MIN", 50),
		WorkMax:       envInt64Default("FABRIK_WORK_MAX", 150),
		DailyTimeout:  envDurationDefault("FABRIK_DAILY_TIMEOUT", 20*time.Hour),
		DailyMin:      envInt64Default("FABRIK_DAILY_MIN", 150),
		DailyMax:      envInt64Default("FABRIK_DAILY_MAX", 350),
		SafeTransfers: envBoolDefault("FABRIK_SAFE_TRANSFERS", false),
		RefreshEvery:  envDurationDefault("FABRIK_REFRESH_EVERY", 15*time.Minute),
	}

	switch cfg.StorageDriver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return cfg, fmt.Errorf("DATABASE_URL is required with the postgres driver")
		}
	case "sqlite", "memory":
	default:
		return cfg, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
	if cfg.WorkMax < cfg.WorkMin || cfg.DailyMax < cfg.DailyMin {
		return cfg, fmt.Errorf("grant payout max must be >= min")
	}
	return cfg, nil
}

func (c APIConfig) EconomyOptions() *economy.Options {
	return &economy.Options{
		WorkTimeout:   c.WorkTimeout,
		WorkMin:       c.WorkMin,
		WorkMax:       c.WorkMax,
		DailyTimeout:  c.DailyTimeout,
		DailyMin:      c.DailyMin,
		DailyMax:      c.DailyMax,
		SafeTransfers: c.SafeTransfers,
	}
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("FABCTL_API_BASE_URL", "http://localhost:8080"), "/"),
	}
}

// LoadItems reads the store catalog. An empty path yields an empty catalog.
func LoadItems(path string) ([]economy.Item, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read items file: %w", err)
	}
	var doc struct {
		Items []economy.Item `yaml:"items"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse items file: %w", err)
	}
	return doc.Items, nil
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envInt64Default(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
