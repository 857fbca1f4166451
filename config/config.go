package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends selectable through BINGO_STORAGE.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	Port           string
	AdminSecret    string
	AllowedOrigins []string

	StorageBackend string
	SQLitePath     string
	PostgresURL    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	ReconcileInterval time.Duration
	RoomGrace         time.Duration
	LockOnStart       bool

	Debug bool
}

// Load reads the whole configuration from the environment. Only the admin
// secret is mandatory; everything else has a localhost-friendly default.
func Load() (Config, error) {
	cfg := Config{
		Port:           getenv("BINGO_PORT", "5000"),
		StorageBackend: getenv("BINGO_STORAGE", BackendMemory),
		SQLitePath:     getenv("BINGO_SQLITE_PATH", "bingo.db"),
		PostgresURL:    os.Getenv("BINGO_POSTGRES_URL"),
		RedisAddr:      getenv("BINGO_REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("BINGO_REDIS_PASSWORD"),
	}

	secret, exists := os.LookupEnv("BINGO_ADMIN_SECRET")
	if !exists || secret == "" {
		return Config{}, errors.New("missing admin secret (BINGO_ADMIN_SECRET)")
	}
	cfg.AdminSecret = secret

	cfg.AllowedOrigins = strings.Split(getenv("BINGO_ALLOWED_ORIGINS", "*"), ",")
	for i, origin := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	switch cfg.StorageBackend {
	case BackendMemory, BackendSQLite, BackendRedis:
	case BackendPostgres:
		if cfg.PostgresURL == "" {
			return Config{}, errors.New("missing postgres url (BINGO_POSTGRES_URL)")
		}
	default:
		return Config{}, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	var err error
	cfg.ReconcileInterval, err = getduration("BINGO_RECONCILE_INTERVAL", time.Minute)
	if err != nil {
		return Config{}, err
	}
	cfg.RoomGrace, err = getduration("BINGO_ROOM_GRACE", 0)
	if err != nil {
		return Config{}, err
	}
	if cfg.ReconcileInterval <= 0 {
		return Config{}, errors.New("reconcile interval must be positive")
	}
	if cfg.RoomGrace < 0 {
		return Config{}, errors.New("room grace must not be negative")
	}

	cfg.RedisDB, err = getint("BINGO_REDIS_DB", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.LockOnStart, err = getbool("BINGO_LOCK_ON_START", false)
	if err != nil {
		return Config{}, err
	}
	cfg.Debug, err = getbool("BINGO_DEBUG", false)
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getint(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getbool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
