package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"chatdata/internal/kv"
)

type Config struct {
	Env         string
	StoreDriver kv.Driver
	DataDir     string
	DBDSN       string
	LogLevel    string

	// PollInterval is the snapshot re-delivery period.
	PollInterval time.Duration
	// SnapshotDelay is the pause before a subscription's first snapshot.
	SnapshotDelay time.Duration
}

// Load reads configuration from the process environment, after merging in a
// .env file from the working directory when one exists. Values already set in
// the environment win over the file.
func Load() (Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := loadDotEnvFile(".env", os.Setenv, os.Getenv); err != nil {
			return Config{}, fmt.Errorf(".env: %w", err)
		}
	}
	return LoadFromEnv(os.Getenv)
}

func LoadFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Env:      getenv("APP_ENV"),
		DataDir:  getenv("APP_DATA_DIR"),
		DBDSN:    getenv("APP_DB_DSN"),
		LogLevel: getenv("APP_LOG_LEVEL"),
	}

	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	switch cfg.Env {
	case "dev", "test", "prod":
	default:
		return Config{}, errors.New("APP_ENV: must be one of dev, test, prod")
	}

	if cfg.DataDir == "" {
		cfg.DataDir = "./chatdata"
	}

	driver := getenv("APP_STORE_DRIVER")
	if driver == "" {
		driver = string(kv.DriverSQLite)
	}
	switch kv.Driver(driver) {
	case kv.DriverMemory, kv.DriverFile, kv.DriverSQLite, kv.DriverPostgres:
		cfg.StoreDriver = kv.Driver(driver)
	default:
		return Config{}, errors.New("APP_STORE_DRIVER: must be one of memory, file, sqlite, postgres")
	}

	if cfg.StoreDriver == kv.DriverPostgres && cfg.DBDSN == "" {
		return Config{}, errors.New("APP_DB_DSN: required when APP_STORE_DRIVER is postgres")
	}

	var err error
	cfg.PollInterval, err = durationEnv(getenv, "APP_POLL_INTERVAL", time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.SnapshotDelay, err = durationEnv(getenv, "APP_SNAPSHOT_DELAY", 100*time.Millisecond)
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) IsProd() bool { return c.Env == "prod" }

func durationEnv(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be > 0", key)
	}
	return d, nil
}

// loadDotEnvFile merges KEY=VALUE lines into the environment via setenv.
// Existing variables are never overridden. Supports comments, a leading
// "export ", and single- or double-quoted values; malformed lines and empty
// values are skipped.
func loadDotEnvFile(path string, setenv func(string, string) error, getenv func(string) string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') || (value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}
		if getenv(key) != "" {
			continue
		}
		if err := setenv(key, value); err != nil {
			return err
		}
	}
	return scanner.Err()
}
