package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	DriverNone     = ""
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Device        string
	CaptureWidth  int
	CaptureHeight int
	MaxFPS        float64 // 0 = no cap
	Headless      bool
	ArucoDict     string
	JPEGQuality   int
	Threshold     int
	ResetInterval time.Duration
	ValidIDs      string // "0-10", "1,2,5-7" or "*"
	DispatchQueue int
	WriteTimeout  time.Duration
	DBDriver      string
	DBHost        string
	DBPort        int
	DBName        string
	DBUser        string
	DBPassword    string
	DBSSLMode     string
	SQLitePath    string
	HTTPAddr      string
	PreviewToken  string
	LogDirectory  string
	LogLevel      string

	// envErrors holds environment values that could not be parsed, by key.
	envErrors map[string]error
}

// Load reads an optional .env file and builds the configuration from the
// environment. A missing .env file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return FromEnv(), nil
}

// FromEnv builds the configuration from environment variables only.
// Malformed values keep their defaults and are reported by Validate.
func FromEnv() *Config {
	env := &envReader{errs: map[string]error{}}
	return &Config{
		Device:        getEnv("CAPTURE_DEVICE", ""),
		CaptureWidth:  env.getEnvAsInt("CAPTURE_WIDTH", 1920),
		CaptureHeight: env.getEnvAsInt("CAPTURE_HEIGHT", 1080),
		MaxFPS:        env.getEnvAsFloat("MAX_FPS", 30),
		Headless:      env.getEnvAsBool("HEADLESS", false),
		ArucoDict:     getEnv("ARUCO_DICT", "4x4_250"),
		JPEGQuality:   env.getEnvAsInt("JPEG_QUALITY", 90),
		Threshold:     env.getEnvAsInt("CONFIRM_THRESHOLD", 10),
		ResetInterval: env.getEnvAsDuration("RESET_INTERVAL", 60*time.Second),
		ValidIDs:      getEnv("VALID_IDS", "0-10"),
		DispatchQueue: env.getEnvAsInt("DISPATCH_QUEUE", 32),
		WriteTimeout:  env.getEnvAsDuration("WRITE_TIMEOUT", 5*time.Second),
		DBDriver:      strings.ToLower(getEnv("DB_DRIVER", DriverNone)),
		DBHost:        getEnv("DB_HOST", ""),
		DBPort:        env.getEnvAsInt("DB_PORT", 5432),
		DBName:        getEnv("DB_NAME", "agrovision"),
		DBUser:        getEnv("DB_USER", ""),
		DBPassword:    getEnv("DB_PASSWORD", ""),
		DBSSLMode:     getEnv("DB_SSLMODE", "disable"),
		SQLitePath:    getEnv("SQLITE_PATH", ""),
		HTTPAddr:      getEnv("HTTP_ADDR", ""),
		PreviewToken:  getEnv("PREVIEW_TOKEN", ""),
		LogDirectory:  getEnv("LOG_DIR", filepath.Join(".", "logs")),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		envErrors:     env.errs,
	}
}

// ClearEnvError forgets a malformed value of key once something else, such
// as a command-line flag, has replaced it.
func (c *Config) ClearEnvError(key string) {
	delete(c.envErrors, key)
}

// StorageDriver resolves which backend to use. Without an explicit driver,
// a database host selects postgres and a sqlite path selects sqlite; with
// neither, persistence is disabled.
func (c *Config) StorageDriver() string {
	if c.DBDriver != DriverNone {
		return c.DBDriver
	}
	switch {
	case c.DBHost != "":
		return DriverPostgres
	case c.SQLitePath != "":
		return DriverSQLite
	default:
		return DriverNone
	}
}

// PersistenceEnabled reports whether confirmed sightings are stored.
func (c *Config) PersistenceEnabled() bool {
	return c.StorageDriver() != DriverNone
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

type envReader struct {
	errs map[string]error
}

func (r *envReader) invalid(key, value, kind string) {
	r.errs[key] = fmt.Errorf("%s=%q is not a valid %s", key, value, kind)
}

func (r *envReader) getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		r.invalid(key, value, "integer")
		return defaultValue
	}
	return intValue
}

func (r *envReader) getEnvAsFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		r.invalid(key, value, "number")
		return defaultValue
	}
	return floatValue
}

func (r *envReader) getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		r.invalid(key, value, "boolean")
		return defaultValue
	}
	return boolValue
}

// getEnvAsDuration accepts Go durations ("90s") or plain seconds ("60").
func (r *envReader) getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(seconds * float64(time.Second))
	}
	r.invalid(key, value, "duration")
	return defaultValue
}
