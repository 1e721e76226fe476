package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	FetchModeChrome = "chrome"
	FetchModeHTTP   = "http"
)

// Config holds the runtime configuration of the outer shell. The extraction
// core takes none of it: every run covers all carriers.
type Config struct {
	FetchMode          string
	ChromeBin          string
	UserAgent          string
	FetchTimeoutSec    int
	MinFetchIntervalMs int
	DumpDir            string

	JSONOutputPath string
	CSVOutputPath  string
	LogLevel       string

	PostgresEnabled    bool
	PostgresHost       string
	PostgresPort       string
	PostgresUser       string
	PostgresPassword   string
	PostgresDB         string
	PostgresSSLMode    string
	PostgresMaxRetries int
}

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		FetchMode:          strings.ToLower(getEnv("FETCH_MODE", FetchModeChrome)),
		ChromeBin:          getEnv("CHROME_BIN", ""),
		UserAgent:          getEnv("USER_AGENT", defaultUserAgent),
		FetchTimeoutSec:    getEnvInt("FETCH_TIMEOUT_SEC", 60),
		MinFetchIntervalMs: getEnvInt("MIN_FETCH_INTERVAL_MS", 0),
		DumpDir:            getEnv("DUMP_DIR", ""),

		JSONOutputPath: getEnv("OUTPUT_JSON", "./docs/data.json"),
		CSVOutputPath:  getEnv("OUTPUT_CSV", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		PostgresEnabled:    getEnvBool("POSTGRES_ENABLED", false),
		PostgresHost:       getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:       getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:       getEnv("POSTGRES_USER", "catalog"),
		PostgresPassword:   getEnv("POSTGRES_PASSWORD", "catalog"),
		PostgresDB:         getEnv("POSTGRES_DB", "price_catalog"),
		PostgresSSLMode:    getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresMaxRetries: getEnvInt("POSTGRES_MAX_RETRIES", 5),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
