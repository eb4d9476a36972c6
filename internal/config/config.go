package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Host string
	Port string

	// Database settings
	DatabasePath string

	// Logging settings
	LogLevel  string
	LogFormat string

	// Gazette (Statstidende) settings
	GazetteBaseURL string
	UserAgent      string
	HTTPTimeout    time.Duration
	PageFetchDelay time.Duration

	// Company registry (CVR) settings
	RegistryBaseURL string

	// Lawyer directory settings
	LawyerDirectoryURL string

	// Ingestion pacing settings
	CaseDelay time.Duration
	JitterMin time.Duration
	JitterMax time.Duration

	// Cache settings
	CacheSize int
	CacheTTL  time.Duration

	// Scheduler settings
	ScheduleEnabled  bool
	ScheduleTimezone string
	ScheduleHour     int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Not an error if .env doesn't exist
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		Host:               getEnv("HOST", "0.0.0.0"),
		Port:               getEnv("PORT", "8080"),
		DatabasePath:       getEnv("DATABASE_PATH", "./data/insolvencies.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		GazetteBaseURL:     getEnv("GAZETTE_BASE_URL", "https://www.statstidende.dk"),
		RegistryBaseURL:    getEnv("REGISTRY_BASE_URL", "https://datacvr.virk.dk"),
		LawyerDirectoryURL: getEnv("LAWYER_DIRECTORY_URL", "http://advokatnoeglen:8000"),
		UserAgent:          getEnv("USER_AGENT", "Mozilla/5.0 (compatible; KonkursFetcher/1.0)"),
		ScheduleTimezone:   getEnv("SCHEDULE_TIMEZONE", "Europe/Copenhagen"),
	}

	// Parse integer values
	var err error
	httpTimeout, err := strconv.Atoi(getEnv("HTTP_TIMEOUT", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = time.Duration(httpTimeout) * time.Second

	pageDelay, err := strconv.Atoi(getEnv("PAGE_FETCH_DELAY_MS", "120"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAGE_FETCH_DELAY_MS: %w", err)
	}
	cfg.PageFetchDelay = time.Duration(pageDelay) * time.Millisecond

	caseDelay, err := strconv.Atoi(getEnv("CASE_DELAY_MS", "350"))
	if err != nil {
		return nil, fmt.Errorf("invalid CASE_DELAY_MS: %w", err)
	}
	cfg.CaseDelay = time.Duration(caseDelay) * time.Millisecond

	jitterMin, err := strconv.Atoi(getEnv("JITTER_MIN_MS", "250"))
	if err != nil {
		return nil, fmt.Errorf("invalid JITTER_MIN_MS: %w", err)
	}
	cfg.JitterMin = time.Duration(jitterMin) * time.Millisecond

	jitterMax, err := strconv.Atoi(getEnv("JITTER_MAX_MS", "750"))
	if err != nil {
		return nil, fmt.Errorf("invalid JITTER_MAX_MS: %w", err)
	}
	cfg.JitterMax = time.Duration(jitterMax) * time.Millisecond
	if cfg.JitterMax < cfg.JitterMin {
		return nil, fmt.Errorf("JITTER_MAX_MS must not be smaller than JITTER_MIN_MS")
	}

	cfg.CacheSize, err = strconv.Atoi(getEnv("CACHE_SIZE", "1000"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_SIZE: %w", err)
	}

	cacheTTL, err := strconv.Atoi(getEnv("CACHE_TTL", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}
	cfg.CacheTTL = time.Duration(cacheTTL) * time.Minute

	cfg.ScheduleEnabled = getEnv("SCHEDULE_ENABLED", "true") == "true"

	cfg.ScheduleHour, err = strconv.Atoi(getEnv("SCHEDULE_HOUR", "6"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULE_HOUR: %w", err)
	}
	if cfg.ScheduleHour < 0 || cfg.ScheduleHour > 23 {
		return nil, fmt.Errorf("SCHEDULE_HOUR out of range: %d", cfg.ScheduleHour)
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
