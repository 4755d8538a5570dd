package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

// Push gateway backends.
const (
	GatewayFCM      = "fcm"
	GatewayTelegram = "telegram"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL string
	LogLevel    string
	Environment string
	Timezone    string
	HTTPAddr    string

	PushGateway             string
	FirebaseCredentialsFile string
	TelegramToken           string

	CronSpecDeadlineScan   string
	CronSpecCalendarIngest string
	CronSpecLoginBonus     string

	DeadlineLookahead      time.Duration
	FanoutConcurrency      int
	CalendarFetchPerMinute int
	CalendarFetchTimeout   time.Duration
	JobTimeout             time.Duration
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.LogLevel = strings.ToLower(envOr("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(envOr("ENVIRONMENT", "development"))
	cfg.HTTPAddr = envOr("HTTP_ADDR", ":8080")

	cfg.Timezone = envOr("TIMEZONE", "Asia/Tokyo")
	if _, err = time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	cfg.PushGateway = strings.ToLower(envOr("PUSH_GATEWAY", GatewayFCM))
	switch cfg.PushGateway {
	case GatewayFCM:
		cfg.FirebaseCredentialsFile = os.Getenv("FIREBASE_CREDENTIALS_FILE")
		if cfg.FirebaseCredentialsFile == "" {
			return nil, fmt.Errorf("FIREBASE_CREDENTIALS_FILE is not set")
		}
	case GatewayTelegram:
		cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
		if cfg.TelegramToken == "" {
			return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
		}
	default:
		return nil, fmt.Errorf("invalid PUSH_GATEWAY %q: expected %q or %q", cfg.PushGateway, GatewayFCM, GatewayTelegram)
	}

	cfg.CronSpecDeadlineScan = envOr("CRON_SPEC_DEADLINE_SCAN", "*/15 * * * *")  // every 15 minutes
	cfg.CronSpecCalendarIngest = envOr("CRON_SPEC_CALENDAR_INGEST", "0 7 * * *") // 7 AM daily
	cfg.CronSpecLoginBonus = envOr("CRON_SPEC_LOGIN_BONUS", "0 9 * * *")         // 9 AM daily

	lookahead, err := envInt("DEADLINE_LOOKAHEAD_MINUTES", 60)
	if err != nil {
		return nil, err
	}
	cfg.DeadlineLookahead = time.Duration(lookahead) * time.Minute

	if cfg.FanoutConcurrency, err = envInt("FANOUT_CONCURRENCY", 8); err != nil {
		return nil, err
	}
	if cfg.CalendarFetchPerMinute, err = envInt("CALENDAR_FETCH_PER_MINUTE", 60); err != nil {
		return nil, err
	}

	fetchTimeout, err := envInt("CALENDAR_FETCH_TIMEOUT_SECONDS", 20)
	if err != nil {
		return nil, err
	}
	cfg.CalendarFetchTimeout = time.Duration(fetchTimeout) * time.Second

	jobTimeout, err := envInt("JOB_TIMEOUT_MINUTES", 5)
	if err != nil {
		return nil, err
	}
	cfg.JobTimeout = time.Duration(jobTimeout) * time.Minute

	return cfg, nil
}

// Location returns the zone used for "today" and for displaying deadlines.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return n, nil
}
