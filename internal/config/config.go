// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	DatabaseURL      string
	LogLevel         string
	AllowedUsers     []int64

	ApifyToken   string
	ApifyActorID string
	Providers    []string

	DailyRunHour  int
	MaxConcurrent int
	BatchSize     int
	RetryCount    int

	EnableScheduler   bool
	ManualPollEnabled bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = "./data/tracker.db"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	hour, err := intInRange("DAILY_RUN_HOUR", 9, 0, 23)
	if err != nil {
		return nil, err
	}

	providers, err := providerList()
	if err != nil {
		return nil, err
	}

	allowedUsers, err := userList()
	if err != nil {
		return nil, err
	}

	return &Config{
		TelegramBotToken:  token,
		DatabaseURL:       dbURL,
		LogLevel:          logLevel,
		AllowedUsers:      allowedUsers,
		ApifyToken:        os.Getenv("APIFY_TOKEN"),
		ApifyActorID:      os.Getenv("APIFY_ACTOR_ID"),
		Providers:         providers,
		DailyRunHour:      hour,
		MaxConcurrent:     intAtLeastOne("APIFY_MAX_CONCURRENT_RUNS", 1),
		BatchSize:         intAtLeastOne("POLL_BATCH_SIZE", 5),
		RetryCount:        intAtLeastOne("FETCH_RETRY_COUNT", 2),
		EnableScheduler:   boolFlag("ENABLE_INTERNAL_SCHEDULER", true),
		ManualPollEnabled: boolFlag("MANUAL_POLL_ENABLED", true),
	}, nil
}

// intAtLeastOne reads an integer env var, falling back to def when unset or
// unparseable and clamping the result to a minimum of 1.
func intAtLeastOne(key string, def int) int {
	n := def
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			n = v
		}
	}
	if n < 1 {
		n = 1
	}
	return n
}

func intInRange(key string, def, lo, hi int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%s must be between %d and %d, got %d", key, lo, hi, n)
	}
	return n, nil
}

func boolFlag(key string, def bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return def
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func providerList() ([]string, error) {
	raw := os.Getenv("METRICS_PROVIDERS")
	if raw == "" {
		return []string{"apify"}, nil
	}
	var providers []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		switch s {
		case "apify", "instagram":
		default:
			return nil, fmt.Errorf("unknown provider %q in METRICS_PROVIDERS", s)
		}
		providers = append(providers, s)
	}
	if len(providers) == 0 {
		return []string{"apify"}, nil
	}
	return providers, nil
}

func userList() ([]int64, error) {
	raw := os.Getenv("ALLOWED_USERS")
	if raw == "" {
		return nil, nil
	}
	var users []int64
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		uid, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
		}
		users = append(users, uid)
	}
	return users, nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}
