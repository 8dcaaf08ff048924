// Package config gathers runtime settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Config is the process configuration
type Config struct {
	TelegramToken string
	DBType        string
	DatabaseURL   string
	LogMode       string
	SyllabusFile  string
	QuizLength    int

	EnableScheduler       bool
	NotificationStartHour int
	NotificationEndHour   int

	AdminUserIDs []int64
	Location     *time.Location
}

// Default values
const (
	DefaultDBType      = "sqlite"
	DefaultDatabaseURL = "data/oposita.db"
	DefaultQuizLength  = 10
	DefaultStartHour   = 8
	DefaultEndHour     = 22
	DefaultTimezone    = "Europe/Madrid"
)

// Load reads .env (if present) and the environment
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment only
func FromEnv() (*Config, error) {
	cfg := &Config{
		TelegramToken:         os.Getenv("TELEGRAM_BOT_TOKEN"),
		DBType:                strings.ToLower(envOr("DB_TYPE", DefaultDBType)),
		DatabaseURL:           envOr("DATABASE_URL", DefaultDatabaseURL),
		LogMode:               envOr("LOG_MODE", "dev"),
		SyllabusFile:          os.Getenv("SYLLABUS_FILE"),
		QuizLength:            envInt("QUIZ_LENGTH", DefaultQuizLength),
		EnableScheduler:       envBool("ENABLE_SCHEDULER", true),
		NotificationStartHour: envInt("NOTIFICATION_START_HOUR", DefaultStartHour),
		NotificationEndHour:   envInt("NOTIFICATION_END_HOUR", DefaultEndHour),
		AdminUserIDs:          envIDs("ADMIN_USER_IDS"),
	}

	if cfg.QuizLength <= 0 {
		cfg.QuizLength = DefaultQuizLength
	}
	if !validHour(cfg.NotificationStartHour) {
		cfg.NotificationStartHour = DefaultStartHour
	}
	if !validHour(cfg.NotificationEndHour) {
		cfg.NotificationEndHour = DefaultEndHour
	}

	switch cfg.DBType {
	case "sqlite", "sqlite3", "postgres", "postgresql":
	default:
		return nil, errors.Errorf("unsupported DB_TYPE %q", cfg.DBType)
	}

	tz := envOr("TIMEZONE", DefaultTimezone)
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load timezone %q", tz)
	}
	cfg.Location = loc

	return cfg, nil
}

// DriverName maps DB_TYPE to the registered sql driver
func (c *Config) DriverName() string {
	switch c.DBType {
	case "postgres", "postgresql":
		return "postgres"
	default:
		return "sqlite3"
	}
}

// IsAdmin reports whether the telegram user may run admin commands
func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminUserIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

// Validate checks the settings needed to run the bot
func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN environment variable is not set")
	}
	if c.NotificationStartHour > c.NotificationEndHour {
		return errors.Errorf("notification window %d-%d is empty", c.NotificationStartHour, c.NotificationEndHour)
	}
	return nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func envIDs(key string) []int64 {
	var ids []int64
	for _, part := range strings.Split(os.Getenv(key), ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func validHour(h int) bool {
	return h >= 0 && h <= 23
}
