package internal

import (
	"fmt"
	"strings"
	"time"
)

const (
	StoreBadger = "badger"
	StoreSQLite = "sqlite"
)

type Config struct {
	Host     string `env:"HOST,default=localhost"`
	Port     int    `env:"PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	BadgerFilepath   string `env:"BADGER_FILEPATH,required=true"`
	MessageStore     string `env:"MESSAGE_STORE,default=badger"`
	SQLiteDSN        string `env:"SQLITE_DSN,default=messages.db"`
	LimitMessages    *int   `env:"LIMIT_MESSAGES"`
	MaxContentLength int    `env:"MAX_CONTENT_LENGTH,default=2000"`

	CatalogFilepath     string `env:"CATALOG_FILEPATH"`
	RecommendationLimit int    `env:"RECOMMENDATION_LIMIT,default=5"`

	AuthSecret        string        `env:"AUTH_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`

	ModerationEnabled bool   `env:"MODERATION_ENABLED,default=false"`
	CharReplacement   string `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`
	CheckParticipants bool   `env:"CHECK_PARTICIPANTS,default=false"`

	AllowedOrigins  string        `env:"ALLOWED_ORIGINS"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// Validate checks the values go-env cannot check by itself.
func (c Config) Validate() error {
	if c.MessageStore != StoreBadger && c.MessageStore != StoreSQLite {
		return fmt.Errorf("MESSAGE_STORE must be %q or %q, got %q", StoreBadger, StoreSQLite, c.MessageStore)
	}
	if c.LimitMessages != nil && *c.LimitMessages <= 0 {
		return fmt.Errorf("LIMIT_MESSAGES must be positive, got %d", *c.LimitMessages)
	}
	if c.RecommendationLimit < 0 {
		return fmt.Errorf("RECOMMENDATION_LIMIT must not be negative, got %d", c.RecommendationLimit)
	}
	if c.MaxContentLength < 0 {
		return fmt.Errorf("MAX_CONTENT_LENGTH must not be negative, got %d", c.MaxContentLength)
	}
	if c.ModerationEnabled {
		if _, err := CharacterRune(c.CharReplacement); err != nil {
			return err
		}
	}
	return nil
}

// Origins splits ALLOWED_ORIGINS on commas. Empty means the router default.
func (c Config) Origins() []string {
	var origins []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"MODERATION_CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
