package main

import (
	"dm-lab/internal"
	"errors"
	"fmt"
	"io/fs"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

// loadConfig reads an optional .env file, then the process environment. Variables already set in the
// environment win over the file.
func loadConfig() (internal.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return internal.Config{}, fmt.Errorf(".env: %w", err)
	}
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return internal.Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return internal.Config{}, fmt.Errorf("config error: %w", err)
	}
	return config, nil
}
