// Package config loads the service's runtime settings from the
// environment, the way the teacher's auth package resolves its own mode
// and connection settings: trim, default, parse.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultDeepSeekModel = "deepseek-chat"
	defaultDeepSeekURL   = "https://api.deepseek.com/chat/completions"
	defaultTimeout       = 20 * time.Second

	defaultStack      int64 = 2000
	defaultSmallBlind int64 = 10
	defaultBigBlind   int64 = 20
	defaultMaxRooms         = 128
)

// Config is every environment-derived setting the service needs to run.
type Config struct {
	DeepSeekAPIKey string
	DeepSeekModel  string
	DeepSeekURL    string
	DeepSeekTimeout time.Duration

	DefaultStack      int64
	DefaultSmallBlind int64
	DefaultBigBlind   int64
	MaxRooms          int

	ServerAddr string
}

// FromEnv loads Config from the process environment. A file named APIKEY,
// resolved against the working directory, is consulted only when
// DEEPSEEK_API_KEY is unset or empty.
func FromEnv() (Config, error) {
	cfg := Config{
		DeepSeekModel:     envOrDefault("DEEPSEEK_MODEL", defaultDeepSeekModel),
		DeepSeekURL:       envOrDefault("DEEPSEEK_API_URL", defaultDeepSeekURL),
		DeepSeekTimeout:   defaultTimeout,
		DefaultStack:      defaultStack,
		DefaultSmallBlind: defaultSmallBlind,
		DefaultBigBlind:   defaultBigBlind,
		MaxRooms:          defaultMaxRooms,
		ServerAddr:        envOrDefault("SERVER_ADDR", ":18080"),
	}

	cfg.DeepSeekAPIKey = strings.TrimSpace(os.Getenv("DEEPSEEK_API_KEY"))
	if cfg.DeepSeekAPIKey == "" {
		if key, err := readAPIKeyFile("APIKEY"); err == nil {
			cfg.DeepSeekAPIKey = key
		}
	}

	if raw := strings.TrimSpace(os.Getenv("DEEPSEEK_TIMEOUT")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DEEPSEEK_TIMEOUT %q: %w", raw, err)
		}
		cfg.DeepSeekTimeout = d
	}

	var err error
	if cfg.DefaultStack, err = int64EnvOrDefault("DEFAULT_STACK", defaultStack); err != nil {
		return Config{}, err
	}
	if cfg.DefaultSmallBlind, err = int64EnvOrDefault("DEFAULT_SMALL_BLIND", defaultSmallBlind); err != nil {
		return Config{}, err
	}
	if cfg.DefaultBigBlind, err = int64EnvOrDefault("DEFAULT_BIG_BLIND", defaultBigBlind); err != nil {
		return Config{}, err
	}
	if raw := strings.TrimSpace(os.Getenv("MAX_ROOMS")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MAX_ROOMS %q: %w", raw, err)
		}
		cfg.MaxRooms = n
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func int64EnvOrDefault(key string, fallback int64) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func readAPIKeyFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
