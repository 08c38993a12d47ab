// Package config loads the process-wide settings once at startup.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// MinSecretKeyLen is the shortest SECRET_KEY accepted for HS256 signing.
const MinSecretKeyLen = 32

// Settings is immutable after Load returns.
type Settings struct {
	ProjectName string
	Version     string
	Debug       bool
	HTTPAddr    string

	SecretKey      []byte
	AccessTokenTTL time.Duration
	BcryptCost     int

	DatabaseURL string
	CORSOrigins []string

	FirstSuperuser         string
	FirstSuperuserPassword string

	// RateLimitPerUser is read for parity with deployments that set it; nothing enforces it.
	RateLimitPerUser int

	LogLevel string
}

var (
	ErrMissingProjectName = errors.New("PROJECT_NAME is required")
	ErrMissingSecretKey   = errors.New("SECRET_KEY is required")
	ErrWeakSecretKey      = fmt.Errorf("SECRET_KEY must be at least %d bytes", MinSecretKeyLen)
)

// Load reads settings from the environment. Call godotenv.Load first if a
// .env file should be honoured.
func Load() (Settings, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Settings, error) {
	s := Settings{
		ProjectName:            strings.TrimSpace(getenv("PROJECT_NAME")),
		Version:                orDefault(getenv("VERSION"), "1.0.0"),
		HTTPAddr:               orDefault(getenv("HTTP_ADDR"), "0.0.0.0:8000"),
		SecretKey:              []byte(getenv("SECRET_KEY")),
		DatabaseURL:            orDefault(getenv("DATABASE_URL"), "sqlite://community.db"),
		FirstSuperuser:         strings.TrimSpace(getenv("FIRST_SUPERUSER")),
		FirstSuperuserPassword: getenv("FIRST_SUPERUSER_PASSWORD"),
		LogLevel:               orDefault(getenv("LOG_LEVEL"), "info"),
	}
	if s.ProjectName == "" {
		return Settings{}, ErrMissingProjectName
	}
	if len(s.SecretKey) == 0 {
		return Settings{}, ErrMissingSecretKey
	}
	if len(s.SecretKey) < MinSecretKeyLen {
		return Settings{}, ErrWeakSecretKey
	}

	var err error
	if s.Debug, err = parseBool(getenv("DEBUG")); err != nil {
		return Settings{}, fmt.Errorf("DEBUG: %w", err)
	}
	minutes, err := intOrDefault(getenv("ACCESS_TOKEN_EXPIRE_MINUTES"), 30)
	if err != nil {
		return Settings{}, fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES: %w", err)
	}
	if minutes <= 0 {
		return Settings{}, errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	s.AccessTokenTTL = time.Duration(minutes) * time.Minute

	if s.BcryptCost, err = intOrDefault(getenv("BCRYPT_COST"), 12); err != nil {
		return Settings{}, fmt.Errorf("BCRYPT_COST: %w", err)
	}
	if s.BcryptCost < bcrypt.MinCost || s.BcryptCost > bcrypt.MaxCost {
		return Settings{}, fmt.Errorf("BCRYPT_COST must be within [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if s.RateLimitPerUser, err = intOrDefault(getenv("RATE_LIMIT_PER_USER"), 1000); err != nil {
		return Settings{}, fmt.Errorf("RATE_LIMIT_PER_USER: %w", err)
	}
	if s.CORSOrigins, err = parseList(getenv("BACKEND_CORS_ORIGINS")); err != nil {
		return Settings{}, fmt.Errorf("BACKEND_CORS_ORIGINS: %w", err)
	}
	if (s.FirstSuperuser == "") != (s.FirstSuperuserPassword == "") {
		return Settings{}, errors.New("FIRST_SUPERUSER and FIRST_SUPERUSER_PASSWORD must be set together")
	}
	return s, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func intOrDefault(v string, def int) (int, error) {
	if strings.TrimSpace(v) == "" {
		return def, nil
	}
	return strconv.Atoi(strings.TrimSpace(v))
}

func parseBool(v string) (bool, error) {
	if strings.TrimSpace(v) == "" {
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(v))
}

// parseList accepts either a JSON array (`["http://a","http://b"]`) or a
// comma separated list.
func parseList(v string) ([]string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if strings.HasPrefix(v, "[") {
		var out []string
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}
