package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrMissingAPIKey = errors.New("Gemini API key not configured")

// Error reports an invalid configuration value.
type Error struct {
	Key    string
	Reason string
}

func (e *Error) Error() string { return fmt.Sprintf("config %s: %s", e.Key, e.Reason) }

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Gemini   GeminiConfig
	Extract  ExtractConfig
	Database DatabaseConfig
	Session  SessionConfig
	Redis    RedisConfig
}

type ServerConfig struct {
	Port        string
	CORSOrigins []string
	MaxUploadMB int64
}

type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	TopP            float32
	TopK            int32
	MaxOutputTokens int32
	Timeout         time.Duration
}

type ExtractConfig struct {
	Mode        string
	PDFOCR      string
	PDFPages    int
	Credentials string
	RequireAuth bool
	RateLimit   int
}

type DatabaseConfig struct {
	DSN             string
	MaxConnLifetime time.Duration
}

type SessionConfig struct {
	Secret string
	TTL    time.Duration
	Secure bool
}

type RedisConfig struct {
	URL string
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables only.
func FromEnv() (*Config, error) {
	c := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
			MaxUploadMB: int64(getEnvAsInt("MAX_UPLOAD_MB", 10)),
		},
		Gemini: GeminiConfig{
			APIKey:          strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
			Model:           getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
			Temperature:     getEnvAsFloat32("GEMINI_TEMPERATURE", 0.1),
			TopP:            getEnvAsFloat32("GEMINI_TOP_P", 0.8),
			TopK:            int32(getEnvAsInt("GEMINI_TOP_K", 40)),
			MaxOutputTokens: int32(getEnvAsInt("GEMINI_MAX_OUTPUT_TOKENS", 1024)),
			Timeout:         getEnvAsDuration("GEMINI_TIMEOUT", 30*time.Second),
		},
		Extract: ExtractConfig{
			Mode:        strings.ToLower(getEnv("EXTRACT_MODE", "ai")),
			PDFOCR:      strings.ToLower(getEnv("PDF_OCR", "none")),
			PDFPages:    getEnvAsInt("PDF_OCR_PAGES", 2),
			Credentials: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
			RequireAuth: getEnvAsBool("EXTRACT_REQUIRE_AUTH", false),
			RateLimit:   getEnvAsInt("EXTRACT_RATE_LIMIT", 0),
		},
		Database: DatabaseConfig{
			DSN:             firstEnv("DB_URL", "DATABASE_URL"),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", time.Hour),
		},
		Session: SessionConfig{
			Secret: os.Getenv("SESSION_SECRET"),
			TTL:    getEnvAsDuration("SESSION_TTL", 7*24*time.Hour),
			Secure: getEnv("APP_ENV", "development") == "production",
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
	}
	return c, c.Validate()
}

// Validate rejects values the server cannot run with. A missing Gemini key is
// not an error here; it is reported per extraction request.
func (c *Config) Validate() error {
	switch c.Extract.Mode {
	case "ai", "hybrid":
	default:
		return &Error{Key: "EXTRACT_MODE", Reason: "must be ai or hybrid"}
	}
	switch c.Extract.PDFOCR {
	case "none", "vision":
	default:
		return &Error{Key: "PDF_OCR", Reason: "must be none or vision"}
	}
	if c.Server.MaxUploadMB <= 0 {
		return &Error{Key: "MAX_UPLOAD_MB", Reason: "must be positive"}
	}
	if c.Gemini.Timeout <= 0 {
		return &Error{Key: "GEMINI_TIMEOUT", Reason: "must be positive"}
	}
	if c.Extract.RateLimit < 0 {
		return &Error{Key: "EXTRACT_RATE_LIMIT", Reason: "must not be negative"}
	}
	return nil
}

// HasAPIKey reports whether the remote model credential is present.
func (c *Config) HasAPIKey() bool { return c.Gemini.APIKey != "" }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
