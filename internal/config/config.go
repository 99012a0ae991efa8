// internal/config/config.go
package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"storefront/internal/pkg/jwt"
)

type AppConfig struct {
	// Server
	Env         string
	HTTPAddr    string
	DatabaseURL string
	RedisAddr   string
	RedisPass   string

	// JWT
	JWT jwt.Config

	// OTP
	OTPTTL     time.Duration
	OTPDevCode string

	// SMTP
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPass     string
	SMTPFromName string
	SMTPSecure   bool

	AllowedOrigins []string
}

// Load loads environment variables into AppConfig.
func Load() AppConfig {
	return AppConfig{
		Env:         getEnv("APP_ENV", "production"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8000"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:   getEnv("REDIS_PASS", ""),

		JWT: jwt.Config{
			PrivPath: getEnv("JWT_PRIVATE_KEY_PATH", ""),
			PubPath:  getEnv("JWT_PUBLIC_KEY_PATH", ""),
			Issuer:   getEnv("JWT_ISSUER", "storefront-api"),
			Audience: getEnv("JWT_AUDIENCE", "storefront-web"),
			TTL:      getEnvDuration("ACCESS_TOKEN_TTL", jwt.DefaultAccessTTL),
			KID:      getEnv("JWT_KID", "storefront-key"),
		},

		OTPTTL:     getEnvDuration("OTP_TTL", 10*time.Minute),
		OTPDevCode: getEnv("OTP_DEV_CODE", ""),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "465"),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPass:     getEnv("SMTP_PASS", ""),
		SMTPFromName: getEnv("SMTP_FROM_NAME", "Storefront"),
		SMTPSecure:   strings.ToLower(getEnv("SMTP_SECURE", "true")) == "true",

		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}
}

// IsDevelopment reports whether APP_ENV selects development mode.
func (c AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// ClientConfig configures the storefront client core.
type ClientConfig struct {
	APIURL            string
	WSURL             string
	Timeout           time.Duration
	Debug             bool
	StatePath         string
	OTPResendCooldown time.Duration
	Live              bool
}

// LoadClient loads the client settings from the environment.
func LoadClient() ClientConfig {
	apiURL := strings.TrimRight(getEnv("STOREFRONT_API_URL", "http://localhost:8000"), "/")
	cfg := ClientConfig{
		APIURL:            apiURL,
		WSURL:             getEnv("STOREFRONT_WS_URL", ""),
		Timeout:           time.Duration(getEnvInt("API_TIMEOUT", 30000)) * time.Millisecond,
		Debug:             getEnvBool("DEBUG_API", false),
		StatePath:         getEnv("STOREFRONT_STATE_PATH", ""),
		OTPResendCooldown: getEnvDuration("OTP_RESEND_COOLDOWN", 30*time.Second),
		Live:              getEnvBool("STOREFRONT_LIVE", false),
	}
	if cfg.WSURL == "" {
		cfg.WSURL = WebsocketURL(apiURL)
	}
	return cfg
}

// WebsocketURL derives the realtime endpoint from an API base URL.
func WebsocketURL(apiURL string) string {
	u, err := url.Parse(apiURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String()
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
