package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Routing modes for reaching the generative model.
const (
	RoutingGateway = "gateway"
	RoutingDirect  = "direct"

	DefaultModel = "gemini-1.5-flash"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// ProviderConfig describes how the upstream model is reached.
// It is read once at start-up and never mutated afterwards.
type ProviderConfig struct {
	APIKey      string
	BaseURL     string // full provider base URL override
	AccountID   string // gateway account id
	GatewayID   string // gateway id
	Model       string
	Routing     string // "gateway"|"direct"
	Temperature float64
	Timeout     time.Duration
	PromptFile  string
}

// ServerConfig defines the inbound HTTP surface.
type ServerConfig struct {
	Port            string
	MaxBodyMB       int
	ShutdownTimeout time.Duration
}

// AuditConfig defines the optional Redis request log.
type AuditConfig struct {
	RedisURL string
	TTL      time.Duration
}

// WebConfig holds the dashboard credentials.
type WebConfig struct {
	Username     string
	PasswordHash string // bcrypt
}

// StorageConfig defines where the CLI publishes rendered pages.
type StorageConfig struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string // S3-compatible endpoint (e.g. R2); empty means AWS
	AccessKeyID     string
	SecretAccessKey string
}

// Config is the top-level configuration.
type Config struct {
	Logging  LoggingConfig
	Axiom    AxiomConfig
	Provider ProviderConfig
	Server   ServerConfig
	Audit    AuditConfig
	Web      WebConfig
	Storage  StorageConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	// Logging defaults
	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/manualrebuild.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_manualrebuild",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Provider = ProviderConfig{
		APIKey:      strings.TrimSpace(getEnv("GEMINI_API_KEY", "")),
		BaseURL:     strings.TrimSpace(getEnv("API_BASE_URL", "")),
		AccountID:   strings.TrimSpace(getEnv("CF_ACCOUNT_ID", "")),
		GatewayID:   strings.TrimSpace(getEnv("CF_GATEWAY_ID", "")),
		Model:       strings.TrimSpace(getEnv("GEMINI_MODEL", DefaultModel)),
		Routing:     parseRouting(getEnv("GEMINI_ROUTING", RoutingGateway)),
		Temperature: parseFloat(getEnv("GEMINI_TEMPERATURE", "0.1"), 0.1),
		Timeout:     parseDuration(getEnv("REQUEST_TIMEOUT", "120s"), 120*time.Second),
		PromptFile:  getEnv("PROMPT_FILE", ""),
	}
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = DefaultModel
	}

	cfg.Server = ServerConfig{
		Port:            getEnv("PORT", "8080"),
		MaxBodyMB:       parseInt(getEnv("MAX_BODY_MB", "25"), 25),
		ShutdownTimeout: parseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s"), 10*time.Second),
	}

	cfg.Audit = AuditConfig{
		RedisURL: getEnv("REDIS_URL", ""),
		TTL:      parseDuration(getEnv("AUDIT_TTL", "24h"), 24*time.Hour),
	}

	cfg.Web = WebConfig{
		Username:     getEnv("WEB_USERNAME", ""),
		PasswordHash: getEnv("WEB_PASSWORD_HASH", ""),
	}

	cfg.Storage = StorageConfig{
		Bucket:          getEnv("AWS_S3_BUCKET", ""),
		Prefix:          getEnv("S3_PREFIX", "manuals/"),
		Region:          getEnv("AWS_REGION", "auto"),
		Endpoint:        getEnv("S3_ENDPOINT", ""),
		AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func parseRouting(s string) string {
	if strings.EqualFold(strings.TrimSpace(s), RoutingDirect) {
		return RoutingDirect
	}
	return RoutingGateway
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
