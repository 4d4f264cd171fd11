package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Mode selects production or development behaviour.
type Mode string

const (
	ModeProduction  Mode = "production"
	ModeDevelopment Mode = "development"
)

// Config holds all configuration for the watcher
type Config struct {
	Mode     Mode          `yaml:"mode"`
	Term     string        `yaml:"term"`
	LogLevel string        `yaml:"log_level"`
	WebSoc   WebSocConfig  `yaml:"websoc"`
	Polling  PollingConfig `yaml:"polling"`
	Storage  StorageConfig `yaml:"storage"`
	Redis    RedisConfig   `yaml:"redis"`
	Notify   NotifyConfig  `yaml:"notify"`
	Server   ServerConfig  `yaml:"server"`
	Alerts   AlertsConfig  `yaml:"alerts"`
}

// WebSocConfig holds schedule-of-classes feed settings
type WebSocConfig struct {
	BaseURL        string   `yaml:"base_url"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	SafeWindow     int      `yaml:"safe_window"`
	MaxConcurrent  int      `yaml:"max_concurrent"`
	UserAgents     []string `yaml:"user_agents"`

	// CodeSpaceMax is the highest section code probed when enumerating the catalog
	CodeSpaceMax int `yaml:"code_space_max"`
}

// Timeout returns the per-query timeout as a duration
func (c WebSocConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PollingConfig holds scheduler configuration
type PollingConfig struct {
	IntervalSeconds     int `yaml:"interval_seconds"`
	JitterSeconds       int `yaml:"jitter_seconds"`
	IdleBackoffSeconds  int `yaml:"idle_backoff_seconds"`
	ErrorBackoffSeconds int `yaml:"error_backoff_seconds"`
	CycleTimeoutSeconds int `yaml:"cycle_timeout_seconds"`
}

// Interval returns the base inter-cycle sleep
func (c PollingConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Jitter returns the width of the randomized sleep window
func (c PollingConfig) Jitter() time.Duration {
	return time.Duration(c.JitterSeconds) * time.Second
}

// IdleBackoff returns the sleep used when there are no subscriptions
func (c PollingConfig) IdleBackoff() time.Duration {
	return time.Duration(c.IdleBackoffSeconds) * time.Second
}

// ErrorBackoff returns the sleep used after a store failure or feed outage
func (c PollingConfig) ErrorBackoff() time.Duration {
	return time.Duration(c.ErrorBackoffSeconds) * time.Second
}

// CycleTimeout bounds a single cycle
func (c PollingConfig) CycleTimeout() time.Duration {
	return time.Duration(c.CycleTimeoutSeconds) * time.Second
}

// StorageConfig selects and configures the subscription store
type StorageConfig struct {
	Type          string `yaml:"type"` // "aws", "postgres" or "local"
	LocalPath     string `yaml:"local_path"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	AWSRegion     string `yaml:"aws_region"`
	AWSProfile    string `yaml:"aws_profile"` // Empty string uses default credential chain (IAM role on ECS)
	DatabaseURL   string `yaml:"database_url"`
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c StorageConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// RedisConfig holds the catalog cache and worker lock settings
type RedisConfig struct {
	URL             string `yaml:"url"`
	CatalogTTLHours int    `yaml:"catalog_ttl_hours"`
	LockTTLSeconds  int    `yaml:"lock_ttl_seconds"`
}

// Enabled reports whether a Redis URL is configured
func (c RedisConfig) Enabled() bool { return c.URL != "" }

// CatalogTTL returns how long an enumerated catalog stays cached
func (c RedisConfig) CatalogTTL() time.Duration {
	return time.Duration(c.CatalogTTLHours) * time.Hour
}

// LockTTL returns the worker lock lease
func (c RedisConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// NotifyConfig holds outbound notification settings
type NotifyConfig struct {
	// Dispatch disables real sends when false; messages are only logged
	Dispatch           bool            `yaml:"dispatch"`
	SMS                SMSConfig       `yaml:"sms"`
	Email              EmailConfig     `yaml:"email"`
	Shortener          ShortenerConfig `yaml:"shortener"`
	ResubscribeURL     string          `yaml:"resubscribe_url"`
	MaxConcurrent      int             `yaml:"max_concurrent"`
	SendTimeoutSeconds int             `yaml:"send_timeout_seconds"`
}

// SendTimeout bounds a single notifier call
func (c NotifyConfig) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSeconds) * time.Second
}

// SMSConfig holds AWS SNS settings
type SMSConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	SenderID  string `yaml:"sender_id"`

	// CountryPrefix is prepended to numbers stored without one
	CountryPrefix string `yaml:"country_prefix"`
}

// EmailConfig holds AWS SES settings
type EmailConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

// ShortenerConfig holds link shortener settings
type ShortenerConfig struct {
	Enabled        bool   `yaml:"enabled"`
	APIURL         string `yaml:"api_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

// Timeout returns the configured timeout as a duration
func (c ShortenerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ServerConfig holds the health/metrics HTTP server configuration
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Host    string `yaml:"host"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr returns host:port
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

// AlertsConfig lists operators paged when the watcher dies
type AlertsConfig struct {
	Numbers []string `yaml:"numbers"`
	Message string   `yaml:"message"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Mode == "" {
		cfg.Mode = ModeProduction
	}
	if cfg.LogLevel == "" {
		if cfg.Mode == ModeDevelopment {
			cfg.LogLevel = "debug"
		} else {
			cfg.LogLevel = "info"
		}
	}
	if cfg.WebSoc.BaseURL == "" {
		cfg.WebSoc.BaseURL = "https://www.reg.uci.edu/perl/WebSoc"
	}
	if cfg.WebSoc.TimeoutSeconds == 0 {
		cfg.WebSoc.TimeoutSeconds = 5
	}
	if cfg.WebSoc.SafeWindow == 0 {
		cfg.WebSoc.SafeWindow = 900
	}
	if cfg.WebSoc.MaxConcurrent == 0 {
		cfg.WebSoc.MaxConcurrent = 1
	}
	if cfg.WebSoc.CodeSpaceMax == 0 {
		cfg.WebSoc.CodeSpaceMax = 99999
	}
	if cfg.Polling.IntervalSeconds == 0 {
		cfg.Polling.IntervalSeconds = 60
	}
	if cfg.Polling.JitterSeconds == 0 {
		cfg.Polling.JitterSeconds = 15
	}
	if cfg.Polling.IdleBackoffSeconds == 0 {
		cfg.Polling.IdleBackoffSeconds = 120
	}
	if cfg.Polling.ErrorBackoffSeconds == 0 {
		cfg.Polling.ErrorBackoffSeconds = 300
	}
	if cfg.Polling.CycleTimeoutSeconds == 0 {
		cfg.Polling.CycleTimeoutSeconds = 240
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "aws"
	}
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "./data/subscriptions.json"
	}
	if cfg.Storage.DynamoDBTable == "" {
		cfg.Storage.DynamoDBTable = "notifications"
	}
	if cfg.Storage.AWSRegion == "" {
		cfg.Storage.AWSRegion = "us-east-1"
	}
	if cfg.Redis.CatalogTTLHours == 0 {
		cfg.Redis.CatalogTTLHours = 24
	}
	if cfg.Redis.LockTTLSeconds == 0 {
		cfg.Redis.LockTTLSeconds = 300
	}
	if cfg.Notify.SMS.Region == "" {
		cfg.Notify.SMS.Region = "us-east-1"
	}
	if cfg.Notify.SMS.CountryPrefix == "" {
		cfg.Notify.SMS.CountryPrefix = "+1"
	}
	if cfg.Notify.Email.Region == "" {
		cfg.Notify.Email.Region = "us-west-2"
	}
	if cfg.Notify.Email.FromName == "" {
		cfg.Notify.Email.FromName = "AntAlmanac"
	}
	if cfg.Notify.Shortener.APIURL == "" {
		cfg.Notify.Shortener.APIURL = "http://tinyurl.com/api-create.php"
	}
	if cfg.Notify.Shortener.TimeoutSeconds == 0 {
		cfg.Notify.Shortener.TimeoutSeconds = 5
	}
	if cfg.Notify.Shortener.MaxRetries == 0 {
		cfg.Notify.Shortener.MaxRetries = 2
	}
	if cfg.Notify.ResubscribeURL == "" {
		cfg.Notify.ResubscribeURL = "https://antalmanac.com"
	}
	if cfg.Notify.MaxConcurrent == 0 {
		cfg.Notify.MaxConcurrent = 32
	}
	if cfg.Notify.SendTimeoutSeconds == 0 {
		cfg.Notify.SendTimeoutSeconds = 10
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Alerts.Message == "" {
		cfg.Alerts.Message = "Dispatcher has failed. Please check logs and restart."
	}
}

// Validate checks the settings the worker cannot run without.
func (cfg *Config) Validate() error {
	if cfg.Term == "" {
		return fmt.Errorf("config: term is required")
	}
	if cfg.Mode != ModeProduction && cfg.Mode != ModeDevelopment {
		return fmt.Errorf("config: unknown mode %q", cfg.Mode)
	}
	switch cfg.Storage.Type {
	case "aws", "local":
	case "postgres":
		if cfg.Storage.DatabaseURL == "" {
			return fmt.Errorf("config: storage.database_url is required for postgres storage")
		}
	default:
		return fmt.Errorf("config: unknown storage type %q", cfg.Storage.Type)
	}
	if cfg.WebSoc.SafeWindow < 0 {
		return fmt.Errorf("config: websoc.safe_window must not be negative")
	}
	return nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("WATCH_TERM"); v != "" {
		cfg.Term = v
	}
	if v := os.Getenv("WEBSOC_BASE_URL"); v != "" {
		cfg.WebSoc.BaseURL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Storage.DatabaseURL = v
	}
	if v := os.Getenv("DYNAMODB_TABLE"); v != "" {
		cfg.Storage.DynamoDBTable = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("AWS_SNS_ACCESS_KEY"); v != "" {
		cfg.Notify.SMS.AccessKey = v
	}
	if v := os.Getenv("AWS_SNS_SECRET_KEY"); v != "" {
		cfg.Notify.SMS.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.Notify.Email.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.Notify.Email.SecretKey = v
	}
	if v := os.Getenv("WATCH_DISPATCH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Notify.Dispatch = b
		}
	}
	if v := os.Getenv("ALERT_NUMBERS"); v != "" {
		cfg.Alerts.Numbers = splitList(v)
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
