package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for geolens.
type Config struct {
	AI           AIConfig
	Store        StoreConfig
	Export       ExportConfig
	Filters      FilterConfig
	Notification NotificationConfig
	Server       ServerConfig
	Watch        WatchConfig
}

// AIConfig selects and configures the model backend.
type AIConfig struct {
	Provider  string        // "gemini", "openai" or "static"
	Model     string        // defaults per provider
	APIKey    string        // api_key, else API_KEY, else the provider's own variable
	BaseURL   string        // optional endpoint override
	Timeout   time.Duration // per-request timeout
	StaticDir string        // directory with analysis.json and summary.md for "static"
}

// StoreConfig selects the sample database.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "sqlite", "postgres" or "mysql"
	DSN    string `yaml:"dsn"`    // file path for sqlite, connection string otherwise
}

// ExportConfig controls where exports land.
type ExportConfig struct {
	Dir    string
	Bucket BucketConfig
}

// BucketConfig describes an S3-compatible bucket used by "export --bucket".
type BucketConfig struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Name       string
	Region     string
	UseSSL     bool
	Prefix     string
	PresignTTL time.Duration
}

// Enabled reports whether a bucket has been configured.
func (b BucketConfig) Enabled() bool {
	return b.Endpoint != "" && b.Name != ""
}

// FilterConfig narrows which samples are listed and exported.
type FilterConfig struct {
	RockKeywords  []string `yaml:"rock_keywords"`
	Minerals      []string `yaml:"minerals"`
	MinPercentage float64  `yaml:"min_percentage"`
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type           string        // "log" or "slack"
	WebhookURL     string        // required if type is "slack"
	DigestInterval time.Duration // serve publishes a digest this often; 0 disables
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// WatchConfig configures the folder watcher.
type WatchConfig struct {
	Dir        string
	Extensions []string
	Settle     time.Duration // quiet period before a changed file is analyzed
}

const (
	defaultProvider    = "gemini"
	defaultGeminiModel = "gemini-2.5-flash"
	defaultOpenAIModel = "gpt-4o-mini"
	defaultOpenAIURL   = "https://api.openai.com/v1"
	slackWebhookPrefix = "https://hooks.slack.com/"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as strings).
type rawConfig struct {
	AI           rawAIConfig           `yaml:"ai"`
	Store        StoreConfig           `yaml:"store"`
	Export       rawExportConfig       `yaml:"export"`
	Filters      FilterConfig          `yaml:"filters"`
	Notification rawNotificationConfig `yaml:"notification"`
	Server       ServerConfig          `yaml:"server"`
	Watch        rawWatchConfig        `yaml:"watch"`
}

type rawAIConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Timeout   string `yaml:"timeout"`
	StaticDir string `yaml:"static_dir"`
}

type rawExportConfig struct {
	Dir    string          `yaml:"dir"`
	Bucket rawBucketConfig `yaml:"bucket"`
}

type rawBucketConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Name       string `yaml:"name"`
	Region     string `yaml:"region"`
	UseSSL     bool   `yaml:"use_ssl"`
	Prefix     string `yaml:"prefix"`
	PresignTTL string `yaml:"presign_ttl"`
}

type rawNotificationConfig struct {
	Type           string `yaml:"type"`
	WebhookURL     string `yaml:"webhook_url"`
	DigestInterval string `yaml:"digest_interval"`
}

type rawWatchConfig struct {
	Dir        string   `yaml:"dir"`
	Extensions []string `yaml:"extensions"`
	Settle     string   `yaml:"settle"`
}

// providerKeyVars are consulted after API_KEY when api_key is empty.
var providerKeyVars = map[string][]string{
	"gemini": {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"openai": {"OPENAI_API_KEY"},
}

func envAPIKey(provider string) string {
	for _, name := range append([]string{"API_KEY"}, providerKeyVars[provider]...) {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg, err := fromRaw(rawConfig{})
	if err != nil {
		// The zero raw config only yields defaults; parsing cannot fail.
		panic(err)
	}
	return cfg
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg, err := fromRaw(raw)
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but returns Default when path does not exist
// and allowMissing is set.
func LoadOrDefault(path string, allowMissing bool) (*Config, error) {
	cfg, err := Load(path)
	if err != nil && allowMissing && errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func fromRaw(raw rawConfig) (*Config, error) {
	var err error

	aiTimeout := 60 * time.Second
	if raw.AI.Timeout != "" {
		aiTimeout, err = time.ParseDuration(raw.AI.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse ai.timeout %q: %w", raw.AI.Timeout, err)
		}
	}

	presignTTL := 24 * time.Hour
	if raw.Export.Bucket.PresignTTL != "" {
		presignTTL, err = time.ParseDuration(raw.Export.Bucket.PresignTTL)
		if err != nil {
			return nil, fmt.Errorf("parse export.bucket.presign_ttl %q: %w", raw.Export.Bucket.PresignTTL, err)
		}
	}

	settle := 2 * time.Second
	if raw.Watch.Settle != "" {
		settle, err = time.ParseDuration(raw.Watch.Settle)
		if err != nil {
			return nil, fmt.Errorf("parse watch.settle %q: %w", raw.Watch.Settle, err)
		}
	}

	var digestInterval time.Duration
	if raw.Notification.DigestInterval != "" {
		digestInterval, err = time.ParseDuration(raw.Notification.DigestInterval)
		if err != nil {
			return nil, fmt.Errorf("parse notification.digest_interval %q: %w", raw.Notification.DigestInterval, err)
		}
	}

	provider := strings.ToLower(raw.AI.Provider)
	if provider == "" {
		provider = defaultProvider
	}
	aiModel := raw.AI.Model
	baseURL := raw.AI.BaseURL
	apiKey := raw.AI.APIKey
	if apiKey == "" {
		apiKey = envAPIKey(provider)
	}
	switch provider {
	case "gemini":
		if aiModel == "" {
			aiModel = defaultGeminiModel
		}
	case "openai":
		if aiModel == "" {
			aiModel = defaultOpenAIModel
		}
		if baseURL == "" {
			baseURL = defaultOpenAIURL
		}
	}

	st := raw.Store
	if st.Driver == "" {
		st.Driver = "sqlite"
	}
	if st.Driver == "sqlite" && st.DSN == "" {
		st.DSN = "geolens.db"
	}

	exportDir := raw.Export.Dir
	if exportDir == "" {
		exportDir = "exports"
	}

	notif := NotificationConfig{
		Type:           raw.Notification.Type,
		WebhookURL:     raw.Notification.WebhookURL,
		DigestInterval: digestInterval,
	}
	if notif.Type == "" {
		notif.Type = "log"
	}

	server := raw.Server
	if server.Addr == "" {
		server.Addr = ":8080"
	}

	exts := raw.Watch.Extensions
	if len(exts) == 0 {
		exts = []string{".jpg", ".jpeg", ".png", ".webp"}
	}
	for i, ext := range exts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[i] = ext
	}

	return &Config{
		AI: AIConfig{
			Provider:  provider,
			Model:     aiModel,
			APIKey:    apiKey,
			BaseURL:   baseURL,
			Timeout:   aiTimeout,
			StaticDir: raw.AI.StaticDir,
		},
		Store: st,
		Export: ExportConfig{
			Dir: exportDir,
			Bucket: BucketConfig{
				Endpoint:   raw.Export.Bucket.Endpoint,
				AccessKey:  raw.Export.Bucket.AccessKey,
				SecretKey:  raw.Export.Bucket.SecretKey,
				Name:       raw.Export.Bucket.Name,
				Region:     raw.Export.Bucket.Region,
				UseSSL:     raw.Export.Bucket.UseSSL,
				Prefix:     raw.Export.Bucket.Prefix,
				PresignTTL: presignTTL,
			},
		},
		Filters:      raw.Filters,
		Notification: notif,
		Server:       server,
		Watch: WatchConfig{
			Dir:        raw.Watch.Dir,
			Extensions: exts,
			Settle:     settle,
		},
	}, nil
}

func validate(cfg *Config) error {
	switch cfg.AI.Provider {
	case "gemini", "openai":
	case "static":
		if cfg.AI.StaticDir == "" {
			return fmt.Errorf("ai.static_dir is required when ai.provider is \"static\"")
		}
	default:
		return fmt.Errorf("ai.provider must be one of gemini, openai, static; got %q", cfg.AI.Provider)
	}
	if cfg.AI.Timeout <= 0 {
		return fmt.Errorf("ai.timeout must be positive, got %v", cfg.AI.Timeout)
	}

	switch cfg.Store.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("store.driver must be one of sqlite, postgres, mysql; got %q", cfg.Store.Driver)
	}
	if cfg.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required for driver %q", cfg.Store.Driver)
	}

	if cfg.Filters.MinPercentage < 0 || cfg.Filters.MinPercentage > 100 {
		return fmt.Errorf("filters.min_percentage must be between 0 and 100, got %v", cfg.Filters.MinPercentage)
	}

	switch cfg.Notification.Type {
	case "log":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, slackWebhookPrefix) {
			return fmt.Errorf("notification.webhook_url must start with %s", slackWebhookPrefix)
		}
	default:
		return fmt.Errorf("notification.type must be \"log\" or \"slack\", got %q", cfg.Notification.Type)
	}
	if cfg.Notification.DigestInterval != 0 && cfg.Notification.DigestInterval < time.Minute {
		return fmt.Errorf("notification.digest_interval must be 0 or at least 1m, got %v", cfg.Notification.DigestInterval)
	}

	b := cfg.Export.Bucket
	if b.Endpoint != "" || b.Name != "" {
		if b.Endpoint == "" || b.Name == "" {
			return fmt.Errorf("export.bucket needs both endpoint and name")
		}
		if b.PresignTTL <= 0 || b.PresignTTL > 7*24*time.Hour {
			return fmt.Errorf("export.bucket.presign_ttl must be between 1s and 168h, got %v", b.PresignTTL)
		}
	}

	if cfg.Watch.Settle <= 0 {
		return fmt.Errorf("watch.settle must be positive, got %v", cfg.Watch.Settle)
	}

	return nil
}
