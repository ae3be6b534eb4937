package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the gallery scraper
type Config struct {
	// Browser automation settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Extraction strategy settings
	Extraction ExtractionConfig `yaml:"extraction" json:"extraction"`

	// Pagination settings
	Pagination PaginationConfig `yaml:"pagination" json:"pagination"`

	// Perceptual dedup settings
	Dedup DedupConfig `yaml:"dedup" json:"dedup"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Session / auth persistence
	Session SessionConfig `yaml:"session" json:"session"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// BrowserConfig holds headless-browser settings
type BrowserConfig struct {
	Headless        bool          `yaml:"headless" json:"headless"`
	Stealth         bool          `yaml:"stealth" json:"stealth"`
	NavigateTimeout time.Duration `yaml:"navigate_timeout" json:"navigate_timeout"`
	UserAgent       string        `yaml:"user_agent" json:"user_agent"`
}

// ExtractionConfig holds extraction chain settings
type ExtractionConfig struct {
	MinWidth      int `yaml:"min_width" json:"min_width"`
	MinHeight     int `yaml:"min_height" json:"min_height"`
	MinCandidates int `yaml:"min_candidates" json:"min_candidates"`
}

// PaginationConfig holds pagination engine settings
type PaginationConfig struct {
	MaxPages    int           `yaml:"max_pages" json:"max_pages"`
	ScrollCount int           `yaml:"scroll_count" json:"scroll_count"`
	ScrollDelay time.Duration `yaml:"scroll_delay" json:"scroll_delay"`
}

// DedupConfig holds perceptual dedup settings
type DedupConfig struct {
	Enabled          bool `yaml:"enabled" json:"enabled"`
	HammingThreshold int  `yaml:"hamming_threshold" json:"hamming_threshold"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	DownloadTimeout     time.Duration `yaml:"download_timeout" json:"download_timeout"`
	RetryAttempts       int           `yaml:"retry_attempts" json:"retry_attempts"`
	MinFileSize         int64         `yaml:"min_file_size" json:"min_file_size"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory  string `yaml:"base_directory" json:"base_directory"`
	OrganizeByKind bool   `yaml:"organize_by_kind" json:"organize_by_kind"`
	WriteMetadata  bool   `yaml:"write_metadata" json:"write_metadata"`
	ArchiveFile    string `yaml:"archive_file" json:"archive_file"`
	HandoffFile    string `yaml:"handoff_file" json:"handoff_file"`
}

// SessionConfig holds auth/session persistence configuration
type SessionConfig struct {
	ProfileFile    string `yaml:"profile_file" json:"profile_file"`
	AuthConfigFile string `yaml:"auth_config_file" json:"auth_config_file"`
	SaveCookies    bool   `yaml:"save_cookies" json:"save_cookies"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:        true,
			Stealth:         true,
			NavigateTimeout: 30 * time.Second,
			UserAgent:       "",
		},
		Extraction: ExtractionConfig{
			MinWidth:      0,
			MinHeight:     0,
			MinCandidates: 3,
		},
		Pagination: PaginationConfig{
			MaxPages:    50,
			ScrollCount: 10,
			ScrollDelay: 500 * time.Millisecond,
		},
		Dedup: DedupConfig{
			Enabled:          true,
			HammingThreshold: 4,
		},
		Download: DownloadConfig{
			ConcurrentDownloads: 3,
			DownloadTimeout:     30 * time.Second,
			RetryAttempts:       3,
			MinFileSize:         1,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			BurstSize:         10,
		},
		Output: OutputConfig{
			BaseDirectory:  "./downloads",
			OrganizeByKind: true,
			WriteMetadata:  true,
			ArchiveFile:    "archive.txt",
			HandoffFile:    "video_handoff.jsonl",
		},
		Session: SessionConfig{
			ProfileFile: "",
			SaveCookies: true,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if outputDir := os.Getenv("GALLERYGRAB_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if concurrent := os.Getenv("GALLERYGRAB_CONCURRENT_DOWNLOADS"); concurrent != "" {
		var val int
		fmt.Sscanf(concurrent, "%d", &val)
		if val > 0 {
			c.Download.ConcurrentDownloads = val
		}
	}
	if rpm := os.Getenv("GALLERYGRAB_REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}
	if maxPages := os.Getenv("GALLERYGRAB_MAX_PAGES"); maxPages != "" {
		var val int
		fmt.Sscanf(maxPages, "%d", &val)
		if val > 0 {
			c.Pagination.MaxPages = val
		}
	}
	if authConfig := os.Getenv("GALLERYGRAB_AUTH_CONFIG"); authConfig != "" {
		c.Session.AuthConfigFile = authConfig
	}
	if headless := os.Getenv("GALLERYGRAB_HEADLESS"); headless != "" {
		c.Browser.Headless = strings.ToLower(headless) == "true"
	}
	if logLevel := os.Getenv("GALLERYGRAB_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	// Check in order of precedence
	locations := []string{
		".gallerygrab.yaml",
		".gallerygrab.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "gallerygrab", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "gallerygrab", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".gallerygrab.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Browser.NavigateTimeout <= 0 {
		errs = append(errs, errors.New("navigate timeout must be positive"))
	}

	if c.Extraction.MinWidth < 0 || c.Extraction.MinHeight < 0 {
		errs = append(errs, errors.New("minimum dimensions cannot be negative"))
	}
	if c.Extraction.MinCandidates < 0 {
		errs = append(errs, errors.New("minimum candidate threshold cannot be negative"))
	}

	if c.Pagination.MaxPages <= 0 {
		errs = append(errs, errors.New("max pages must be positive"))
	}
	if c.Pagination.ScrollCount <= 0 {
		errs = append(errs, errors.New("scroll count must be positive"))
	}

	if c.Dedup.HammingThreshold < 0 {
		errs = append(errs, errors.New("hamming threshold cannot be negative"))
	}

	if c.Download.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Download.ConcurrentDownloads > 10 {
		errs = append(errs, errors.New("concurrent downloads should not exceed 10"))
	}
	if c.Download.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.RetryAttempts < 0 {
		errs = append(errs, errors.New("retry attempts cannot be negative"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.ArchiveFile == "" {
		errs = append(errs, errors.New("archive file is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if concurrent, ok := flags["concurrent"].(int); ok && concurrent > 0 {
		c.Download.ConcurrentDownloads = concurrent
	}
	if maxPages, ok := flags["max-pages"].(int); ok && maxPages > 0 {
		c.Pagination.MaxPages = maxPages
	}
	if minWidth, ok := flags["min-width"].(int); ok && minWidth > 0 {
		c.Extraction.MinWidth = minWidth
	}
	if minHeight, ok := flags["min-height"].(int); ok && minHeight > 0 {
		c.Extraction.MinHeight = minHeight
	}
	if authConfig, ok := flags["auth-config"].(string); ok && authConfig != "" {
		c.Session.AuthConfigFile = authConfig
	}
	if headless, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = headless
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".gallerygrab.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
