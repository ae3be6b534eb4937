package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	// Test default values
	if config.RateLimit.RequestsPerMinute != 60 {
		t.Errorf("Expected default requests per minute to be 60, got %d", config.RateLimit.RequestsPerMinute)
	}

	if config.Download.ConcurrentDownloads != 3 {
		t.Errorf("Expected default concurrent downloads to be 3, got %d", config.Download.ConcurrentDownloads)
	}

	if config.Output.BaseDirectory != "./downloads" {
		t.Errorf("Expected default output directory to be ./downloads, got %s", config.Output.BaseDirectory)
	}

	if !config.Browser.Headless {
		t.Error("Expected browser to default to headless")
	}

	if !config.Dedup.Enabled {
		t.Error("Expected dedup to be enabled by default")
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Expected default config to be valid, got: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("GALLERYGRAB_OUTPUT_DIR", "/tmp/test-downloads")
	os.Setenv("GALLERYGRAB_CONCURRENT_DOWNLOADS", "5")
	os.Setenv("GALLERYGRAB_REQUESTS_PER_MINUTE", "30")
	os.Setenv("GALLERYGRAB_MAX_PAGES", "7")
	os.Setenv("GALLERYGRAB_HEADLESS", "false")
	os.Setenv("GALLERYGRAB_LOG_LEVEL", "debug")

	defer func() {
		// Clean up environment variables
		os.Unsetenv("GALLERYGRAB_OUTPUT_DIR")
		os.Unsetenv("GALLERYGRAB_CONCURRENT_DOWNLOADS")
		os.Unsetenv("GALLERYGRAB_REQUESTS_PER_MINUTE")
		os.Unsetenv("GALLERYGRAB_MAX_PAGES")
		os.Unsetenv("GALLERYGRAB_HEADLESS")
		os.Unsetenv("GALLERYGRAB_LOG_LEVEL")
	}()

	config := DefaultConfig()
	err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}

	if config.Output.BaseDirectory != "/tmp/test-downloads" {
		t.Errorf("Expected output directory to be /tmp/test-downloads, got %s", config.Output.BaseDirectory)
	}
	if config.Download.ConcurrentDownloads != 5 {
		t.Errorf("Expected concurrent downloads to be 5, got %d", config.Download.ConcurrentDownloads)
	}
	if config.RateLimit.RequestsPerMinute != 30 {
		t.Errorf("Expected requests per minute to be 30, got %d", config.RateLimit.RequestsPerMinute)
	}
	if config.Pagination.MaxPages != 7 {
		t.Errorf("Expected max pages to be 7, got %d", config.Pagination.MaxPages)
	}
	if config.Browser.Headless {
		t.Error("Expected headless to be disabled via environment")
	}
	if config.Logging.Level != "debug" {
		t.Errorf("Expected log level to be debug, got %s", config.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `browser:
  headless: false
  navigate_timeout: 45s
extraction:
  min_width: 800
  min_height: 600
pagination:
  max_pages: 12
download:
  concurrent_downloads: 4
output:
  base_directory: /tmp/gallery
`
	if err := os.WriteFile(path, []byte(yaml), 0600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	config := DefaultConfig()
	if err := config.LoadFromFile(path); err != nil {
		t.Fatalf("Failed to load config file: %v", err)
	}

	if config.Browser.Headless {
		t.Error("Expected headless to be disabled from file")
	}
	if config.Browser.NavigateTimeout != 45*time.Second {
		t.Errorf("Expected navigate timeout of 45s, got %v", config.Browser.NavigateTimeout)
	}
	if config.Extraction.MinWidth != 800 || config.Extraction.MinHeight != 600 {
		t.Errorf("Expected minimum dimensions 800x600, got %dx%d",
			config.Extraction.MinWidth, config.Extraction.MinHeight)
	}
	if config.Pagination.MaxPages != 12 {
		t.Errorf("Expected max pages to be 12, got %d", config.Pagination.MaxPages)
	}
	if config.Download.ConcurrentDownloads != 4 {
		t.Errorf("Expected concurrent downloads to be 4, got %d", config.Download.ConcurrentDownloads)
	}
	if config.Output.BaseDirectory != "/tmp/gallery" {
		t.Errorf("Expected output directory /tmp/gallery, got %s", config.Output.BaseDirectory)
	}

	// Untouched values keep their defaults
	if config.RateLimit.RequestsPerMinute != 60 {
		t.Errorf("Expected default requests per minute to survive, got %d", config.RateLimit.RequestsPerMinute)
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()
	config.MergeCommandLineFlags(map[string]interface{}{
		"output":      "/tmp/cli-output",
		"concurrent":  2,
		"max-pages":   5,
		"min-width":   1024,
		"min-height":  768,
		"auth-config": "/tmp/auth.yaml",
		"headless":    false,
		"log-level":   "warn",
	})

	if config.Output.BaseDirectory != "/tmp/cli-output" {
		t.Errorf("Expected output directory /tmp/cli-output, got %s", config.Output.BaseDirectory)
	}
	if config.Download.ConcurrentDownloads != 2 {
		t.Errorf("Expected concurrent downloads to be 2, got %d", config.Download.ConcurrentDownloads)
	}
	if config.Pagination.MaxPages != 5 {
		t.Errorf("Expected max pages to be 5, got %d", config.Pagination.MaxPages)
	}
	if config.Extraction.MinWidth != 1024 || config.Extraction.MinHeight != 768 {
		t.Errorf("Expected minimum dimensions 1024x768, got %dx%d",
			config.Extraction.MinWidth, config.Extraction.MinHeight)
	}
	if config.Session.AuthConfigFile != "/tmp/auth.yaml" {
		t.Errorf("Expected auth config /tmp/auth.yaml, got %s", config.Session.AuthConfigFile)
	}
	if config.Browser.Headless {
		t.Error("Expected headless to be disabled via flag")
	}
	if config.Logging.Level != "warn" {
		t.Errorf("Expected log level warn, got %s", config.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"zero navigate timeout", func(c *Config) { c.Browser.NavigateTimeout = 0 }, true},
		{"negative min width", func(c *Config) { c.Extraction.MinWidth = -1 }, true},
		{"zero max pages", func(c *Config) { c.Pagination.MaxPages = 0 }, true},
		{"negative hamming threshold", func(c *Config) { c.Dedup.HammingThreshold = -1 }, true},
		{"too many workers", func(c *Config) { c.Download.ConcurrentDownloads = 11 }, true},
		{"empty output directory", func(c *Config) { c.Output.BaseDirectory = "" }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr && err == nil {
				t.Error("Expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected valid config, got: %v", err)
			}
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	config := DefaultConfig()
	config.Extraction.MinWidth = 640
	config.Output.BaseDirectory = "/tmp/saved"

	if err := config.Save(path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	reloaded := DefaultConfig()
	if err := reloaded.LoadFromFile(path); err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}

	if reloaded.Extraction.MinWidth != 640 {
		t.Errorf("Expected min width 640 after reload, got %d", reloaded.Extraction.MinWidth)
	}
	if reloaded.Output.BaseDirectory != "/tmp/saved" {
		t.Errorf("Expected output directory /tmp/saved after reload, got %s", reloaded.Output.BaseDirectory)
	}
}
