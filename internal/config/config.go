package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	LinkedIn   LinkedInConfig   `yaml:"linkedin"`
	Browser    BrowserConfig    `yaml:"browser"`
	Scraper    ScraperConfig    `yaml:"scraper"`
	Media      MediaConfig      `yaml:"media"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Auth       AuthConfig       `yaml:"auth"`
	Storage    StorageConfig    `yaml:"storage"`
	API        APIConfig        `yaml:"api"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

type LinkedInConfig struct {
	BaseURL        string `yaml:"base_url"`
	LoginURL       string `yaml:"login_url"`
	RequiredDomain string `yaml:"required_domain"`
	Email          string `yaml:"email" env:"LINKEDIN_EMAIL"`
	Password       string `yaml:"password" env:"LINKEDIN_PASSWORD"`
}

type BrowserConfig struct {
	Backend       string `yaml:"backend" env:"BROWSER_BACKEND"`
	ExecPath      string `yaml:"exec_path" env:"BROWSER_EXEC_PATH"`
	WebDriverPath string `yaml:"webdriver_path" env:"WEBDRIVER_PATH"`
	WebDriverPort int    `yaml:"webdriver_port"`
	Headless      bool   `yaml:"headless"`
	UserAgent     string `yaml:"user_agent"`
}

type ScraperConfig struct {
	Scrolls             int           `yaml:"scrolls"`
	MaxPosts            int           `yaml:"max_posts"`
	ScrollPause         time.Duration `yaml:"scroll_pause"`
	PageLoadTimeout     time.Duration `yaml:"page_load_timeout"`
	LoginFormTimeout    time.Duration `yaml:"login_form_timeout"`
	SubmitTimeout       time.Duration `yaml:"submit_timeout"`
	LoginSuccessTimeout time.Duration `yaml:"login_success_timeout"`
	ClipboardPermalinks bool          `yaml:"clipboard_permalinks"`
	MenuOpenPause       time.Duration `yaml:"menu_open_pause"`
	CopyLinkPause       time.Duration `yaml:"copy_link_pause"`
}

type MediaConfig struct {
	Download          bool          `yaml:"download"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	MinBytes          int64         `yaml:"min_bytes"`
	BlobCaptureBudget time.Duration `yaml:"blob_capture_budget"`
	BlobScriptTimeout time.Duration `yaml:"blob_script_timeout"`
}

type RateLimitConfig struct {
	RequestsPerMinute    int `yaml:"requests_per_minute"`
	DelayBetweenRequests int `yaml:"delay_between_requests"`
}

type AuthConfig struct {
	// ChallengeWait bounds how long an API run waits for an operator to
	// confirm a verification challenge. Zero fails the run immediately.
	ChallengeWait time.Duration `yaml:"challenge_wait"`
}

type StorageConfig struct {
	Dir string `yaml:"dir" env:"STORAGE_DIR"`
}

type APIConfig struct {
	Port string `yaml:"port" env:"API_PORT"`
}

type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled" env:"DB_ENABLED"`
	Host     string `yaml:"host" env:"DB_HOST"`
	Port     int    `yaml:"port" env:"DB_PORT"`
	Name     string `yaml:"name" env:"DB_NAME"`
	User     string `yaml:"user" env:"DB_USER"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	SSLMode  string `yaml:"ssl_mode" env:"DB_SSL_MODE"`
}

type LoggingConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
	File  string `yaml:"file" env:"LOG_FILE"`
}

type MonitoringConfig struct {
	MetricsFile string `yaml:"metrics_file"`
}

func Load(configFile string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configFile)
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML, applies environment overrides and fills defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment overrides: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Default returns the configuration used when no file overrides a value.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.Scraper.ClipboardPermalinks = true
	cfg.Media.Download = true
	return cfg
}

func (c *Config) applyDefaults() {
	if c.LinkedIn.BaseURL == "" {
		c.LinkedIn.BaseURL = "https://www.linkedin.com"
	}
	if c.LinkedIn.LoginURL == "" {
		c.LinkedIn.LoginURL = "https://www.linkedin.com/login"
	}
	if c.LinkedIn.RequiredDomain == "" {
		c.LinkedIn.RequiredDomain = "linkedin.com"
	}

	if c.Browser.Backend == "" {
		c.Browser.Backend = "chromedp"
	}
	if c.Browser.WebDriverPath == "" {
		c.Browser.WebDriverPath = "chromedriver"
	}
	if c.Browser.WebDriverPort == 0 {
		c.Browser.WebDriverPort = 9515
	}

	if c.Scraper.Scrolls == 0 {
		c.Scraper.Scrolls = 10
	}
	if c.Scraper.MaxPosts == 0 {
		c.Scraper.MaxPosts = 50
	}
	if c.Scraper.ScrollPause == 0 {
		c.Scraper.ScrollPause = 2 * time.Second
	}
	if c.Scraper.PageLoadTimeout == 0 {
		c.Scraper.PageLoadTimeout = 15 * time.Second
	}
	if c.Scraper.LoginFormTimeout == 0 {
		c.Scraper.LoginFormTimeout = 15 * time.Second
	}
	if c.Scraper.SubmitTimeout == 0 {
		c.Scraper.SubmitTimeout = 10 * time.Second
	}
	if c.Scraper.LoginSuccessTimeout == 0 {
		c.Scraper.LoginSuccessTimeout = 15 * time.Second
	}
	if c.Scraper.MenuOpenPause == 0 {
		c.Scraper.MenuOpenPause = time.Second
	}
	if c.Scraper.CopyLinkPause == 0 {
		c.Scraper.CopyLinkPause = 500 * time.Millisecond
	}

	if c.Media.RequestTimeout == 0 {
		c.Media.RequestTimeout = 60 * time.Second
	}
	if c.Media.MinBytes == 0 {
		c.Media.MinBytes = 100
	}
	if c.Media.BlobCaptureBudget == 0 {
		c.Media.BlobCaptureBudget = 10 * time.Second
	}
	if c.Media.BlobScriptTimeout == 0 {
		c.Media.BlobScriptTimeout = 10 * time.Second
	}

	if c.Storage.Dir == "" {
		c.Storage.Dir = "linkedin_posts"
	}
	if c.API.Port == "" {
		c.API.Port = "8000"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Monitoring.MetricsFile == "" {
		c.Monitoring.MetricsFile = "data/metrics.json"
	}
}
