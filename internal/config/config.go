package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	StrategyDirect  = "direct"
	StrategyBrowser = "browser"

	FormatRSS  = "rss"
	FormatAtom = "atom"
)

// Config holds all configuration for the application
type Config struct {
	// Source site
	Strategy      string `json:"strategy" validate:"oneof=direct browser"`
	Origin        string `json:"origin" validate:"required,url"`
	ListingPath   string `json:"listing_path" validate:"required,startswith=/"`
	AjaxPath      string `json:"ajax_path" validate:"required,startswith=/"`
	CategoryCode  string `json:"category_code" validate:"required,numeric"`
	CategoryName  string `json:"category_name" validate:"required"`
	ViewName      string `json:"view_name" validate:"required"`
	ViewDisplayID string `json:"view_display_id" validate:"required"`
	SortBy        string `json:"sort_by"`
	SortOrder     string `json:"sort_order" validate:"omitempty,oneof=ASC DESC"`
	UserAgent     string `json:"user_agent" validate:"required"`

	// Browser strategy
	BrowserNoSandbox bool `json:"browser_no_sandbox"`

	// Timeouts
	FetchTimeout      time.Duration `json:"fetch_timeout" validate:"gt=0"`
	NavigationTimeout time.Duration `json:"navigation_timeout" validate:"gt=0"`
	ElementTimeout    time.Duration `json:"element_timeout" validate:"gt=0"`
	ResultsTimeout    time.Duration `json:"results_timeout" validate:"gt=0"`
	RunTimeout        time.Duration `json:"run_timeout" validate:"gt=0"`

	// Listing markup selectors
	RowSelector   string `json:"row_selector" validate:"required"`
	TitleSelector string `json:"title_selector" validate:"required"`
	LinkSelector  string `json:"link_selector" validate:"required"`
	DateSelector  string `json:"date_selector" validate:"required"`

	// Output feed
	OutputPath      string `json:"output_path" validate:"required"`
	FeedFormat      string `json:"feed_format" validate:"oneof=rss atom"`
	FeedTitle       string `json:"feed_title" validate:"required"`
	FeedDescription string `json:"feed_description"`

	// Redis run lock
	RedisURL    string        `json:"redis_url" validate:"omitempty,url"`
	RedisPrefix string        `json:"redis_prefix"`
	LockTTL     time.Duration `json:"lock_ttl" validate:"gt=0,gtefield=RunTimeout"`

	// CloudFlare R2 Configuration
	R2Endpoint  string `json:"r2_endpoint" validate:"omitempty,url"`
	R2AccessKey string `json:"r2_access_key"`
	R2SecretKey string `json:"r2_secret_key"`
	R2Bucket    string `json:"r2_bucket"`
	R2AccountID string `json:"r2_account_id"`
	R2ObjectKey string `json:"r2_object_key"`

	// Feed server
	Port            string        `json:"port" validate:"required,numeric"`
	HTTPTimeout     time.Duration `json:"http_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" validate:"gt=0"`
	AdminAPIKey     string        `json:"admin_api_key"`

	// Logging
	LogLevel  string `json:"log_level"`
	LogFile   string `json:"log_file"`
	LogPretty bool   `json:"log_pretty"`
}

// Load loads configuration from the .env file (if any) and environment variables, then validates it
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := &Config{
		Strategy:      strings.ToLower(getEnv("SOURCE_STRATEGY", StrategyDirect)),
		Origin:        strings.TrimRight(getEnv("SOURCE_ORIGIN", "https://www.agco.ca"), "/"),
		ListingPath:   getEnv("SOURCE_LISTING_PATH", "/en/general/news"),
		AjaxPath:      getEnv("SOURCE_AJAX_PATH", "/en/views/ajax"),
		CategoryCode:  getEnv("SOURCE_CATEGORY_CODE", "2091"),
		CategoryName:  getEnv("SOURCE_CATEGORY_NAME", "Lottery and Gaming"),
		ViewName:      getEnv("SOURCE_VIEW_NAME", "search_news"),
		ViewDisplayID: getEnv("SOURCE_VIEW_DISPLAY_ID", "page_1"),
		SortBy:        getEnv("SOURCE_SORT_BY", "field_date_value"),
		SortOrder:     getEnv("SOURCE_SORT_ORDER", "DESC"),
		UserAgent:     getEnv("USER_AGENT", "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"),

		BrowserNoSandbox: getEnvAsBool("BROWSER_NO_SANDBOX", false),

		FetchTimeout:      getEnvAsDuration("FETCH_TIMEOUT", 60*time.Second),
		NavigationTimeout: getEnvAsDuration("NAVIGATION_TIMEOUT", 60*time.Second),
		ElementTimeout:    getEnvAsDuration("ELEMENT_TIMEOUT", 10*time.Second),
		ResultsTimeout:    getEnvAsDuration("RESULTS_TIMEOUT", 30*time.Second),
		RunTimeout:        getEnvAsDuration("RUN_TIMEOUT", 3*time.Minute),

		RowSelector:   getEnv("SELECTOR_ROW", "div.views-row"),
		TitleSelector: getEnv("SELECTOR_TITLE", "h3"),
		LinkSelector:  getEnv("SELECTOR_LINK", "a"),
		DateSelector:  getEnv("SELECTOR_DATE", "span.date-display-single"),

		OutputPath:      getEnv("FEED_OUTPUT_PATH", "agco_feed.xml"),
		FeedFormat:      strings.ToLower(getEnv("FEED_FORMAT", FormatRSS)),
		FeedTitle:       getEnv("FEED_TITLE", "AGCO News – Lottery and Gaming"),
		FeedDescription: getEnv("FEED_DESCRIPTION", "Filtered AGCO Ontario news (Lottery and Gaming)"),

		RedisURL:    getEnv("REDIS_URL", ""),
		RedisPrefix: getEnv("REDIS_PREFIX", "agcofeed:"),
		LockTTL:     getEnvAsDuration("LOCK_TTL", 5*time.Minute),

		R2Endpoint:  getEnv("R2_ENDPOINT", ""),
		R2AccessKey: getEnv("R2_ACCESS_KEY", ""),
		R2SecretKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:    getEnv("R2_BUCKET", ""),
		R2AccountID: getEnv("CLOUDFLARE_ACCOUNT_ID", ""),
		R2ObjectKey: getEnv("R2_OBJECT_KEY", "feeds/agco_feed.xml"),

		Port:            getEnv("PORT", "8080"),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		AdminAPIKey:     getEnv("ADMIN_API_KEY", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFile:   getEnv("LOG_FILE", ""),
		LogPretty: getEnvAsBool("LOG_PRETTY", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.R2Bucket != "" && c.R2Endpoint == "" && c.R2AccountID == "" {
		return fmt.Errorf("R2_BUCKET is set but neither R2_ENDPOINT nor CLOUDFLARE_ACCOUNT_ID is")
	}
	return nil
}

// ListingURL is the public news listing page, also used as the feed id and alternate link.
func (c *Config) ListingURL() string {
	return c.Origin + c.ListingPath
}

// AjaxURL is the internal Drupal views endpoint used by the direct strategy.
func (c *Config) AjaxURL() string {
	return c.Origin + c.AjaxPath
}

// PublishEnabled reports whether the rendered feed should also be uploaded to R2.
func (c *Config) PublishEnabled() bool {
	return c.R2Bucket != "" && (c.R2Endpoint != "" || c.R2AccountID != "")
}

// R2BaseEndpoint returns the S3-compatible endpoint for the configured R2 account.
func (c *Config) R2BaseEndpoint() string {
	if c.R2Endpoint != "" {
		return c.R2Endpoint
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.R2AccountID)
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %t", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}
