package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	crawlerrors "sjsage522/couponworker/pkg/errors"
)

const (
	ModeStatic      = "static"
	ModeInteractive = "interactive"

	SegmenterStructural = "structural"
	SegmenterPlainText  = "plaintext"
	SegmenterFragments  = "fragments"
)

// Config represents the application configuration
type Config struct {
	// Source page
	SourceURL string
	Provider  string

	// Crawl configuration
	Mode      string
	Segmenter string
	CardClass string
	MaxAscent int

	// Static fetch
	FetchTimeout  time.Duration
	FetchDelayMin time.Duration
	FetchDelayMax time.Duration

	// Interactive session
	ChromeHeadless bool
	ChromePath     string
	SettleTimeout  time.Duration
	PollInterval   time.Duration

	// Output
	OutputDir    string
	ErrorLogFile string

	// Memcache configuration
	MemcacheAddr   string
	RateLimitBlock time.Duration

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		SourceURL:            getEnv("COUPON_SOURCE_URL", "https://www.cuponation.com.sg/traveloka-promo-code"),
		Provider:             getEnv("COUPON_PROVIDER", "Traveloka"),
		Mode:                 strings.ToLower(getEnv("CRAWL_MODE", ModeStatic)),
		Segmenter:            strings.ToLower(getEnv("SEGMENTER", SegmenterStructural)),
		CardClass:            getEnv("CARD_CLASS", "_6tavkoa"),
		MaxAscent:            getEnvInt("MAX_ASCENT", 10),
		FetchTimeout:         time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 15)) * time.Second,
		FetchDelayMin:        time.Duration(getEnvInt("FETCH_DELAY_MIN_MS", 1000)) * time.Millisecond,
		FetchDelayMax:        time.Duration(getEnvInt("FETCH_DELAY_MAX_MS", 3000)) * time.Millisecond,
		ChromeHeadless:       getEnvBool("CHROME_HEADLESS", true),
		ChromePath:           getEnv("CHROME_PATH", ""),
		SettleTimeout:        time.Duration(getEnvInt("SETTLE_TIMEOUT_SECONDS", 10)) * time.Second,
		PollInterval:         time.Duration(getEnvInt("POLL_INTERVAL_MS", 250)) * time.Millisecond,
		OutputDir:            getEnv("OUTPUT_DIR", "output"),
		ErrorLogFile:         getEnv("ERROR_LOG_FILE", "error.log"),
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", ""),
		RateLimitBlock:       time.Duration(getEnvInt("RATE_LIMIT_BLOCK_SECONDS", 500)) * time.Second,
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		RedisStream:          getEnv("REDIS_STREAM", "coupons"),
		RedisStreamCount:     getEnvInt("REDIS_STREAM_COUNT", 1),
		RedisStreamMaxLength: getEnvInt("REDIS_STREAM_MAX_LENGTH", 1000),
		Environment:          getEnv("COUPON_ENVIRONMENT", "development"),
	}
}

// Validate checks that the configuration can drive a run
func (c *Config) Validate() error {
	if c.SourceURL == "" {
		return crawlerrors.NewConfiguration("COUPON_SOURCE_URL must not be empty", nil)
	}
	switch c.Mode {
	case ModeStatic, ModeInteractive:
	default:
		return crawlerrors.NewConfiguration(fmt.Sprintf("unknown CRAWL_MODE %q", c.Mode), nil)
	}
	switch c.Segmenter {
	case SegmenterStructural, SegmenterPlainText, SegmenterFragments:
	default:
		return crawlerrors.NewConfiguration(fmt.Sprintf("unknown SEGMENTER %q", c.Segmenter), nil)
	}
	if c.MaxAscent < 1 {
		return crawlerrors.NewConfiguration(fmt.Sprintf("MAX_ASCENT must be positive, got %d", c.MaxAscent), nil)
	}
	if c.FetchDelayMax < c.FetchDelayMin {
		return crawlerrors.NewConfiguration(fmt.Sprintf("FETCH_DELAY_MAX_MS (%v) is below FETCH_DELAY_MIN_MS (%v)", c.FetchDelayMax, c.FetchDelayMin), nil)
	}
	if c.PollInterval <= 0 || c.SettleTimeout <= 0 {
		return crawlerrors.NewConfiguration("POLL_INTERVAL_MS and SETTLE_TIMEOUT_SECONDS must be positive", nil)
	}
	if c.RedisAddr != "" && c.RedisStreamCount < 1 {
		return crawlerrors.NewConfiguration("REDIS_STREAM_COUNT must be at least 1", nil)
	}
	if c.OutputDir == "" {
		return crawlerrors.NewConfiguration("OUTPUT_DIR must not be empty", nil)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return value
}
