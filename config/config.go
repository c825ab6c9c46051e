package config

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Gemini  GeminiConfig
	Browser BrowserConfig
	Fetch   FetchConfig
	Output  OutputConfig
	Log     LogConfig
}

// GeminiConfig controls the vision-extraction client.
type GeminiConfig struct {
	// APIKey authenticates against the Gemini API. Taken from the
	// GEMINI_API_KEY env var, falling back to config.json.
	APIKey string

	// Model is the multimodal model name.
	Model string // default: "gemini-2.0-flash-exp"

	// BaseURL is the API root.
	BaseURL string // default: "https://generativelanguage.googleapis.com/v1beta"

	// Temperature for generation; menu extraction wants near-deterministic output.
	Temperature float64 // default: 0.1

	// MaxOutputTokens caps the response size.
	MaxOutputTokens int // default: 8000
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// NavigationTimeout is the max time for a page navigation.
	NavigationTimeout time.Duration // default: 30s
}

// FetchConfig controls the plain-HTTP fetch client.
type FetchConfig struct {
	// Timeout is the per-request deadline.
	Timeout time.Duration // default: 30s

	// MaxRetries is the attempt count for the download step only.
	MaxRetries int // default: 3

	// RetryBaseDelay is the first backoff interval; doubles per attempt.
	RetryBaseDelay time.Duration // default: 2s

	// RequestsPerSecond is the sustained politeness rate across all sites.
	RequestsPerSecond float64 // default: 2

	// Burst is the limiter burst size.
	Burst int // default: 4
}

// OutputConfig controls where scrape results land.
type OutputConfig struct {
	Dir         string // default: "output"
	CSVPath     string // default: "all_restaurant_menus.csv"
	SummaryPath string // default: "csv_summary.txt"
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// keyFile mirrors the config.json shape the vision scrapers were fed.
type keyFile struct {
	GeminiAPIKey string `json:"gemini_api_key"`
}

// Load reads configuration from a .env file (if present) and environment
// variables with sane defaults. The Gemini key can also live in config.json.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Gemini: GeminiConfig{
			APIKey:          geminiKey(),
			Model:           envOr("GEMINI_MODEL", "gemini-2.0-flash-exp"),
			BaseURL:         envOr("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			Temperature:     envFloatOr("GEMINI_TEMPERATURE", 0.1),
			MaxOutputTokens: envIntOr("GEMINI_MAX_OUTPUT_TOKENS", 8000),
		},
		Browser: BrowserConfig{
			Headless:          envBoolOr("MENUHARVEST_HEADLESS", true),
			NoSandbox:         envBoolOr("MENUHARVEST_NO_SANDBOX", false),
			BrowserBin:        os.Getenv("MENUHARVEST_BROWSER_BIN"),
			NavigationTimeout: envDurationOr("MENUHARVEST_NAV_TIMEOUT", 30*time.Second),
		},
		Fetch: FetchConfig{
			Timeout:           envDurationOr("MENUHARVEST_FETCH_TIMEOUT", 30*time.Second),
			MaxRetries:        envIntOr("MENUHARVEST_FETCH_RETRIES", 3),
			RetryBaseDelay:    envDurationOr("MENUHARVEST_RETRY_DELAY", 2*time.Second),
			RequestsPerSecond: envFloatOr("MENUHARVEST_RATE_RPS", 2.0),
			Burst:             envIntOr("MENUHARVEST_RATE_BURST", 4),
		},
		Output: OutputConfig{
			Dir:         envOr("MENUHARVEST_OUTPUT_DIR", "output"),
			CSVPath:     envOr("MENUHARVEST_CSV_PATH", "all_restaurant_menus.csv"),
			SummaryPath: envOr("MENUHARVEST_SUMMARY_PATH", "csv_summary.txt"),
		},
		Log: LogConfig{
			Level:  envOr("MENUHARVEST_LOG_LEVEL", "info"),
			Format: envOr("MENUHARVEST_LOG_FORMAT", "text"),
		},
	}
}

// geminiKey resolves the Gemini API key: env var first, then config.json in
// the working directory.
func geminiKey() string {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		return v
	}
	raw, err := os.ReadFile("config.json")
	if err != nil {
		return ""
	}
	var kf keyFile
	if err := json.Unmarshal(raw, &kf); err != nil {
		return ""
	}
	return kf.GeminiAPIKey
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
