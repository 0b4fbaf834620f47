package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is read from an optional YAML file (CONFIG_FILE) and then from the
// environment, which wins. Anything still unset gets a default.
type Config struct {
	Port string `yaml:"port"`

	// Pathstore publication. Results are only published when URL is set.
	PathstoreURL    string `yaml:"pathstore_url"`
	PathstoreAPIKey string `yaml:"-"`

	// Auth
	APIKey string `yaml:"-"`

	// LLM reference parsing
	LLMReferences    bool   `yaml:"llm_references"`
	AnthropicAPIKey  string `yaml:"-"`
	AnthropicModel   string `yaml:"anthropic_model"`
	AnthropicBaseURL string `yaml:"anthropic_base_url"`

	// Worker pool
	WorkerCount  int `yaml:"worker_count"`
	MaxQueueSize int `yaml:"max_queue_size"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Job state
	JobTTL         time.Duration `yaml:"job_ttl"`
	ExtractTimeout time.Duration `yaml:"extract_timeout"`

	// Step timings. Debug turns on per-step observation; MetricsDB is the
	// SQLite file the timings are written to, empty to keep them in memory
	// only.
	Debug            bool          `yaml:"debug"`
	MetricsDB        string        `yaml:"metrics_db"`
	MetricsRetention time.Duration `yaml:"metrics_retention"`

	Extraction ExtractionConfig `yaml:"extraction"`
}

// ExtractionConfig tunes the default pipeline components. Zero values leave
// each component on its own default.
type ExtractionConfig struct {
	SkipBrokenPages bool `yaml:"skip_broken_pages"`

	WordGap       float64 `yaml:"word_gap"`
	ColumnGap     float64 `yaml:"column_gap"`
	LineSpacing   float64 `yaml:"line_spacing"`
	FontTolerance float64 `yaml:"font_tolerance"`
	SpanRatio     float64 `yaml:"span_ratio"`

	MarginRatio     float64 `yaml:"margin_ratio"`
	IndentTolerance float64 `yaml:"indent_tolerance"`

	HeaderMaxWords    int     `yaml:"header_max_words"`
	HeaderSizeRatio   float64 `yaml:"header_size_ratio"`
	HeaderMaxDistance float64 `yaml:"header_max_distance"`
	MaxHeaderLevels   int     `yaml:"max_header_levels"`
}

func Load() (Config, error) {
	var cfg Config
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		fc, err := LoadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
		cfg = *fc
	}

	cfg.Port = envOr("PORT", cfg.Port)

	cfg.PathstoreURL = envOr("PATHSTORE_URL", cfg.PathstoreURL)
	cfg.PathstoreAPIKey = envOr("PATHSTORE_API_KEY", cfg.PathstoreAPIKey)

	cfg.APIKey = envOr("PAPERTREE_API_KEY", cfg.APIKey)

	cfg.LLMReferences = envBool("LLM_REFERENCES", cfg.LLMReferences)
	cfg.AnthropicAPIKey = envOr("ANTHROPIC_API_KEY", cfg.AnthropicAPIKey)
	cfg.AnthropicModel = envOr("ANTHROPIC_MODEL", cfg.AnthropicModel)
	cfg.AnthropicBaseURL = envOr("ANTHROPIC_BASE_URL", cfg.AnthropicBaseURL)

	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)

	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)
	cfg.ExtractTimeout = envDuration("EXTRACT_TIMEOUT", cfg.ExtractTimeout)

	cfg.Debug = envBool("DEBUG", cfg.Debug)
	cfg.MetricsDB = envOr("METRICS_DB", cfg.MetricsDB)
	cfg.MetricsRetention = envDuration("METRICS_RETENTION", cfg.MetricsRetention)

	cfg.Extraction.SkipBrokenPages = envBool("SKIP_BROKEN_PAGES", cfg.Extraction.SkipBrokenPages)
	cfg.Extraction.HeaderMaxDistance = envFloat("HEADER_MAX_DISTANCE", cfg.Extraction.HeaderMaxDistance)
	cfg.Extraction.MaxHeaderLevels = envInt("MAX_HEADER_LEVELS", cfg.Extraction.MaxHeaderLevels)

	cfg.defaults()
	return cfg, nil
}

// LoadFile reads a YAML config file. Secrets are never read from the file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) defaults() {
	if c.Port == "" {
		c.Port = "8090"
	}
	if c.AnthropicModel == "" {
		c.AnthropicModel = "claude-sonnet-4-5-20250929"
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = 4
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = 100
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 52428800 // 50MB
	}
	if c.JobTTL <= 0 {
		c.JobTTL = 1 * time.Hour
	}
	if c.ExtractTimeout <= 0 {
		c.ExtractTimeout = 5 * time.Minute
	}
	if c.MetricsRetention <= 0 {
		c.MetricsRetention = 7 * 24 * time.Hour
	}
	if c.Extraction.HeaderMaxDistance <= 0 {
		c.Extraction.HeaderMaxDistance = 1.5
	}
	if c.Extraction.MaxHeaderLevels <= 0 {
		c.Extraction.MaxHeaderLevels = 4
	}
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("PAPERTREE_API_KEY is required")
	}
	if c.PathstoreURL != "" && c.PathstoreAPIKey == "" {
		return fmt.Errorf("PATHSTORE_API_KEY is required when PATHSTORE_URL is set")
	}
	if c.LLMReferences && c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required when LLM_REFERENCES is on")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
