package model

import "time"

// Config is the complete majalla configuration
type Config struct {
	Detection  DetectionConfig  `yaml:"detection" mapstructure:"detection"`
	Duplicates DuplicatesConfig `yaml:"duplicates" mapstructure:"duplicates"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
}

// DetectionConfig controls correction detection and validation
type DetectionConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	MaxInputChars       int     `yaml:"max_input_chars" mapstructure:"max_input_chars"`
	ProximityWindow     int     `yaml:"proximity_window" mapstructure:"proximity_window"`
	AcceptWindow        int     `yaml:"accept_window" mapstructure:"accept_window"`
	SearchWindow        int     `yaml:"search_window" mapstructure:"search_window"`
	RejectOverlaps      bool    `yaml:"reject_overlaps" mapstructure:"reject_overlaps"`
}

// DuplicatesConfig holds the similarity bands for duplicate tiers
type DuplicatesConfig struct {
	Exact         float64 `yaml:"exact" mapstructure:"exact"`
	NearDuplicate float64 `yaml:"near_duplicate" mapstructure:"near_duplicate"`
	Similar       float64 `yaml:"similar" mapstructure:"similar"`
	NGramSize     int     `yaml:"ngram_size" mapstructure:"ngram_size"`
}

// LLMConfig configures the external correction service
type LLMConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model      string `yaml:"model" mapstructure:"model"`
	APIKey     string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL    string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout    int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens  int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// BatchConfig controls multi-document processing
type BatchConfig struct {
	Size              int           `yaml:"size" mapstructure:"size"`
	Delay             time.Duration `yaml:"delay" mapstructure:"delay"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
}

// CacheConfig controls detection result caching
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskDir   string        `yaml:"disk_dir,omitempty" mapstructure:"disk_dir"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// StoreConfig locates the review database
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// OutputConfig controls CLI output
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
	NoColor bool `yaml:"no_color" mapstructure:"no_color"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Detection: DetectionConfig{
			ConfidenceThreshold: 0.99, // Archaic language: false positives are costly
			MaxInputChars:       20000,
			ProximityWindow:     100,
			AcceptWindow:        200,
			SearchWindow:        500,
			RejectOverlaps:      true,
		},
		Duplicates: DuplicatesConfig{
			Exact:         0.95,
			NearDuplicate: 0.80,
			Similar:       0.60,
			NGramSize:     3,
		},
		LLM: LLMConfig{
			Provider:  "",
			Model:     "",
			Timeout:   120,
			MaxTokens: 8000,
		},
		Batch: BatchConfig{
			Size:              5,
			Delay:             2 * time.Second,
			RequestsPerSecond: 1,
			Burst:             2,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Store: StoreConfig{
			Path: "majalla.db",
		},
	}
}
