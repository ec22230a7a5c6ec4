package config

// Config holds honyaku configuration.
// Stored at: {work_dir}/config.yaml or ./config.yaml
type Config struct {
	Gemini     GeminiCfg     `mapstructure:"gemini" yaml:"gemini"`
	Translator TranslatorCfg `mapstructure:"translator" yaml:"translator"`
	RAG        RAGCfg        `mapstructure:"rag" yaml:"rag"`
	Thinking   ThinkingCfg   `mapstructure:"thinking" yaml:"thinking"`
}

// GeminiCfg configures the Gemini client.
type GeminiCfg struct {
	APIKey            string  `mapstructure:"api_key" yaml:"api_key"` // supports ${ENV_VAR} syntax
	Model             string  `mapstructure:"model" yaml:"model"`
	FallbackModel     string  `mapstructure:"fallback_model" yaml:"fallback_model"`
	EmbeddingModel    string  `mapstructure:"embedding_model" yaml:"embedding_model"`
	RequestsPerMinute int     `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	MaxRetries        int     `mapstructure:"max_retries" yaml:"max_retries"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	Temperature       float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxOutputTokens   int     `mapstructure:"max_output_tokens" yaml:"max_output_tokens"`
}

// TranslatorCfg configures the volume translation run.
type TranslatorCfg struct {
	TargetLanguage        string `mapstructure:"target_language" yaml:"target_language"` // "en", "vi"
	EnableContinuity      bool   `mapstructure:"enable_continuity" yaml:"enable_continuity"`
	EnableGapAnalysis     bool   `mapstructure:"enable_gap_analysis" yaml:"enable_gap_analysis"`
	EnableMultimodal      bool   `mapstructure:"enable_multimodal" yaml:"enable_multimodal"`
	VolumeCacheTTLSeconds int    `mapstructure:"volume_cache_ttl_seconds" yaml:"volume_cache_ttl_seconds"`
	ChapterDelaySeconds   int    `mapstructure:"chapter_delay_seconds" yaml:"chapter_delay_seconds"`
	UncachedDelaySeconds  int    `mapstructure:"uncached_delay_seconds" yaml:"uncached_delay_seconds"`
}

// RAGCfg configures the pattern stores.
type RAGCfg struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
	DictionaryURL string `mapstructure:"dictionary_url" yaml:"dictionary_url"` // optional external dictionary lookup
}

// ThinkingCfg configures model thinking output.
type ThinkingCfg struct {
	Enabled    bool `mapstructure:"enabled" yaml:"enabled"`
	SaveToFile bool `mapstructure:"save_to_file" yaml:"save_to_file"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Gemini: GeminiCfg{
			APIKey:            "${GOOGLE_API_KEY}",
			Model:             "gemini-2.5-pro",
			FallbackModel:     "gemini-2.5-flash",
			EmbeddingModel:    "gemini-embedding-001",
			RequestsPerMinute: 10,
			MaxRetries:        8,
			TimeoutSeconds:    120,
			Temperature:       0.7,
			MaxOutputTokens:   65536,
		},
		Translator: TranslatorCfg{
			TargetLanguage:        "en",
			EnableContinuity:      true,
			EnableGapAnalysis:     true,
			EnableMultimodal:      true,
			VolumeCacheTTLSeconds: 3600,
			ChapterDelaySeconds:   5,
			UncachedDelaySeconds:  60,
		},
		RAG: RAGCfg{
			Enabled: true,
		},
		Thinking: ThinkingCfg{
			Enabled:    false,
			SaveToFile: false,
		},
	}
}
