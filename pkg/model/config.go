package model

import "time"

const (
	ProviderAPI    = "api"
	ProviderOllama = "ollama"

	APITypeOpenAI    = "openai"
	APITypeAnthropic = "anthropic"
	APITypeGemini    = "gemini"

	BackendFile      = "file"
	BackendFirestore = "firestore"

	DefaultOpenAIEndpoint = "https://api.openai.com/v1"
	DefaultOpenAIModel    = "gpt-4o-mini"
)

// Config is the root of config.json and of every profile.
type Config struct {
	Model   ModelConfig   `json:"model"`
	Capture CaptureConfig `json:"capture"`
	Storage StorageConfig `json:"storage"`
	Alert   AlertConfig   `json:"alert"`

	// CatalogFile overlays the built-in app/keyword catalog when set.
	CatalogFile string `json:"catalog_file,omitempty" envconfig:"CATALOG_FILE"`
}

type ModelConfig struct {
	Provider string       `json:"provider" envconfig:"PROVIDER"`
	API      APIConfig    `json:"api"`
	Ollama   OllamaConfig `json:"ollama"`
}

type APIConfig struct {
	Type     string `json:"type" envconfig:"API_TYPE"`
	Endpoint string `json:"endpoint" envconfig:"API_ENDPOINT"`
	APIKey   string `json:"api_key" envconfig:"API_KEY"`
	Model    string `json:"model" envconfig:"MODEL"`
}

type OllamaConfig struct {
	Endpoint string `json:"endpoint" envconfig:"OLLAMA_ENDPOINT"`
	Model    string `json:"model" envconfig:"OLLAMA_MODEL"`
}

type CaptureConfig struct {
	Enabled         bool    `json:"enabled" envconfig:"CAPTURE_ENABLED"`
	IntervalMS      int64   `json:"interval_ms" envconfig:"INTERVAL_MS"`
	CompressQuality int     `json:"compress_quality" envconfig:"COMPRESS_QUALITY"`
	SkipUnchanged   bool    `json:"skip_unchanged" envconfig:"SKIP_UNCHANGED"`
	ChangeThreshold float64 `json:"change_threshold" envconfig:"CHANGE_THRESHOLD"`

	RecentSummaryLimit int `json:"recent_summary_limit" envconfig:"RECENT_SUMMARY_LIMIT"`
	RecentDetailLimit  int `json:"recent_detail_limit" envconfig:"RECENT_DETAIL_LIMIT"`

	AlertConfidenceThreshold float64 `json:"alert_confidence_threshold" envconfig:"ALERT_CONFIDENCE_THRESHOLD"`
	AlertCooldownSeconds     int64   `json:"alert_cooldown_seconds" envconfig:"ALERT_COOLDOWN_SECONDS"`
}

// Interval returns the sampling interval, never shorter than 100ms.
func (c CaptureConfig) Interval() time.Duration {
	d := time.Duration(c.IntervalMS) * time.Millisecond
	if d < 100*time.Millisecond {
		return 100 * time.Millisecond
	}
	return d
}

// AlertCooldown returns the alert cooldown as a duration.
func (c CaptureConfig) AlertCooldown() time.Duration {
	return time.Duration(c.AlertCooldownSeconds) * time.Second
}

type StorageConfig struct {
	RetentionDays   int `json:"retention_days" envconfig:"RETENTION_DAYS"`
	MaxScreenshots  int `json:"max_screenshots" envconfig:"MAX_SCREENSHOTS"`
	MaxContextChars int `json:"max_context_chars" envconfig:"MAX_CONTEXT_CHARS"`

	Backend       string          `json:"backend,omitempty" envconfig:"STORAGE_BACKEND"`
	Firestore     FirestoreConfig `json:"firestore"`
	ArchiveBucket string          `json:"archive_bucket,omitempty" envconfig:"ARCHIVE_BUCKET"`
	BigQuery      BigQueryConfig  `json:"bigquery"`
}

type FirestoreConfig struct {
	Project  string `json:"project,omitempty" envconfig:"FIRESTORE_PROJECT"`
	Database string `json:"database,omitempty" envconfig:"FIRESTORE_DATABASE"`
}

type BigQueryConfig struct {
	Project string `json:"project,omitempty" envconfig:"BIGQUERY_PROJECT"`
	Dataset string `json:"dataset,omitempty" envconfig:"BIGQUERY_DATASET"`
	Table   string `json:"table,omitempty" envconfig:"BIGQUERY_TABLE"`
}

// Enabled reports whether record export is configured.
func (c BigQueryConfig) Enabled() bool {
	return c.Project != "" && c.Dataset != "" && c.Table != ""
}

type AlertConfig struct {
	// PolicyDir holds Rego files evaluated as data.alert before an alert is emitted.
	PolicyDir string `json:"policy_dir,omitempty" envconfig:"ALERT_POLICY_DIR"`
}

// DefaultConfig returns the configuration used when no config.json exists. Fields
// missing from a config file keep these values.
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Provider: ProviderAPI,
			API: APIConfig{
				Type:     APITypeOpenAI,
				Endpoint: DefaultOpenAIEndpoint,
				Model:    DefaultOpenAIModel,
			},
			Ollama: OllamaConfig{
				Endpoint: "http://localhost:11434",
				Model:    "llava",
			},
		},
		Capture: CaptureConfig{
			Enabled:                  true,
			IntervalMS:               1000,
			CompressQuality:          80,
			SkipUnchanged:            true,
			ChangeThreshold:          0.95,
			RecentSummaryLimit:       8,
			RecentDetailLimit:        3,
			AlertConfidenceThreshold: 0.6,
			AlertCooldownSeconds:     120,
		},
		Storage: StorageConfig{
			RetentionDays:   7,
			MaxScreenshots:  10000,
			MaxContextChars: 10000,
			Backend:         BackendFile,
			Firestore: FirestoreConfig{
				Database: "(default)",
			},
		},
	}
}
