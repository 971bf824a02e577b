package domain

import "time"

// Config holds the complete Kestrel configuration.
type Config struct {
	// Server settings
	Server ServerConfig `yaml:"server"`

	// Per-sector model routing
	Sectors map[Sector]SectorModelConfig `yaml:"sectors"`

	// Provider client settings
	Providers ProvidersConfig `yaml:"providers"`

	// Retry policy for rate-limited provider calls
	Retry RetryConfig `yaml:"retry"`

	// Sanctioned/high-risk jurisdiction names (lowercase substring match)
	SanctionedJurisdictions []string `yaml:"sanctionedJurisdictions"`

	// Custom scoring-rule overlay (CEL expressions)
	OverlayRules []OverlayRule `yaml:"overlayRules"`

	// Component configurations
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Cache     CacheConfig     `yaml:"cache"`
	EventBus  EventBusConfig  `yaml:"eventBus"`

	// Observability
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
}

// SectorModelConfig is the provider routing for one sector. Candidate order
// is the fallback chain: primary first, then fallbacks.
type SectorModelConfig struct {
	// TwoStage routes the sector through the clinical-then-fraud pipeline.
	TwoStage bool `yaml:"twoStage"`

	Primary   ProviderCandidate   `yaml:"primary"`
	Fallbacks []ProviderCandidate `yaml:"fallbacks"`

	// Stage1/Stage2 are used only when TwoStage is set.
	Stage1 ProviderCandidate `yaml:"stage1"`
	Stage2 ProviderCandidate `yaml:"stage2"`
}

// Candidates returns the single-stage fallback chain in order.
func (c SectorModelConfig) Candidates() []ProviderCandidate {
	out := make([]ProviderCandidate, 0, 1+len(c.Fallbacks))
	if c.Primary.Model != "" {
		out = append(out, c.Primary)
	}
	return append(out, c.Fallbacks...)
}

// ProvidersConfig holds upstream provider client settings. Keys come from the
// environment in production deployments.
type ProvidersConfig struct {
	OpenRouterAPIKey  string        `yaml:"openRouterAPIKey"`
	OpenRouterBaseURL string        `yaml:"openRouterBaseURL"`
	HFAPIToken        string        `yaml:"hfAPIToken"`
	HFBaseURL         string        `yaml:"hfBaseURL"`
	AnthropicAPIKey   string        `yaml:"anthropicAPIKey"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxResponseBytes  int64         `yaml:"maxResponseBytes"`
}

// RetryConfig controls rate-limit retries in the provider orchestrator.
type RetryConfig struct {
	MaxRetries int           `yaml:"maxRetries"`
	BaseDelay  time.Duration `yaml:"baseDelay"`
}

// OverlayRule is a deployment-specific scoring factor expressed in CEL. The
// rule's delta is clamped to ±Weight and added to the deterministic chain
// score.
type OverlayRule struct {
	ID         string  `yaml:"id" json:"id"`
	Sector     Sector  `yaml:"sector" json:"sector,omitempty"`
	Expression string  `yaml:"expression" json:"expression"`
	Weight     float64 `yaml:"weight" json:"weight"`
	Enabled    bool    `yaml:"enabled" json:"enabled"`
}

// RetrievalConfig holds pattern-store settings.
type RetrievalConfig struct {
	// Driver is the store driver: "sqlite" or "postgres"
	Driver string `yaml:"driver"`

	// SQLite specific
	SQLitePath string `yaml:"sqlitePath"`

	// PostgreSQL specific
	PostgresDSN string `yaml:"postgresDSN"`

	// Embedding dimensions for the hash embedder
	Dimensions int `yaml:"dimensions"`

	// TopK results per query
	TopK int `yaml:"topK"`

	// SeedDefaults loads the built-in pattern library on first run.
	SeedDefaults bool `yaml:"seedDefaults"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`  // seconds
	WriteTimeout int    `yaml:"writeTimeout"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"serviceName"`
}

// DefaultSanctionedJurisdictions is the built-in sanctioned and high-risk
// jurisdiction list, matched case-insensitively as substrings against the
// sector's location fields.
var DefaultSanctionedJurisdictions = []string{
	// Comprehensively sanctioned
	"cuba", "iran", "north korea", "syria", "crimea", "donetsk", "luhansk",
	// Significant sanctions programs
	"russia", "belarus", "venezuela", "myanmar", "burma", "sudan", "south sudan",
	"libya", "yemen", "somalia", "central african republic", "democratic republic of congo",
	"congo", "zimbabwe", "mali", "burkina faso", "niger",
	// High fraud-rate jurisdictions
	"nigeria", "ghana", "cameroon", "ivory coast", "senegal", "togo", "benin",
	"philippines", "indonesia", "malaysia", "thailand", "vietnam", "pakistan",
	"bangladesh", "romania", "bulgaria", "ukraine", "moldova", "albania",
	"serbia", "bosnia", "macedonia", "montenegro", "kosovo",
	// Regions
	"west africa", "east africa", "balkans", "eastern europe",
}

// DefaultConfig returns the default single-process configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 120,
		},
		Sectors: map[Sector]SectorModelConfig{
			SectorBanking: {
				Primary: ProviderCandidate{Provider: "hf", Model: "Qwen/Qwen2.5-72B-Instruct"},
				Fallbacks: []ProviderCandidate{
					{Provider: "openrouter", Model: "nvidia/nemotron-3-nano-30b-a3b:free"},
					{Provider: "openrouter", Model: "meta-llama/llama-3.1-70b-instruct:free"},
				},
			},
			SectorMedical: {
				TwoStage: true,
				Stage1:   ProviderCandidate{Provider: "anthropic", Model: "claude-sonnet-4-5-20250929"},
				Stage2:   ProviderCandidate{Provider: "hf", Model: "Qwen/Qwen2.5-72B-Instruct"},
				Fallbacks: []ProviderCandidate{
					{Provider: "openrouter", Model: "nvidia/nemotron-3-nano-30b-a3b:free"},
				},
			},
			SectorEcommerce: {
				Primary: ProviderCandidate{Provider: "openrouter", Model: "nvidia/nemotron-nano-12b-v2-vl:free"},
				Fallbacks: []ProviderCandidate{
					{Provider: "hf", Model: "Qwen/Qwen2.5-72B-Instruct"},
					{Provider: "openrouter", Model: "nvidia/nemotron-3-nano-30b-a3b:free"},
				},
			},
			SectorSupplyChain: {
				Primary: ProviderCandidate{Provider: "openrouter", Model: "nvidia/nemotron-nano-12b-v2-vl:free"},
				Fallbacks: []ProviderCandidate{
					{Provider: "hf", Model: "Qwen/Qwen2.5-72B-Instruct"},
					{Provider: "openrouter", Model: "nvidia/nemotron-3-nano-30b-a3b:free"},
				},
			},
		},
		Providers: ProvidersConfig{
			Timeout:          90 * time.Second,
			MaxResponseBytes: 4 * 1024 * 1024,
		},
		Retry: RetryConfig{
			MaxRetries: 3,
			BaseDelay:  2 * time.Second,
		},
		SanctionedJurisdictions: DefaultSanctionedJurisdictions,
		Retrieval: RetrievalConfig{
			Driver:       "sqlite",
			SQLitePath:   "./kestrel.db",
			Dimensions:   512,
			TopK:         5,
			SeedDefaults: true,
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     0, // entries never expire within a process lifetime
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "kestrel",
		},
	}
}
