package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	StorageBackendSupabase = "supabase"
	StorageBackendS3       = "s3"

	ProviderReplicate = "replicate"
	ProviderGemini    = "gemini"
)

type Config struct {
	// Server
	Port               string
	Environment        string
	PublicURL          string
	LogLevel           string
	LogFormat          string
	MaxUploadBytes     int64
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	RateLimitBurst     int

	// Database
	DatabaseURL string

	// Supabase
	SupabaseURL            string
	SupabaseServiceRoleKey string
	SupabaseAnonKey        string
	SupabaseJWTSecret      string

	// Storage
	StorageBackend  string
	InputBucket     string
	InputFolder     string
	OutputBucket    string
	OutputFolder    string
	SignedURLExpiry string // validated by storage.AccessResolver when a signed URL is needed

	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3UseSSL          bool

	// Generation provider
	Provider               string
	ReplicateAPIToken      string
	ReplicateModel         string
	ProviderPromptParam    string
	ProviderImageParam     string
	ProviderImageAsArray   bool
	ProviderExtraInputsRaw string
	GeminiAPIKey           string
	GeminiModel            string

	// Payments
	StripeSecretKey      string
	StripeWebhookSecret  string
	StripeCurrency       string
	GenerationPriceCents int64
}

var defaults = map[string]any{
	"PORT":                   "8080",
	"ENVIRONMENT":            "development",
	"PUBLIC_URL":             "http://localhost:3000",
	"LOG_LEVEL":              "info",
	"LOG_FORMAT":             "text",
	"MAX_UPLOAD_BYTES":       int64(32 << 20),
	"CORS_ALLOWED_ORIGINS":   "",
	"RATE_LIMIT_PER_MINUTE":  10,
	"RATE_LIMIT_BURST":       3,
	"STORAGE_BACKEND":        StorageBackendSupabase,
	"SUPABASE_INPUT_BUCKET":  "input-images",
	"SUPABASE_INPUT_FOLDER":  "",
	"SUPABASE_OUTPUT_BUCKET": "output-images",
	"SUPABASE_OUTPUT_FOLDER": "",
	// Raw string on purpose: a non-numeric value must surface as
	// SignedUrlUnavailable when a private bucket is read, not at boot.
	"SUPABASE_SIGNED_URL_EXPIRY": "86400",
	"S3_REGION":                  "us-east-1",
	"S3_USE_SSL":                 true,
	"GENERATION_PROVIDER":        ProviderReplicate,
	"REPLICATE_PROMPT_PARAM":     "prompt",
	"REPLICATE_IMAGE_PARAM":      "image",
	"REPLICATE_IMAGE_AS_ARRAY":   false,
	"GEMINI_MODEL":               "gemini-2.5-flash-image",
	"STRIPE_CURRENCY":            "eur",
	"GENERATION_PRICE_CENTS":     int64(250),
}

// Load reads configuration from the environment. When CONFIG_FILE is set the
// file is read first and environment variables override its values.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Port:               v.GetString("PORT"),
		Environment:        v.GetString("ENVIRONMENT"),
		PublicURL:          strings.TrimRight(v.GetString("PUBLIC_URL"), "/"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		LogFormat:          v.GetString("LOG_FORMAT"),
		MaxUploadBytes:     v.GetInt64("MAX_UPLOAD_BYTES"),
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		RateLimitPerMinute: v.GetInt("RATE_LIMIT_PER_MINUTE"),
		RateLimitBurst:     v.GetInt("RATE_LIMIT_BURST"),

		DatabaseURL: v.GetString("DATABASE_URL"),

		SupabaseURL:            strings.TrimRight(v.GetString("SUPABASE_URL"), "/"),
		SupabaseServiceRoleKey: v.GetString("SUPABASE_SERVICE_ROLE_KEY"),
		SupabaseAnonKey:        v.GetString("SUPABASE_ANON_KEY"),
		SupabaseJWTSecret:      v.GetString("SUPABASE_JWT_SECRET"),

		StorageBackend:  strings.ToLower(v.GetString("STORAGE_BACKEND")),
		InputBucket:     v.GetString("SUPABASE_INPUT_BUCKET"),
		InputFolder:     v.GetString("SUPABASE_INPUT_FOLDER"),
		OutputBucket:    v.GetString("SUPABASE_OUTPUT_BUCKET"),
		OutputFolder:    v.GetString("SUPABASE_OUTPUT_FOLDER"),
		SignedURLExpiry: v.GetString("SUPABASE_SIGNED_URL_EXPIRY"),

		S3Endpoint:        v.GetString("S3_ENDPOINT"),
		S3Region:          v.GetString("S3_REGION"),
		S3AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
		S3UseSSL:          v.GetBool("S3_USE_SSL"),

		Provider:               strings.ToLower(v.GetString("GENERATION_PROVIDER")),
		ReplicateAPIToken:      v.GetString("REPLICATE_API_TOKEN"),
		ReplicateModel:         v.GetString("REPLICATE_MODEL"),
		ProviderPromptParam:    strings.TrimSpace(v.GetString("REPLICATE_PROMPT_PARAM")),
		ProviderImageParam:     strings.TrimSpace(v.GetString("REPLICATE_IMAGE_PARAM")),
		ProviderImageAsArray:   v.GetBool("REPLICATE_IMAGE_AS_ARRAY"),
		ProviderExtraInputsRaw: v.GetString("REPLICATE_EXTRA_INPUTS"),
		GeminiAPIKey:           v.GetString("GEMINI_API_KEY"),
		GeminiModel:            v.GetString("GEMINI_MODEL"),

		StripeSecretKey:      v.GetString("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:  v.GetString("STRIPE_WEBHOOK_SECRET"),
		StripeCurrency:       strings.ToLower(v.GetString("STRIPE_CURRENCY")),
		GenerationPriceCents: v.GetInt64("GENERATION_PRICE_CENTS"),
	}
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	switch c.StorageBackend {
	case StorageBackendSupabase:
		if c.SupabaseURL == "" {
			return fmt.Errorf("SUPABASE_URL is required")
		}
		if c.SupabaseServiceRoleKey == "" {
			return fmt.Errorf("SUPABASE_SERVICE_ROLE_KEY is required")
		}
	case StorageBackendS3:
		if c.S3Endpoint == "" || c.S3AccessKeyID == "" || c.S3SecretAccessKey == "" {
			return fmt.Errorf("S3_ENDPOINT, S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY are required for the s3 storage backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	if c.SupabaseJWTSecret == "" && (c.SupabaseURL == "" || c.SupabaseAnonKey == "") {
		return fmt.Errorf("SUPABASE_JWT_SECRET or SUPABASE_URL with SUPABASE_ANON_KEY is required")
	}

	switch c.Provider {
	case ProviderReplicate:
		if c.ReplicateAPIToken == "" {
			return fmt.Errorf("REPLICATE_API_TOKEN is not set")
		}
		if c.ReplicateModel == "" {
			return fmt.Errorf("REPLICATE_MODEL is not set")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is not set")
		}
	default:
		return fmt.Errorf("unknown GENERATION_PROVIDER %q", c.Provider)
	}

	if c.ProviderPromptParam == "" {
		c.ProviderPromptParam = "prompt"
	}
	if c.ProviderImageParam == "" {
		c.ProviderImageParam = "image"
	}
	if c.GenerationPriceCents <= 0 {
		return fmt.Errorf("GENERATION_PRICE_CENTS must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
