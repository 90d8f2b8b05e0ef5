package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every setting the service reads from the environment.
type Config struct {
	Server    ServerConfig
	Providers ProvidersConfig
	History   HistoryConfig
	Document  DocumentConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	providers, err := loadProvidersConfig()
	if err != nil {
		return nil, err
	}

	history, err := loadHistoryConfig()
	if err != nil {
		return nil, err
	}

	document, err := loadDocumentConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Providers: providers, History: history, Document: document}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

// loadServerConfig parses the listen address.
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// ProvidersConfig groups the completion provider settings.
type ProvidersConfig struct {
	Default string
	// Timeout applies to every provider request. Zero means no timeout.
	Timeout time.Duration
	Gemini  GeminiConfig
	Groq    GroqConfig
	Ark     ArkConfig
}

// GeminiConfig describes the generative-content provider.
type GeminiConfig struct {
	APIKey          string
	Model           string
	BaseURL         string
	Temperature     *float32
	TopP            *float32
	TopK            *int
	MaxOutputTokens *int
}

// Enabled reports whether an API key was provided.
func (c GeminiConfig) Enabled() bool {
	return c.APIKey != ""
}

// GroqConfig describes the chat-completions provider.
type GroqConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Enabled reports whether an API key was provided.
func (c GroqConfig) Enabled() bool {
	return c.APIKey != ""
}

// ArkConfig describes the optional Volcengine Ark provider.
type ArkConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled reports whether the required credentials are present.
func (c ArkConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel creates an Ark chat model from the configuration.
func (c ArkConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_API_KEY + Model or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

// HistoryConfig selects the conversation log backend.
type HistoryConfig struct {
	Backend   string
	File      string
	DB        string
	ViewLimit int
}

// DocumentConfig bounds document uploads.
type DocumentConfig struct {
	MaxBytes int64
	// MaxStored is how many uploaded documents stay in memory.
	MaxStored int
}

func loadProvidersConfig() (ProvidersConfig, error) {
	timeout, err := parseOptionalIntEnv("PROVIDER_TIMEOUT")
	if err != nil {
		return ProvidersConfig{}, err
	}
	timeoutSeconds := 0
	if timeout != nil {
		if *timeout < 0 {
			return ProvidersConfig{}, fmt.Errorf("invalid PROVIDER_TIMEOUT value %d: must not be negative", *timeout)
		}
		timeoutSeconds = *timeout
	}

	gemini, err := loadGeminiConfig()
	if err != nil {
		return ProvidersConfig{}, err
	}

	arkCfg, err := loadArkConfig()
	if err != nil {
		return ProvidersConfig{}, err
	}

	defaultProvider := strings.ToLower(getEnvOrDefault("PROVIDER_DEFAULT", "gemini"))
	switch defaultProvider {
	case "gemini", "groq", "ark":
	default:
		return ProvidersConfig{}, fmt.Errorf("invalid PROVIDER_DEFAULT value %q", defaultProvider)
	}

	return ProvidersConfig{
		Default: defaultProvider,
		Timeout: time.Duration(timeoutSeconds) * time.Second,
		Gemini:  gemini,
		Groq: GroqConfig{
			APIKey:  strings.TrimSpace(os.Getenv("GROQ_API_KEY")),
			Model:   getEnvOrDefault("GROQ_MODEL", "mistral-saba-24b"),
			BaseURL: getEnvOrDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		},
		Ark: arkCfg,
	}, nil
}

func loadGeminiConfig() (GeminiConfig, error) {
	temperature, err := parseOptionalFloat32Env("GEMINI_TEMPERATURE")
	if err != nil {
		return GeminiConfig{}, err
	}

	topP, err := parseOptionalFloat32Env("GEMINI_TOP_P")
	if err != nil {
		return GeminiConfig{}, err
	}

	topK, err := parseOptionalIntEnv("GEMINI_TOP_K")
	if err != nil {
		return GeminiConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("GEMINI_MAX_OUTPUT_TOKENS")
	if err != nil {
		return GeminiConfig{}, err
	}

	return GeminiConfig{
		APIKey:          strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		Model:           getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash-lite"),
		BaseURL:         getEnvOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		Temperature:     temperature,
		TopP:            topP,
		TopK:            topK,
		MaxOutputTokens: maxTokens,
	}, nil
}

func loadArkConfig() (ArkConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return ArkConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return ArkConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return ArkConfig{}, err
	}

	return ArkConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("Model")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

func loadHistoryConfig() (HistoryConfig, error) {
	backend := strings.ToLower(getEnvOrDefault("HISTORY_BACKEND", "json"))
	if backend != "json" && backend != "sqlite" {
		return HistoryConfig{}, fmt.Errorf("invalid HISTORY_BACKEND value %q", backend)
	}

	viewLimit := 10
	if override, err := parseOptionalIntEnv("HISTORY_VIEW_LIMIT"); err != nil {
		return HistoryConfig{}, err
	} else if override != nil {
		viewLimit = *override
		if viewLimit < 0 {
			viewLimit = 0
		}
	}

	return HistoryConfig{
		Backend:   backend,
		File:      getEnvOrDefault("HISTORY_FILE", "chat_history.json"),
		DB:        getEnvOrDefault("HISTORY_DB", "chat_history.db"),
		ViewLimit: viewLimit,
	}, nil
}

func loadDocumentConfig() (DocumentConfig, error) {
	maxBytes := int64(32 << 20)
	if override, err := parseOptionalIntEnv("DOCUMENT_MAX_BYTES"); err != nil {
		return DocumentConfig{}, err
	} else if override != nil {
		if *override <= 0 {
			return DocumentConfig{}, fmt.Errorf("invalid DOCUMENT_MAX_BYTES value %d: must be positive", *override)
		}
		maxBytes = int64(*override)
	}

	maxStored := 100
	if override, err := parseOptionalIntEnv("DOCUMENT_MAX_STORED"); err != nil {
		return DocumentConfig{}, err
	} else if override != nil {
		if *override <= 0 {
			return DocumentConfig{}, fmt.Errorf("invalid DOCUMENT_MAX_STORED value %d: must be positive", *override)
		}
		maxStored = *override
	}

	return DocumentConfig{MaxBytes: maxBytes, MaxStored: maxStored}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalFloat32Env(key string) (*float32, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	result := float32(val)
	return &result, nil
}
