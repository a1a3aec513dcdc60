// Package config reads the service configuration from the environment once
// at startup.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every setting of the service.
type Config struct {
	Server ServerConfig
	Engine EngineConfig
	Store  StoreConfig
	LLM    LLMConfig
	Auth   AuthConfig
	// ParamPrefix, when set, makes secrets come from SSM parameters under it.
	ParamPrefix string
}

func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}
	engine, err := loadEngineConfig()
	if err != nil {
		return nil, err
	}
	store, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}
	llm, err := loadLLMConfig()
	if err != nil {
		return nil, err
	}
	auth, err := loadAuthConfig()
	if err != nil {
		return nil, err
	}
	return &Config{
		Server:      server,
		Engine:      engine,
		Store:       store,
		LLM:         llm,
		Auth:        auth,
		ParamPrefix: strings.TrimRight(envString("PARAM_PREFIX", ""), "/"),
	}, nil
}

type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := envString("PORT", "8080")
	if strings.Contains(port, ":") {
		// ":8080" or "127.0.0.1:8080" are taken as-is.
		return ServerConfig{Addr: port}, nil
	}
	if _, err := strconv.Atoi(port); err != nil {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}
	return ServerConfig{Addr: ":" + port}, nil
}

// EngineConfig tunes the interpretation and follow-up engines.
type EngineConfig struct {
	Timeout          time.Duration
	PreviousN        int
	PrevFollowupsN   int
	MaxContextChars  int
	FollowupHistoryN int
	ForceOffline     bool
}

func loadEngineConfig() (EngineConfig, error) {
	var (
		cfg EngineConfig
		err error
	)
	secs, err := envInt("LLM_TIMEOUT_SECS", 20)
	if err != nil {
		return cfg, err
	}
	if secs <= 0 {
		return cfg, fmt.Errorf("LLM_TIMEOUT_SECS must be positive, got %d", secs)
	}
	cfg.Timeout = time.Duration(secs) * time.Second

	if cfg.PreviousN, err = envInt("PREVIOUS_N", 5); err != nil {
		return cfg, err
	}
	if cfg.PrevFollowupsN, err = envInt("PREV_FOLLOWUPS_N", 3); err != nil {
		return cfg, err
	}
	if cfg.MaxContextChars, err = envInt("PREV_JSON_MAX_CHARS", 20000); err != nil {
		return cfg, err
	}
	if cfg.FollowupHistoryN, err = envInt("FOLLOWUP_HISTORY_N", 5); err != nil {
		return cfg, err
	}
	if cfg.ForceOffline, err = envBool("FORCE_OFFLINE", false); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// StoreConfig locates the durable store and the local fallback file.
type StoreConfig struct {
	URI             string
	Database        string
	Collection      string
	UsersCollection string
	MemoryPath      string
	OutputDir       string
}

func loadStoreConfig() (StoreConfig, error) {
	cfg := StoreConfig{
		URI:             envString("STORE_URI", ""),
		Database:        envString("STORE_DATABASE", "ai_dreams"),
		Collection:      envString("STORE_COLLECTION", "sessions"),
		UsersCollection: envString("STORE_USERS_COLLECTION", "users"),
		MemoryPath:      envString("MEMORY_PATH", "memoria_agente.json"),
		OutputDir:       envString("OUTPUT_DIR", ""),
	}
	if _, _, err := cfg.Endpoint(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Durable reports whether a durable store is configured at all.
func (s StoreConfig) Durable() bool { return s.URI != "" }

// Endpoint interprets URI. "dynamodb://..." selects the default AWS endpoint
// (custom is false); an http(s) URL is used as a custom endpoint such as
// DynamoDB Local.
func (s StoreConfig) Endpoint() (endpoint string, custom bool, err error) {
	if s.URI == "" {
		return "", false, nil
	}
	u, err := url.Parse(s.URI)
	if err != nil {
		return "", false, fmt.Errorf("invalid STORE_URI: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "dynamodb":
		return "", false, nil
	case "http", "https":
		if u.Host == "" {
			return "", false, fmt.Errorf("invalid STORE_URI %q: missing host", s.URI)
		}
		return s.URI, true, nil
	default:
		return "", false, fmt.Errorf("invalid STORE_URI %q: scheme must be dynamodb, http or https", s.URI)
	}
}

func (s StoreConfig) SessionsTable() string { return s.Database + "_" + s.Collection }
func (s StoreConfig) UsersTable() string    { return s.Database + "_" + s.UsersCollection }

const (
	ProviderAuto   = ""
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type LLMConfig struct {
	// Provider is ProviderOpenAI, ProviderGemini or ProviderAuto, which
	// picks whichever has credentials, OpenAI first.
	Provider          string
	OpenAIBaseURL     string
	OpenAIModel       string
	OpenAIAPIKey      string
	GeminiAPIKey      string
	GeminiImageAPIKey string
	GeminiTextModel   string
	GeminiImageModel  string
}

func loadLLMConfig() (LLMConfig, error) {
	cfg := LLMConfig{
		Provider:         strings.ToLower(envString("LLM_PROVIDER", ProviderAuto)),
		OpenAIBaseURL:    envString("OPENAI_BASE_URL", ""),
		OpenAIModel:      envString("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIAPIKey:     envString("OPENAI_API_KEY", ""),
		GeminiAPIKey:     envString("GEMINI_API_KEY", ""),
		GeminiTextModel:  envString("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
		GeminiImageModel: envString("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
	}
	cfg.GeminiImageAPIKey = envString("GEMINI_IMAGE_API_KEY", cfg.GeminiAPIKey)
	switch cfg.Provider {
	case ProviderAuto, ProviderOpenAI, ProviderGemini:
		return cfg, nil
	default:
		return cfg, fmt.Errorf("invalid LLM_PROVIDER %q: want openai or gemini", cfg.Provider)
	}
}

type AuthConfig struct {
	SecretKey string
	TokenTTL  time.Duration
}

func loadAuthConfig() (AuthConfig, error) {
	minutes, err := envInt("ACCESS_TOKEN_EXPIRE_MINUTES", 10080)
	if err != nil {
		return AuthConfig{}, err
	}
	if minutes <= 0 {
		return AuthConfig{}, fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive, got %d", minutes)
	}
	return AuthConfig{
		SecretKey: envString("SECRET_KEY", ""),
		TokenTTL:  time.Duration(minutes) * time.Minute,
	}, nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	return b, nil
}
