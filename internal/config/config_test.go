package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{
		"PORT", "LLM_TIMEOUT_SECS", "PREVIOUS_N", "PREV_FOLLOWUPS_N", "PREV_JSON_MAX_CHARS",
		"FOLLOWUP_HISTORY_N", "FORCE_OFFLINE", "STORE_URI", "STORE_DATABASE", "STORE_COLLECTION",
		"STORE_USERS_COLLECTION", "MEMORY_PATH", "OUTPUT_DIR", "LLM_PROVIDER", "OPENAI_MODEL",
		"GEMINI_API_KEY", "GEMINI_IMAGE_API_KEY", "SECRET_KEY", "ACCESS_TOKEN_EXPIRE_MINUTES",
		"PARAM_PREFIX",
	} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Server.Addr)
	require.Equal(t, EngineConfig{
		Timeout:          20 * time.Second,
		PreviousN:        5,
		PrevFollowupsN:   3,
		MaxContextChars:  20000,
		FollowupHistoryN: 5,
	}, cfg.Engine)
	require.False(t, cfg.Store.Durable())
	require.Equal(t, "ai_dreams_sessions", cfg.Store.SessionsTable())
	require.Equal(t, "ai_dreams_users", cfg.Store.UsersTable())
	require.Equal(t, "memoria_agente.json", cfg.Store.MemoryPath)
	require.Equal(t, ProviderAuto, cfg.LLM.Provider)
	require.Equal(t, "gpt-4o-mini", cfg.LLM.OpenAIModel)
	require.Equal(t, "gemini-2.5-flash-image", cfg.LLM.GeminiImageModel)
	require.Equal(t, 10080*time.Minute, cfg.Auth.TokenTTL)
	require.Empty(t, cfg.ParamPrefix)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("LLM_TIMEOUT_SECS", "5")
	t.Setenv("FORCE_OFFLINE", "1")
	t.Setenv("STORE_URI", "http://localhost:8000")
	t.Setenv("STORE_DATABASE", "dreams")
	t.Setenv("LLM_PROVIDER", "Gemini")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("GEMINI_IMAGE_API_KEY", "")
	t.Setenv("PARAM_PREFIX", "/dream-agent/")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	require.Equal(t, 5*time.Second, cfg.Engine.Timeout)
	require.True(t, cfg.Engine.ForceOffline)
	require.True(t, cfg.Store.Durable())
	require.Equal(t, "dreams_sessions", cfg.Store.SessionsTable())
	require.Equal(t, ProviderGemini, cfg.LLM.Provider)
	require.Equal(t, "g-key", cfg.LLM.GeminiImageAPIKey)
	require.Equal(t, "/dream-agent", cfg.ParamPrefix)

	endpoint, custom, err := cfg.Store.Endpoint()
	require.NoError(t, err)
	require.True(t, custom)
	require.Equal(t, "http://localhost:8000", endpoint)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"PREVIOUS_N":                  "cinco",
		"LLM_TIMEOUT_SECS":            "0",
		"FORCE_OFFLINE":               "maybe",
		"STORE_URI":                   "mongodb://localhost",
		"LLM_PROVIDER":                "claude",
		"PORT":                        "80 80",
		"ACCESS_TOKEN_EXPIRE_MINUTES": "-1",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestStoreEndpoint(t *testing.T) {
	endpoint, custom, err := StoreConfig{URI: "dynamodb://default"}.Endpoint()
	require.NoError(t, err)
	require.False(t, custom)
	require.Empty(t, endpoint)

	_, _, err = StoreConfig{URI: "https://"}.Endpoint()
	require.Error(t, err)
}
