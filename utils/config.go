package utils

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

// Config represents the application configuration, loaded from the
// environment (optionally seeded from a .env file in the working directory).
type Config struct {
	APIKey          string // completion endpoint credential, required
	BaseURL         string
	Model           string
	ConversationDir string
	WordsFile       string
	IndexPath       string
}

// ErrMissingAPIKey is returned when no credential is configured. The caller
// must treat it as fatal and not proceed to the main interface.
var ErrMissingAPIKey = errors.New("SILICONFLOW_API_KEY is not set; add it to your .env file")

// LoadConfig reads configuration from the environment. A missing .env file is
// not an error; a missing API key is.
func LoadConfig() (*Config, error) {
	// Ignore the error: running without a .env file is fine as long as the
	// variables are set some other way.
	_ = godotenv.Load()

	apiKey := os.Getenv("SILICONFLOW_API_KEY")
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	return &Config{
		APIKey:          apiKey,
		BaseURL:         envOr("BASE_URL", "https://api.siliconflow.cn/v1"),
		Model:           envOr("MODEL_NAME", "deepseek-ai/DeepSeek-V3"),
		ConversationDir: envOr("CONVERSATION_DIR", "conversations"),
		WordsFile:       envOr("SENSITIVE_WORDS_FILE", "sensitive_words.json"),
		IndexPath:       envOr("SEARCH_INDEX_PATH", "data/search.db"),
	}, nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
