// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/salazarbot/salazar/internal/prompt"
)

// Config holds the process configuration, loaded once at startup.
type Config struct {
	Port         string
	DiscordToken string
	DataDir      string
	DBPath       string
	LogDir       string
	DebugMode    bool
	Maintenance  bool

	// LLM backend
	LLMProvider string
	LLMAPIKey   string
	Models      []string // fallback order for the narration flows
	AnswerModel string   // designated model for the Q&A flow

	// Prompt templates, env-provided and validated at load
	PromptNarration *prompt.Template
	PromptEvent     *prompt.Template
	PromptDiplomacy *prompt.Template
	PromptQuestion  *prompt.Template
}

// Load reads configuration from the environment, with an optional .env file.
func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DiscordToken: getEnv("DISCORD_TOKEN", ""),
		DataDir:      getEnvPath("DATA_DIR", "data"),
		LogDir:       getEnvPath("LOG_DIR", "logs"),
		DebugMode:    getEnvBool("DEBUG_MODE", false),
		Maintenance:  getEnvBool("MAINTENANCE", false),
		LLMProvider:  getEnv("LLM_PROVIDER", "google"),
		LLMAPIKey:    getEnv("GEMINI_API_KEY", ""),
		AnswerModel:  getEnv("ANSWER_MODEL", "gemini-2.0-flash"),
	}
	cfg.DBPath = getEnv("DB_PATH", cfg.DataDir+"/salazar.db")

	models := getEnv("LLM_MODELS", "gemini-2.5-pro,gemini-2.5-flash,gemini-2.0-flash")
	for _, m := range strings.Split(models, ",") {
		if m = strings.TrimSpace(m); m != "" {
			cfg.Models = append(cfg.Models, m)
		}
	}

	var err error
	if cfg.PromptNarration, err = loadTemplate("PROMPT_NARRATION"); err != nil {
		return nil, err
	}
	if cfg.PromptEvent, err = loadTemplate("PROMPT_EVENT"); err != nil {
		return nil, err
	}
	if cfg.PromptDiplomacy, err = loadTemplate("PROMPT_DIPLOMACY"); err != nil {
		return nil, err
	}
	if cfg.PromptQuestion, err = loadTemplate("PROMPT_QUESTION"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadTemplate parses an env-provided prompt template. Unknown
// placeholders fail startup rather than leaking into model prompts.
// A missing variable yields a nil template and disables that flow.
func loadTemplate(envVar string) (*prompt.Template, error) {
	raw := os.Getenv(envVar)
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	tmpl, err := prompt.Parse(envVar, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", envVar, err)
	}
	return tmpl, nil
}

// getEnv returns an environment variable or the default when unset.
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath returns a path environment variable, creating the directory.
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			fmt.Printf("warning: failed to create directory %s: %v\n", path, err)
		}
	}
	return path
}

// getEnvBool parses a boolean environment variable.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}
