package config

import (
	"os"
	"strconv"
	"strings"
)

// Config is immutable process-wide configuration resolved once at startup.
// Backend re-selection requires a restart.
type Config struct {
	Env  string
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// LLM backend selection: "local" or "remote".
	LLMProvider string
	// Local backend (llama-server style endpoint serving the fine-tuned
	// weights).
	LocalURL  string
	ModelPath string
	LoraPath  string
	// Remote backend (OpenAI-compatible hosted API).
	APIKey    string
	APIBase   string
	ModelName string

	Temperature    float64
	TimeoutSeconds int
	MaxRetries     int
	Seed           int

	RetrievalMaxRecords int
	QADefaultDays       int
	QACacheSize         int
	DailyJobCron        string
}

func Load() *Config {
	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "8000"),

		DBHost:     getEnv("DB_HOST", "campus-db"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "campus_user"),
		DBPassword: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "campus_password"),
		DBName:     getEnv("DB_NAME", "campus_db"),

		LLMProvider: strings.ToLower(getEnv("LLM_PROVIDER", "local")),
		LocalURL:    getEnv("LOCAL_MODEL_URL", "http://localhost:11434"),
		ModelPath:   getEnv("MODEL_PATH", "/models/Qwen2.5-7B-Instruct"),
		LoraPath:    getEnv("LORA_PATH", ""),
		APIKey:      getSecret("LLM_API_KEY", "LLM_API_KEY_FILE", ""),
		APIBase:     getEnv("LLM_API_BASE", "https://api.deepseek.com"),
		ModelName:   getEnv("LLM_MODEL", "deepseek-chat"),

		Temperature:    getEnvFloat("LLM_TEMPERATURE", 0.2),
		TimeoutSeconds: getEnvInt("LLM_TIMEOUT_SECONDS", 120),
		MaxRetries:     getEnvInt("LLM_MAX_RETRIES", 5),
		Seed:           getEnvInt("LLM_SEED", 0),

		RetrievalMaxRecords: getEnvInt("RETRIEVAL_MAX_RECORDS", 50),
		QADefaultDays:       getEnvInt("QA_DEFAULT_DAYS", 7),
		QACacheSize:         getEnvInt("QA_CACHE_SIZE", 128),
		DailyJobCron:        getEnv("DAILY_JOB_CRON", "0 7 * * *"),
	}
}

// DSN renders the Postgres connection string.
func (c *Config) DSN() string {
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=disable"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
