package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server configuration
	ServerPort string
	ServerHost string

	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// JWT configuration
	JWTSecret string

	// DeepSeek configuration
	DeepSeekAPIKey  string
	DeepSeekBaseURL string

	// Seed data locations
	MedicineDataPath  string
	KnowledgeBasePath string
}

// LoadConfig builds a Config from environment variables. A .env file
// is honored when present so local runs match the container setup.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		ServerHost:        getEnv("SERVER_HOST", "0.0.0.0"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBName:            getEnv("DB_NAME", "mediguide"),
		DBSSLMode:         getEnv("DB_SSL_MODE", "disable"),
		RedisHost:         getEnv("REDIS_HOST", "localhost"),
		RedisPort:         getEnv("REDIS_PORT", "6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		DeepSeekAPIKey:    os.Getenv("DEEPSEEK_API_KEY"),
		DeepSeekBaseURL:   getEnv("DEEPSEEK_BASE_URL", "https://api.deepseek.com"),
		MedicineDataPath:  getEnv("MEDICINE_DATA_PATH", "data/medicines.txt"),
		KnowledgeBasePath: getEnv("KNOWLEDGE_BASE_PATH", "data/symptom_knowledge.csv"),
	}

	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		db, err := strconv.Atoi(dbStr)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB value %q: %w", dbStr, err)
		}
		cfg.RedisDB = db
	}

	// The API key may be mounted as a secret file instead of an env var.
	if cfg.DeepSeekAPIKey == "" {
		if keyFile := os.Getenv("DEEPSEEK_API_KEY_FILE"); keyFile != "" {
			content, err := os.ReadFile(keyFile)
			if err != nil {
				return nil, fmt.Errorf("failed to read API key file: %w", err)
			}
			cfg.DeepSeekAPIKey = strings.TrimSpace(string(content))
		}
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, exists := os.LookupEnv(key); exists && val != "" {
		return val
	}
	return fallback
}
