package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr    string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	Env           string
	LogLevel      string
	JWTSecret     string
	MigrationsDir string
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerAddr:    getEnv("SERVER_ADDR", ":8080"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", ""),
		DBName:        getEnv("DB_NAME", "videos"),
		Env:           getEnv("APP_ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		MigrationsDir: getEnv("MIGRATIONS_DIR", "./migrations"),
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
