package config

import (
	"os"
	"strconv"
)

// Config holds all runtime settings, loaded from environment variables.
type Config struct {
	DatabaseURL string
	Port        int

	JWTSecret              string
	AccessTokenTTLMinutes  int
	RefreshTokenTTLDays    int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	ReceiptsBucket string

	// Archived receipt PDFs older than this many days are deleted by the
	// retention job.
	PDFRetentionDays int
}

func Load() *Config {
	return &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Port:        envInt("PORT", 8080),

		JWTSecret:             os.Getenv("JWT_SECRET"),
		AccessTokenTTLMinutes: envInt("ACCESS_TOKEN_TTL_MINUTES", 30),
		RefreshTokenTTLDays:   envInt("REFRESH_TOKEN_TTL_DAYS", 30),

		RedisAddr:     envString("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		MinioEndpoint:  envString("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: envString("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: envString("MINIO_SECRET_KEY", "minioadmin"),
		MinioUseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
		ReceiptsBucket: envString("RECEIPTS_BUCKET", "receipts"),

		PDFRetentionDays: envInt("PDF_RETENTION_DAYS", 90),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
