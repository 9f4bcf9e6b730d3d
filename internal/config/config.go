package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config collects everything the binaries read from the environment.
type Config struct {
	DatabaseURL string
	JWTSecret   string
	JWTTTL      time.Duration
	ListenAddr  string

	// Blob storage
	StorageRoot   string // base directory holding the public/ and private/ disk trees
	PublicBaseURL string // URL prefix for files on the public disk

	// Mail transport
	SMTPAddr string // host:port; empty means log-only mailer
	MailFrom string

	// Background processing
	WorkerPollInterval time.Duration
	JobTimeout         time.Duration

	// Cleanup retention for attachments whose owner was never finalized.
	AttachmentRetention time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		JWTTTL:              24 * time.Hour,
		ListenAddr:          getEnv("LISTEN_ADDR", ":8080"),
		StorageRoot:         getEnv("STORAGE_ROOT", "./storage"),
		PublicBaseURL:       getEnv("PUBLIC_BASE_URL", "/static"),
		SMTPAddr:            os.Getenv("SMTP_ADDR"),
		MailFrom:            getEnv("MAIL_FROM", "noreply@taskhub.local"),
		WorkerPollInterval:  5 * time.Second,
		JobTimeout:          5 * time.Minute,
		AttachmentRetention: 30 * 24 * time.Hour,
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is empty")
	}

	if hrs := os.Getenv("JWT_TTL_HOURS"); hrs != "" {
		n, err := strconv.Atoi(hrs)
		if err != nil {
			return nil, fmt.Errorf("invalid JWT_TTL_HOURS: %w", err)
		}
		cfg.JWTTTL = time.Duration(n) * time.Hour
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
