package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort     string
	DatabaseType   string // sqlite (default), postgres or mysql
	DatabasePath   string // sqlite only
	DatabaseURL    string // postgres/mysql only
	MigrationsPath string

	// Public base URL used when building signing and download links
	AppBaseURL string

	// Lease template assets
	TemplatePath string
	StylePath    string

	// Where rendered final PDFs are stored
	ArtifactsPath string

	// Outbound email (Amazon SES)
	AWSRegion    string
	SESFromEmail string
	SESFromName  string

	// HTML-to-PDF conversion API
	PDFRenderURL    string
	PDFRenderAPIKey string

	// Secret for signed final-contract download links
	DownloadTokenSecret string
	DownloadTokenTTL    time.Duration

	// How long a signing invitation stays valid
	InvitationTTL time.Duration

	Debug bool
}

// Load reads configuration from environment variables (and an optional .env
// file) with sensible defaults
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration overrides from .env")
	}

	return &Config{
		ServerPort:          getEnv("PORT", "8080"),
		DatabaseType:        getEnv("DB_TYPE", "sqlite"),
		DatabasePath:        getEnv("DB_PATH", "./leasesign.db"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		MigrationsPath:      getEnv("MIGRATIONS_PATH", "./migrations"),
		AppBaseURL:          getEnv("APP_BASE_URL", "http://localhost:8080"),
		TemplatePath:        getEnv("CONTRACT_TEMPLATE_PATH", "./assets/contract_template.html"),
		StylePath:           getEnv("CONTRACT_STYLE_PATH", "./assets/contract.css"),
		ArtifactsPath:       getEnv("ARTIFACTS_PATH", "./artifacts"),
		AWSRegion:           getEnv("AWS_REGION", "eu-west-1"),
		SESFromEmail:        getEnv("SES_FROM_EMAIL", ""),
		SESFromName:         getEnv("SES_FROM_NAME", "LeaseSign"),
		PDFRenderURL:        getEnv("PDF_RENDER_URL", ""),
		PDFRenderAPIKey:     getEnv("PDF_RENDER_API_KEY", ""),
		DownloadTokenSecret: downloadTokenSecret(),
		DownloadTokenTTL:    7 * 24 * time.Hour,
		InvitationTTL:       7 * 24 * time.Hour,
		Debug:               getEnv("DEBUG", "") != "",
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// downloadTokenSecret reads DOWNLOAD_TOKEN_SECRET, falling back to an
// ephemeral random secret so a fresh checkout still boots. Tokens signed with
// an ephemeral secret stop verifying after a restart.
func downloadTokenSecret() string {
	if secret := os.Getenv("DOWNLOAD_TOKEN_SECRET"); secret != "" {
		return secret
	}

	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		log.Fatalf("Failed to generate download token secret: %v", err)
	}
	log.Println("DOWNLOAD_TOKEN_SECRET not set: using an ephemeral secret, download links will not survive restarts")
	return hex.EncodeToString(bytes)
}
