// Package config loads process configuration from the environment, the
// way magda-api/internal/config does it: a flat struct, env lookups with
// defaults, no module-level singleton.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the mix pipeline needs at process startup.
type Config struct {
	Environment string
	Port        string

	DataDir  string
	CacheDir string
	DBPath   string

	FFmpegPath string

	// Object store (§6)
	ObjectStoreBucket string
	ObjectStoreRegion string
	CDNDomain         string

	// Catalogue provider OAuth (§6) — interface-only in this core; these
	// are plumbed through to the driver, never touched by the pipeline.
	CatalogueClientID     string
	CatalogueClientSecret string
	CatalogueTokenURL     string
	CatalogueBaseURL      string

	// Content acquisition (§4.5/§5)
	DownloadsPerMinute int
	DownloadTimeout    time.Duration

	// Job orchestrator (§5)
	WorkerCount int
}

// Load reads configuration from the environment, loading a .env file first
// if one is present in the working directory (no-op if absent).
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8080"),

		DataDir:  getEnv("DATA_DIR", "."),
		CacheDir: getEnv("CACHE_DIR", "cache"),
		DBPath:   getEnv("DB_PATH", "mixpipeline.db"),

		FFmpegPath: getEnv("FFMPEG_PATH", "ffmpeg"),

		ObjectStoreBucket: getEnv("OBJECT_STORE_BUCKET", ""),
		ObjectStoreRegion: getEnv("OBJECT_STORE_REGION", "us-east-1"),
		CDNDomain:         getEnv("CDN_DOMAIN", ""),

		CatalogueClientID:     getEnv("CATALOGUE_CLIENT_ID", ""),
		CatalogueClientSecret: getEnv("CATALOGUE_CLIENT_SECRET", ""),
		CatalogueTokenURL:     getEnv("CATALOGUE_TOKEN_URL", ""),
		CatalogueBaseURL:      getEnv("CATALOGUE_BASE_URL", ""),

		DownloadsPerMinute: getEnvInt("DOWNLOADS_PER_MINUTE", 20),
		DownloadTimeout:    getEnvDuration("DOWNLOAD_TIMEOUT", 300*time.Second),

		WorkerCount: getEnvInt("WORKER_COUNT", 4),
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}

// IsProduction reports whether the process is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
