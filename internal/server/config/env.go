package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays configuration from environment variables, loading a
// local .env file first when one exists. Unset variables leave the current
// values untouched.
//
// Recognized variables:
//
//	ADDRESS             HTTP bind address
//	DATABASE_DSN        PostgreSQL DSN
//	SESSION_COOKIE_TTL  cookie max-age, Go duration string (e.g. "336h")
//	BLOB_BACKEND        "local" or "s3"
//	MEDIA_ROOT          local blob root directory
//	S3_ROOT_USER, S3_ROOT_PASSWORD, S3_BUCKET, S3_REGION, S3_BASE_ENDPOINT
//	ADMIN_NAME, ADMIN_LOGIN, ADMIN_PASSWORD, ADMIN_EMAIL
//	CORS_ORIGINS        comma-separated origins
func parseEnv(config *Config) {
	// Missing .env is the normal case outside development.
	_ = godotenv.Load()

	setStr := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	setStr(&config.EndpointAddrHTTP, "ADDRESS")
	setStr(&config.DatabaseDSN, "DATABASE_DSN")
	setStr(&config.BlobBackend, "BLOB_BACKEND")
	setStr(&config.MediaRoot, "MEDIA_ROOT")
	setStr(&config.S3RootUser, "S3_ROOT_USER")
	setStr(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	setStr(&config.S3Bucket, "S3_BUCKET")
	setStr(&config.S3Region, "S3_REGION")
	setStr(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	setStr(&config.AdminName, "ADMIN_NAME")
	setStr(&config.AdminLogin, "ADMIN_LOGIN")
	setStr(&config.AdminPassword, "ADMIN_PASSWORD")
	setStr(&config.AdminEmail, "ADMIN_EMAIL")
	setStr(&config.CORSOrigins, "CORS_ORIGINS")

	if v, ok := os.LookupEnv("SESSION_COOKIE_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		config.SessionCookieTTL = d
	}
}
