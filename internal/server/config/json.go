package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/mycloud/internal/flagx"
	"github.com/dmitrijs2005/mycloud/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "336h" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its fields are copied into the
// runtime Config struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddrHTTP string         `json:"endpoint_addr_http"`
	DatabaseDSN      string         `json:"database_dsn"`
	SessionCookieTTL timex.Duration `json:"session_cookie_ttl"`
	BlobBackend      string         `json:"blob_backend"`
	MediaRoot        string         `json:"media_root"`
	S3RootUser       string         `json:"s3_root_user"`
	S3RootPassword   string         `json:"s3_root_password"`
	S3Bucket         string         `json:"s3_bucket"`
	S3Region         string         `json:"s3_region"`
	S3BaseEndpoint   string         `json:"s3_base_endpoint"`
	AdminName        string         `json:"admin_name"`
	AdminLogin       string         `json:"admin_login"`
	AdminPassword    string         `json:"admin_password"`
	AdminEmail       string         `json:"admin_email"`
	CORSOrigins      string         `json:"cors_origins"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path is taken from the -c or -config command-line flags; when
// neither is set, no JSON file is loaded. If the file cannot be read or
// contains invalid JSON, the function panics: a misconfigured server must
// not start.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.SessionCookieTTL = time.Duration(c.SessionCookieTTL.Duration)
	config.BlobBackend = c.BlobBackend
	config.MediaRoot = c.MediaRoot
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.AdminName = c.AdminName
	config.AdminLogin = c.AdminLogin
	config.AdminPassword = c.AdminPassword
	config.AdminEmail = c.AdminEmail
	config.CORSOrigins = c.CORSOrigins
}
