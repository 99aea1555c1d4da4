package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreDriverMySQL    = "mysql"
	StoreDriverBigQuery = "bigquery"

	DefaultRecordTable = "Transaction"
)

// StoreDriver selects the record store backend.
//
// Set via env:
// - STORE_DRIVER=mysql (default) | bigquery
func StoreDriver() string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STORE_DRIVER")))
	if v == "" {
		return StoreDriverMySQL
	}
	return v
}

// RecordTable is the table imports are written to and read from when the request does not name one.
func RecordTable() string {
	v := strings.TrimSpace(os.Getenv("RECORD_TABLE"))
	if v == "" {
		return DefaultRecordTable
	}
	return v
}

// ImportBatchSize is the number of rows sent to the store per bulk write (default 500).
func ImportBatchSize() int {
	return intFromEnv("IMPORT_BATCH_SIZE", 500)
}

// ImportJobTTL is how long a finished import stays pollable (default 1h).
func ImportJobTTL() time.Duration {
	return time.Duration(intFromEnv("IMPORT_JOB_TTL_SECONDS", 3600)) * time.Second
}

// ImportMaxUploadBytes caps the multipart upload size (default 200MB).
func ImportMaxUploadBytes() int64 {
	return int64(intFromEnv("IMPORT_MAX_UPLOAD_MB", 200)) << 20
}

// RecordsCacheEnabled turns on the redis cache for stats and meta lookups.
//
// Set via env:
// - ENABLE_RECORDS_CACHE=true
func RecordsCacheEnabled() bool {
	return envBool("ENABLE_RECORDS_CACHE", false)
}

// RecordsCacheTTL is the cache lifetime for stats and meta responses (default 120s).
func RecordsCacheTTL() time.Duration {
	return time.Duration(intFromEnv("RECORDS_CACHE_TTL_SECONDS", 120)) * time.Second
}

// ImportArchiveEnabled copies every uploaded spreadsheet to GCS_BUCKET before parsing.
func ImportArchiveEnabled() bool {
	return envBool("ENABLE_IMPORT_ARCHIVE", false)
}

// ImportEventsEnabled publishes a Pub/Sub message when an import finishes.
func ImportEventsEnabled() bool {
	return envBool("ENABLE_IMPORT_EVENTS", false)
}

// ImportEventsTopic is the Pub/Sub topic for finished imports (default "import-events").
func ImportEventsTopic() string {
	v := strings.TrimSpace(os.Getenv("IMPORT_EVENTS_TOPIC"))
	if v == "" {
		return "import-events"
	}
	return v
}

// ImportArchivePrefix is the object prefix for archived uploads (default "imports").
func ImportArchivePrefix() string {
	v := strings.Trim(strings.TrimSpace(os.Getenv("IMPORT_ARCHIVE_PREFIX")), "/")
	if v == "" {
		return "imports"
	}
	return v
}

// RateLimitEnabled turns on the per-IP redis rate limiter.
//
// Set via env:
// - RATE_LIMIT_ENABLED=true
// - RATE_LIMIT_WINDOW_SECONDS=60
// - RATE_LIMIT_MAX_REQUESTS=600
func RateLimitEnabled() bool {
	return envBool("RATE_LIMIT_ENABLED", false)
}

func RateLimitMaxRequests() int64 {
	return int64(intFromEnv("RATE_LIMIT_MAX_REQUESTS", 600))
}

func RateLimitWindow() time.Duration {
	return time.Duration(intFromEnv("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second
}

// CORSAllowedOrigins is the comma separated CORS_ALLOWED_ORIGINS list.
func CORSAllowedOrigins() []string {
	var out []string
	for _, p := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Port is API_PORT, then PORT (Cloud Run), then 8080.
func Port() string {
	for _, key := range []string{"API_PORT", "PORT"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return "8080"
}

// IsProduction reports GO_ENV=production. Error bodies drop raw error text in production.
func IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production")
}

func envBool(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		return def
	}
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
