package config

import (
	"reflect"
	"testing"
	"time"
)

func TestEnvBool(t *testing.T) {
	cases := []struct {
		val      string
		def      bool
		expected bool
	}{
		{"", true, true},
		{"", false, false},
		{"true", false, true},
		{" YES ", false, true},
		{"on", false, true},
		{"0", true, false},
		{"off", true, false},
		{"maybe", true, true},
	}
	for _, tc := range cases {
		t.Setenv("TEST_ENV_BOOL", tc.val)
		if got := envBool("TEST_ENV_BOOL", tc.def); got != tc.expected {
			t.Fatalf("envBool(%q, %v) expected %v, got %v", tc.val, tc.def, tc.expected, got)
		}
	}
}

func TestIntFromEnv(t *testing.T) {
	cases := []struct {
		val      string
		expected int
	}{
		{"", 500},
		{"250", 250},
		{" 42 ", 42},
		{"abc", 500},
		{"0", 500},
		{"-3", 500},
	}
	for _, tc := range cases {
		t.Setenv("TEST_INT", tc.val)
		if got := intFromEnv("TEST_INT", 500); got != tc.expected {
			t.Fatalf("intFromEnv(%q) expected %d, got %d", tc.val, tc.expected, got)
		}
	}
}

func TestPort(t *testing.T) {
	t.Setenv("API_PORT", "")
	t.Setenv("PORT", "")
	if got := Port(); got != "8080" {
		t.Fatalf("expected default 8080, got %s", got)
	}
	t.Setenv("PORT", "9000")
	if got := Port(); got != "9000" {
		t.Fatalf("expected PORT 9000, got %s", got)
	}
	t.Setenv("API_PORT", "7000")
	if got := Port(); got != "7000" {
		t.Fatalf("expected API_PORT to win, got %s", got)
	}
}

func TestCORSAllowedOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example ,, https://b.example ")
	expected := []string{"https://a.example", "https://b.example"}
	if got := CORSAllowedOrigins(); !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	if got := CORSAllowedOrigins(); len(got) != 0 {
		t.Fatalf("expected no origins, got %v", got)
	}
}

func TestImportSettingsDefaults(t *testing.T) {
	for _, key := range []string{"IMPORT_BATCH_SIZE", "IMPORT_JOB_TTL_SECONDS", "IMPORT_MAX_UPLOAD_MB", "IMPORT_ARCHIVE_PREFIX", "RECORD_TABLE", "STORE_DRIVER"} {
		t.Setenv(key, "")
	}
	if got := ImportBatchSize(); got != 500 {
		t.Fatalf("expected batch size 500, got %d", got)
	}
	if got := ImportJobTTL(); got != time.Hour {
		t.Fatalf("expected job ttl 1h, got %s", got)
	}
	if got := ImportMaxUploadBytes(); got != 200<<20 {
		t.Fatalf("expected 200MB upload cap, got %d", got)
	}
	if got := ImportArchivePrefix(); got != "imports" {
		t.Fatalf("expected prefix imports, got %s", got)
	}
	if got := RecordTable(); got != DefaultRecordTable {
		t.Fatalf("expected default table, got %s", got)
	}
	if got := StoreDriver(); got != StoreDriverMySQL {
		t.Fatalf("expected mysql driver, got %s", got)
	}

	t.Setenv("IMPORT_ARCHIVE_PREFIX", "/raw/uploads/")
	if got := ImportArchivePrefix(); got != "raw/uploads" {
		t.Fatalf("expected slashes trimmed, got %s", got)
	}
	t.Setenv("STORE_DRIVER", " BigQuery ")
	if got := StoreDriver(); got != StoreDriverBigQuery {
		t.Fatalf("expected bigquery driver, got %s", got)
	}
}

func TestIsProduction(t *testing.T) {
	t.Setenv("GO_ENV", "Production")
	if !IsProduction() {
		t.Fatalf("expected production")
	}
	t.Setenv("GO_ENV", "development")
	if IsProduction() {
		t.Fatalf("expected non-production")
	}
}
