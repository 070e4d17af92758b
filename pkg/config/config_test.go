package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.QueryTimeout != 5*time.Minute {
		t.Errorf("QueryTimeout = %v, want 5m", cfg.QueryTimeout)
	}
	if cfg.BatchSize != 100000 {
		t.Errorf("BatchSize = %d, want 100000", cfg.BatchSize)
	}
	if cfg.Concurrency != 5 {
		t.Errorf("Concurrency = %d, want 5", cfg.Concurrency)
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want 8080", cfg.ServerPort)
	}
	if !cfg.AnomalyDetection {
		t.Error("AnomalyDetection should default to true")
	}
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"30d", 30 * 24 * time.Hour, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"90m", 90 * time.Minute, false},
		{"12h", 12 * time.Hour, false},
		{"45s", 45 * time.Second, false},
		{"1h30m", 90 * time.Minute, false}, // falls back to stdlib parsing
		{"bogus", 0, true},
	}

	for _, tc := range cases {
		got, err := ParseDuration(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseDuration(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDuration(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestIsProductExcluded(t *testing.T) {
	cfg := &Config{ExcludeProducts: []string{"test-*", " DEMO-SKU ", ""}}
	cfg.Normalize()

	cases := []struct {
		productID string
		want      bool
	}{
		{"test-hoodie", true},
		{"TEST-mug", true}, // case-insensitive
		{"demo-sku", true},
		{"real-product", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := cfg.IsProductExcluded(tc.productID); got != tc.want {
			t.Errorf("IsProductExcluded(%q) = %v, want %v", tc.productID, got, tc.want)
		}
	}

	var nilCfg *Config
	if nilCfg.IsProductExcluded("anything") {
		t.Error("nil config must exclude nothing")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".shopsignal.yaml")

	content := `
clickhouse_dsn: clickhouse://localhost:9000/shopsignal
db_path: " /var/lib/shopsignal/scores.db "
exclude_products:
  - "test-*"
  - ""
timeout: 2m
recalc_schedule: "0 3 * * *"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	fc, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if fc.ClickHouseEndpoint() != "clickhouse://localhost:9000/shopsignal" {
		t.Errorf("endpoint = %q", fc.ClickHouseEndpoint())
	}
	if fc.DBPath != "/var/lib/shopsignal/scores.db" {
		t.Errorf("db path not trimmed: %q", fc.DBPath)
	}
	if len(fc.ExcludeProducts) != 1 || fc.ExcludeProducts[0] != "test-*" {
		t.Errorf("exclude products = %v", fc.ExcludeProducts)
	}
	if fc.QueryTimeoutValue() != "2m" {
		t.Errorf("timeout = %q", fc.QueryTimeoutValue())
	}
	if fc.RecalcSchedule != "0 3 * * *" {
		t.Errorf("schedule = %q", fc.RecalcSchedule)
	}
}

func TestLoadFirstExistingFileMissing(t *testing.T) {
	fc, path, err := LoadFirstExistingFile([]string{
		filepath.Join(t.TempDir(), "nope.yaml"),
		"",
	})
	if err != nil {
		t.Fatalf("missing files should not error: %v", err)
	}
	if fc != nil || path != "" {
		t.Fatalf("expected nil result, got %v %q", fc, path)
	}
}
