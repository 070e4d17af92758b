package reporter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopsignal/shopsignal/internal/models"
	"github.com/shopsignal/shopsignal/pkg/config"
)

func sampleReport() *models.RecalcReport {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.RecalcReport{
		Tool:      "shopsignal",
		Version:   "test",
		Timestamp: now.Format(time.RFC3339),
		Metadata: models.Metadata{
			GeneratedAt:         now,
			LookbackDays:        30,
			TotalEventsAnalyzed: 120,
			ProductsScored:      2,
			RunDuration:         "1.2s",
			Version:             "test",
		},
		Summary: models.LevelSummary{Hot: 1, Cold: 1},
		Scores: []models.InterestScore{
			{ProductID: "winner", InterestScore: 85, InterestLevel: models.LevelHot, BuyerConfidence: 150, UniqueSessions: 12, TotalAddToCart: 18, UpdatedAt: now},
			{ProductID: "loser", InterestScore: 5, InterestLevel: models.LevelCold, UpdatedAt: now},
		},
		Anomalies: []models.Anomaly{
			{Type: "bot_session", Description: "Session generated 900 events in lookback window (likely automated)", Severity: "high", AffectedSession: "s-bot", DetectedAt: now},
		},
		LevelChanges: []models.LevelChange{
			{ProductID: "winner", Previous: models.LevelWarm, Current: models.LevelHot},
		},
	}
}

func TestWriteJSONProducesParseableReport(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.OutputDir = t.TempDir()

	if err := WriteJSON(sampleReport(), cfg); err != nil {
		t.Fatalf("write json: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, "report.json"))
	if err != nil {
		t.Fatalf("read report.json: %v", err)
	}

	var parsed models.RecalcReport
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("report.json is not valid JSON: %v", err)
	}
	if parsed.Tool != "shopsignal" {
		t.Fatalf("expected tool shopsignal, got %q", parsed.Tool)
	}
	if len(parsed.Scores) != 2 {
		t.Fatalf("expected 2 scores, got %d", len(parsed.Scores))
	}
	if parsed.Summary.Hot != 1 {
		t.Fatalf("expected 1 hot product, got %d", parsed.Summary.Hot)
	}
}

func TestWriteTextRendersSections(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.OutputDir = t.TempDir()

	var buf strings.Builder
	if err := writeText(sampleReport(), cfg, &buf); err != nil {
		t.Fatalf("write text: %v", err)
	}

	rendered := buf.String()
	for _, want := range []string{
		"ShopSignal Interest Report",
		"Total events analyzed: 120",
		"Hot:  1",
		"winner",
		"Level Changes",
		"warm -> hot",
		"anomaly[high]",
		"session=s-bot",
	} {
		if !strings.Contains(rendered, want) {
			t.Fatalf("rendered report missing %q:\n%s", want, rendered)
		}
	}

	// report.txt matches what went to the writer.
	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, "report.txt"))
	if err != nil {
		t.Fatalf("read report.txt: %v", err)
	}
	if string(data) != rendered {
		t.Fatal("report.txt content differs from writer output")
	}
}

func TestWriteTextNilInputs(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.OutputDir = t.TempDir()

	if err := writeText(nil, cfg, &strings.Builder{}); err == nil {
		t.Fatal("expected error for nil report")
	}
	if err := writeText(sampleReport(), nil, &strings.Builder{}); err == nil {
		t.Fatal("expected error for nil config")
	}
	if err := writeText(sampleReport(), cfg, nil); err == nil {
		t.Fatal("expected error for nil writer")
	}
}

func TestGenerateDispatchesOnFormat(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.OutputDir = t.TempDir()
	cfg.Format = "json"

	if err := New(cfg).Generate(sampleReport()); err != nil {
		t.Fatalf("json generate: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "report.json")); err != nil {
		t.Fatalf("expected report.json: %v", err)
	}

	cfg.Format = "yaml"
	if err := New(cfg).Generate(sampleReport()); err == nil || !strings.Contains(err.Error(), "unsupported report format") {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
}

func TestTruncateTextValue(t *testing.T) {
	if got := truncateTextValue("short", 44); got != "short" {
		t.Fatalf("expected unchanged value, got %q", got)
	}
	if got := truncateTextValue("a-very-long-product-identifier", 10); got != "a-very-..." {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := truncateTextValue("abcdef", 3); got != "abc" {
		t.Fatalf("unexpected narrow truncation: %q", got)
	}
}
