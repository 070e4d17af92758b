package reporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopsignal/shopsignal/internal/models"
	"github.com/shopsignal/shopsignal/pkg/config"
)

const (
	textANSIReset = "\x1b[0m"
	textANSIBold  = "\x1b[1m"
)

// WriteText writes a human-readable text report to report.txt and stdout.
func WriteText(report *models.RecalcReport, cfg *config.Config) error {
	return writeText(report, cfg, os.Stdout)
}

func writeText(report *models.RecalcReport, cfg *config.Config, out io.Writer) error {
	if report == nil {
		return fmt.Errorf("report is nil")
	}
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if out == nil {
		return fmt.Errorf("writer is nil")
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	rendered := renderTextReport(report, supportsANSI(out))
	outputPath := filepath.Join(cfg.OutputDir, "report.txt")

	if err := os.WriteFile(outputPath, []byte(rendered), 0644); err != nil {
		return fmt.Errorf("failed to write report.txt: %w", err)
	}

	if _, err := io.WriteString(out, rendered); err != nil {
		return fmt.Errorf("failed to write text report to output: %w", err)
	}

	return nil
}

func renderTextReport(report *models.RecalcReport, useANSI bool) string {
	var b strings.Builder

	generatedAt := strings.TrimSpace(report.Timestamp)
	if generatedAt == "" {
		if !report.Metadata.GeneratedAt.IsZero() {
			generatedAt = report.Metadata.GeneratedAt.UTC().Format(time.RFC3339)
		} else {
			generatedAt = "unknown"
		}
	}

	writeTextSectionHeader(&b, "ShopSignal Interest Report", useANSI)
	fmt.Fprintf(&b, "Generated: %s\n", generatedAt)
	fmt.Fprintf(&b, "Lookback days: %d\n", report.Metadata.LookbackDays)
	fmt.Fprintf(&b, "Total events analyzed: %d\n", report.Metadata.TotalEventsAnalyzed)
	fmt.Fprintf(&b, "Products scored: %d\n", report.Metadata.ProductsScored)
	b.WriteString("\n")

	writeTextSectionHeader(&b, "Summary", useANSI)
	fmt.Fprintf(&b, "Hot:  %d\n", report.Summary.Hot)
	fmt.Fprintf(&b, "Warm: %d\n", report.Summary.Warm)
	fmt.Fprintf(&b, "Cool: %d\n", report.Summary.Cool)
	fmt.Fprintf(&b, "Cold: %d\n", report.Summary.Cold)
	b.WriteString("\n")

	writeTextSectionHeader(&b, "Product Scores", useANSI)
	if len(report.Scores) == 0 {
		b.WriteString("No products scored.\n")
	} else {
		b.WriteString("PRODUCT                                      SCORE LEVEL CONFIDENCE SESSIONS CARTS\n")
		b.WriteString("--------------------------------------------------------------------------------\n")
		for _, score := range report.Scores {
			fmt.Fprintf(
				&b,
				"%-44s %5d %-5s %10d %8d %5d\n",
				truncateTextValue(score.ProductID, 44),
				score.InterestScore,
				score.InterestLevel,
				score.BuyerConfidence,
				score.UniqueSessions,
				score.TotalAddToCart,
			)
		}
	}

	if len(report.LevelChanges) > 0 {
		b.WriteString("\n")
		writeTextSectionHeader(&b, "Level Changes", useANSI)
		for _, change := range report.LevelChanges {
			fmt.Fprintf(&b, "- %s: %s -> %s\n", change.ProductID, change.Previous, change.Current)
		}
	}

	if len(report.Anomalies) > 0 {
		b.WriteString("\n")
		writeTextSectionHeader(&b, "Anomalies", useANSI)
		for _, anomaly := range report.Anomalies {
			fmt.Fprintf(&b, "- %s\n", formatAnomalyFinding(anomaly))
		}
	}

	if len(report.FailedWrites) > 0 {
		b.WriteString("\n")
		writeTextSectionHeader(&b, "Failed Writes", useANSI)
		for _, productID := range report.FailedWrites {
			fmt.Fprintf(&b, "- %s\n", productID)
		}
	}

	return b.String()
}

func writeTextSectionHeader(b *strings.Builder, title string, useANSI bool) {
	header := title
	if useANSI {
		header = textANSIBold + title + textANSIReset
	}
	fmt.Fprintf(b, "%s\n", header)
	fmt.Fprintf(b, "%s\n", strings.Repeat("-", len(title)))
}

func supportsANSI(out io.Writer) bool {
	file, ok := out.(*os.File)
	if !ok {
		return false
	}

	info, err := file.Stat()
	if err != nil {
		return false
	}

	return info.Mode()&os.ModeCharDevice != 0
}

func formatAnomalyFinding(anomaly models.Anomaly) string {
	severity := strings.TrimSpace(strings.ToLower(anomaly.Severity))
	if severity == "" {
		severity = "unknown"
	}

	description := strings.TrimSpace(anomaly.Description)
	if description == "" {
		description = strings.TrimSpace(anomaly.Type)
	}
	if description == "" {
		description = "unspecified anomaly"
	}

	subject := strings.TrimSpace(anomaly.AffectedProduct)
	label := "product"
	if subject == "" {
		subject = strings.TrimSpace(anomaly.AffectedSession)
		label = "session"
	}
	if subject == "" {
		return fmt.Sprintf("anomaly[%s]: %s", severity, description)
	}

	return fmt.Sprintf("anomaly[%s]: %s (%s=%s)", severity, description, label, subject)
}

func truncateTextValue(value string, width int) string {
	if width <= 0 || len(value) <= width {
		return value
	}
	if width <= 3 {
		return value[:width]
	}
	return value[:width-3] + "..."
}
