package reporter

import (
	"fmt"

	"github.com/shopsignal/shopsignal/internal/models"
	"github.com/shopsignal/shopsignal/pkg/config"
)

// Reporter interface for generating reports
type Reporter interface {
	Generate(report *models.RecalcReport) error
}

// reporter implements the Reporter interface
type reporter struct {
	config *config.Config
}

// New creates a new reporter instance
func New(cfg *config.Config) Reporter {
	return &reporter{
		config: cfg,
	}
}

// Generate writes the report in the configured format.
func (r *reporter) Generate(report *models.RecalcReport) error {
	switch r.config.Format {
	case "", "json":
		return WriteJSON(report, r.config)
	case "text":
		return WriteText(report, r.config)
	default:
		return fmt.Errorf("unsupported report format: %s", r.config.Format)
	}
}
