package models

import "time"

// RecalcReport is the complete output of one recalculation run.
type RecalcReport struct {
	Tool         string          `json:"tool"`
	Version      string          `json:"version"`
	Timestamp    string          `json:"timestamp"`
	Metadata     Metadata        `json:"metadata"`
	Summary      LevelSummary    `json:"summary"`
	Scores       []InterestScore `json:"scores"`
	Anomalies    []Anomaly       `json:"anomalies"`
	LevelChanges []LevelChange   `json:"level_changes,omitempty"`
	FailedWrites []string        `json:"failed_writes,omitempty"`
}

// Metadata contains run generation info.
type Metadata struct {
	GeneratedAt         time.Time `json:"generated_at"`
	LookbackDays        int       `json:"lookback_days"`
	TotalEventsAnalyzed uint64    `json:"total_events_analyzed"`
	ProductsScored      int       `json:"products_scored"`
	RunDuration         string    `json:"run_duration"`
	Version             string    `json:"version"`
}

// LevelSummary counts scored products by interest level.
type LevelSummary struct {
	Hot  int `json:"hot"`
	Warm int `json:"warm"`
	Cool int `json:"cool"`
	Cold int `json:"cold"`
}

// Add records one scored level in the summary.
func (s *LevelSummary) Add(level InterestLevel) {
	switch level {
	case LevelHot:
		s.Hot++
	case LevelWarm:
		s.Warm++
	case LevelCool:
		s.Cool++
	case LevelCold:
		s.Cold++
	}
}

// Total returns the number of products counted.
func (s LevelSummary) Total() int {
	return s.Hot + s.Warm + s.Cool + s.Cold
}

// Anomaly flags an unusual pattern in the event stream.
type Anomaly struct {
	Type            string    `json:"type"`
	Description     string    `json:"description"`
	Severity        string    `json:"severity"` // "low", "medium", "high"
	AffectedProduct string    `json:"affected_product,omitempty"`
	AffectedSession string    `json:"affected_session,omitempty"`
	DetectedAt      time.Time `json:"detected_at"`
}

// LevelChange records a product whose interest level moved since the
// recorded baseline.
type LevelChange struct {
	ProductID string        `json:"product_id"`
	Previous  InterestLevel `json:"previous"`
	Current   InterestLevel `json:"current"`
}
