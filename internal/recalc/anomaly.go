package recalc

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopsignal/shopsignal/internal/models"
)

const (
	// botSessionEventLimit flags sessions generating more events in the
	// window than any plausible human browser.
	botSessionEventLimit = 500

	// hesitationShareThreshold flags products where cart hesitation
	// dominates the signal mix.
	hesitationShareThreshold = 0.5
	hesitationMinEvents      = 10
)

// DetectAnomalies scans the event window for unusual access patterns.
func DetectAnomalies(events []models.InterestEvent, now time.Time) []models.Anomaly {
	var anomalies []models.Anomaly

	sessionEvents := make(map[string]int)
	productEvents := make(map[string]int)
	productHesitations := make(map[string]int)
	productSessions := make(map[string]map[string]struct{})

	for _, event := range events {
		sessionEvents[event.SessionID]++
		productEvents[event.ProductID]++
		if event.EventType == models.EventAddToCartHover {
			productHesitations[event.ProductID]++
		}
		if productSessions[event.ProductID] == nil {
			productSessions[event.ProductID] = make(map[string]struct{})
		}
		productSessions[event.ProductID][event.SessionID] = struct{}{}
	}

	// Anomaly 1: sessions producing implausible event volume
	sessionIDs := sortedKeys(sessionEvents)
	for _, sessionID := range sessionIDs {
		count := sessionEvents[sessionID]
		if count > botSessionEventLimit {
			anomalies = append(anomalies, models.Anomaly{
				Type:            "bot_session",
				Description:     fmt.Sprintf("Session generated %d events in lookback window (likely automated)", count),
				Severity:        "high",
				AffectedSession: sessionID,
				DetectedAt:      now,
			})
		}
	}

	// Anomaly 2: products where hesitation dominates the signal mix
	productIDs := sortedKeys(productEvents)
	for _, productID := range productIDs {
		total := productEvents[productID]
		hesitations := productHesitations[productID]
		if total >= hesitationMinEvents && float64(hesitations)/float64(total) > hesitationShareThreshold {
			anomalies = append(anomalies, models.Anomaly{
				Type:            "hesitation_heavy",
				Description:     "Most interactions stall at the add-to-cart button (check price or shipping friction)",
				Severity:        "medium",
				AffectedProduct: productID,
				DetectedAt:      now,
			})
		}
	}

	// Anomaly 3: products seen by a single session only
	for _, productID := range productIDs {
		if productEvents[productID] >= hesitationMinEvents && len(productSessions[productID]) == 1 {
			anomalies = append(anomalies, models.Anomaly{
				Type:            "single_session_product",
				Description:     "All activity for this product comes from one session",
				Severity:        "low",
				AffectedProduct: productID,
				DetectedAt:      now,
			})
		}
	}

	slog.Debug("detected anomalies", slog.Int("count", len(anomalies)))

	return anomalies
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
