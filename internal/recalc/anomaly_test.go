package recalc

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopsignal/shopsignal/internal/models"
)

func TestDetectAnomaliesBotSession(t *testing.T) {
	now := time.Now()

	var events []models.InterestEvent
	for i := 0; i < botSessionEventLimit+1; i++ {
		events = append(events, models.InterestEvent{
			SessionID: "bot-session",
			ProductID: fmt.Sprintf("prod-%d", i%5),
			EventType: models.EventImageView,
			CreatedAt: now,
		})
	}

	anomalies := DetectAnomalies(events, now)

	found := false
	for _, anomaly := range anomalies {
		if anomaly.Type == "bot_session" {
			found = true
			if anomaly.AffectedSession != "bot-session" {
				t.Fatalf("wrong session flagged: %s", anomaly.AffectedSession)
			}
			if anomaly.Severity != "high" {
				t.Fatalf("expected high severity, got %s", anomaly.Severity)
			}
		}
	}
	if !found {
		t.Fatal("expected bot_session anomaly")
	}
}

func TestDetectAnomaliesHesitationHeavy(t *testing.T) {
	now := time.Now()

	var events []models.InterestEvent
	// 8 hesitations out of 12 events from two sessions.
	for i := 0; i < 8; i++ {
		events = append(events, models.InterestEvent{
			SessionID: fmt.Sprintf("s%d", i%2),
			ProductID: "pricey-product",
			EventType: models.EventAddToCartHover,
			CreatedAt: now,
		})
	}
	for i := 0; i < 4; i++ {
		events = append(events, models.InterestEvent{
			SessionID: fmt.Sprintf("s%d", i%2),
			ProductID: "pricey-product",
			EventType: models.EventHover,
			CreatedAt: now,
		})
	}

	anomalies := DetectAnomalies(events, now)

	found := false
	for _, anomaly := range anomalies {
		if anomaly.Type == "hesitation_heavy" && anomaly.AffectedProduct == "pricey-product" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected hesitation_heavy anomaly, got %v", anomalies)
	}
}

func TestDetectAnomaliesSingleSessionProduct(t *testing.T) {
	now := time.Now()

	var events []models.InterestEvent
	for i := 0; i < hesitationMinEvents; i++ {
		events = append(events, models.InterestEvent{
			SessionID: "only-session",
			ProductID: "lonely-product",
			EventType: models.EventHover,
			CreatedAt: now,
		})
	}

	anomalies := DetectAnomalies(events, now)

	found := false
	for _, anomaly := range anomalies {
		if anomaly.Type == "single_session_product" && anomaly.AffectedProduct == "lonely-product" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected single_session_product anomaly, got %v", anomalies)
	}
}

func TestDetectAnomaliesQuietTraffic(t *testing.T) {
	now := time.Now()

	events := []models.InterestEvent{
		{SessionID: "s1", ProductID: "prod-1", EventType: models.EventHover, CreatedAt: now},
		{SessionID: "s2", ProductID: "prod-1", EventType: models.EventAddToCart, CreatedAt: now},
		{SessionID: "s3", ProductID: "prod-2", EventType: models.EventImageView, CreatedAt: now},
	}

	if anomalies := DetectAnomalies(events, now); len(anomalies) != 0 {
		t.Fatalf("expected no anomalies for normal traffic, got %v", anomalies)
	}
}
