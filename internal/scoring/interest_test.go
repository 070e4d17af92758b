package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/shopsignal/shopsignal/internal/models"
)

func event(session string, t models.EventType, value float64, age time.Duration, now time.Time) models.InterestEvent {
	return models.InterestEvent{
		SessionID: session,
		ProductID: "prod-1",
		EventType: t,
		Value:     value,
		CreatedAt: now.Add(-age),
	}
}

func TestMaxPossibleScore(t *testing.T) {
	// Sum of the weight table: 25+20+15+12+10+8+5+3+2+3+4+6.
	if got := MaxPossibleScore(); got != 113 {
		t.Fatalf("MaxPossibleScore() = %v, want 113", got)
	}
}

func TestCalculateProductScoreEmpty(t *testing.T) {
	now := time.Now()
	score := CalculateProductScore("prod-1", nil, now)

	want := models.InterestScore{
		ProductID:     "prod-1",
		InterestLevel: models.LevelCold,
		UpdatedAt:     now,
	}
	if score != want {
		t.Fatalf("empty input score = %+v, want %+v", score, want)
	}
}

func TestCalculateProductScoreIdempotent(t *testing.T) {
	now := time.Now()
	events := []models.InterestEvent{
		event("s1", models.EventAddToCart, 1, 2*time.Hour, now),
		event("s1", models.EventHover, 3500, 26*time.Hour, now),
		event("s2", models.EventTimeOnPage, 45000, 5*24*time.Hour, now),
		event("s2", models.EventScrollDepth, 80, 5*24*time.Hour, now),
	}

	first := CalculateProductScore("prod-1", events, now)
	second := CalculateProductScore("prod-1", events, now)
	if first != second {
		t.Fatalf("recalculation not idempotent:\nfirst  %+v\nsecond %+v", first, second)
	}
}

func TestDecayMonotonicity(t *testing.T) {
	now := time.Now()

	recent := Decay(now.Add(-1*time.Hour), now)
	older := Decay(now.Add(-30*time.Hour), now)
	if recent <= older {
		t.Fatalf("decay not strictly decreasing in age: recent=%v older=%v", recent, older)
	}

	// 10-day-old events contribute at e^-1.
	tenDays := Decay(now.Add(-10*24*time.Hour), now)
	if diff := math.Abs(tenDays - math.Exp(-1)); diff > 1e-9 {
		t.Fatalf("10-day decay = %v, want e^-1 (diff %v)", tenDays, diff)
	}

	// A more recent event must contribute strictly more to the total.
	newer := CalculateProductScore("prod-1", []models.InterestEvent{
		event("s1", models.EventAddToCart, 1, time.Hour, now),
	}, now)
	old := CalculateProductScore("prod-1", []models.InterestEvent{
		event("s1", models.EventAddToCart, 1, 20*24*time.Hour, now),
	}, now)
	if newer.InterestScore <= old.InterestScore {
		t.Fatalf("newer event scored %d, older scored %d; want newer > older",
			newer.InterestScore, old.InterestScore)
	}
}

func TestLevelForScoreBoundaries(t *testing.T) {
	cases := []struct {
		score int
		want  models.InterestLevel
	}{
		{100, models.LevelHot},
		{70, models.LevelHot},
		{69, models.LevelWarm},
		{45, models.LevelWarm},
		{44, models.LevelCool},
		{20, models.LevelCool},
		{19, models.LevelCold},
		{0, models.LevelCold},
	}
	for _, tc := range cases {
		if got := LevelForScore(tc.score); got != tc.want {
			t.Errorf("LevelForScore(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestScoreCappedAt100(t *testing.T) {
	now := time.Now()

	// 10 fresh add-to-cart events: raw total 250 against a 113 budget.
	var events []models.InterestEvent
	for i := 0; i < 10; i++ {
		events = append(events, event("s1", models.EventAddToCart, 1, 0, now))
	}

	score := CalculateProductScore("prod-1", events, now)
	if score.InterestScore != 100 {
		t.Fatalf("interest score = %d, want capped 100", score.InterestScore)
	}
	if score.InterestLevel != models.LevelHot {
		t.Fatalf("interest level = %s, want hot", score.InterestLevel)
	}
}

func TestUnknownEventTypeWeightless(t *testing.T) {
	now := time.Now()
	events := []models.InterestEvent{
		event("s1", models.EventType("wishlist_add"), 1, 0, now),
	}

	score := CalculateProductScore("prod-1", events, now)
	if score.InterestScore != 0 {
		t.Fatalf("unknown event type contributed %d, want 0", score.InterestScore)
	}
	if score.UniqueSessions != 1 {
		t.Fatalf("unique sessions = %d, want 1 (unknown events still count sessions)", score.UniqueSessions)
	}
}

func TestMalformedValueTreatedAsZero(t *testing.T) {
	now := time.Now()
	events := []models.InterestEvent{
		event("s1", models.EventTimeOnPage, math.NaN(), 0, now),
		event("s1", models.EventScrollDepth, math.Inf(1), 0, now),
	}

	score := CalculateProductScore("prod-1", events, now)
	if score.InterestScore != 0 {
		t.Fatalf("malformed values scored %d, want 0", score.InterestScore)
	}
	if score.AvgTimeOnPage != 0 {
		t.Fatalf("avg time on page = %d, want 0 for NaN dwell", score.AvgTimeOnPage)
	}
}

func TestValueNormalizationCaps(t *testing.T) {
	now := time.Now()

	// Dwell beyond the 2-minute cap must not contribute more than the cap.
	capped := CalculateProductScore("prod-1", []models.InterestEvent{
		event("s1", models.EventTimeOnPage, 600000, 0, now),
	}, now)
	atCap := CalculateProductScore("prod-1", []models.InterestEvent{
		event("s1", models.EventTimeOnPage, 120000, 0, now),
	}, now)
	if capped.InterestScore != atCap.InterestScore {
		t.Fatalf("dwell above cap scored %d, at cap %d; want equal", capped.InterestScore, atCap.InterestScore)
	}

	// Hover contribution scales with duration up to the 10s cap.
	half := CalculateProductScore("prod-1", []models.InterestEvent{
		event("s1", models.EventHover, 5000, 0, now),
	}, now)
	full := CalculateProductScore("prod-1", []models.InterestEvent{
		event("s1", models.EventHover, 20000, 0, now),
	}, now)
	if half.InterestScore >= full.InterestScore {
		t.Fatalf("half hover %d >= capped full hover %d", half.InterestScore, full.InterestScore)
	}
}

func TestBuyerConfidenceUnclamped(t *testing.T) {
	now := time.Now()

	// One session, three add-to-carts: 300% confidence. The ratio is
	// intentionally not clamped at 100.
	events := []models.InterestEvent{
		event("s1", models.EventAddToCart, 1, 0, now),
		event("s1", models.EventAddToCart, 1, 0, now),
		event("s1", models.EventAddToCart, 1, 0, now),
	}

	score := CalculateProductScore("prod-1", events, now)
	if score.BuyerConfidence != 300 {
		t.Fatalf("buyer confidence = %d, want 300 (unclamped)", score.BuyerConfidence)
	}
	if score.TotalAddToCart != 3 {
		t.Fatalf("total add to cart = %d, want 3", score.TotalAddToCart)
	}
	if score.UniqueSessions != 1 {
		t.Fatalf("unique sessions = %d, want 1", score.UniqueSessions)
	}
}

func TestHesitationScore(t *testing.T) {
	now := time.Now()
	events := []models.InterestEvent{
		event("s1", models.EventAddToCartHover, 1500, 0, now),
		event("s1", models.EventHover, 3000, 0, now),
		event("s2", models.EventImageView, 1, 0, now),
		event("s2", models.EventImageView, 1, 0, now),
	}

	score := CalculateProductScore("prod-1", events, now)
	if score.HesitationScore != 25 {
		t.Fatalf("hesitation score = %d, want 25 (1 of 4 events)", score.HesitationScore)
	}
	if score.TotalHovers != 1 {
		t.Fatalf("total hovers = %d, want 1 (add_to_cart_hover is not a hover)", score.TotalHovers)
	}
}

func TestAuxiliaryAggregates(t *testing.T) {
	now := time.Now()
	events := []models.InterestEvent{
		event("s1", models.EventTimeOnPage, 60000, time.Hour, now),
		event("s2", models.EventTimeOnPage, 30000, time.Hour, now),
		event("s2", models.EventReturnVisit, 1, time.Hour, now),
		event("s3", models.EventHover, 2500, time.Hour, now),
	}

	score := CalculateProductScore("prod-1", events, now)
	if score.UniqueSessions != 3 {
		t.Fatalf("unique sessions = %d, want 3", score.UniqueSessions)
	}
	if score.ReturnVisitors != 1 {
		t.Fatalf("return visitors = %d, want 1", score.ReturnVisitors)
	}
	// 90000ms dwell over 3 sessions.
	if score.AvgTimeOnPage != 30000 {
		t.Fatalf("avg time on page = %d, want 30000", score.AvgTimeOnPage)
	}
}
