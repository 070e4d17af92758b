package scoring

import (
	"math"
	"time"

	"github.com/shopsignal/shopsignal/internal/models"
)

// Scoring contract constants. The lookback window and decay rate are
// fixed defaults, not tunables; changing them changes score meaning for
// every stored row.
const (
	// LookbackWindow is the trailing window of events considered by a
	// recalculation.
	LookbackWindow = 30 * 24 * time.Hour

	// DecayRatePerDay is the continuous exponential decay applied to
	// event age: a 10-day-old event contributes at e^-1 of its weight.
	DecayRatePerDay = 0.1

	// Value caps used during normalization.
	timeOnPageCapMs = 120000 // 2 minutes dwell
	hoverCapMs      = 10000  // 10 seconds
)

// signalWeights maps each event type to its contribution weight.
// Unknown types score zero, never error.
var signalWeights = map[models.EventType]float64{
	models.EventAddToCart:       25,
	models.EventCheckoutIntent:  20,
	models.EventReturnVisit:     15,
	models.EventTimeOnPage:      12,
	models.EventHover:           10,
	models.EventScrollDepth:     8,
	models.EventQuantityChange:  5,
	models.EventComparisonView:  3,
	models.EventDescriptionRead: 2,
	models.EventImageView:       3,
	models.EventPriceFocus:      4,
	models.EventAddToCartHover:  6,
}

// MaxPossibleScore is the sum of all signal weights, the denominator of
// the 0-100 scaling.
func MaxPossibleScore() float64 {
	total := 0.0
	for _, w := range signalWeights {
		total += w
	}
	return total
}

// SignalWeight returns the weight for an event type, zero if unknown.
func SignalWeight(t models.EventType) float64 {
	return signalWeights[t]
}

// Decay returns the temporal decay factor for an event created at the
// given time, evaluated at now. Fractional days are not floored.
func Decay(createdAt, now time.Time) float64 {
	ageDays := now.Sub(createdAt).Hours() / 24
	return math.Exp(-DecayRatePerDay * ageDays)
}

// normalizeValue maps a raw event value into [0,1] per event type.
// Malformed values (NaN, Inf) normalize to zero: scoring never blocks
// on noisy telemetry.
func normalizeValue(t models.EventType, value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		value = 0
	}
	switch t {
	case models.EventTimeOnPage:
		return math.Min(value/timeOnPageCapMs, 1)
	case models.EventScrollDepth:
		return value / 100
	case models.EventHover:
		return math.Min(value/hoverCapMs, 1)
	default:
		return 1
	}
}

// LevelForScore buckets a 0-100 score. Lower bounds are inclusive.
func LevelForScore(score int) models.InterestLevel {
	switch {
	case score >= 70:
		return models.LevelHot
	case score >= 45:
		return models.LevelWarm
	case score >= 20:
		return models.LevelCool
	default:
		return models.LevelCold
	}
}

// CalculateProductScore reduces the event set for one product into a
// single InterestScore. The caller supplies events already filtered to
// the lookback window and the evaluation time used for decay. The
// computation is pure and idempotent; an empty event set yields a cold
// zero score.
func CalculateProductScore(productID string, events []models.InterestEvent, now time.Time) models.InterestScore {
	var (
		totalScore      float64
		hesitationCount int
		addToCartCount  int
		hoverCount      int
		totalTimeOnPage float64
	)

	uniqueSessions := make(map[string]struct{})
	returnVisitors := make(map[string]struct{})

	for _, event := range events {
		uniqueSessions[event.SessionID] = struct{}{}

		weight := signalWeights[event.EventType]
		decay := Decay(event.CreatedAt, now)
		normalized := normalizeValue(event.EventType, event.Value)

		totalScore += weight * normalized * decay

		switch event.EventType {
		case models.EventTimeOnPage:
			if !math.IsNaN(event.Value) && !math.IsInf(event.Value, 0) {
				totalTimeOnPage += event.Value
			}
		case models.EventHover:
			hoverCount++
		case models.EventAddToCartHover:
			hesitationCount++
		case models.EventAddToCart:
			addToCartCount++
		case models.EventReturnVisit:
			returnVisitors[event.SessionID] = struct{}{}
		}
	}

	interestScore := int(math.Min(math.Round(totalScore/MaxPossibleScore()*100), 100))

	// Ratio of counts, not deduplicated sessions: a session adding to
	// cart three times counts three in the numerator but one in the
	// denominator, so confidence may exceed 100.
	buyerConfidence := 0
	if len(uniqueSessions) > 0 {
		buyerConfidence = int(math.Round(float64(addToCartCount) / float64(len(uniqueSessions)) * 100))
	}

	hesitationScore := 0
	if len(events) > 0 {
		hesitationScore = int(math.Round(float64(hesitationCount) / float64(len(events)) * 100))
	}

	avgTimeOnPage := 0
	if len(uniqueSessions) > 0 {
		avgTimeOnPage = int(math.Round(totalTimeOnPage / float64(len(uniqueSessions))))
	}

	return models.InterestScore{
		ProductID:       productID,
		InterestScore:   interestScore,
		InterestLevel:   LevelForScore(interestScore),
		BuyerConfidence: buyerConfidence,
		HesitationScore: hesitationScore,
		UniqueSessions:  len(uniqueSessions),
		ReturnVisitors:  len(returnVisitors),
		AvgTimeOnPage:   avgTimeOnPage,
		TotalHovers:     hoverCount,
		TotalAddToCart:  addToCartCount,
		UpdatedAt:       now,
	}
}
