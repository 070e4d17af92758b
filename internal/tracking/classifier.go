package tracking

import (
	"time"

	"github.com/shopsignal/shopsignal/internal/models"
)

// Debounce thresholds. Interactions below these never become events;
// suppression is silent so the user-facing flow is never blocked on a
// scoring concern.
const (
	HoverThreshold          = 2000 * time.Millisecond
	AddToCartHoverThreshold = 1000 * time.Millisecond
	PriceHoverThreshold     = 1500 * time.Millisecond
	TimeOnPageThreshold     = 5000 * time.Millisecond
	ScrollDepthThreshold    = 25 // percent
)

// Signal is a classified interaction ready to become an InterestEvent.
type Signal struct {
	Type  models.EventType
	Value float64
}

// ClassifyHover emits a hover signal for dwell strictly over 2s.
func ClassifyHover(duration time.Duration) (Signal, bool) {
	if duration <= HoverThreshold {
		return Signal{}, false
	}
	return Signal{Type: models.EventHover, Value: float64(duration.Milliseconds())}, true
}

// ClassifyAddToCartHover emits a hesitation signal: a prolonged hover
// over the add-to-cart affordance without a click. A hover that ended
// in a click never records hesitation.
func ClassifyAddToCartHover(duration time.Duration, didClick bool) (Signal, bool) {
	if didClick || duration <= AddToCartHoverThreshold {
		return Signal{}, false
	}
	return Signal{Type: models.EventAddToCartHover, Value: float64(duration.Milliseconds())}, true
}

// ClassifyPriceHover emits price_focus for dwell strictly over 1.5s.
func ClassifyPriceHover(duration time.Duration) (Signal, bool) {
	if duration <= PriceHoverThreshold {
		return Signal{}, false
	}
	return Signal{Type: models.EventPriceFocus, Value: float64(duration.Milliseconds())}, true
}

// ClassifyTimeOnPage emits time_on_page for visits strictly over 5s.
func ClassifyTimeOnPage(duration time.Duration) (Signal, bool) {
	if duration <= TimeOnPageThreshold {
		return Signal{}, false
	}
	return Signal{Type: models.EventTimeOnPage, Value: float64(duration.Milliseconds())}, true
}

// ClassifyScrollDepth emits scroll_depth for max depth strictly over 25%.
func ClassifyScrollDepth(maxPercent float64) (Signal, bool) {
	if maxPercent <= ScrollDepthThreshold {
		return Signal{}, false
	}
	return Signal{Type: models.EventScrollDepth, Value: maxPercent}, true
}

// counterDelta maps a classified event onto the aggregate funnel
// counters it increments.
func counterDelta(sig Signal) models.AnalyticsDelta {
	switch sig.Type {
	case models.EventAddToCart:
		return models.AnalyticsDelta{AddToCartCount: 1}
	case models.EventCheckoutIntent:
		return models.AnalyticsDelta{CheckoutIntents: 1}
	case models.EventTimeOnPage:
		return models.AnalyticsDelta{TimeOnPage: sig.Value, ViewCount: 1}
	case models.EventScrollDepth:
		return models.AnalyticsDelta{ScrollDepth: sig.Value}
	default:
		return models.AnalyticsDelta{}
	}
}
