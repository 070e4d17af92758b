package models

import "time"

// EventType classifies a single recorded interaction signal.
type EventType string

// Closed set of interest event types. Unknown types are tolerated by the
// scoring engine (they carry zero weight) so the enum can grow without
// breaking older readers.
const (
	EventHover           EventType = "hover"
	EventImageView       EventType = "image_view"
	EventPriceFocus      EventType = "price_focus"
	EventDescriptionRead EventType = "description_read"
	EventQuantityChange  EventType = "quantity_change"
	EventAddToCartHover  EventType = "add_to_cart_hover"
	EventReturnVisit     EventType = "return_visit"
	EventTimeOnPage      EventType = "time_on_page"
	EventScrollDepth     EventType = "scroll_depth"
	EventAddToCart       EventType = "add_to_cart"
	EventCheckoutIntent  EventType = "checkout_intent"
	EventComparisonView  EventType = "comparison_view"
)

// KnownEventTypes lists every event type the classifier can emit.
var KnownEventTypes = []EventType{
	EventHover,
	EventImageView,
	EventPriceFocus,
	EventDescriptionRead,
	EventQuantityChange,
	EventAddToCartHover,
	EventReturnVisit,
	EventTimeOnPage,
	EventScrollDepth,
	EventAddToCart,
	EventCheckoutIntent,
	EventComparisonView,
}

// InterestEvent is one immutable, classified interaction fact.
type InterestEvent struct {
	SessionID string            `json:"session_id"`
	ProductID string            `json:"product_id"`
	EventType EventType         `json:"event_type"`
	Value     float64           `json:"event_value"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// InterestLevel buckets an interest score.
type InterestLevel string

const (
	LevelHot  InterestLevel = "hot"
	LevelWarm InterestLevel = "warm"
	LevelCool InterestLevel = "cool"
	LevelCold InterestLevel = "cold"
)

// InterestScore is the per-product scoring result. One row per product,
// fully replaced on each recalculation; never incremented in place.
type InterestScore struct {
	ProductID       string        `json:"product_id" db:"product_id"`
	InterestScore   int           `json:"interest_score" db:"interest_score"`
	InterestLevel   InterestLevel `json:"interest_level" db:"interest_level"`
	BuyerConfidence int           `json:"buyer_confidence" db:"buyer_confidence"`
	HesitationScore int           `json:"hesitation_score" db:"hesitation_score"`
	UniqueSessions  int           `json:"unique_sessions" db:"unique_sessions"`
	ReturnVisitors  int           `json:"return_visitors" db:"return_visitors"`
	AvgTimeOnPage   int           `json:"avg_time_on_page" db:"avg_time_on_page"` // milliseconds
	TotalHovers     int           `json:"total_hovers" db:"total_hovers"`
	TotalAddToCart  int           `json:"total_add_to_cart" db:"total_add_to_cart"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`
}

// ProductAnalytics holds the monotonically incremented funnel counters
// for one product. Unlike InterestScore these are never recomputed from
// event history; the value after N increments equals the sum of the N
// deltas.
type ProductAnalytics struct {
	ProductID        string    `json:"product_id" db:"product_id"`
	Impressions      int64     `json:"impressions" db:"impressions"`
	Clicks           int64     `json:"clicks" db:"clicks"`
	AddToCartCount   int64     `json:"add_to_cart_count" db:"add_to_cart_count"`
	CheckoutIntents  int64     `json:"checkout_intents" db:"checkout_intents"`
	TotalTimeOnPage  float64   `json:"total_time_on_page" db:"total_time_on_page"`
	TotalScrollDepth float64   `json:"total_scroll_depth" db:"total_scroll_depth"`
	ViewCount        int64     `json:"view_count" db:"view_count"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// AnalyticsDelta is one increment applied to ProductAnalytics.
type AnalyticsDelta struct {
	Impressions     int64
	Clicks          int64
	AddToCartCount  int64
	CheckoutIntents int64
	TimeOnPage      float64
	ScrollDepth     float64
	ViewCount       int64
}

// IsZero reports whether the delta would change nothing.
func (d AnalyticsDelta) IsZero() bool {
	return d == AnalyticsDelta{}
}

// ComputedAnalytics carries the derived funnel rates consumed by the
// viability calculator.
type ComputedAnalytics struct {
	ProductID       string  `json:"product_id"`
	Impressions     int64   `json:"impressions"`
	Clicks          int64   `json:"clicks"`
	CTR             float64 `json:"ctr"`
	AvgScrollDepth  float64 `json:"avg_scroll_depth"`
	AvgTimeOnPage   float64 `json:"avg_time_on_page"`
	AddToCartCount  int64   `json:"add_to_cart_count"`
	AddToCartRate   float64 `json:"add_to_cart_rate"`
	CheckoutIntents int64   `json:"checkout_intents"`
	CheckoutRate    float64 `json:"checkout_rate"`
}

// Recommendation is the viability verdict for a product listing.
type Recommendation string

const (
	RecommendKill  Recommendation = "kill"
	RecommendTest  Recommendation = "test"
	RecommendScale Recommendation = "scale"
)

// ViabilityBreakdown exposes the rounded component scores.
type ViabilityBreakdown struct {
	CTRScore            int `json:"ctr_score"`
	AddToCartScore      int `json:"add_to_cart_score"`
	CheckoutScore       int `json:"checkout_score"`
	EngagementScore     int `json:"engagement_score"`
	PriceToleranceScore int `json:"price_tolerance_score"`
}

// ViabilityScore is the kill/test/scale verdict computed from a
// ProductAnalytics snapshot. Derived on read, not persisted.
type ViabilityScore struct {
	ProductID      string             `json:"product_id"`
	Score          int                `json:"score"`
	Recommendation Recommendation     `json:"recommendation"`
	Breakdown      ViabilityBreakdown `json:"breakdown"`
	Explanation    string             `json:"explanation"`
}

// EventStats aggregates events of one type for a product.
type EventStats struct {
	Count      int     `json:"count"`
	TotalValue float64 `json:"total_value"`
}
