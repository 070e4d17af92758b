package scoring

import (
	"fmt"
	"math"

	"github.com/shopsignal/shopsignal/internal/models"
)

// Viability component weights. Checkout conversion dominates because it
// is the strongest purchase-intent signal available from counters.
const (
	ctrWeight            = 0.20
	addToCartWeight      = 0.25
	checkoutWeight       = 0.30
	engagementWeight     = 0.15
	priceToleranceWeight = 0.10
)

// ComputeAnalytics derives funnel rates from raw counters. Each rate
// guards its own zero denominator; view count is floored to one.
func ComputeAnalytics(a models.ProductAnalytics) models.ComputedAnalytics {
	viewCount := a.ViewCount
	if viewCount < 1 {
		viewCount = 1
	}

	ctr := 0.0
	if a.Impressions > 0 {
		ctr = float64(a.Clicks) / float64(a.Impressions) * 100
	}

	addToCartRate := 0.0
	if a.Clicks > 0 {
		addToCartRate = float64(a.AddToCartCount) / float64(a.Clicks) * 100
	}

	checkoutRate := 0.0
	if a.AddToCartCount > 0 {
		checkoutRate = float64(a.CheckoutIntents) / float64(a.AddToCartCount) * 100
	}

	return models.ComputedAnalytics{
		ProductID:       a.ProductID,
		Impressions:     a.Impressions,
		Clicks:          a.Clicks,
		CTR:             ctr,
		AvgScrollDepth:  a.TotalScrollDepth / float64(viewCount),
		AvgTimeOnPage:   a.TotalTimeOnPage / float64(viewCount),
		AddToCartCount:  a.AddToCartCount,
		AddToCartRate:   addToCartRate,
		CheckoutIntents: a.CheckoutIntents,
		CheckoutRate:    checkoutRate,
	}
}

// CalculateViabilityScore turns derived funnel rates into a
// kill/test/scale verdict. Breakdown components are rounded for
// reporting; the weighted total uses the unrounded components.
func CalculateViabilityScore(a models.ComputedAnalytics) models.ViabilityScore {
	ctrScore := math.Min(a.CTR*10, 100)
	addToCartScore := math.Min(a.AddToCartRate*5, 100)
	checkoutScore := math.Min(a.CheckoutRate*2, 100)
	engagementScore := math.Min(a.AvgScrollDepth+a.AvgTimeOnPage/2, 100)
	priceToleranceScore := math.Min(a.CheckoutRate*3, 100)

	totalScore := ctrScore*ctrWeight +
		addToCartScore*addToCartWeight +
		checkoutScore*checkoutWeight +
		engagementScore*engagementWeight +
		priceToleranceScore*priceToleranceWeight

	var recommendation models.Recommendation
	var explanation string

	switch {
	case totalScore >= 65:
		recommendation = models.RecommendScale
		explanation = fmt.Sprintf(
			"Strong performance across all metrics. %.1f%% CTR and %.1f%% checkout rate indicate high purchase intent. Ready for real fulfillment.",
			a.CTR, a.CheckoutRate)
	case totalScore >= 35:
		recommendation = models.RecommendTest
		explanation = fmt.Sprintf(
			"Mixed signals require optimization. Consider A/B testing price points or improving product images. Current %.1f%% add-to-cart rate shows interest.",
			a.AddToCartRate)
	default:
		recommendation = models.RecommendKill
		explanation = fmt.Sprintf(
			"Low engagement metrics suggest weak product-market fit. %.1f%% CTR and %.0fs avg time indicate lack of interest.",
			a.CTR, a.AvgTimeOnPage)
	}

	return models.ViabilityScore{
		ProductID:      a.ProductID,
		Score:          int(math.Round(totalScore)),
		Recommendation: recommendation,
		Breakdown: models.ViabilityBreakdown{
			CTRScore:            int(math.Round(ctrScore)),
			AddToCartScore:      int(math.Round(addToCartScore)),
			CheckoutScore:       int(math.Round(checkoutScore)),
			EngagementScore:     int(math.Round(engagementScore)),
			PriceToleranceScore: int(math.Round(priceToleranceScore)),
		},
		Explanation: explanation,
	}
}
