package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/shopsignal/shopsignal/internal/models"
)

// EventAppender persists classified events. Append-only; the tracker
// never mutates or deletes.
type EventAppender interface {
	Append(ctx context.Context, event models.InterestEvent) error
}

// ProfileStore receives the tracker's side effects: funnel counter
// increments and session-profile upserts.
type ProfileStore interface {
	ApplyAnalyticsDelta(ctx context.Context, productID string, delta models.AnalyticsDelta) error
	UpsertSessionProfile(ctx context.Context, sessionID, productID string, isReturnVisitor bool) error
}

// Tracker converts raw UI triggers into persisted events. Every emitting
// path appends the event, upserts the session profile, and applies the
// counter delta for that event type. Suppressed signals do nothing.
type Tracker struct {
	sessions SessionStore
	events   EventAppender
	profiles ProfileStore
	now      func() time.Time
}

// NewTracker wires a tracker over its collaborators.
func NewTracker(sessions SessionStore, events EventAppender, profiles ProfileStore) *Tracker {
	return &Tracker{
		sessions: sessions,
		events:   events,
		profiles: profiles,
		now:      time.Now,
	}
}

// SessionID returns this tracker's stable session identifier.
func (t *Tracker) SessionID() string {
	return GetOrCreateSessionID(t.sessions)
}

// ForSession returns a tracker bound to one visitor's session id.
// Viewed-products and return-visit state live under that id in the
// shared backing store, so concurrent visitors never see each other's
// history.
func (t *Tracker) ForSession(sessionID string) *Tracker {
	return &Tracker{
		sessions: scopedStore{store: t.sessions, sessionID: sessionID},
		events:   t.events,
		profiles: t.profiles,
		now:      t.now,
	}
}

func (t *Tracker) emit(ctx context.Context, productID string, sig Signal, metadata map[string]string) error {
	event := models.InterestEvent{
		SessionID: t.SessionID(),
		ProductID: productID,
		EventType: sig.Type,
		Value:     sig.Value,
		Metadata:  metadata,
		CreatedAt: t.now(),
	}

	if err := t.events.Append(ctx, event); err != nil {
		return fmt.Errorf("append %s event for %s: %w", sig.Type, productID, err)
	}

	wasViewed := IsReturnVisitor(t.sessions, productID)
	if err := t.profiles.UpsertSessionProfile(ctx, event.SessionID, productID, wasViewed); err != nil {
		return fmt.Errorf("upsert session profile %s: %w", event.SessionID, err)
	}

	if delta := counterDelta(sig); !delta.IsZero() {
		if err := t.profiles.ApplyAnalyticsDelta(ctx, productID, delta); err != nil {
			return fmt.Errorf("apply analytics delta for %s: %w", productID, err)
		}
	}

	return nil
}

// TrackPageOpen emits a return_visit event when the product was seen in
// an earlier session, then durably marks the product as viewed.
func (t *Tracker) TrackPageOpen(ctx context.Context, productID string) error {
	var err error
	if IsReturnVisitor(t.sessions, productID) {
		err = t.emit(ctx, productID, Signal{Type: models.EventReturnVisit, Value: 1}, nil)
	}
	AddViewedProduct(t.sessions, productID)
	return err
}

// TrackHover records a product-card hover if it clears the threshold.
func (t *Tracker) TrackHover(ctx context.Context, productID string, duration time.Duration) error {
	sig, ok := ClassifyHover(duration)
	if !ok {
		return nil
	}
	return t.emit(ctx, productID, sig, map[string]string{"source": "product_card"})
}

// TrackAddToCartHover records hesitation: a long hover that did not
// convert into a click.
func (t *Tracker) TrackAddToCartHover(ctx context.Context, productID string, duration time.Duration, didClick bool) error {
	sig, ok := ClassifyAddToCartHover(duration, didClick)
	if !ok {
		return nil
	}
	return t.emit(ctx, productID, sig, map[string]string{"hesitation": "true"})
}

// TrackPriceHover records sustained attention on the price element.
func (t *Tracker) TrackPriceHover(ctx context.Context, productID string, duration time.Duration) error {
	sig, ok := ClassifyPriceHover(duration)
	if !ok {
		return nil
	}
	return t.emit(ctx, productID, sig, nil)
}

// TrackTimeOnPage records dwell time at page close if over threshold.
func (t *Tracker) TrackTimeOnPage(ctx context.Context, productID string, duration time.Duration) error {
	sig, ok := ClassifyTimeOnPage(duration)
	if !ok {
		return nil
	}
	return t.emit(ctx, productID, sig, nil)
}

// TrackScrollDepth records the max scroll depth reached, if meaningful.
func (t *Tracker) TrackScrollDepth(ctx context.Context, productID string, maxPercent float64) error {
	sig, ok := ClassifyScrollDepth(maxPercent)
	if !ok {
		return nil
	}
	return t.emit(ctx, productID, sig, nil)
}

// TrackImageView records a gallery interaction.
func (t *Tracker) TrackImageView(ctx context.Context, productID string) error {
	return t.emit(ctx, productID, Signal{Type: models.EventImageView, Value: 1}, nil)
}

// TrackDescriptionRead records how far the description was read.
func (t *Tracker) TrackDescriptionRead(ctx context.Context, productID string, readPercent float64) error {
	return t.emit(ctx, productID, Signal{Type: models.EventDescriptionRead, Value: readPercent}, nil)
}

// TrackQuantityChange records a quantity selector change.
func (t *Tracker) TrackQuantityChange(ctx context.Context, productID string, quantity int) error {
	return t.emit(ctx, productID, Signal{Type: models.EventQuantityChange, Value: float64(quantity)}, nil)
}

// TrackComparisonView records the product appearing in a comparison.
func (t *Tracker) TrackComparisonView(ctx context.Context, productID string) error {
	return t.emit(ctx, productID, Signal{Type: models.EventComparisonView, Value: 1}, nil)
}

// TrackAddToCart records a conversion signal.
func (t *Tracker) TrackAddToCart(ctx context.Context, productID string) error {
	return t.emit(ctx, productID, Signal{Type: models.EventAddToCart, Value: 1}, nil)
}

// TrackCheckoutIntent records the strongest pre-purchase signal.
func (t *Tracker) TrackCheckoutIntent(ctx context.Context, productID string) error {
	return t.emit(ctx, productID, Signal{Type: models.EventCheckoutIntent, Value: 1}, nil)
}

// TrackImpression increments the impressions counter. Counter-only:
// impressions feed viability rates, not the interest event stream.
func (t *Tracker) TrackImpression(ctx context.Context, productID string) error {
	return t.profiles.ApplyAnalyticsDelta(ctx, productID, models.AnalyticsDelta{Impressions: 1})
}

// TrackClick increments the clicks counter. Counter-only.
func (t *Tracker) TrackClick(ctx context.Context, productID string) error {
	return t.profiles.ApplyAnalyticsDelta(ctx, productID, models.AnalyticsDelta{Clicks: 1})
}
