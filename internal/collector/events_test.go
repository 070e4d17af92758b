package collector

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopsignal/shopsignal/internal/models"
)

func eventPage(n int) []models.InterestEvent {
	page := make([]models.InterestEvent, n)
	for i := range page {
		page[i] = models.InterestEvent{
			SessionID: "s1",
			ProductID: "prod-1",
			EventType: models.EventHover,
			Value:     3000,
		}
	}
	return page
}

func TestCollectWindowPaginatesUntilShortPage(t *testing.T) {
	var offsets []int
	pages := map[int]int{0: 2, 2: 2, 4: 1} // final short page ends the walk

	events, err := collectWindow(context.Background(), 2, 100,
		func(_ context.Context, limit, offset int) ([]models.InterestEvent, error) {
			offsets = append(offsets, offset)
			return eventPage(pages[offset]), nil
		})
	if err != nil {
		t.Fatalf("collectWindow failed: %v", err)
	}
	if len(events) != 5 {
		t.Fatalf("collected %d events, want 5", len(events))
	}
	if len(offsets) != 3 || offsets[0] != 0 || offsets[1] != 2 || offsets[2] != 4 {
		t.Fatalf("unexpected page offsets: %v", offsets)
	}
}

func TestCollectWindowRejectsTruncatedWindow(t *testing.T) {
	// Every page is full: the window is larger than the cap allows.
	_, err := collectWindow(context.Background(), 2, 4,
		func(_ context.Context, limit, offset int) ([]models.InterestEvent, error) {
			return eventPage(limit), nil
		})
	if err == nil || !strings.Contains(err.Error(), "exceeds max rows") {
		t.Fatalf("expected row-cap failure, got %v", err)
	}
}

func TestCollectWindowExactCapSucceeds(t *testing.T) {
	pages := map[int]int{0: 2, 2: 2} // exactly maxRows, then an empty page

	events, err := collectWindow(context.Background(), 2, 4,
		func(_ context.Context, limit, offset int) ([]models.InterestEvent, error) {
			return eventPage(pages[offset]), nil
		})
	if err != nil {
		t.Fatalf("window at the cap must not fail: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("collected %d events, want 4", len(events))
	}
}

func TestCollectWindowPropagatesQueryError(t *testing.T) {
	boom := errors.New("connection reset")
	_, err := collectWindow(context.Background(), 2, 100,
		func(_ context.Context, limit, offset int) ([]models.InterestEvent, error) {
			return nil, boom
		})
	if err == nil || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped query error, got %v", err)
	}
	if !strings.Contains(err.Error(), "offset 0") {
		t.Fatalf("expected failing offset in error, got %v", err)
	}
}

func TestCollectWindowHonorsQueryTimeout(t *testing.T) {
	ctx, cancel := withTotalTimeoutContext(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := collectWindow(ctx, 2, 100,
		func(ctx context.Context, limit, offset int) ([]models.InterestEvent, error) {
			select {
			case <-ctx.Done():
				return nil, context.Cause(ctx)
			case <-time.After(500 * time.Millisecond):
				return eventPage(limit), nil
			}
		})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
