package scheduler

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestNewRejectsInvalidSchedule(t *testing.T) {
	_, err := New("not a cron spec", func(ctx context.Context) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "invalid recalc schedule") {
		t.Fatalf("expected schedule validation error, got %v", err)
	}
}

func TestNewAcceptsStandardSpecs(t *testing.T) {
	for _, spec := range []string{"@hourly", "@every 15m", "0 3 * * *", "*/5 * * * *"} {
		if _, err := New(spec, func(ctx context.Context) error { return nil }); err != nil {
			t.Fatalf("expected %q to be accepted, got %v", spec, err)
		}
	}
}

func TestStartStopLifecycle(t *testing.T) {
	s, err := New("@hourly", func(ctx context.Context) error { return nil })
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	s.Start()
	done := s.Stop()

	select {
	case <-done.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop in time")
	}
}
