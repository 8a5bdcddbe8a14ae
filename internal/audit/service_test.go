package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"retell-pos-bridge/internal/functions"
)

func TestService_AppendRequiresFunctionName(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	if err := svc.Append(context.Background(), Event{CallID: "c1"}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
	if err := NewService(nil).Append(context.Background(), Event{FunctionName: "x"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestService_RecordCall(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	svc.RecordCall(context.Background(), functions.CallRecord{
		FunctionName: "create_booking",
		CallID:       "call-1",
		Status:       200,
		OK:           true,
		BookingID:    "BK-1",
		Duration:     1500 * time.Millisecond,
	})

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	e := evs[0]
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp filled: %+v", e)
	}
	if e.FunctionName != "create_booking" || e.BookingID != "BK-1" || e.DurationMS != 1500 {
		t.Fatalf("unexpected event %+v", e)
	}
}

func TestService_RecordCallSurvivesCanceledRequest(t *testing.T) {
	repo := NewMemoryRepo()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewService(repo).RecordCall(ctx, functions.CallRecord{FunctionName: "update_appt_detail", Status: 200, OK: true})
	if len(repo.Events()) != 1 {
		t.Fatalf("expected event recorded after cancel")
	}
}

func TestService_RecentNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	for _, name := range []string{"a", "b", "c"} {
		if err := svc.Append(context.Background(), Event{FunctionName: name}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	evs, err := svc.Recent(context.Background(), 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(evs) != 2 || evs[0].FunctionName != "c" || evs[1].FunctionName != "b" {
		t.Fatalf("unexpected order %+v", evs)
	}
}

func TestClampLimit(t *testing.T) {
	if ClampLimit(0) != DefaultListLimit || ClampLimit(-3) != DefaultListLimit {
		t.Fatalf("expected default for non-positive")
	}
	if ClampLimit(10_000) != MaxListLimit {
		t.Fatalf("expected max clamp")
	}
	if ClampLimit(7) != 7 {
		t.Fatalf("expected passthrough")
	}
}
