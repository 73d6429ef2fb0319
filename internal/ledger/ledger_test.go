package ledger

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestAppendAndRecent(t *testing.T) {
	l := openTestLedger(t)

	base := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	events := []Event{
		{Type: EventModeTransition, Timestamp: base, ModeFrom: "off", ModeTo: "sonify", SessionID: "s1"},
		{Type: EventPowerSet, Timestamp: base.Add(time.Second), Detail: "on"},
		{Type: EventModeTransition, Timestamp: base.Add(time.Hour), ModeFrom: "sonify", ModeTo: "weather", SessionID: "s2"},
	}
	for _, ev := range events {
		if err := l.Append(ev); err != nil {
			t.Fatalf("Append() error: %v", err)
		}
	}

	got, err := l.Recent(10)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Recent() returned %d events, want 3", len(got))
	}
	if got[0].Type != EventModeTransition || got[0].ModeTo != "weather" {
		t.Errorf("newest event = %+v, want the weather transition", got[0])
	}
	if got[0].ID == "" {
		t.Error("Append should assign an id")
	}

	got, err = l.Recent(1)
	if err != nil {
		t.Fatalf("Recent(1) error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Recent(1) returned %d events", len(got))
	}
}

func TestAppendAssignsTimestamp(t *testing.T) {
	l := openTestLedger(t)

	before := time.Now().Add(-time.Second)
	if err := l.Append(Event{Type: EventCacheCleanup}); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	got, err := l.Recent(1)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(got) != 1 {
		t.Fatal("expected one event")
	}
	if got[0].Timestamp.Before(before) {
		t.Errorf("timestamp = %v, expected it to be assigned at append time", got[0].Timestamp)
	}
}

func TestDeleteOlderThan(t *testing.T) {
	l := openTestLedger(t)

	base := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		ev := Event{Type: EventPowerSet, Timestamp: base.Add(time.Duration(i) * 24 * time.Hour)}
		if err := l.Append(ev); err != nil {
			t.Fatalf("Append() error: %v", err)
		}
	}

	deleted, err := l.DeleteOlderThan(base.Add(2 * 24 * time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan() error: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	got, err := l.Recent(10)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("remaining events = %d, want 3", len(got))
	}
}
