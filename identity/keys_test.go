package identity

import (
	"strings"
	"testing"
	"time"
)

func TestSignalKeyDeterministic(t *testing.T) {
	a := SignalKey("listing-1", "s1-abc", "opinion")
	b := SignalKey("listing-1", "s1-abc", "opinion")
	if a != b {
		t.Fatalf("expected same key, got %s and %s", a, b)
	}
	if len(a) != 32 {
		t.Fatalf("expected 32 hex chars, got %d", len(a))
	}
}

func TestSignalKeyDistinguishesInputs(t *testing.T) {
	base := SignalKey("listing-1", "s1-abc", "opinion")
	if SignalKey("listing-2", "s1-abc", "opinion") == base {
		t.Fatalf("listing must change the key")
	}
	if SignalKey("listing-1", "s1-abd", "opinion") == base {
		t.Fatalf("session must change the key")
	}
	if SignalKey("listing-1", "s1-abc", "like") == base {
		t.Fatalf("kind must change the key")
	}
	if SignalKey(" listing-1 ", "s1-abc", "OPINION") != base {
		t.Fatalf("expected whitespace and case to be normalized")
	}
}

func TestNewSessionID(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := NewSessionID(now)
	b := NewSessionID(now)
	if a == b {
		t.Fatalf("expected random suffix to differ, got %s twice", a)
	}
	if !strings.HasPrefix(a, "s") || !strings.Contains(a, "-") {
		t.Fatalf("unexpected session id format %s", a)
	}
	if strings.SplitN(a, "-", 2)[0] != strings.SplitN(b, "-", 2)[0] {
		t.Fatalf("expected same timestamp prefix for %s and %s", a, b)
	}
}
