package normalize

import (
	"strings"
	"testing"
)

func TestNormalizeIdempotentOnCanonical(t *testing.T) {
	msg := "<34>1 2025-06-11T12:00:00.000Z testhost testapp 1234 - - hello"
	if got := Normalize(msg); got != msg {
		t.Fatalf("expected idempotence, got %q", got)
	}
}

func TestNormalizeRFC3164WithPID(t *testing.T) {
	msg := "<13>Feb 5 10:01:02 host CRON[12345]: (root) CMD (x)"
	got := Normalize(msg)
	if !strings.HasPrefix(got, "<13>1 ") {
		t.Fatalf("expected canonical PRI prefix, got %q", got)
	}
	if !strings.Contains(got, " host CRON 12345 - - (root) CMD (x)") {
		t.Fatalf("expected app/procid/message to be split, got %q", got)
	}
}

func TestNormalizeRFC3164WithoutPID(t *testing.T) {
	msg := "<14>Jun 11 08:00:00 myhost myapp: plain message"
	got := Normalize(msg)
	if !strings.Contains(got, " myhost myapp - - - plain message") {
		t.Fatalf("expected procid '-', got %q", got)
	}
}

func TestNormalizeUnmatchedPassesThrough(t *testing.T) {
	msg := "this is not syslog shaped at all"
	if got := Normalize(msg); got != msg {
		t.Fatalf("expected unchanged passthrough, got %q", got)
	}
}
