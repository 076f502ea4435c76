package parsing

import (
	"testing"
	"time"
)

func TestParseDatagramRFC5424(t *testing.T) {
	raw := "<34>1 2025-06-11T12:00:00.000Z testhost testapp 1234 - - hello"
	receivedAt := time.Date(2025, 6, 11, 12, 0, 1, 0, time.UTC)
	rec := ParseDatagram(raw, "10.0.0.1", receivedAt)

	if rec.Facility != 4 || rec.Priority != 2 {
		t.Fatalf("expected facility=4 priority=2, got facility=%d priority=%d", rec.Facility, rec.Priority)
	}
	if rec.FromHost != "testhost" {
		t.Fatalf("expected testhost, got %q", rec.FromHost)
	}
	if rec.SysLogTag != "testapp" || rec.ProcessID != "1234" {
		t.Fatalf("expected testapp/1234, got %q/%q", rec.SysLogTag, rec.ProcessID)
	}
	if rec.Message != "hello" {
		t.Fatalf("expected message 'hello', got %q", rec.Message)
	}
	if rec.PartitionKey() != "202506" {
		t.Fatalf("expected partition 202506, got %q", rec.PartitionKey())
	}
}

func TestParseDatagramRFC3164(t *testing.T) {
	raw := "<13>Feb 5 10:01:02 host CRON[12345]: (root) CMD (x)"
	receivedAt := time.Now().UTC()
	rec := ParseDatagram(raw, "10.0.0.2", receivedAt)

	if rec.SysLogTag != "CRON" || rec.ProcessID != "12345" {
		t.Fatalf("expected CRON/12345, got %q/%q", rec.SysLogTag, rec.ProcessID)
	}
	if rec.Message != "(root) CMD (x)" {
		t.Fatalf("expected message '(root) CMD (x)', got %q", rec.Message)
	}
}

func TestParseHostFallsBackToPeer(t *testing.T) {
	raw := "<34>1 2025-06-11T12:00:00.000Z - testapp - - - hello"
	rec := ParseDatagram(raw, "192.0.2.7", time.Now().UTC())
	if rec.FromHost != "192.0.2.7" {
		t.Fatalf("expected peer fallback, got %q", rec.FromHost)
	}
	if rec.SysLogTag != "testapp" {
		t.Fatalf("expected testapp, got %q", rec.SysLogTag)
	}
	if rec.ProcessID != "0" {
		t.Fatalf("expected procid 0, got %q", rec.ProcessID)
	}
}

func TestParseFailOpen(t *testing.T) {
	rec := ParseDatagram("not syslog shaped at all", "10.0.0.3", time.Now().UTC())
	if rec.SysLogTag != "UNKNOWN" || rec.ProcessID != "0" {
		t.Fatalf("expected fail-open defaults, got %q/%q", rec.SysLogTag, rec.ProcessID)
	}
	if rec.Message != "not syslog shaped at all" {
		t.Fatalf("expected full original text preserved, got %q", rec.Message)
	}
	if rec.FromHost != "10.0.0.3" {
		t.Fatalf("expected peer host, got %q", rec.FromHost)
	}
}

func TestParseFailOpenExtractsPRI(t *testing.T) {
	rec := ParseDatagram("<5>garbled nonsense", "10.0.0.4", time.Now().UTC())
	facility, severity := rec.Facility, rec.Priority
	if facility != 0 || severity != 5 {
		t.Fatalf("expected facility=0 severity=5 from PRI=5, got facility=%d severity=%d", facility, severity)
	}
}

func TestDecodeRejectsInvalidUTF8(t *testing.T) {
	_, ok := Decode([]byte{0xff, 0xfe, 0xfd}, "10.0.0.5")
	if ok {
		t.Fatal("expected decode to reject invalid UTF-8")
	}
}

func TestDecodeAcceptsValidUTF8(t *testing.T) {
	s, ok := Decode([]byte("<34>1 hello"), "10.0.0.6")
	if !ok || s != "<34>1 hello" {
		t.Fatalf("expected valid passthrough, got %q ok=%v", s, ok)
	}
}

func TestTimestampFallsBackToReceivedAt(t *testing.T) {
	raw := "<34>1 not-a-timestamp testhost testapp - - - hello"
	receivedAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := ParseDatagram(raw, "10.0.0.7", receivedAt)
	if !rec.DeviceReportedTime.Equal(receivedAt) {
		t.Fatalf("expected DeviceReportedTime to fall back to ReceivedAt, got %v", rec.DeviceReportedTime)
	}
}
