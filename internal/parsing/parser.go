// Package parsing extracts a models.Record out of a canonicalized syslog
// message (see internal/normalize), implementing the Record Parser (C3)
// from spec.md.
package parsing

import (
	"regexp"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/syslogpipe/syslogd/internal/models"
	"github.com/syslogpipe/syslogd/internal/normalize"
	"github.com/syslogpipe/syslogd/internal/priority"
)

// rfc5424Pattern captures the eight named fields of a canonical RFC 5424
// message: <PRI>VERSION TIMESTAMP HOST APP PROCID MSGID SD MSG.
var rfc5424Pattern = regexp.MustCompile(
	`^<(?P<pri>\d{1,3})>(?P<ver>\d+)\s+(?P<ts>\S+)\s+(?P<host>\S+)\s+(?P<app>\S+)\s+(?P<pid>\S+)\s+(?P<msgid>\S+)\s+(?P<sd>-|\[.*?\])\s?(?P<msg>.*)$`,
)

// defaultPriority is used by the fail-open path when no "<N>" prefix is
// present at all in the original text.
const defaultPriority = 14

// Debug gates the diagnostic event emitted on decode failure.
var Debug bool

// Decode validates that raw is UTF-8. Per spec.md §4.3, anything else is
// dropped — nothing is enqueued for write. peerHost is used only for the
// debug trace.
func Decode(raw []byte, peerHost string) (string, bool) {
	if !utf8.Valid(raw) {
		if Debug {
			log.Debug().Str("peer", peerHost).Int("bytes", len(raw)).Msg("parsing: dropped non-UTF-8 datagram")
		}
		return "", false
	}
	return string(raw), true
}

// ParseDatagram runs the full C2→C3 pipeline: normalize the raw text to
// canonical RFC 5424, then extract a models.Record. It never fails — when
// the canonical text doesn't match the RFC 5424 grammar at all, it returns
// the fail-open record described in spec.md §4.3, so no decoded datagram is
// ever silently lost.
func ParseDatagram(raw string, peerHost string, receivedAt time.Time) *models.Record {
	canonical := normalize.Normalize(raw)
	return Parse(canonical, peerHost, receivedAt)
}

// Parse extracts a models.Record from a message already in (or claiming to
// be in) canonical RFC 5424 form.
func Parse(canonical string, peerHost string, receivedAt time.Time) *models.Record {
	m := rfc5424Pattern.FindStringSubmatch(canonical)
	if m == nil {
		return failOpen(canonical, peerHost, receivedAt)
	}

	names := rfc5424Pattern.SubexpNames()
	fields := make(map[string]string, len(names))
	for i, v := range m {
		if names[i] != "" {
			fields[names[i]] = v
		}
	}

	code, err := strconv.Atoi(fields["pri"])
	if err != nil {
		code = defaultPriority
	}
	facility, severity := priority.Decode(code)

	host := fields["host"]
	if host == "-" {
		host = peerHost
	}

	app := fields["app"]
	if app == "-" || app == "" {
		app = models.UnknownTag
	}

	pid := fields["pid"]
	if pid == "-" || pid == "" {
		pid = models.UnknownPID
	}

	deviceTime := receivedAt
	if ts, err := parseISO8601(fields["ts"]); err == nil {
		deviceTime = ts
	}

	return &models.Record{
		Facility:           facility,
		Priority:           severity,
		FromHost:           host,
		InfoUnitID:         1,
		ReceivedAt:         receivedAt,
		DeviceReportedTime: deviceTime,
		SysLogTag:          app,
		ProcessID:          pid,
		Message:            fields["msg"],
	}
}

// failOpen implements the last-resort record described in spec.md §4.3:
// extract the PRI if present, default to 14 otherwise, and carry the
// entire original text through as Message.
func failOpen(original string, peerHost string, receivedAt time.Time) *models.Record {
	code := defaultPriority
	if start := indexByte(original, '<'); start >= 0 {
		if end := indexByte(original[start+1:], '>'); end >= 0 {
			if n, err := strconv.Atoi(original[start+1 : start+1+end]); err == nil {
				code = n
			}
		}
	}
	facility, severity := priority.Decode(code)

	return &models.Record{
		Facility:           facility,
		Priority:           severity,
		FromHost:           peerHost,
		InfoUnitID:         1,
		ReceivedAt:         receivedAt,
		DeviceReportedTime: receivedAt,
		SysLogTag:          models.UnknownTag,
		ProcessID:          models.UnknownPID,
		Message:            original,
	}
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

// parseISO8601 accepts ISO-8601 timestamps with or without a trailing 'Z'
// and with or without sub-second precision, as emitted by normalize.Normalize
// or sent directly by RFC 5424-native senders.
func parseISO8601(s string) (time.Time, error) {
	layouts := []string{
		"2006-01-02T15:04:05.000Z",
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
	}
	var lastErr error
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}
