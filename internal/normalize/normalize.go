// Package normalize turns heterogeneous syslog wire formats (RFC 3164, or
// already-canonical RFC 5424) into a single canonical RFC 5424 string, the
// only shape the record parser (internal/parsing) has to understand.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// rfc3164Pattern is a permissive grammar for RFC 3164: PRI, a BSD timestamp
// (no year), hostname, a TAG that may carry a bracketed PID, then free text.
// The separator after the tag is either ": " or " - " (both appear in the
// wild); either is optional so unusually terse senders still parse.
var rfc3164Pattern = regexp.MustCompile(
	`^<(\d{1,3})>([A-Z][a-z]{2})\s+(\d{1,2})\s+(\d{2}):(\d{2}):(\d{2})\s+(\S+)\s+([^\s\[:]+)(?:\[(\d+)\])?(?::| -)?\s*(.*)$`,
)

var months = map[string]time.Month{
	"Jan": time.January, "Feb": time.February, "Mar": time.March,
	"Apr": time.April, "May": time.May, "Jun": time.June,
	"Jul": time.July, "Aug": time.August, "Sep": time.September,
	"Oct": time.October, "Nov": time.November, "Dec": time.December,
}

// Debug gates the diagnostic event emitted when a timestamp fails to parse.
// Set from the DEBUG environment setting by `syslogd ingest` at startup
// (see cmd/syslogd/ingest.go).
var Debug bool

// Normalize accepts one raw text message and returns a canonical RFC 5424
// string. Detection of an already-canonical message: if the character right
// after the first '>' is '1' followed by whitespace, the message is assumed
// to already be RFC 5424 and is returned unchanged (idempotence, spec.md
// testable property 3).
func Normalize(raw string) string {
	if looksLikeRFC5424(raw) {
		return raw
	}

	m := rfc3164Pattern.FindStringSubmatch(raw)
	if m == nil {
		// Permissive grammar didn't match at all: hand the original text
		// back untouched. The record parser's fail-open path still
		// accepts it.
		return raw
	}

	pri := m[1]
	month, day, hh, mm, ss := m[2], m[3], m[4], m[5], m[6]
	host := m[7]
	tag := m[8]
	pid := m[9]
	msg := m[10]

	ts, ok := reconstructTimestamp(month, day, hh, mm, ss)
	if !ok {
		log.Warn().Str("month", month).Str("day", day).Msg("rfc3164: failed to reconstruct timestamp, using current time")
		if Debug {
			log.Debug().Str("raw", raw).Msg("normalize: timestamp reconstruction fallback")
		}
		ts = time.Now().UTC()
	}

	procid := "-"
	if pid != "" {
		procid = pid
	}
	if tag == "" {
		tag = "-"
	}

	return fmt.Sprintf("<%s>1 %s %s %s %s - - %s",
		pri, ts.Format("2006-01-02T15:04:05.000Z"), host, tag, procid, msg)
}

// looksLikeRFC5424 implements the detection rule from spec.md §4.2: after
// the first '>' the next character is '1' and the one after is whitespace.
func looksLikeRFC5424(s string) bool {
	idx := strings.IndexByte(s, '>')
	if idx < 0 || idx+2 >= len(s) {
		return false
	}
	return s[idx+1] == '1' && isSpace(s[idx+2])
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t'
}

// reconstructTimestamp builds the current-year timestamp for an RFC 3164
// message, rolling back a year if that would place it in the future — the
// standard December→January boundary trick since RFC 3164 carries no year.
func reconstructTimestamp(month, day, hh, mm, ss string) (time.Time, bool) {
	mo, ok := months[month]
	if !ok {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return time.Time{}, false
	}
	h, err1 := strconv.Atoi(hh)
	mi, err2 := strconv.Atoi(mm)
	s, err3 := strconv.Atoi(ss)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}

	now := time.Now().UTC()
	ts := time.Date(now.Year(), mo, d, h, mi, s, 0, time.UTC)
	if ts.After(now) {
		ts = time.Date(now.Year()-1, mo, d, h, mi, s, 0, time.UTC)
	}
	return ts, true
}
