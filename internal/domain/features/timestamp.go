package features

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrMalformedTimestamp reports a timestamp that could not be turned into an instant.
// Extraction recovers from it by substituting the current time.
var ErrMalformedTimestamp = errors.New("malformed timestamp")

// TimestampKind tags which variant a RawTimestamp holds.
type TimestampKind int

const (
	TimestampAbsent TimestampKind = iota
	TimestampText
	TimestampServer
)

// ServerTimestamp is a timestamp object produced by an external store that
// knows how to convert itself to an instant.
type ServerTimestamp interface {
	ToTime() (time.Time, error)
}

// RawTimestamp is the tagged union of every timestamp shape the boundary accepts:
// an ISO-8601 string or a server timestamp object.
type RawTimestamp struct {
	Kind   TimestampKind
	Text   string
	Server ServerTimestamp
}

// TextTimestamp wraps an ISO-8601 string.
func TextTimestamp(value string) RawTimestamp {
	return RawTimestamp{Kind: TimestampText, Text: value}
}

// ServerTime wraps a server timestamp object.
func ServerTime(ts ServerTimestamp) RawTimestamp {
	if ts == nil {
		return RawTimestamp{}
	}
	return RawTimestamp{Kind: TimestampServer, Server: ts}
}

// At wraps an already known instant.
func At(t time.Time) RawTimestamp {
	return ServerTime(EpochTimestamp{Seconds: t.Unix(), Nanoseconds: int64(t.Nanosecond())})
}

// EpochTimestamp is the seconds/nanoseconds pair document stores emit for server-side timestamps.
type EpochTimestamp struct {
	Seconds     int64
	Nanoseconds int64
}

// ToTime implements ServerTimestamp.
func (e EpochTimestamp) ToTime() (time.Time, error) {
	if e.Nanoseconds < 0 || e.Nanoseconds >= int64(time.Second) {
		return time.Time{}, fmt.Errorf("%w: nanoseconds out of range", ErrMalformedTimestamp)
	}
	return time.Unix(e.Seconds, e.Nanoseconds).UTC(), nil
}

type invalidTimestamp struct {
	reason string
}

func (i invalidTimestamp) ToTime() (time.Time, error) {
	return time.Time{}, fmt.Errorf("%w: %s", ErrMalformedTimestamp, i.reason)
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp converts raw into an instant. Strings without an offset are read in loc.
func ParseTimestamp(raw RawTimestamp, loc *time.Location) (time.Time, error) {
	switch raw.Kind {
	case TimestampText:
		return parseISO(raw.Text, loc)
	case TimestampServer:
		if raw.Server == nil {
			return time.Time{}, fmt.Errorf("%w: empty server timestamp", ErrMalformedTimestamp)
		}
		ts, err := raw.Server.ToTime()
		if err != nil {
			return time.Time{}, err
		}
		return ts, nil
	default:
		return time.Time{}, fmt.Errorf("%w: missing", ErrMalformedTimestamp)
	}
}

// NormalizeTimestamp is the single place timestamps are made comparable.
// Anything absent or unparseable becomes now.
func NormalizeTimestamp(raw RawTimestamp, now time.Time) time.Time {
	ts, err := ParseTimestamp(raw, now.Location())
	if err != nil {
		return now
	}
	return ts
}

func parseISO(value string, loc *time.Location) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("%w: empty string", ErrMalformedTimestamp)
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range isoLayouts {
		if ts, err := time.ParseInLocation(layout, trimmed, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, value)
}

// UnmarshalJSON accepts null, an ISO string, epoch seconds, or an object with
// seconds/_seconds and nanoseconds/_nanoseconds/nanos.
func (r *RawTimestamp) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*r = RawTimestamp{}
		return nil
	}
	switch trimmed[0] {
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*r = TextTimestamp(text)
	case '{':
		var wire struct {
			Seconds      *int64 `json:"seconds"`
			USeconds     *int64 `json:"_seconds"`
			Nanoseconds  *int64 `json:"nanoseconds"`
			UNanoseconds *int64 `json:"_nanoseconds"`
			Nanos        *int64 `json:"nanos"`
		}
		if err := json.Unmarshal(trimmed, &wire); err != nil {
			*r = ServerTime(invalidTimestamp{reason: err.Error()})
			return nil
		}
		seconds := firstInt(wire.Seconds, wire.USeconds)
		if seconds == nil {
			*r = ServerTime(invalidTimestamp{reason: "object without seconds"})
			return nil
		}
		var nanos int64
		if n := firstInt(wire.Nanoseconds, wire.UNanoseconds, wire.Nanos); n != nil {
			nanos = *n
		}
		*r = ServerTime(EpochTimestamp{Seconds: *seconds, Nanoseconds: nanos})
	default:
		var seconds float64
		if err := json.Unmarshal(trimmed, &seconds); err != nil {
			*r = ServerTime(invalidTimestamp{reason: "unsupported timestamp literal"})
			return nil
		}
		*r = ServerTime(epochFromFloat(seconds))
	}
	return nil
}

// MarshalJSON renders parseable timestamps as RFC3339 and everything else as null.
func (r RawTimestamp) MarshalJSON() ([]byte, error) {
	if r.Kind == TimestampText {
		return json.Marshal(r.Text)
	}
	ts, err := ParseTimestamp(r, time.UTC)
	if err != nil {
		return []byte("null"), nil
	}
	return json.Marshal(ts.Format(time.RFC3339Nano))
}

// maxEpochSeconds is 9999-12-31T23:59:59Z.
const maxEpochSeconds = 253402300799

// epochFromFloat splits fractional epoch seconds so nanoseconds stay in
// [0, 1e9), borrowing a second for negative fractions.
func epochFromFloat(seconds float64) ServerTimestamp {
	if math.Abs(seconds) > maxEpochSeconds {
		return invalidTimestamp{reason: "epoch seconds out of range"}
	}
	whole, frac := math.Modf(seconds)
	secs := int64(whole)
	nanos := int64(math.Round(frac * 1e9))
	if nanos < 0 {
		secs--
		nanos += int64(time.Second)
	}
	if nanos >= int64(time.Second) {
		secs++
		nanos -= int64(time.Second)
	}
	return EpochTimestamp{Seconds: secs, Nanoseconds: nanos}
}

func firstInt(values ...*int64) *int64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
