package features

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseTimestampISOVariants(t *testing.T) {
	want := time.Date(2024, time.March, 2, 8, 15, 0, 0, time.UTC)
	inputs := []string{
		"2024-03-02T08:15:00Z",
		"2024-03-02T08:15:00+00:00",
		"2024-03-02T08:15:00.000000",
		"2024-03-02T08:15:00",
		"2024-03-02 08:15:00",
		"2024-03-02T08:15",
		"2024-03-02T10:15:00+02:00",
	}
	for _, in := range inputs {
		got, err := ParseTimestamp(TextTimestamp(in), time.UTC)
		require.NoError(t, err, in)
		require.True(t, want.Equal(got), "%s parsed as %s", in, got)
	}
}

func TestParseTimestampNaiveUsesLocation(t *testing.T) {
	loc := time.FixedZone("SGT", 8*60*60)
	got, err := ParseTimestamp(TextTimestamp("2024-03-02T08:15:00"), loc)
	require.NoError(t, err)
	require.True(t, time.Date(2024, time.March, 2, 0, 15, 0, 0, time.UTC).Equal(got))
}

func TestParseTimestampServerObject(t *testing.T) {
	got, err := ParseTimestamp(ServerTime(EpochTimestamp{Seconds: 1700000000, Nanoseconds: 5}), time.UTC)
	require.NoError(t, err)
	require.Equal(t, time.Unix(1700000000, 5).UTC(), got)
}

func TestParseTimestampFailures(t *testing.T) {
	cases := []RawTimestamp{
		{},
		TextTimestamp(""),
		TextTimestamp("yesterday"),
		ServerTime(EpochTimestamp{Seconds: 1, Nanoseconds: -1}),
		{Kind: TimestampServer},
	}
	for _, raw := range cases {
		_, err := ParseTimestamp(raw, time.UTC)
		require.True(t, errors.Is(err, ErrMalformedTimestamp), "%+v", raw)
	}
}

func TestNormalizeTimestampFallsBackToNow(t *testing.T) {
	require.Equal(t, fixedNow, NormalizeTimestamp(TextTimestamp("not-a-date"), fixedNow))
	require.Equal(t, fixedNow, NormalizeTimestamp(RawTimestamp{}, fixedNow))
}

func TestRawTimestampUnmarshalJSON(t *testing.T) {
	cases := []struct {
		name  string
		input string
		kind  TimestampKind
		want  time.Time
		bad   bool
	}{
		{name: "null", input: `null`, kind: TimestampAbsent, bad: true},
		{name: "string", input: `"2024-01-01T00:00:00Z"`, kind: TimestampText, want: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "firestore", input: `{"_seconds":1704067200,"_nanoseconds":0}`, kind: TimestampServer, want: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "proto", input: `{"seconds":1704067200,"nanos":500}`, kind: TimestampServer, want: time.Date(2024, 1, 1, 0, 0, 0, 500, time.UTC)},
		{name: "epoch number", input: `1704067200`, kind: TimestampServer, want: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "object without seconds", input: `{"foo":1}`, kind: TimestampServer, bad: true},
		{name: "boolean", input: `true`, kind: TimestampServer, bad: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var raw RawTimestamp
			require.NoError(t, json.Unmarshal([]byte(tc.input), &raw))
			require.Equal(t, tc.kind, raw.Kind)
			got, err := ParseTimestamp(raw, time.UTC)
			if tc.bad {
				require.ErrorIs(t, err, ErrMalformedTimestamp)
				return
			}
			require.NoError(t, err)
			require.True(t, tc.want.Equal(got))
		})
	}
}

func TestRawTimestampMarshalJSON(t *testing.T) {
	data, err := json.Marshal(At(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.JSONEq(t, `"2024-01-01T00:00:00Z"`, string(data))

	data, err = json.Marshal(RawTimestamp{})
	require.NoError(t, err)
	require.Equal(t, "null", string(data))
}

func TestRawTimestampUnmarshalFractionalEpoch(t *testing.T) {
	cases := []struct {
		input string
		want  time.Time
	}{
		{input: `-1.5`, want: time.Unix(-2, 500_000_000).UTC()},
		{input: `1700000000.25`, want: time.Unix(1700000000, 250_000_000).UTC()},
		{input: `0.9999999999`, want: time.Unix(1, 0).UTC()},
	}
	for _, tc := range cases {
		var raw RawTimestamp
		require.NoError(t, json.Unmarshal([]byte(tc.input), &raw))
		got, err := ParseTimestamp(raw, time.UTC)
		require.NoError(t, err, tc.input)
		require.True(t, tc.want.Equal(got), "%s: got %s", tc.input, got)
	}
}

func TestRawTimestampUnmarshalHugeEpochFallsBack(t *testing.T) {
	var raw RawTimestamp
	require.NoError(t, json.Unmarshal([]byte(`1e300`), &raw))

	_, err := ParseTimestamp(raw, time.UTC)
	require.ErrorIs(t, err, ErrMalformedTimestamp)

	require.Equal(t, fixedNow, NormalizeTimestamp(raw, fixedNow))
}
