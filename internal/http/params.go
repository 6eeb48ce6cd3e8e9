package http

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/example/briefings/internal/application"
)

// parseWarmup normalizes the track marker used in paths, query strings and
// request bodies.
func parseWarmup(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "warmup":
		return true
	}
	return false
}

func trackName(warmup bool) string {
	if warmup {
		return "warmup"
	}
	return "main"
}

// warmupFlag accepts a JSON bool, number or string.
type warmupFlag bool

func (f *warmupFlag) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = warmupFlag(b)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = warmupFlag(n.String() == "1")
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = warmupFlag(parseWarmup(s))
	return nil
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// parseTime accepts RFC 3339 timestamps as well as local "2006-01-02T15:04"
// and bare dates interpreted in loc.
func parseTime(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range dateLayouts {
		if ts, err := time.ParseInLocation(layout, value, loc); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func parseTimes(values []string, loc *time.Location) ([]time.Time, bool) {
	out := make([]time.Time, 0, len(values))
	for _, v := range values {
		ts, ok := parseTime(v, loc)
		if !ok {
			return nil, false
		}
		out = append(out, ts)
	}
	return out, true
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimes(values []time.Time) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, formatTime(v))
	}
	return out
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func invalidField(field, message string) *application.ValidationError {
	return &application.ValidationError{FieldErrors: map[string]string{field: message}}
}
