package recurrence

import (
	"errors"
	"time"
)

// MaxOccurrences bounds a single series expansion.
const MaxOccurrences = 52

// Rule describes a series of talk dates repeating every IntervalWeeks weeks.
type Rule struct {
	First         time.Time
	Count         int
	IntervalWeeks int
	Until         *time.Time
}

// GenerateOptions defines optional bounds applied after expansion.
type GenerateOptions struct {
	// After drops occurrences at or before this instant.
	After *time.Time
	// Skip drops occurrences equal to any of these instants.
	Skip []time.Time
}

// Engine expands series rules into candidate dates.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine that keeps wall clock times stable in loc.
// If loc is nil, UTC is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{location: loc}
}

// Location returns the zone the engine evaluates wall clock times in.
func (e *Engine) Location() *time.Location {
	if e == nil || e.location == nil {
		return time.UTC
	}
	return e.location
}

// ErrInvalidCount indicates the series length is out of range.
var ErrInvalidCount = errors.New("recurrence: count must be between 1 and 52")

// ErrInvalidInterval indicates the series interval is not positive.
var ErrInvalidInterval = errors.New("recurrence: interval must be at least one week")

// ErrMissingStart indicates the rule has no first occurrence.
var ErrMissingStart = errors.New("recurrence: first occurrence is required")

// Expand produces the dates of the series in ascending order.
//
// The engine enforces the following semantics:
//   - Occurrences keep the wall clock time of First in the engine's zone, so a
//     series crossing a daylight saving change stays at the same local hour.
//   - Expansion stops after Count occurrences or past Until, whichever is first.
//   - Results are returned in UTC.
func (e *Engine) Expand(rule Rule, opts GenerateOptions) ([]time.Time, error) {
	if rule.First.IsZero() {
		return nil, ErrMissingStart
	}
	if rule.Count < 1 || rule.Count > MaxOccurrences {
		return nil, ErrInvalidCount
	}
	if rule.IntervalWeeks < 1 {
		return nil, ErrInvalidInterval
	}

	loc := e.Location()
	first := rule.First.In(loc)

	skip := make(map[int64]struct{}, len(opts.Skip))
	for _, s := range opts.Skip {
		skip[s.UnixNano()] = struct{}{}
	}

	dates := make([]time.Time, 0, rule.Count)
	for i := 0; i < rule.Count; i++ {
		current := first.AddDate(0, 0, 7*rule.IntervalWeeks*i)
		if rule.Until != nil && current.After(*rule.Until) {
			break
		}
		if opts.After != nil && !current.After(*opts.After) {
			continue
		}
		if _, ok := skip[current.UnixNano()]; ok {
			continue
		}
		dates = append(dates, current.UTC())
	}
	return dates, nil
}

// ApplyDefaultTime moves a date given at local midnight to hour:minute on the
// same calendar day in the engine's zone. Dates carrying a clock time are
// returned unchanged apart from UTC normalization.
func (e *Engine) ApplyDefaultTime(t time.Time, hour, minute int) time.Time {
	loc := e.Location()
	local := t.In(loc)
	if local.Hour() != 0 || local.Minute() != 0 || local.Second() != 0 || local.Nanosecond() != 0 {
		return t.UTC()
	}
	y, m, d := local.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, loc).UTC()
}
