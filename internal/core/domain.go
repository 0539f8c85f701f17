package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the ISO 8601 calendar date layout used by sources and filters.
	DateLayout = "2006-01-02"

	DefaultStart = "2025-01-01"
	DefaultEnd   = "2025-01-31"
)

type (
	// RawRecord is one loosely-typed object as decoded from a source.
	RawRecord map[string]any

	// Date is a calendar date at UTC midnight.
	Date struct {
		time.Time
	}

	// LessonRecord is one purchased or attended lesson.
	LessonRecord struct {
		ClientID string  `json:"client_id"`
		Date     Date    `json:"-"`
		RawDate  string  `json:"date"` // source representation, grouping key for revenue by date
		Price    float64 `json:"price"`
		Type     string  `json:"type"`
	}

	// ClientRecord is one client profile. Satisfaction is NaN when the source
	// value is missing or not a number.
	ClientRecord struct {
		ClientID     string         `json:"client_id"`
		Satisfaction float64        `json:"-"`
		Attributes   map[string]any `json:"attributes,omitempty"`
	}

	// FilterSelection is the user-controlled filter. Start and End are
	// exclusive bounds in DateLayout.
	FilterSelection struct {
		Type  string `json:"type"`
		Start string `json:"start"`
		End   string `json:"end"`
	}

	// Dataset is one immutable snapshot of both normalized collections.
	Dataset struct {
		Lessons []LessonRecord
		Clients []ClientRecord
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidFilter = errors.New("invalid filter")
)

// isoLayouts are tried in order; anything carrying a time of day is truncated
// to its calendar date.
var isoLayouts = []string{
	DateLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// ParseDate parses an ISO 8601 date (optionally with a time part) into a UTC
// calendar date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	for _, layout := range isoLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return NewDate(t.Year(), int(t.Month()), t.Day()), nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// String formats the date in DateLayout, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Valid reports whether the lesson date parsed.
func (l LessonRecord) Valid() bool {
	return !l.Date.IsZero()
}

// DefaultFilter returns the initial dashboard window: all types, January 2025.
func DefaultFilter() FilterSelection {
	return FilterSelection{Start: DefaultStart, End: DefaultEnd}
}

// Validate checks that both bounds parse. An inverted range is valid.
func (f FilterSelection) Validate() error {
	if _, err := ParseDate(f.Start); err != nil {
		return fmt.Errorf("%w: start: %v", ErrInvalidFilter, err)
	}
	if _, err := ParseDate(f.End); err != nil {
		return fmt.Errorf("%w: end: %v", ErrInvalidFilter, err)
	}
	return nil
}

// Key returns a stable identity for memoization.
func (f FilterSelection) Key() string {
	return f.Type + "\x00" + f.Start + "\x00" + f.End
}
