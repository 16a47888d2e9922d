// Package clock holds the civil date and time-of-day values used by the
// directory, the ledger and the scheduling engine.
package clock

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	minutesPerDay = 24 * 60
)

var (
	ErrInvalidDate = errors.New("date must be formatted as YYYY-MM-DD")
	ErrInvalidTime = errors.New("time must be formatted as HH:MM (24h)")
)

// TimeOfDay is a wall clock time expressed in minutes after midnight.
type TimeOfDay int

// At builds a TimeOfDay from an hour and minute.
func At(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay accepts "HH:MM" and tolerates a trailing seconds part
// ("09:00:00") as returned by Postgres time columns.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	if len(s) > 5 && s[5] == ':' {
		s = s[:5]
	}
	if len(s) == 4 && s[1] == ':' {
		// single digit hour, e.g. "9:30"
		s = "0" + s
	}
	tt, err := time.Parse(TimeLayout, s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return At(tt.Hour(), tt.Minute()), nil
}

// MustTime is ParseTimeOfDay for literals known to be valid.
func MustTime(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// Valid reports whether t lies within a single day.
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < minutesPerDay
}

// Add returns t shifted by d, truncated to whole minutes.
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	return t + TimeOfDay(d/time.Minute)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// NormalizeDate validates a YYYY-MM-DD calendar date and returns it in
// canonical form.
func NormalizeDate(s string) (string, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d.Format(DateLayout), nil
}

// Range is a half open [Start, End) interval within a day.
type Range struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Contains reports whether t falls inside the range.
func (r Range) Contains(t TimeOfDay) bool {
	return t >= r.Start && t < r.End
}

// ParseRange parses "HH:MM-HH:MM".
func ParseRange(s string) (Range, error) {
	start, end, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Range{}, fmt.Errorf("range must be HH:MM-HH:MM, got %q", s)
	}
	from, err := ParseTimeOfDay(start)
	if err != nil {
		return Range{}, err
	}
	to, err := ParseTimeOfDay(end)
	if err != nil {
		return Range{}, err
	}
	if to <= from {
		return Range{}, fmt.Errorf("range end must be after start, got %q", s)
	}
	return Range{Start: from, End: to}, nil
}
