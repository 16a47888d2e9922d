package scheduling

import (
	"fmt"
	"strings"
	"time"

	"github.com/hackgods/clinic-scheduling-assistant/internal/clock"
	"github.com/hackgods/clinic-scheduling-assistant/internal/doctor"
)

type DayPart string

const (
	Morning   DayPart = "morning"
	Afternoon DayPart = "afternoon"
	Evening   DayPart = "evening"
)

var dayParts = []DayPart{Morning, Afternoon, Evening}

func ParseDayPart(s string) (DayPart, error) {
	p := DayPart(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range dayParts {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown time of day %q", s)
}

type Slot struct {
	Time    clock.TimeOfDay `json:"time"`
	DayPart DayPart         `json:"day_part"`
}

// Policy is the clinic wide slot grid: a fixed slot length, optional breaks
// and the day part boundaries.
type Policy struct {
	SlotDuration   time.Duration
	Breaks         []clock.Range
	AfternoonStart clock.TimeOfDay
	EveningStart   clock.TimeOfDay
}

func DefaultPolicy() Policy {
	return Policy{
		SlotDuration:   30 * time.Minute,
		AfternoonStart: clock.At(12, 0),
		EveningStart:   clock.At(17, 0),
	}
}

func (p Policy) Classify(t clock.TimeOfDay) DayPart {
	switch {
	case t < p.AfternoonStart:
		return Morning
	case t < p.EveningStart:
		return Afternoon
	default:
		return Evening
	}
}

func (p Policy) inBreak(t clock.TimeOfDay) bool {
	for _, b := range p.Breaks {
		if b.Contains(t) {
			return true
		}
	}
	return false
}

// Generate lists every slot start from WorkStart up to, but excluding,
// WorkEnd. Slots starting inside a break are skipped.
func (p Policy) Generate(d doctor.Doctor) []Slot {
	step := p.SlotDuration
	if step < time.Minute {
		step = 30 * time.Minute
	}

	var slots []Slot
	for t := d.WorkStart; t < d.WorkEnd; t = t.Add(step) {
		if p.inBreak(t) {
			continue
		}
		slots = append(slots, Slot{Time: t, DayPart: p.Classify(t)})
	}
	return slots
}

// IsSlot reports whether t is one of the generated slot starts for d.
func (p Policy) IsSlot(d doctor.Doctor, t clock.TimeOfDay) bool {
	for _, s := range p.Generate(d) {
		if s.Time == t {
			return true
		}
	}
	return false
}

// periodsOf returns the distinct day parts present in slots, in day order.
func periodsOf(slots []Slot) []DayPart {
	seen := make(map[DayPart]bool, len(dayParts))
	for _, s := range slots {
		seen[s.DayPart] = true
	}
	var result []DayPart
	for _, p := range dayParts {
		if seen[p] {
			result = append(result, p)
		}
	}
	return result
}
