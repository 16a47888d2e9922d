package scheduling

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling-assistant/internal/clock"
	"github.com/hackgods/clinic-scheduling-assistant/internal/doctor"
)

func workingDoctor(start, end string) doctor.Doctor {
	return doctor.Doctor{
		ID:        uuid.New(),
		Name:      "Dr. Test",
		Specialty: "General Medicine",
		WorkStart: clock.MustTime(start),
		WorkEnd:   clock.MustTime(end),
	}
}

func slotTimes(slots []Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Time.String()
	}
	return out
}

func TestGenerateIsDeterministicAndAscending(t *testing.T) {
	p := DefaultPolicy()
	for _, d := range []doctor.Doctor{
		workingDoctor("09:00", "17:00"),
		workingDoctor("08:15", "12:40"),
		workingDoctor("13:00", "21:00"),
		workingDoctor("10:00", "10:30"),
	} {
		first := p.Generate(d)
		require.NotEmpty(t, first)
		assert.Equal(t, first, p.Generate(d))
		assert.Equal(t, d.WorkStart, first[0].Time)
		for i := 1; i < len(first); i++ {
			assert.Less(t, first[i-1].Time, first[i].Time)
		}
		assert.Less(t, first[len(first)-1].Time, d.WorkEnd)
	}
}

func TestGenerateExcludesEndAndBreaks(t *testing.T) {
	p := DefaultPolicy()
	p.Breaks = []clock.Range{{Start: clock.At(13, 0), End: clock.At(14, 0)}}

	got := slotTimes(p.Generate(workingDoctor("12:00", "15:00")))
	assert.Equal(t, []string{"12:00", "12:30", "14:00", "14:30"}, got)
}

func TestGenerateCustomDuration(t *testing.T) {
	p := DefaultPolicy()
	p.SlotDuration = 45 * time.Minute

	got := slotTimes(p.Generate(workingDoctor("09:00", "11:00")))
	assert.Equal(t, []string{"09:00", "09:45", "10:30"}, got)
}

func TestGenerateEmptyForInvertedHours(t *testing.T) {
	assert.Empty(t, DefaultPolicy().Generate(workingDoctor("17:00", "09:00")))
}

func TestClassifyBoundaries(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, Morning, p.Classify(clock.At(11, 59)))
	assert.Equal(t, Afternoon, p.Classify(clock.At(12, 0)))
	assert.Equal(t, Afternoon, p.Classify(clock.At(16, 59)))
	assert.Equal(t, Evening, p.Classify(clock.At(17, 0)))

	p.AfternoonStart = clock.At(13, 0)
	assert.Equal(t, Morning, p.Classify(clock.At(12, 30)))
}

func TestParseDayPart(t *testing.T) {
	got, err := ParseDayPart(" Evening ")
	require.NoError(t, err)
	assert.Equal(t, Evening, got)

	_, err = ParseDayPart("night")
	assert.Error(t, err)
}

func TestPeriodsOfKeepsDayOrder(t *testing.T) {
	slots := []Slot{
		{Time: clock.At(18, 0), DayPart: Evening},
		{Time: clock.At(9, 0), DayPart: Morning},
		{Time: clock.At(9, 30), DayPart: Morning},
	}
	assert.Equal(t, []DayPart{Morning, Evening}, periodsOf(slots))
}
