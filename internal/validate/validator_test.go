package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling-assistant/internal/apperr"
)

type bookingInput struct {
	DoctorName string `json:"doctor_name" validate:"required"`
	Phone      string `json:"phone" validate:"required,phone"`
	Date       string `json:"date" validate:"required,date"`
	Time       string `json:"time" validate:"required,hhmm"`
	TimeOfDay  string `json:"time_of_day,omitempty" validate:"omitempty,oneof=morning afternoon evening"`
}

func TestStructValid(t *testing.T) {
	v := New()
	err := v.Struct("book", bookingInput{
		DoctorName: "Dr. Rao",
		Phone:      "9999999999",
		Date:       "2025-03-10",
		Time:       "10:00",
	})
	require.NoError(t, err)
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	v := New()
	err := v.Struct("book", bookingInput{
		Phone:     "call me",
		Date:      "tomorrow",
		Time:      "10",
		TimeOfDay: "night",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	fields := Fields(err)
	require.NotNil(t, fields)
	assert.Equal(t, "doctor_name is required", fields["doctor_name"])
	assert.Equal(t, "phone must be a phone number", fields["phone"])
	assert.Equal(t, "date must be a date formatted as YYYY-MM-DD", fields["date"])
	assert.Equal(t, "time must be a time formatted as HH:MM", fields["time"])
	assert.Contains(t, fields["time_of_day"], "must be one of")
}

func TestPhoneFormats(t *testing.T) {
	v := New()
	type in struct {
		Phone string `json:"phone" validate:"phone"`
	}
	for _, ok := range []string{"9999999999", "+91 99999 99999", "(555) 123-4567"} {
		assert.NoError(t, v.Struct("phone", in{Phone: ok}), ok)
	}
	for _, bad := range []string{"12", "phone", "+"} {
		assert.Error(t, v.Struct("phone", in{Phone: bad}), bad)
	}
}

func TestFieldErrorsMessageIsSorted(t *testing.T) {
	fe := FieldErrors{"time": "time is required", "date": "date is required"}
	assert.Equal(t, "date is required; time is required", fe.Error())
}
