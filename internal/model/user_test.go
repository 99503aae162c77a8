package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeekday(t *testing.T) {
	d, ok := ParseWeekday("Tuesday")
	assert.True(t, ok)
	assert.Equal(t, time.Tuesday, d)

	d, ok = ParseWeekday("Sunday")
	assert.True(t, ok)
	assert.Equal(t, time.Sunday, d)

	_, ok = ParseWeekday("tuesday")
	assert.False(t, ok)
	_, ok = ParseWeekday("Funday")
	assert.False(t, ok)
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("doctor")
	require.NoError(t, err)
	assert.Equal(t, RoleDoctor, r)

	_, err = ParseRole("admin")
	assert.Error(t, err)
}

func TestAvailability_ForDayUsesFirstMatch(t *testing.T) {
	a := Availability{
		{Day: "Monday", From: "08:00", To: "12:00"},
		{Day: "Tuesday", From: "09:00", To: "10:00"},
		{Day: "Tuesday", From: "14:00", To: "18:00"},
	}

	w, ok := a.ForDay("Tuesday")
	require.True(t, ok)
	assert.Equal(t, "09:00", w.From)

	_, ok = a.ForDay("Friday")
	assert.False(t, ok)
}

func TestAvailability_ValueScan(t *testing.T) {
	a := Availability{{Day: "Sunday", From: "10:00", To: "13:30"}}

	v, err := a.Value()
	require.NoError(t, err)

	var got Availability
	require.NoError(t, got.Scan(v))
	assert.Equal(t, a, got)

	require.NoError(t, got.Scan(nil))
	assert.Empty(t, got)

	v, err = Availability(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)

	assert.Error(t, got.Scan(42))
}

func TestTreatmentType_Valid(t *testing.T) {
	assert.True(t, TreatmentHairLaser.Valid())
	assert.False(t, TreatmentType("Botox").Valid())
	assert.Len(t, Treatments(), 4)
}

func TestValidClock(t *testing.T) {
	for _, s := range []string{"00:00", "09:30", "23:59"} {
		assert.True(t, ValidClock(s), s)
	}
	for _, s := range []string{"9:30", "24:00", "12:60", "12:3", "noon", ""} {
		assert.False(t, ValidClock(s), s)
	}
}
