package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecord_InitTimestamps(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var r Record
	r.InitTimestamps(now)

	assert.Equal(t, now, r.CreatedAt)
	assert.Equal(t, now, r.UpdatedAt)
}

func TestTag_OwnedBy(t *testing.T) {
	tag := &Tag{Name: "Math", UserID: "alice"}

	assert.True(t, tag.OwnedBy("alice"))
	assert.False(t, tag.OwnedBy("bob"))
	assert.False(t, tag.OwnedBy(""))
}

func TestSchedule_DueAt(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		next time.Time
		want bool
	}{
		{"in the past", now.Add(-time.Hour), true},
		{"exactly now", now, true},
		{"in the future", now.Add(time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Schedule{NextShowAt: tt.next}
			assert.Equal(t, tt.want, s.DueAt(now))
		})
	}
}

func TestIntervalUnit_Valid(t *testing.T) {
	for _, u := range []IntervalUnit{IntervalMinutes, IntervalHours, IntervalDays, IntervalWeeks, IntervalMonths} {
		assert.True(t, u.Valid(), u)
	}
	assert.False(t, IntervalUnit("").Valid())
	assert.False(t, IntervalUnit("fortnights").Valid())
	assert.False(t, IntervalUnit("Days").Valid())
}
