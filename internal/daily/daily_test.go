package daily

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateKeyUsesUTC(t *testing.T) {
	// 23:30 in UTC-5 is already the next day in UTC.
	est := time.FixedZone("EST", -5*3600)
	late := time.Date(2026, 8, 28, 23, 30, 0, 0, est)
	assert.Equal(t, "2026-08-29", DateKey(late))

	noon := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-08-29", DateKey(noon))
}

func TestWordIndexDeterministic(t *testing.T) {
	day := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	sameDayLater := time.Date(2026, 8, 29, 23, 59, 59, 0, time.UTC)

	i1 := WordIndex(day, "salt", 170)
	i2 := WordIndex(sameDayLater, "salt", 170)
	assert.Equal(t, i1, i2, "same day, same index regardless of clock time")
	assert.GreaterOrEqual(t, i1, 0)
	assert.Less(t, i1, 170)

	nextDay := day.Add(24 * time.Hour)
	assert.GreaterOrEqual(t, WordIndex(nextDay, "salt", 170), 0)
}

func TestWordIndexSaltIsolation(t *testing.T) {
	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	differs := false
	for d := 0; d < 20; d++ {
		when := day.Add(time.Duration(d) * 24 * time.Hour)
		if WordIndex(when, "salt-a", 170) != WordIndex(when, "salt-b", 170) {
			differs = true
			break
		}
	}
	assert.True(t, differs, "distinct salts should disagree on at least one of 20 days")
}

func TestWordIndexDegenerateList(t *testing.T) {
	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	assert.Zero(t, WordIndex(day, "salt", 0))
	assert.Zero(t, WordIndex(day, "salt", 1))
}

func TestNextRotation(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want time.Time
	}{
		{
			"mid-day",
			time.Date(2026, 8, 29, 12, 30, 0, 0, time.UTC),
			time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			"exactly midnight rolls to the following day",
			time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			"month boundary",
			time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC),
			time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextRotation(tt.at)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.After(tt.at))
		})
	}
}
