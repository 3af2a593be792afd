package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAgeAt(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		dob  time.Time
		want int
	}{
		{"birthday passed this year", time.Date(1990, 3, 1, 0, 0, 0, 0, time.UTC), 35},
		{"birthday later this year", time.Date(1990, 9, 1, 0, 0, 0, 0, time.UTC), 34},
		{"birthday today", time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC), 35},
		{"born tomorrow relative to now", time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AgeAt(tt.dob, now))
		})
	}
}

func TestGeoPoint(t *testing.T) {
	p := NewGeoPoint("Lyon", 4.8357, 45.764)

	assert.Equal(t, "Point", p.Type)
	assert.Equal(t, 4.8357, p.Lon())
	assert.Equal(t, 45.764, p.Lat())
	assert.Equal(t, "Lyon", p.CityName)

	var empty GeoPoint
	assert.Zero(t, empty.Lon())
	assert.Zero(t, empty.Lat())
}

func TestEnumValidation(t *testing.T) {
	assert.True(t, GenderFemale.Valid())
	assert.False(t, Gender("robot").Valid())

	assert.True(t, LookingForSerious.Valid())
	assert.False(t, LookingFor("pen pals").Valid())

	assert.True(t, MatchAccepted.Valid())
	assert.False(t, MatchStatus("maybe").Valid())
}
