package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrogh/nightcharge/core/model"
)

func day(t *testing.T, date string, values []float64, known bool) model.PriceSeries {
	t.Helper()
	start, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)
	s := make(model.PriceSeries, model.HoursPerDay)
	for i := range s {
		s[i] = model.PricePoint{Start: start.Add(time.Duration(i) * time.Hour), Known: known}
		if known {
			s[i].Value = values[i%len(values)]
		}
	}
	return s
}

// flatDay builds a published day with the given midnight and 23:00
// values and a flat filler in between.
func flatDay(t *testing.T, date string, first, last float64) model.PriceSeries {
	t.Helper()
	s := day(t, date, []float64{200}, true)
	s[0].Value = first
	s[len(s)-1].Value = last
	return s
}

func TestNormalizeTomorrowPublished(t *testing.T) {
	tests := []struct {
		name       string
		first      float64
		last       float64
		wantPrice  float64
		wantBetter bool
	}{
		{"tomorrow night cheaper", 150, 100, 150, true},
		{"tomorrow night pricier", 150, 200, 150, false},
		{"equal prices favor tonight", 150, 150, 150, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			today := flatDay(t, "2026-08-29", 180, 300)
			tomorrow := flatDay(t, "2026-08-30", tt.first, tt.last)
			dec, err := Normalize(today, tomorrow)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPrice, dec.TonightPrice)
			assert.Equal(t, tt.wantBetter, dec.BetterPriceTomorrow)
		})
	}
}

func TestNormalizeFallbackToToday(t *testing.T) {
	today := flatDay(t, "2026-08-29", 180, 300)
	tomorrow := day(t, "2026-08-30", nil, false)

	dec, err := Normalize(today, tomorrow)
	require.NoError(t, err)
	assert.Equal(t, 300.0, dec.TonightPrice, "tonight falls back to today's last hour")
	assert.False(t, dec.BetterPriceTomorrow, "no comparison possible before publication")
}

func TestNormalizeNothingPublished(t *testing.T) {
	today := day(t, "2026-08-29", nil, false)
	tomorrow := day(t, "2026-08-30", nil, false)

	_, err := Normalize(today, tomorrow)
	require.ErrorIs(t, err, ErrDataUnavailable)
}

func TestNormalizeEmptySeries(t *testing.T) {
	_, err := Normalize(nil, nil)
	require.ErrorIs(t, err, ErrDataUnavailable)
}
