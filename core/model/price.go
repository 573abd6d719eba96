package model

import (
	"fmt"
	"time"
)

// HoursPerDay is the number of points a fully published day series carries.
const HoursPerDay = 24

// PricePoint is one hour of a day's spot price series.
type PricePoint struct {
	Start time.Time
	// Value is the spot price for the hour in the configured currency.
	// It is only meaningful when Known is true.
	Value float64
	// Known is false while the feed has not published this hour yet.
	// The feed announces the next day's prices once per day, early
	// afternoon CET.
	Known bool
}

// PriceSeries is one calendar day of hourly prices for a single price
// area, midnight to midnight in the feed's local day window.
type PriceSeries []PricePoint

// Available reports whether the day has been published. A day is
// unavailable as a whole when its first hour is still unknown.
func (s PriceSeries) Available() bool {
	return len(s) > 0 && s[0].Known
}

// First returns the midnight hour of the day.
func (s PriceSeries) First() PricePoint { return s[0] }

// Last returns the final hour of the day (~23:00).
func (s PriceSeries) Last() PricePoint { return s[len(s)-1] }

// Validate checks the feed contract: exactly 24 points in ascending,
// contiguous hourly order.
func (s PriceSeries) Validate() error {
	if len(s) != HoursPerDay {
		return fmt.Errorf("expected %d hourly points, got %d", HoursPerDay, len(s))
	}
	for i := 1; i < len(s); i++ {
		if !s[i].Start.Equal(s[i-1].Start.Add(time.Hour)) {
			return fmt.Errorf("points %d and %d are not contiguous hours (%s -> %s)",
				i-1, i, s[i-1].Start.Format(time.RFC3339), s[i].Start.Format(time.RFC3339))
		}
	}
	return nil
}

// PriceDecision is the normalized result of one run's price lookup.
// TonightPrice is always a concrete value; normalization fails instead
// of letting an unknown price through.
type PriceDecision struct {
	TonightPrice float64
	// BetterPriceTomorrow is true when the following night is strictly
	// cheaper than tonight, in which case a later run should make the
	// call instead.
	BetterPriceTomorrow bool
}
