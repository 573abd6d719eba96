package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrogh/nightcharge/config"
	coremetrics "github.com/mkrogh/nightcharge/core/metrics"
	"github.com/mkrogh/nightcharge/core/model"
	"github.com/mkrogh/nightcharge/core/pricing"
	"github.com/mkrogh/nightcharge/core/reconcile"
	"github.com/mkrogh/nightcharge/infra/logger"
	"github.com/mkrogh/nightcharge/infra/runlog"
)

// fakeFeed serves canned series keyed by calendar day.
type fakeFeed struct {
	days map[string]model.PriceSeries
}

func (f *fakeFeed) HourlyPrices(_ context.Context, day time.Time, _, _ string) (model.PriceSeries, error) {
	s, ok := f.days[day.Format("2006-01-02")]
	if !ok {
		return nil, pricing.ErrDataUnavailable
	}
	return s, nil
}

// fakeCar is a scriptable vehicle for end-to-end runs.
type fakeCar struct {
	online   bool
	limit    int
	setCalls []int
}

func (f *fakeCar) State(context.Context) (model.VehicleState, error) {
	if !f.online {
		return model.VehicleState{}, nil
	}
	return model.VehicleState{Online: true, ChargeLimit: f.limit}, nil
}

func (f *fakeCar) Wake(context.Context) error { return nil }

func (f *fakeCar) SetChargeLimit(_ context.Context, percent int) error {
	f.setCalls = append(f.setCalls, percent)
	return nil
}

func (f *fakeCar) Position(context.Context) (float64, float64, error) {
	return 55.721638, 12.360973, nil
}

// series builds a published day, overriding first and last hours.
func series(t *testing.T, date string, first, last float64) model.PriceSeries {
	t.Helper()
	start, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)
	s := make(model.PriceSeries, model.HoursPerDay)
	for i := range s {
		s[i] = model.PricePoint{Start: start.Add(time.Duration(i) * time.Hour), Value: 200, Known: true}
	}
	s[0].Value = first
	s[len(s)-1].Value = last
	return s
}

func unpublished(t *testing.T, date string) model.PriceSeries {
	t.Helper()
	s := series(t, date, 0, 0)
	for i := range s {
		s[i] = model.PricePoint{Start: s[i].Start}
	}
	return s
}

func newTestService(t *testing.T, feed *fakeFeed, car *fakeCar, mutate func(*config.Config)) *Service {
	t.Helper()
	cfg := &config.Config{}
	cfg.Auth.Token = "tok"
	cfg.SetDefaults()
	cfg.Charge.CheapThreshold = 280
	cfg.Wake.TimeoutSeconds = 1
	cfg.Wake.PollIntervalSeconds = 1
	cfg.Wake.RetryDelaySeconds = 1
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())

	store, err := runlog.NewStore(filepath.Join(t.TempDir(), "run.log"), 1, 1, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	// Runs are pinned to a known date so the feed fakes line up.
	now := time.Date(2026, 8, 29, 18, 0, 0, 0, time.UTC)
	return &Service{
		cfg:      cfg,
		log:      logger.NopLogger{},
		prices:   feed,
		vehicle:  car,
		position: car,
		store:    store,
		recorder: coremetrics.NopRecorder{},
		now:      func() time.Time { return now },
	}
}

func TestRunTomorrowUnpublishedNotCheap(t *testing.T) {
	// Tonight resolves to today's last hour (300), above the 280
	// threshold: low tier.
	feed := &fakeFeed{days: map[string]model.PriceSeries{
		"2026-08-29": series(t, "2026-08-29", 180, 300),
		"2026-08-30": unpublished(t, "2026-08-30"),
	}}
	car := &fakeCar{online: true, limit: 80}

	res, err := newTestService(t, feed, car, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 300.0, res.Decision.TonightPrice)
	assert.False(t, res.Decision.BetterPriceTomorrow)
	assert.Equal(t, 60, res.Target)
	assert.Equal(t, reconcile.StateReconciled, res.Outcome.State)
	assert.Equal(t, []int{60}, car.setCalls)
}

func TestRunTomorrowNightCheaper(t *testing.T) {
	// 150 is under the threshold, but 100 tomorrow night dominates:
	// hold back at the low tier and let a later run decide.
	feed := &fakeFeed{days: map[string]model.PriceSeries{
		"2026-08-29": series(t, "2026-08-29", 180, 190),
		"2026-08-30": series(t, "2026-08-30", 150, 100),
	}}
	car := &fakeCar{online: true, limit: 80}

	res, err := newTestService(t, feed, car, nil).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Decision.BetterPriceTomorrow)
	assert.Equal(t, 60, res.Target)
	assert.Equal(t, []int{60}, car.setCalls)
}

func TestRunCheapTonight(t *testing.T) {
	feed := &fakeFeed{days: map[string]model.PriceSeries{
		"2026-08-29": series(t, "2026-08-29", 180, 190),
		"2026-08-30": series(t, "2026-08-30", 150, 200),
	}}
	car := &fakeCar{online: true, limit: 80}

	res, err := newTestService(t, feed, car, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 150.0, res.Decision.TonightPrice)
	assert.False(t, res.Decision.BetterPriceTomorrow)
	assert.Equal(t, 90, res.Target)
	assert.Equal(t, []int{90}, car.setCalls)
}

func TestRunVehicleNeverWakes(t *testing.T) {
	feed := &fakeFeed{days: map[string]model.PriceSeries{
		"2026-08-29": series(t, "2026-08-29", 180, 190),
		"2026-08-30": series(t, "2026-08-30", 150, 200),
	}}
	car := &fakeCar{online: false}

	res, err := newTestService(t, feed, car, nil).Run(context.Background())
	require.NoError(t, err, "a wake timeout ends the run cleanly")
	assert.Equal(t, reconcile.StateTimedOut, res.Outcome.State)
	assert.Empty(t, car.setCalls)
}

func TestRunTripMode(t *testing.T) {
	feed := &fakeFeed{days: map[string]model.PriceSeries{
		"2026-08-29": series(t, "2026-08-29", 180, 190),
		"2026-08-30": series(t, "2026-08-30", 150, 200),
	}}
	car := &fakeCar{online: true, limit: 95}

	res, err := newTestService(t, feed, car, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reconcile.StateTripModeSkipped, res.Outcome.State)
	assert.Empty(t, car.setCalls)
}

func TestRunNoUsablePrices(t *testing.T) {
	feed := &fakeFeed{days: map[string]model.PriceSeries{
		"2026-08-29": unpublished(t, "2026-08-29"),
		"2026-08-30": unpublished(t, "2026-08-30"),
	}}
	car := &fakeCar{online: true, limit: 80}

	_, err := newTestService(t, feed, car, nil).Run(context.Background())
	require.ErrorIs(t, err, pricing.ErrDataUnavailable)
	assert.Empty(t, car.setCalls, "no target decision without a usable price")
}

func TestRunReportsLocation(t *testing.T) {
	feed := &fakeFeed{days: map[string]model.PriceSeries{
		"2026-08-29": series(t, "2026-08-29", 180, 190),
		"2026-08-30": series(t, "2026-08-30", 150, 200),
	}}
	car := &fakeCar{online: true, limit: 80}

	svc := newTestService(t, feed, car, func(cfg *config.Config) {
		cfg.Locations.Home = config.Coordinate{Lat: 55.721638, Long: 12.360973}
	})
	res, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "home", res.Location)
}
