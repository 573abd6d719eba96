package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkrogh/nightcharge/config"
	"github.com/mkrogh/nightcharge/core/charge"
	"github.com/mkrogh/nightcharge/core/location"
	coremetrics "github.com/mkrogh/nightcharge/core/metrics"
	"github.com/mkrogh/nightcharge/core/model"
	"github.com/mkrogh/nightcharge/core/pricing"
	"github.com/mkrogh/nightcharge/core/reconcile"
	"github.com/mkrogh/nightcharge/infra/logger"
	"github.com/mkrogh/nightcharge/infra/metrics"
	"github.com/mkrogh/nightcharge/infra/nordpool"
	"github.com/mkrogh/nightcharge/infra/runlog"
	"github.com/mkrogh/nightcharge/infra/tesla"
)

// PriceSource provides one day of hourly prices.
type PriceSource interface {
	HourlyPrices(ctx context.Context, day time.Time, area, currency string) (model.PriceSeries, error)
}

// PositionSource reports the vehicle's current coordinates for the
// informational location report.
type PositionSource interface {
	Position(ctx context.Context) (lat, long float64, err error)
}

// Result is what one run decided and did.
type Result struct {
	RunID    string
	Decision model.PriceDecision
	Target   int
	Outcome  reconcile.Outcome
	Location string
}

// Service runs one decision-and-actuation cycle and exits. Strictly
// sequential: fetch prices, decide, reconcile the vehicle, report.
type Service struct {
	cfg      *config.Config
	log      logger.Logger
	prices   PriceSource
	vehicle  reconcile.VehicleAPI
	position PositionSource
	store    *runlog.Store
	recorder coremetrics.RunRecorder
	now      func() time.Time
}

// New wires a Service from the configuration. The vehicle client
// authenticates here, so credential problems surface before any price
// is fetched.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	client, err := tesla.NewClient(ctx, tesla.Config{
		BaseURL:  cfg.Wake.VehicleBaseURL,
		Token:    cfg.Auth.Token,
		Email:    cfg.Auth.Email,
		Password: cfg.Auth.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("vehicle client (%s auth): %w", cfg.Auth.Mode(), err)
	}
	handle, err := tesla.FirstVehicle(ctx, client)
	if err != nil {
		return nil, err
	}

	store, err := runlog.NewStore(cfg.RunLog.Path, cfg.RunLog.MaxSizeMB, cfg.RunLog.MaxBackups, cfg.RunLog.MaxAgeDays)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}

	var recorders []coremetrics.RunRecorder
	if cfg.Metrics.InfluxEnabled {
		recorders = append(recorders, metrics.NewInfluxSinkWithFallback(
			cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken, cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket))
	}
	if cfg.Metrics.PushEnabled {
		recorders = append(recorders, metrics.NewPushSink(cfg.Metrics.PushURL, cfg.Metrics.PushJob))
	}
	var recorder coremetrics.RunRecorder = coremetrics.NopRecorder{}
	if len(recorders) == 1 {
		recorder = recorders[0]
	} else if len(recorders) > 1 {
		recorder = metrics.NewMultiRecorder(recorders...)
	}

	return &Service{
		cfg:      cfg,
		log:      logg,
		prices:   nordpool.New(cfg.Feed.BaseURL),
		vehicle:  handle,
		position: handle,
		store:    store,
		recorder: recorder,
		now:      time.Now,
	}, nil
}

// Run executes one full cycle. Expected operational outcomes such as a
// wake timeout or an active trip mode return a nil error; only
// unrecoverable conditions are errors.
func (s *Service) Run(ctx context.Context) (Result, error) {
	res := Result{RunID: uuid.NewString()}

	dec, err := s.decide(ctx)
	if err != nil {
		s.finish(res, err)
		return res, err
	}
	res.Decision = dec
	res.Target = charge.Target(dec, charge.Limits{
		CheapThreshold: s.cfg.Charge.CheapThreshold,
		MinPercent:     s.cfg.Charge.MinPercent,
		MaxPercent:     s.cfg.Charge.MaxPercent,
	})
	s.log.Infow("charge target selected", map[string]any{
		"run_id":                res.RunID,
		"tonight_price":         dec.TonightPrice,
		"better_price_tomorrow": dec.BetterPriceTomorrow,
		"cheap_threshold":       s.cfg.Charge.CheapThreshold,
		"target_percent":        res.Target,
	})

	rec := reconcile.New(s.vehicle, reconcile.Backoff{
		WakeTimeout:  time.Duration(s.cfg.Wake.TimeoutSeconds) * time.Second,
		PollInterval: time.Duration(s.cfg.Wake.PollIntervalSeconds) * time.Second,
		RetryDelay:   time.Duration(s.cfg.Wake.RetryDelaySeconds) * time.Second,
	}, s.cfg.Charge.TripThreshold, logger.New("reconcile"))

	res.Outcome, err = rec.Reconcile(ctx, res.Target)
	if err != nil {
		s.finish(res, err)
		return res, err
	}

	if s.cfg.Locations.Any() && res.Outcome.State != reconcile.StateTimedOut {
		res.Location = s.locate(ctx)
	}

	s.finish(res, nil)
	return res, nil
}

// decide fetches both day series and normalizes them into tonight's
// price.
func (s *Service) decide(ctx context.Context) (model.PriceDecision, error) {
	day := s.now().UTC().Truncate(24 * time.Hour)
	today, err := s.prices.HourlyPrices(ctx, day, s.cfg.Feed.Area, s.cfg.Feed.Currency)
	if err != nil {
		return model.PriceDecision{}, fmt.Errorf("today's prices: %w", err)
	}
	tomorrow, err := s.prices.HourlyPrices(ctx, day.AddDate(0, 0, 1), s.cfg.Feed.Area, s.cfg.Feed.Currency)
	if err != nil {
		return model.PriceDecision{}, fmt.Errorf("tomorrow's prices: %w", err)
	}
	return pricing.Normalize(today, tomorrow)
}

// locate produces the informational "where is the car" report. Never
// fatal; the decision has already been made.
func (s *Service) locate(ctx context.Context) string {
	lat, long, err := s.position.Position(ctx)
	if err != nil {
		s.log.Warnf("drive state unavailable: %v", err)
		return ""
	}
	loc := s.cfg.Locations
	name := location.Match(lat, long, []location.Place{
		{Name: "home", Lat: loc.Home.Lat, Long: loc.Home.Long},
		{Name: "work1", Lat: loc.Work1.Lat, Long: loc.Work1.Long},
		{Name: "work2", Lat: loc.Work2.Lat, Long: loc.Work2.Long},
	}, loc.ToleranceDeg)
	if name == "" {
		s.log.Infof("car is at an unknown location")
	} else {
		s.log.Infof("car is at %s", name)
	}
	return name
}

// finish appends the run log record and records metrics. Failures here
// are logged but never override the run's outcome.
func (s *Service) finish(res Result, runErr error) {
	now := s.now().UTC()
	rec := runlog.Record{
		RunID:               res.RunID,
		Time:                now,
		TonightPrice:        res.Decision.TonightPrice,
		BetterPriceTomorrow: res.Decision.BetterPriceTomorrow,
		TargetPercent:       res.Target,
		ChargeLimit:         res.Outcome.ChargeLimit,
		FinalState:          res.Outcome.State.String(),
		CommandSent:         res.Outcome.CommandSent,
		Location:            res.Location,
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	if err := s.store.Append(rec); err != nil {
		s.log.Errorf("append run log: %v", err)
	}
	if err := s.recorder.RecordRunOutcome(coremetrics.RunOutcome{
		RunID:               res.RunID,
		TonightPrice:        res.Decision.TonightPrice,
		BetterPriceTomorrow: res.Decision.BetterPriceTomorrow,
		TargetPercent:       res.Target,
		ChargeLimit:         res.Outcome.ChargeLimit,
		FinalState:          res.Outcome.State.String(),
		CommandSent:         res.Outcome.CommandSent,
		Location:            res.Location,
		Time:                now,
	}); err != nil {
		s.log.Errorf("record run outcome: %v", err)
	}
	s.log.Infow("run finished", map[string]any{
		"run_id":       res.RunID,
		"final_state":  res.Outcome.State.String(),
		"command_sent": res.Outcome.CommandSent,
	})
}

// Close releases resources held by the service.
func (s *Service) Close() error { return s.store.Close() }
