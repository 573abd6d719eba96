package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mkrogh/nightcharge/core/logger"
	"github.com/mkrogh/nightcharge/core/model"
)

// State is a phase of the reconciliation protocol.
type State int

const (
	StateUnknown State = iota
	StateWaking
	StateOnline
	StateReconciled
	StateTripModeSkipped
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateWaking:
		return "waking"
	case StateOnline:
		return "online"
	case StateReconciled:
		return "reconciled"
	case StateTripModeSkipped:
		return "trip_mode_skipped"
	case StateTimedOut:
		return "timed_out"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// VehicleAPI is the remote control surface the reconciler drives.
type VehicleAPI interface {
	// State returns a fresh snapshot. ChargeLimit is only meaningful
	// while the vehicle is online.
	State(ctx context.Context) (model.VehicleState, error)
	// Wake asks the vehicle to come online. Coming online takes a
	// while; callers poll State afterwards.
	Wake(ctx context.Context) error
	// SetChargeLimit applies the charge limit. Setting the current
	// value again is valid and must succeed.
	SetChargeLimit(ctx context.Context, percent int) error
}

// Backoff bounds the wake/poll protocol and transient-error retries.
type Backoff struct {
	// WakeTimeout is the overall budget for the vehicle to come
	// online. Exceeding it ends the run in StateTimedOut.
	WakeTimeout time.Duration
	// PollInterval is the wait between wake-and-poll attempts.
	PollInterval time.Duration
	// RetryDelay is the wait before the single retry of a transient
	// remote call.
	RetryDelay time.Duration
}

// DefaultBackoff mirrors the observed behaviour: a ten minute wake
// budget, polling twice a minute, with a ten second retry delay.
var DefaultBackoff = Backoff{
	WakeTimeout:  10 * time.Minute,
	PollInterval: 30 * time.Second,
	RetryDelay:   10 * time.Second,
}

// ErrActuationFailure marks a rejected charge-limit command after the
// vehicle was confirmed online. Distinct from a reachability failure:
// it indicates an unexpected remote condition.
var ErrActuationFailure = errors.New("charge limit command rejected")

// Outcome is the terminal result of one reconciliation.
type Outcome struct {
	State State
	// ChargeLimit is the limit observed once the vehicle was online.
	ChargeLimit int
	Target      int
	CommandSent bool
}

// Reconciler brings the vehicle to a known reachable state, detects the
// trip mode override and applies the target charge limit idempotently.
type Reconciler struct {
	api           VehicleAPI
	backoff       Backoff
	tripThreshold int
	log           logger.Logger

	// sleep is injectable for tests. It must honor ctx cancellation.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// New creates a Reconciler. A charge limit above tripThreshold is
// treated as an operator override and left untouched.
func New(api VehicleAPI, backoff Backoff, tripThreshold int, log logger.Logger) *Reconciler {
	if backoff.WakeTimeout <= 0 {
		backoff.WakeTimeout = DefaultBackoff.WakeTimeout
	}
	if backoff.PollInterval <= 0 {
		backoff.PollInterval = DefaultBackoff.PollInterval
	}
	if backoff.RetryDelay <= 0 {
		backoff.RetryDelay = DefaultBackoff.RetryDelay
	}
	return &Reconciler{
		api:           api,
		backoff:       backoff,
		tripThreshold: tripThreshold,
		log:           log,
		sleep:         sleepCtx,
		now:           time.Now,
	}
}

// Reconcile runs the protocol: Unknown -> Waking -> Online ->
// (Reconciled | TripModeSkipped), with TimedOut as the terminal
// failure state of the wake loop. TimedOut and TripModeSkipped are
// expected operational outcomes, not errors.
func (r *Reconciler) Reconcile(ctx context.Context, target int) (Outcome, error) {
	out := Outcome{State: StateUnknown, Target: target}

	vs, err := r.queryState(ctx)
	if err != nil {
		return out, fmt.Errorf("query vehicle state: %w", err)
	}

	if !vs.Online {
		out.State = StateWaking
		vs, err = r.wakeLoop(ctx)
		if err != nil {
			return out, err
		}
		if !vs.Online {
			out.State = StateTimedOut
			r.log.Warnf("vehicle did not come online within %s, leaving charge limit alone until the next run", r.backoff.WakeTimeout)
			return out, nil
		}
	}

	out.State = StateOnline
	out.ChargeLimit = vs.ChargeLimit

	if vs.ChargeLimit > r.tripThreshold {
		out.State = StateTripModeSkipped
		r.log.Infof("trip mode active (current limit %d%% > %d%%), not touching the charge limit", vs.ChargeLimit, r.tripThreshold)
		return out, nil
	}

	// Sent unconditionally, even when target equals the current limit.
	// The command is idempotent and safe to repeat.
	if err := r.setLimit(ctx, target); err != nil {
		return out, fmt.Errorf("%w: %v", ErrActuationFailure, err)
	}
	out.State = StateReconciled
	out.CommandSent = true
	r.log.Infof("charge limit set to %d%% (was %d%%)", target, vs.ChargeLimit)
	return out, nil
}

// wakeLoop issues wake signals and re-queries until the vehicle is
// online or the overall budget elapses. A nil error with an offline
// state means the budget ran out.
func (r *Reconciler) wakeLoop(ctx context.Context) (model.VehicleState, error) {
	deadline := r.now().Add(r.backoff.WakeTimeout)
	attempt := 0
	for {
		attempt++
		if err := r.api.Wake(ctx); err != nil {
			if !transient(err) {
				return model.VehicleState{}, fmt.Errorf("wake vehicle: %w", err)
			}
			// A sleeping vehicle regularly rejects requests; the loop
			// itself is the retry mechanism here.
			r.log.Debugf("wake attempt %d failed: %v", attempt, err)
		}
		if err := r.sleep(ctx, r.backoff.PollInterval); err != nil {
			return model.VehicleState{}, err
		}
		vs, err := r.queryState(ctx)
		if err != nil {
			return model.VehicleState{}, fmt.Errorf("query vehicle state while waking: %w", err)
		}
		if vs.Online {
			r.log.Infof("vehicle online after %d wake attempt(s)", attempt)
			return vs, nil
		}
		if r.now().After(deadline) {
			return model.VehicleState{}, nil
		}
		r.log.Debugf("vehicle still offline after attempt %d", attempt)
	}
}

// queryState fetches the vehicle state, retrying once after RetryDelay
// on a transient failure.
func (r *Reconciler) queryState(ctx context.Context) (model.VehicleState, error) {
	vs, err := r.api.State(ctx)
	if err == nil {
		return vs, nil
	}
	if !transient(err) {
		return model.VehicleState{}, err
	}
	r.log.Warnf("vehicle state query failed, retrying in %s: %v", r.backoff.RetryDelay, err)
	if serr := r.sleep(ctx, r.backoff.RetryDelay); serr != nil {
		return model.VehicleState{}, serr
	}
	return r.api.State(ctx)
}

// setLimit applies the charge limit, retrying once after RetryDelay on
// a transient failure.
func (r *Reconciler) setLimit(ctx context.Context, percent int) error {
	err := r.api.SetChargeLimit(ctx, percent)
	if err == nil || !transient(err) {
		return err
	}
	r.log.Warnf("set charge limit failed, retrying in %s: %v", r.backoff.RetryDelay, err)
	if serr := r.sleep(ctx, r.backoff.RetryDelay); serr != nil {
		return serr
	}
	return r.api.SetChargeLimit(ctx, percent)
}

// transient reports whether a remote-call error may be retried.
// Credential rejections implement Permanent and are surfaced at once.
func transient(err error) bool {
	var perm interface{ Permanent() bool }
	if errors.As(err, &perm) {
		return !perm.Permanent()
	}
	return true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
