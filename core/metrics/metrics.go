package metrics

import "time"

// RunOutcome captures everything needed to audit one charge decision
// run after the fact.
type RunOutcome struct {
	RunID               string
	TonightPrice        float64
	BetterPriceTomorrow bool
	TargetPercent       int
	ChargeLimit         int
	FinalState          string
	CommandSent         bool
	Location            string
	Time                time.Time
}

// RunRecorder records run outcomes for observability purposes.
type RunRecorder interface {
	RecordRunOutcome(out RunOutcome) error
}

// NopRecorder implements RunRecorder with a no-op.
type NopRecorder struct{}

func (NopRecorder) RecordRunOutcome(RunOutcome) error { return nil }
