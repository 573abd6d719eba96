package metrics

import coremetrics "github.com/mkrogh/nightcharge/core/metrics"

// MultiRecorder fans a run outcome out to multiple recorders.
type MultiRecorder struct {
	Recorders []coremetrics.RunRecorder
}

// NewMultiRecorder creates a MultiRecorder with the provided recorders.
func NewMultiRecorder(recorders ...coremetrics.RunRecorder) *MultiRecorder {
	return &MultiRecorder{Recorders: recorders}
}

// RecordRunOutcome forwards the outcome to all recorders, returning the
// first error encountered.
func (m *MultiRecorder) RecordRunOutcome(out coremetrics.RunOutcome) error {
	for _, r := range m.Recorders {
		if err := r.RecordRunOutcome(out); err != nil {
			return err
		}
	}
	return nil
}
