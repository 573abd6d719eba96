package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/mkrogh/nightcharge/core/metrics"
)

type captureRecorder struct {
	got []coremetrics.RunOutcome
	err error
}

func (c *captureRecorder) RecordRunOutcome(out coremetrics.RunOutcome) error {
	c.got = append(c.got, out)
	return c.err
}

func TestMultiRecorderFansOut(t *testing.T) {
	a := &captureRecorder{}
	b := &captureRecorder{}
	m := NewMultiRecorder(a, b)

	out := coremetrics.RunOutcome{RunID: "r1", FinalState: "reconciled", TargetPercent: 90}
	require.NoError(t, m.RecordRunOutcome(out))
	require.Len(t, a.got, 1)
	require.Len(t, b.got, 1)
	assert.Equal(t, "r1", b.got[0].RunID)
}

func TestMultiRecorderReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	a := &captureRecorder{err: boom}
	b := &captureRecorder{}
	m := NewMultiRecorder(a, b)

	err := m.RecordRunOutcome(coremetrics.RunOutcome{RunID: "r1"})
	require.ErrorIs(t, err, boom)
}
