package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewZerologLogger(t *testing.T) {
	l := NewZerologLogger("test")
	require.NotNil(t, l)
	_, ok := l.(*ZerologLogger)
	assert.True(t, ok)

	// Must not panic regardless of format or fields.
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": "v"})
	l.Infof("info")
	l.Infow("info", map[string]any{"price": 150.0})
	l.Warnf("warn")
	l.Errorf("error: %v", assert.AnError)
}

func TestNewZerologLoggerDevFormat(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	l := NewZerologLogger("test")
	require.NotNil(t, l)
	l.Infof("console format")
}

func TestNopLogger(t *testing.T) {
	var l Logger = NopLogger{}
	l.Debugf("ignored")
	l.Infow("ignored", nil)
	l.Errorf("ignored")
}
