package runlog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Record is one run's audit trail entry: everything needed to explain
// the decision after the fact without re-running.
type Record struct {
	RunID               string    `json:"run_id"`
	Time                time.Time `json:"time"`
	TonightPrice        float64   `json:"tonight_price"`
	BetterPriceTomorrow bool      `json:"better_price_tomorrow"`
	TargetPercent       int       `json:"target_percent"`
	ChargeLimit         int       `json:"charge_limit"`
	FinalState          string    `json:"final_state"`
	CommandSent         bool      `json:"command_sent"`
	Location            string    `json:"location,omitempty"`
	Error               string    `json:"error,omitempty"`
}

// Store appends one JSON line per run to a size-rotated log file.
type Store struct {
	w *lumberjack.Logger
}

// NewStore creates a store with rotation options in megabytes and days.
func NewStore(path string, maxSizeMB, maxBackups, maxAgeDays int) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &Store{w: &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   false,
	}}, nil
}

// Append writes the record, rotating first if needed.
func (s *Store) Append(rec Record) error {
	return json.NewEncoder(s.w).Encode(rec)
}

// Close closes the underlying writer.
func (s *Store) Close() error { return s.w.Close() }
