package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds a structured logger the way
// adred-codev-ws_poc/src/logger.go builds its request logger: JSON to
// stdout, RFC3339 timestamps, a service tag, level from config.
func NewLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	return zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("component", "tsvsoak").
		Logger()
}

// ScenarioResult summarizes one scenario's outcome for the final report.
type ScenarioResult struct {
	Name          string
	Duration      time.Duration
	Writes        int
	DestroyCalls  int
	MaxVersionGap uint64 // number of backward version jumps observed by readers, should be 0
	CPUPercent    float64
	RSSBytes      uint64
}

// LogResult emits a structured summary of one scenario via logger.
func LogResult(logger zerolog.Logger, r ScenarioResult) {
	logger.Info().
		Str("scenario", r.Name).
		Dur("duration", r.Duration).
		Int("writes", r.Writes).
		Int("destroy_calls", r.DestroyCalls).
		Uint64("max_version_regression", r.MaxVersionGap).
		Float64("cpu_percent", r.CPUPercent).
		Uint64("rss_bytes", r.RSSBytes).
		Msg("scenario complete")
}
