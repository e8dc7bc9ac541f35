// Command tsvsoak stress-tests a tsv.Var under the scenarios described in
// the base specification's end-to-end scenario list: many readers racing
// many writers, a waiter herd blocked on first publish, and a raw
// single-writer throughput hammer. It reports per-scenario destructor
// counts, version-regression counts, and resource usage, optionally
// exposing live Prometheus metrics while a long run is in flight.
//
// Usage:
//
//	tsvsoak                      # run every scenario once with defaults
//	TSVSOAK_ALGORITHM=subscription-slots tsvsoak
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		os.Stderr.WriteString("tsvsoak: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := NewLogger(cfg.LogLevel)
	logger.Info().Str("algorithm", cfg.Algorithm).Msg("starting soak run")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, reg := NewMetrics()
	Serve(ctx, cfg.MetricsAddr, reg)

	for _, scenario := range []func(*Config, *Metrics) ScenarioResult{
		RunConcurrentReadersWriters,
		RunWaiterHerd,
		RunWriteHammer,
	} {
		result := scenario(cfg, m)
		LogResult(logger, result)
		if result.MaxVersionGap != 0 {
			logger.Error().
				Str("scenario", result.Name).
				Uint64("regressions", result.MaxVersionGap).
				Msg("reader observed a version regression")
			os.Exit(1)
		}
	}

	logger.Info().Msg("soak run complete")
}
