package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics mirrors the gauges/counters-over-HTTP pattern
// adred-codev-ws_poc/src/metrics.go uses for its connection metrics,
// retargeted at the TSV's own stress properties instead of connection
// counts.
type Metrics struct {
	activeReaders prometheus.Gauge
	writesTotal   prometheus.Counter
	destroysTotal prometheus.Counter
	waiterWakeups prometheus.Counter
	writerStalls  prometheus.Histogram
}

// NewMetrics registers and returns a fresh Metrics set on its own registry,
// so multiple scenarios in one process don't collide on metric names.
func NewMetrics() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		activeReaders: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tsvsoak_active_readers",
			Help: "Readers currently in flight inside Get.",
		}),
		writesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tsvsoak_writes_total",
			Help: "Total successful Set calls.",
		}),
		destroysTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tsvsoak_destroys_total",
			Help: "Total destructor invocations observed.",
		}),
		waiterWakeups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tsvsoak_waiter_wakeups_total",
			Help: "Total Wait() calls that returned.",
		}),
		writerStalls: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tsvsoak_writer_stall_seconds",
			Help:    "Time a Set call spent blocked before publishing.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.activeReaders, m.writesTotal, m.destroysTotal, m.waiterWakeups, m.writerStalls)
	return m, reg
}

// Serve starts an HTTP server exposing /metrics on addr until ctx is
// cancelled. A blank addr disables the endpoint entirely — tsvsoak runs
// fine as a one-shot CLI tool without it.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		_ = srv.ListenAndServe()
	}()
}
