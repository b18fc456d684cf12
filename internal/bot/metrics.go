package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/roach88/resbot/internal/audit"
	"github.com/roach88/resbot/internal/resolution"
)

// Reload sources for the resbot_reloads_total metric.
const (
	ReloadSourceCommand = "command"
	ReloadSourceWatch   = "watch"
)

// Metrics holds the bot's Prometheus collectors on a private registry.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry
	commands *prometheus.CounterVec
	duration *prometheus.HistogramVec
	reloads  *prometheus.CounterVec
}

// NewMetrics creates the collectors. The resolution count gauge reads
// store on every scrape.
func NewMetrics(store *resolution.Store) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "resbot_commands_total",
			Help: "Slash command invocations by command and outcome.",
		}, []string{"command", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "resbot_command_duration_seconds",
			Help:    "Time spent handling a slash command, excluding the Discord round trip.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"command"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "resbot_reloads_total",
			Help: "Reload attempts by source and result.",
		}, []string{"source", "result"}),
	}

	m.registry.MustRegister(
		m.commands,
		m.duration,
		m.reloads,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "resbot_resolutions",
			Help: "Resolutions currently held in memory.",
		}, func() float64 {
			return float64(store.Len())
		}),
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveCommand counts one handled command.
func (m *Metrics) ObserveCommand(command string, outcome audit.Outcome, d time.Duration) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command, string(outcome)).Inc()
	m.duration.WithLabelValues(command).Observe(d.Seconds())
}

// ObserveReload counts one reload attempt.
func (m *Metrics) ObserveReload(source string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.reloads.WithLabelValues(source, result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ServeMetrics serves m on addr under /metrics until ctx is cancelled.
func ServeMetrics(ctx context.Context, addr string, m *Metrics, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
