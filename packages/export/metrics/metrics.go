// Package metrics exposes execution outcomes as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abdul-hamid-achik/scriptsuite/packages/core/runner"
	"github.com/abdul-hamid-achik/scriptsuite/packages/core/suite"
)

const Namespace = "scriptsuite"

// PrometheusObserver records engine callbacks into its own registry.
type PrometheusObserver struct {
	runner.BaseObserver

	registry *prometheus.Registry

	caseResults  *prometheus.CounterVec
	caseDuration *prometheus.HistogramVec
	caseAttempts *prometheus.CounterVec
	runs         *prometheus.CounterVec
	runDuration  *prometheus.GaugeVec
	runErrors    *prometheus.CounterVec
}

// NewPrometheusObserver creates an observer with a private registry.
func NewPrometheusObserver() *PrometheusObserver {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &PrometheusObserver{
		registry: reg,
		caseResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "test_case_results_total",
			Help:      "Count of test case results by status",
		}, []string{"suite", "status"}),
		caseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "test_case_duration_seconds",
			Help:      "Duration of executed test cases",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		}, []string{"suite"}),
		caseAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "test_case_attempts_total",
			Help:      "Script runner invocations made for test cases",
		}, []string{"suite"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "executions_total",
			Help:      "Count of finished executions by status",
		}, []string{"suite", "status"}),
		runDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_execution_duration_seconds",
			Help:      "Duration of the most recent execution",
		}, []string{"suite"}),
		runErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "execution_errors_total",
			Help:      "Count of aborted executions",
		}, []string{"suite"}),
	}
}

// Registry returns the registry holding every metric of the observer.
func (p *PrometheusObserver) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusObserver) OnProgress(result *suite.ExecutionResult, current, _ int) {
	if current == 0 || current > len(result.Results) {
		return
	}
	r := result.Results[current-1]
	p.caseResults.WithLabelValues(result.SuiteName, string(r.Status)).Inc()
	if r.Status == suite.StatusSkipped {
		return
	}
	p.caseDuration.WithLabelValues(result.SuiteName).Observe(r.Duration.Seconds())
	p.caseAttempts.WithLabelValues(result.SuiteName).Add(float64(r.Attempts))
}

func (p *PrometheusObserver) OnComplete(result *suite.ExecutionResult) {
	p.runs.WithLabelValues(result.SuiteName, string(result.Status)).Inc()
	p.runDuration.WithLabelValues(result.SuiteName).Set(result.Duration.Seconds())
}

func (p *PrometheusObserver) OnError(_ error, result *suite.ExecutionResult) {
	p.runErrors.WithLabelValues(result.SuiteName).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusObserver) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the registry to path for the node exporter
// textfile collector.
func (p *PrometheusObserver) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, p.registry)
}

// Serve exposes /metrics on addr until ctx is done.
func (p *PrometheusObserver) Serve(ctx context.Context, addr string, log *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", p.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info("serving metrics", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
