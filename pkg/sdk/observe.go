package lanefuse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "lanefuse"
	metricsSubsystem = "sdk"
)

// sdkMetrics are the collectors a Client registers with WithPrometheus.
type sdkMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	misses     *prometheus.CounterVec
}

func sdkCounter(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace, Subsystem: metricsSubsystem, Name: name, Help: help,
	}, labels)
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		operations: sdkCounter("operations_total", "SDK calls by operation and outcome.", "operation", "status"),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "operation_duration_seconds",
			Help:      "SDK call latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 9),
		}, []string{"operation"}),
		misses: sdkCounter("store_misses_total", "Lookups of expired or unknown records by kind.", "kind"),
	}
	// Several clients may share one registry; the second one adopts the
	// collectors the first registered.
	errs := []error{
		registerOrReuse(reg, &m.operations),
		registerOrReuse(reg, &m.duration),
		registerOrReuse(reg, &m.misses),
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c *C) error {
	err := reg.Register(*c)
	var dup prometheus.AlreadyRegisteredError
	switch {
	case err == nil:
		return nil
	case !errors.As(err, &dup):
		return fmt.Errorf("lanefuse: register metric: %w", err)
	}
	existing, ok := dup.ExistingCollector.(C)
	if !ok {
		return fmt.Errorf("lanefuse: metric registered with a different type %T", dup.ExistingCollector)
	}
	*c = existing
	return nil
}

// observer provides logging and metrics for SDK operations.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	var m *sdkMetrics
	if reg != nil {
		var err error
		m, err = newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
	}
	return &observer{logger: logger, metrics: m}, nil
}

// missCounter returns the miss counter for repositories, or nil.
func (o *observer) missCounter() *prometheus.CounterVec {
	if o == nil || o.metrics == nil {
		return nil
	}
	return o.metrics.misses
}

// span times one SDK operation.
type span struct {
	obs   *observer
	op    string
	start time.Time
	attrs []slog.Attr
}

// begin starts timing op. Use as `defer c.obs.begin("run.get").end(&err)`.
func (o *observer) begin(op string, attrs ...slog.Attr) span {
	return span{obs: o, op: op, start: time.Now(), attrs: attrs}
}

// end records the outcome held in *errp.
func (s span) end(errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	s.obs.record(s.op, time.Since(s.start), err, s.attrs...)
}

func (o *observer) record(op string, dur time.Duration, err error, attrs ...slog.Attr) {
	if o == nil {
		return
	}

	if o.metrics != nil {
		o.metrics.operations.WithLabelValues(op, status(err)).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
	}

	if o.logger == nil {
		return
	}
	attrs = append(attrs, slog.String("op", op), slog.Duration("duration", dur))
	if err != nil {
		o.logger.LogAttrs(context.Background(), slog.LevelWarn, "lanefuse operation failed",
			append(attrs, slog.Any("error", err))...)
		return
	}
	o.logger.LogAttrs(context.Background(), slog.LevelDebug, "lanefuse operation completed", attrs...)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
