package core

import (
	"context"
	"time"

	"genealogycore/pkg/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "genealogycore/internal/core"

// Logger is the structured logging surface the service writes to. Arguments
// after msg are alternating keys and values.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger adapts a zap logger to Logger. A nil logger yields zap's no-op
// logger.
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return zapLogger{sugar: l.Sugar()}
}

func (z zapLogger) Debug(msg string, args ...any) { z.sugar.Debugw(msg, args...) }
func (z zapLogger) Info(msg string, args ...any)  { z.sugar.Infow(msg, args...) }
func (z zapLogger) Warn(msg string, args ...any)  { z.sugar.Warnw(msg, args...) }
func (z zapLogger) Error(msg string, args ...any) { z.sugar.Errorw(msg, args...) }

// MetricsRecorder receives one observation per service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

// PrometheusMetricsRecorder exports operation latency and outcome counts.
type PrometheusMetricsRecorder struct {
	duration *prometheus.HistogramVec
	results  *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder registers the service collectors with reg.
// A nil reg uses the default registerer.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) *PrometheusMetricsRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &PrometheusMetricsRecorder{
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "genealogy",
			Subsystem: "service",
			Name:      "operation_duration_seconds",
			Help:      "Duration of service operations in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"operation"}),
		results: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "genealogy",
			Subsystem: "service",
			Name:      "operations_total",
			Help:      "Total number of service operations by result",
		}, []string{"operation", "result"}),
	}
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	result := "error"
	if success {
		result = "success"
	}
	r.duration.WithLabelValues(operation).Observe(duration.Seconds())
	r.results.WithLabelValues(operation, result).Inc()
}

// instrument wraps one service operation in a span, a metrics observation and
// a log line. Storage failures log at error level; the expected outcomes
// (not found, conflict, validation) log at debug.
func (s *Service) instrument(ctx context.Context, op string, attrs []attribute.KeyValue, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, op, trace.WithAttributes(attrs...))
	started := s.now()
	err := fn(ctx)
	elapsed := s.now().Sub(started)
	s.metrics.Observe(ctx, op, err == nil, elapsed)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		kv := append(attrArgs(attrs), "error", err.Error())
		if domain.IsExpected(err) {
			s.logger.Debug(op+" rejected", kv...)
		} else {
			s.logger.Error(op+" failed", kv...)
		}
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
	return err
}

func attrArgs(attrs []attribute.KeyValue) []any {
	out := make([]any, 0, len(attrs)*2)
	for _, a := range attrs {
		out = append(out, string(a.Key), a.Value.Emit())
	}
	return out
}

func entityAttrs(kind domain.EntityType, id string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("entity.type", string(kind))}
	if id != "" {
		attrs = append(attrs, attribute.String("entity.id", id))
	}
	return attrs
}

func defaultTracer() trace.Tracer { return otel.Tracer(tracerName) }
