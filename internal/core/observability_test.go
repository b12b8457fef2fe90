package core

import (
	"context"
	"errors"
	"testing"

	"genealogycore/internal/infra/persistence/memory"
	"genealogycore/pkg/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// brokenStore fails every write as a backend would.
type brokenStore struct {
	*memory.Store
}

func (brokenStore) RunInTransaction(context.Context, func(domain.Transaction) error) (domain.Result, error) {
	return domain.Result{}, domain.StorageError{Op: "commit", Err: errors.New("disk full")}
}

func TestLogLevelsFollowErrorKind(t *testing.T) {
	ctx := context.Background()
	observed, logs := observer.New(zapcore.DebugLevel)
	logger := NewZapLogger(zap.New(observed))

	svc := NewService(brokenStore{memory.NewStore()}, WithLogger(logger))
	_, err := svc.Persons.Create(ctx, domain.Person{Surname: "Smith"})
	require.ErrorIs(t, err, domain.ErrStorage)

	_, err = svc.Persons.Get(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	failed := logs.FilterMessage("create_person failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, zapcore.ErrorLevel, failed[0].Level)
	assert.Equal(t, "person", failed[0].ContextMap()["entity.type"])

	rejected := logs.FilterMessage("get_person rejected").All()
	require.Len(t, rejected, 1)
	assert.Equal(t, zapcore.DebugLevel, rejected[0].Level)
	assert.Equal(t, "missing", rejected[0].ContextMap()["entity.id"])
}

func TestPrometheusRecorderCountsOutcomes(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	svc := newTestService(t, WithMetricsRecorder(NewPrometheusMetricsRecorder(reg)))

	mustPerson(t, svc, "p1", "Alice", "Smith")
	_, err := svc.Persons.Get(ctx, "missing")
	require.Error(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	counts := map[string]float64{}
	var histogramSamples uint64
	for _, mf := range families {
		switch mf.GetName() {
		case "genealogy_service_operations_total":
			for _, m := range mf.GetMetric() {
				var op, result string
				for _, label := range m.GetLabel() {
					switch label.GetName() {
					case "operation":
						op = label.GetValue()
					case "result":
						result = label.GetValue()
					}
				}
				counts[op+"/"+result] = m.GetCounter().GetValue()
			}
		case "genealogy_service_operation_duration_seconds":
			for _, m := range mf.GetMetric() {
				histogramSamples += m.GetHistogram().GetSampleCount()
			}
		}
	}
	assert.Equal(t, 1.0, counts["create_person/success"])
	assert.Equal(t, 1.0, counts["get_person/error"])
	assert.EqualValues(t, 2, histogramSamples)
}

func TestSpansPerOperation(t *testing.T) {
	ctx := context.Background()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	svc := newTestService(t, WithTracer(provider.Tracer("test")))
	mustPerson(t, svc, "p1", "Alice", "Smith")
	_, err := svc.Persons.Save(ctx, domain.Person{Base: domain.Base{ID: "p1"}, Surname: "X"}, 5)
	require.ErrorIs(t, err, domain.ErrConflict)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "create_person", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, "save_person", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	require.NotEmpty(t, spans[1].Events())
	assert.Equal(t, "exception", spans[1].Events()[0].Name)
}

func TestNoopDefaults(t *testing.T) {
	svc := NewInMemoryService()
	assert.NotPanics(t, func() {
		svc.logger.Debug("d", "k", "v")
		svc.logger.Error("e")
		svc.metrics.Observe(context.Background(), "op", true, 0)
	})
	assert.NotPanics(t, func() { NewZapLogger(nil).Info("i") })
}
