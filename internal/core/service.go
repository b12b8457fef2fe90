// Package core is the service facade over the genealogy read model: typed
// repositories per entity type, family and pedigree operations, browse reads,
// history and media payloads, instrumented with logs, metrics and spans.
package core

import (
	"time"

	"genealogycore/internal/blob"
	"genealogycore/internal/browse"
	"genealogycore/internal/history"
	"genealogycore/internal/infra/persistence/memory"
	"genealogycore/internal/query"
	"genealogycore/pkg/domain"

	"go.opentelemetry.io/otel/trace"
)

// Service exposes transactional operations over a persistent store.
type Service struct {
	store    domain.PersistentStore
	history  *history.Service
	query    *query.Engine
	browse   *browse.Index
	payloads *blob.Payloads

	logger  Logger
	metrics MetricsRecorder
	tracer  trace.Tracer
	now     func() time.Time

	Persons    *Repository[domain.Person]
	Names      *Repository[domain.PersonName]
	Families   *Repository[domain.Family]
	Sources    *Repository[domain.Source]
	Citations  *Repository[domain.Citation]
	Media      *Repository[domain.Media]
	Events     *Repository[domain.Event]
	Attributes *Repository[domain.Attribute]
}

// Option customises a Service.
type Option func(*Service)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(metrics MetricsRecorder) Option {
	return func(s *Service) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithTracer sets the tracer spans are started from. The default is the
// global otel provider's tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithClock overrides the time source used for operation timings.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithBlobStore enables media payload operations on store.
func WithBlobStore(store blob.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.payloads = blob.NewPayloads(store)
		}
	}
}

// NewService constructs a service backed by store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		history: history.New(store),
		query:   query.New(store),
		browse:  browse.New(store),
		logger:  noopLogger{},
		metrics: noopMetrics{},
		tracer:  defaultTracer(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Persons = newRepository[domain.Person](s, domain.EntityPerson)
	s.Names = newRepository[domain.PersonName](s, domain.EntityPersonName)
	s.Families = newRepository[domain.Family](s, domain.EntityFamily)
	s.Sources = newRepository[domain.Source](s, domain.EntitySource)
	s.Citations = newRepository[domain.Citation](s, domain.EntityCitation)
	s.Media = newRepository[domain.Media](s, domain.EntityMedia)
	s.Events = newRepository[domain.Event](s, domain.EntityEvent)
	s.Attributes = newRepository[domain.Attribute](s, domain.EntityAttribute)
	return s
}

// NewInMemoryService creates a service over a fresh in-memory store with the
// default integrity rules.
func NewInMemoryService(opts ...Option) *Service {
	return NewService(memory.NewStore(memory.WithRulesEngine(NewDefaultRulesEngine())), opts...)
}

// Store returns the underlying persistent store.
func (s *Service) Store() domain.PersistentStore { return s.store }
