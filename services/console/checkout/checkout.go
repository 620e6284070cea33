// Package checkout implements the cashier flow: resolve a cart, price its lines
// against the live catalog, guard against duplicate orders and write the order.
package checkout

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/advanced-supermart/console-backend/pkg/docstore"
	"github.com/advanced-supermart/console-backend/services/console/models"
)

const (
	CartsCollection    = "carts"
	ProductsCollection = "products"
	OrdersCollection   = "customer_orders"
)

const defaultLookupConcurrency = 8

// EventPublisher announces submitted orders. Failures never fail a submission.
type EventPublisher interface {
	PublishOrderSubmitted(ctx context.Context, event models.OrderSubmittedEvent) error
}

// Metrics is satisfied by *aws.MetricsClient.
type Metrics interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
	RecordValue(ctx context.Context, metricName string, value float64, dimensions map[string]string) error
}

// Service runs the checkout stages against a document store.
type Service struct {
	store       docstore.Store
	events      EventPublisher
	metrics     Metrics
	logger      *zap.Logger
	currency    string
	concurrency int
	now         func() time.Time
}

type Option func(*Service)

func WithEventPublisher(p EventPublisher) Option { return func(s *Service) { s.events = p } }

func WithMetrics(m Metrics) Option { return func(s *Service) { s.metrics = m } }

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.logger = l } }

func WithCurrency(code string) Option { return func(s *Service) { s.currency = code } }

// WithLookupConcurrency bounds the number of product reads in flight per cart.
func WithLookupConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(store docstore.Store, opts ...Option) *Service {
	s := &Service{
		store:       store,
		logger:      zap.NewNop(),
		currency:    "USD",
		concurrency: defaultLookupConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Currency() string { return s.currency }

func (s *Service) count(ctx context.Context, metric string) {
	if s.metrics == nil {
		return
	}
	if err := s.metrics.RecordCount(ctx, metric, map[string]string{"Service": "console"}); err != nil {
		s.logger.Debug("record metric failed", zap.String("metric", metric), zap.Error(err))
	}
}

func (s *Service) record(ctx context.Context, metric string, value float64) {
	if s.metrics == nil {
		return
	}
	if err := s.metrics.RecordValue(ctx, metric, value, map[string]string{"Currency": s.currency}); err != nil {
		s.logger.Debug("record metric failed", zap.String("metric", metric), zap.Error(err))
	}
}
