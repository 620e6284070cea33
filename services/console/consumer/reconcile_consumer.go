package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/advanced-supermart/console-backend/pkg/aws"
	"github.com/advanced-supermart/console-backend/pkg/docstore"
	"github.com/advanced-supermart/console-backend/services/console/checkout"
	"github.com/advanced-supermart/console-backend/services/console/models"
)

// Poller is satisfied by *aws.SQSConsumer.
type Poller interface {
	StartPolling(ctx context.Context, handler aws.MessageHandler) error
}

// Metrics is satisfied by *aws.MetricsClient.
type Metrics interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
}

// ReconcileConsumer flags orders written past the duplicate guard. For every
// order.submitted event it loads all orders for the (cart, user) pair and
// marks each one after the earliest as a duplicate of it.
type ReconcileConsumer struct {
	poller  Poller
	store   docstore.Store
	metrics Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func NewReconcileConsumer(poller Poller, store docstore.Store, metrics Metrics, logger *zap.Logger) *ReconcileConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcileConsumer{poller: poller, store: store, metrics: metrics, logger: logger, now: time.Now}
}

// Start polls until ctx is cancelled.
func (c *ReconcileConsumer) Start(ctx context.Context) {
	c.logger.Info("order reconcile consumer started")
	err := c.poller.StartPolling(ctx, c.HandleMessage)
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("order reconcile polling stopped", zap.Error(err))
	}
}

// HandleMessage processes one queue body. Malformed bodies are dropped;
// store errors are returned so the message is redelivered.
func (c *ReconcileConsumer) HandleMessage(ctx context.Context, body string) error {
	var envelope struct {
		Message string `json:"Message"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err == nil && envelope.Message != "" {
		body = envelope.Message
	}

	var evt models.OrderSubmittedEvent
	if err := json.Unmarshal([]byte(body), &evt); err != nil {
		c.logger.Warn("dropping invalid order event", zap.Error(err))
		return nil
	}
	if evt.EventType != models.EventOrderSubmitted {
		return nil
	}
	if evt.CartID == "" || evt.UserID == "" {
		c.logger.Warn("dropping order event without cart or user", zap.String("order_id", evt.OrderID))
		return nil
	}

	flagged, err := c.Reconcile(ctx, evt.CartID, evt.UserID)
	if err != nil {
		return err
	}
	c.count(ctx, aws.MetricSQSMessages)
	if flagged > 0 {
		c.logger.Warn("duplicate orders flagged",
			zap.String("cart_id", evt.CartID),
			zap.String("user_id", evt.UserID),
			zap.Int("count", flagged),
		)
	}
	return nil
}

type orderRef struct {
	id    string
	order models.Order
}

// Reconcile marks every order for the pair except the earliest. Orders
// already flagged are left alone. It returns the number newly flagged.
func (c *ReconcileConsumer) Reconcile(ctx context.Context, cartID, userID string) (int, error) {
	docs, err := c.store.QueryEquals(ctx, checkout.OrdersCollection,
		docstore.Eq("cartId", cartID), docstore.Eq("userId", userID))
	if err != nil {
		return 0, fmt.Errorf("query orders for cart %s: %w", cartID, err)
	}
	if len(docs) < 2 {
		return 0, nil
	}

	refs := make([]orderRef, 0, len(docs))
	for _, doc := range docs {
		var o models.Order
		if err := doc.Decode(&o); err != nil {
			return 0, fmt.Errorf("decode order %s: %w", doc.ID(), err)
		}
		refs = append(refs, orderRef{id: doc.ID(), order: o})
	}
	sort.SliceStable(refs, func(i, j int) bool {
		a, b := refs[i].order.OrderDate, refs[j].order.OrderDate
		if a.Equal(b) {
			return refs[i].id < refs[j].id
		}
		return a.Before(b)
	})

	original := refs[0].id
	flagged := 0
	for _, ref := range refs[1:] {
		if ref.order.DuplicateOf != "" {
			continue
		}
		now := c.now().UTC()
		err := c.store.Update(ctx, checkout.OrdersCollection, ref.id, map[string]interface{}{
			"duplicateOf": original,
			"flaggedAt":   now,
		})
		if err != nil {
			return flagged, fmt.Errorf("flag order %s: %w", ref.id, err)
		}
		flagged++
		c.count(ctx, aws.MetricDuplicateOrders)
	}
	return flagged, nil
}

func (c *ReconcileConsumer) count(ctx context.Context, metric string) {
	if c.metrics != nil {
		_ = c.metrics.RecordCount(ctx, metric, map[string]string{"Service": "console"})
	}
}
