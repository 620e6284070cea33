package checkout

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	awspkg "github.com/advanced-supermart/console-backend/pkg/aws"
	"github.com/advanced-supermart/console-backend/pkg/docstore"
	"github.com/advanced-supermart/console-backend/services/console/models"
)

// HasExistingOrder reports whether any order matches both cartID and userID.
// The check is advisory: a concurrent submission can still slip in between the
// check and the write, which the reconciler flags afterwards.
func (s *Service) HasExistingOrder(ctx context.Context, cartID, userID string) (bool, error) {
	docs, err := s.store.QueryEquals(ctx, OrdersCollection,
		docstore.Eq("cartId", cartID),
		docstore.Eq("userId", userID),
	)
	if err != nil {
		return false, fmt.Errorf("query orders for cart %s: %w", cartID, err)
	}
	return len(docs) > 0, nil
}

// SubmitRequest is what the submission stage persists.
type SubmitRequest struct {
	CartID      string
	UserID      string
	Total       decimal.Decimal
	ProcessedBy string
}

// SubmitOrder writes a new order and returns its store-assigned id. Write
// errors are reported as ErrSubmissionFailed and never retried here.
func (s *Service) SubmitOrder(ctx context.Context, req SubmitRequest) (string, error) {
	order := models.Order{
		CartID:      req.CartID,
		UserID:      req.UserID,
		OrderDate:   s.now().UTC(),
		TotalAmount: req.Total.StringFixedBank(2),
		ProcessedBy: req.ProcessedBy,
	}

	id, err := s.store.Insert(ctx, OrdersCollection, order)
	if err != nil {
		s.count(ctx, awspkg.MetricSubmissionFailed)
		return "", fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}

	s.count(ctx, awspkg.MetricOrdersSubmitted)
	total, _ := req.Total.Float64()
	s.record(ctx, awspkg.MetricOrderTotal, total)
	s.logger.Info("order submitted",
		zap.String("order_id", id),
		zap.String("cart_id", req.CartID),
		zap.String("user_id", req.UserID),
		zap.String("total", order.TotalAmount),
	)

	if s.events != nil {
		event := models.OrderSubmittedEvent{
			EventType:   models.EventOrderSubmitted,
			OrderID:     id,
			CartID:      req.CartID,
			UserID:      req.UserID,
			TotalAmount: order.TotalAmount,
			Currency:    s.currency,
			ProcessedBy: req.ProcessedBy,
			Timestamp:   order.OrderDate,
		}
		if err := s.events.PublishOrderSubmitted(ctx, event); err != nil {
			s.logger.Warn("publish order event failed", zap.String("order_id", id), zap.Error(err))
		}
	}
	return id, nil
}
