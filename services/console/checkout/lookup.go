package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	awspkg "github.com/advanced-supermart/console-backend/pkg/aws"
	"github.com/advanced-supermart/console-backend/pkg/docstore"
	"github.com/advanced-supermart/console-backend/services/console/models"
)

// ResolveCart reads the cart with the given id. The stored line order is kept.
func (s *Service) ResolveCart(ctx context.Context, cartID string) (*models.Cart, error) {
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		return nil, ErrInvalidCartID
	}

	doc, err := s.store.Get(ctx, CartsCollection, cartID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			s.count(ctx, awspkg.MetricCartNotFound)
			s.logger.Info("cart not found", zap.String("cart_id", cartID))
			return nil, fmt.Errorf("%w: %s", ErrCartNotFound, cartID)
		}
		return nil, fmt.Errorf("read cart %s: %w", cartID, err)
	}

	var cart models.Cart
	if err := doc.Decode(&cart); err != nil {
		return nil, fmt.Errorf("decode cart %s: %w", cartID, err)
	}
	cart.ID = doc.ID()
	return &cart, nil
}
