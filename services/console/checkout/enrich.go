package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	awspkg "github.com/advanced-supermart/console-backend/pkg/aws"
	"github.com/advanced-supermart/console-backend/pkg/docstore"
	"github.com/advanced-supermart/console-backend/services/console/models"
)

// LineItem is a cart line priced at the current catalog price.
type LineItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// Enrichment is the priced cart. GrandTotal is rounded half-even to cents.
type Enrichment struct {
	Items      []LineItem      `json:"items"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
}

// Enrich looks up every line's product concurrently and returns the lines in
// cart order. Any missing product fails the whole cart with ErrProductMissing.
func (s *Service) Enrich(ctx context.Context, cart *models.Cart) (*Enrichment, error) {
	for i, line := range cart.Lines {
		if line.ProductID == "" || line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: line %d", ErrInvalidCart, i+1)
		}
	}

	items := make([]LineItem, len(cart.Lines))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, line := range cart.Lines {
		g.Go(func() error {
			item, err := s.priceLine(gctx, line)
			if err != nil {
				return err
			}
			items[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, ErrProductMissing) {
			s.count(ctx, awspkg.MetricProductMissing)
			s.logger.Warn("cart references missing product",
				zap.String("cart_id", cart.ID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	// Lines are rounded half-even before summing so the printed lines add up
	// to the printed total.
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal)
	}
	return &Enrichment{Items: items, GrandTotal: total}, nil
}

func (s *Service) priceLine(ctx context.Context, line models.CartLine) (LineItem, error) {
	doc, err := s.store.Get(ctx, ProductsCollection, line.ProductID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return LineItem{}, fmt.Errorf("%w: %s", ErrProductMissing, line.ProductID)
		}
		return LineItem{}, fmt.Errorf("read product %s: %w", line.ProductID, err)
	}

	var p models.Product
	if err := doc.Decode(&p); err != nil {
		return LineItem{}, fmt.Errorf("decode product %s: %w", line.ProductID, err)
	}
	if p.Price < 0 {
		return LineItem{}, fmt.Errorf("%w: product %s has a negative price", ErrInvalidCart, line.ProductID)
	}

	unit := decimal.NewFromFloat(p.Price)
	return LineItem{
		ProductID: doc.ID(),
		Name:      p.Name,
		Category:  p.Category,
		Quantity:  line.Quantity,
		UnitPrice: unit,
		LineTotal: unit.Mul(decimal.NewFromInt(int64(line.Quantity))).RoundBank(2),
	}, nil
}
