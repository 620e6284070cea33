package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/advanced-supermart/console-backend/pkg/docstore"
	"github.com/advanced-supermart/console-backend/services/console/models"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishOrderSubmitted(ctx context.Context, event models.OrderSubmittedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type countingMetrics struct {
	counts map[string]int
	values map[string]float64
	err    error
}

func (c *countingMetrics) RecordCount(_ context.Context, name string, _ map[string]string) error {
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.counts[name]++
	return c.err
}

func (c *countingMetrics) RecordValue(_ context.Context, name string, value float64, _ map[string]string) error {
	if c.values == nil {
		c.values = make(map[string]float64)
	}
	c.values[name] = value
	return c.err
}

// seedStore loads the standard fixtures: cart C100 (P1×2, P2×1), cart C200
// referencing missing product P9, and an empty cart C300.
func seedStore(t *testing.T) *docstore.MemoryStore {
	t.Helper()
	store := docstore.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, ProductsCollection, "P1", models.Product{Name: "Milk", Category: "Dairy", Price: 10, Qty: 40}))
	require.NoError(t, store.Put(ctx, ProductsCollection, "P2", models.Product{Name: "Bread", Category: "Bakery", Price: 5, Qty: 12}))
	require.NoError(t, store.Put(ctx, ProductsCollection, "P3", models.Product{Name: "Gum", Category: "Snacks", Price: 0.1, Qty: 100}))

	require.NoError(t, store.Put(ctx, CartsCollection, "C100", models.Cart{
		UserID: "U1",
		Lines:  []models.CartLine{{ProductID: "P1", Quantity: 2}, {ProductID: "P2", Quantity: 1}},
	}))
	require.NoError(t, store.Put(ctx, CartsCollection, "C200", models.Cart{
		UserID: "U2",
		Lines:  []models.CartLine{{ProductID: "P1", Quantity: 1}, {ProductID: "P9", Quantity: 1}},
	}))
	require.NoError(t, store.Put(ctx, CartsCollection, "C300", models.Cart{UserID: "U3"}))
	return store
}

func newTestService(store docstore.Store, opts ...Option) *Service {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewService(store, opts...)
}

func countOrders(t *testing.T, store docstore.Store, cartID, userID string) int {
	t.Helper()
	docs, err := store.QueryEquals(context.Background(), OrdersCollection,
		docstore.Eq("cartId", cartID), docstore.Eq("userId", userID))
	require.NoError(t, err)
	return len(docs)
}

func TestResolveCart(t *testing.T) {
	svc := newTestService(seedStore(t))

	cart, err := svc.ResolveCart(context.Background(), " C100 ")
	require.NoError(t, err)
	assert.Equal(t, "C100", cart.ID)
	assert.Equal(t, "U1", cart.UserID)
	require.Len(t, cart.Lines, 2)
	assert.Equal(t, "P1", cart.Lines[0].ProductID)
	assert.Equal(t, "P2", cart.Lines[1].ProductID)
}

func TestResolveCart_Errors(t *testing.T) {
	metrics := &countingMetrics{}
	svc := newTestService(seedStore(t), WithMetrics(metrics))

	_, err := svc.ResolveCart(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrInvalidCartID)

	_, err = svc.ResolveCart(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.Equal(t, 1, metrics.counts["CartNotFound"])
}

func TestEnrich_PricesLinesInCartOrder(t *testing.T) {
	svc := newTestService(seedStore(t))
	ctx := context.Background()

	cart, err := svc.ResolveCart(ctx, "C100")
	require.NoError(t, err)

	enr, err := svc.Enrich(ctx, cart)
	require.NoError(t, err)
	require.Len(t, enr.Items, 2)
	assert.Equal(t, "P1", enr.Items[0].ProductID)
	assert.Equal(t, "Milk", enr.Items[0].Name)
	assert.Equal(t, "Dairy", enr.Items[0].Category)
	assert.True(t, enr.Items[0].LineTotal.Equal(decimal.NewFromInt(20)))
	assert.True(t, enr.Items[1].LineTotal.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, "25.00", enr.GrandTotal.StringFixed(2))
}

func TestEnrich_OrderPreservedWithManyLines(t *testing.T) {
	store := seedStore(t)
	ctx := context.Background()
	lines := make([]models.CartLine, 0, 30)
	want := decimal.Zero
	for i := 0; i < 30; i++ {
		id := []string{"P1", "P2", "P3"}[i%3]
		lines = append(lines, models.CartLine{ProductID: id, Quantity: i + 1})
		price := map[string]float64{"P1": 10, "P2": 5, "P3": 0.1}[id]
		want = want.Add(decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(i + 1))))
	}
	svc := newTestService(store, WithLookupConcurrency(4))

	enr, err := svc.Enrich(ctx, &models.Cart{ID: "BIG", Lines: lines})
	require.NoError(t, err)
	require.Len(t, enr.Items, len(lines))
	for i, item := range enr.Items {
		assert.Equal(t, lines[i].ProductID, item.ProductID)
		assert.Equal(t, lines[i].Quantity, item.Quantity)
	}
	assert.True(t, enr.GrandTotal.Equal(want.RoundBank(2)), "got %s want %s", enr.GrandTotal, want)
}

func TestEnrich_DecimalExact(t *testing.T) {
	svc := newTestService(seedStore(t))

	enr, err := svc.Enrich(context.Background(), &models.Cart{Lines: []models.CartLine{{ProductID: "P3", Quantity: 3}}})
	require.NoError(t, err)
	assert.Equal(t, "0.30", enr.GrandTotal.StringFixed(2))
}

func TestEnrich_MissingProduct(t *testing.T) {
	store := seedStore(t)
	metrics := &countingMetrics{}
	svc := newTestService(store, WithMetrics(metrics))
	ctx := context.Background()

	cart, err := svc.ResolveCart(ctx, "C200")
	require.NoError(t, err)

	enr, err := svc.Enrich(ctx, cart)
	assert.ErrorIs(t, err, ErrProductMissing)
	assert.NotErrorIs(t, err, ErrCartNotFound)
	assert.Contains(t, err.Error(), "P9")
	assert.Nil(t, enr)
	assert.Equal(t, 1, metrics.counts["ProductMissing"])
	assert.Zero(t, countOrders(t, store, "C200", "U2"))
}

func TestEnrich_InvalidQuantity(t *testing.T) {
	svc := newTestService(seedStore(t))

	_, err := svc.Enrich(context.Background(), &models.Cart{Lines: []models.CartLine{{ProductID: "P1", Quantity: 0}}})
	assert.ErrorIs(t, err, ErrInvalidCart)
}

func TestEnrich_NegativePrice(t *testing.T) {
	store := seedStore(t)
	require.NoError(t, store.Put(context.Background(), ProductsCollection, "BAD", models.Product{Name: "Refund", Price: -1}))
	svc := newTestService(store)

	_, err := svc.Enrich(context.Background(), &models.Cart{Lines: []models.CartLine{{ProductID: "BAD", Quantity: 1}}})
	assert.ErrorIs(t, err, ErrInvalidCart)
}

func TestHasExistingOrder(t *testing.T) {
	store := seedStore(t)
	svc := newTestService(store)
	ctx := context.Background()

	exists, err := svc.HasExistingOrder(ctx, "C100", "U1")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Insert(ctx, OrdersCollection, models.Order{CartID: "C100", UserID: "U1", TotalAmount: "25.00"})
	require.NoError(t, err)

	exists, err = svc.HasExistingOrder(ctx, "C100", "U1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = svc.HasExistingOrder(ctx, "C100", "U2")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSubmitOrder_WritesOrderAndPublishes(t *testing.T) {
	store := seedStore(t)
	pub := &mockPublisher{}
	pub.On("PublishOrderSubmitted", mock.Anything, mock.MatchedBy(func(e models.OrderSubmittedEvent) bool {
		return e.EventType == models.EventOrderSubmitted && e.CartID == "C100" && e.TotalAmount == "25.00" && e.Currency == "EUR"
	})).Return(nil).Once()
	svc := newTestService(store, WithEventPublisher(pub), WithCurrency("EUR"))
	ctx := context.Background()

	id, err := svc.SubmitOrder(ctx, SubmitRequest{CartID: "C100", UserID: "U1", Total: decimal.NewFromInt(25), ProcessedBy: "cashier-1"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := store.Get(ctx, OrdersCollection, id)
	require.NoError(t, err)
	var order models.Order
	require.NoError(t, doc.Decode(&order))
	assert.Equal(t, "C100", order.CartID)
	assert.Equal(t, "U1", order.UserID)
	assert.Equal(t, "25.00", order.TotalAmount)
	assert.Equal(t, "cashier-1", order.ProcessedBy)
	assert.True(t, order.OrderDate.Equal(fixedNow))
	pub.AssertExpectations(t)
}

func TestSubmitOrder_PublishFailureDoesNotFailSubmission(t *testing.T) {
	store := seedStore(t)
	pub := &mockPublisher{}
	pub.On("PublishOrderSubmitted", mock.Anything, mock.Anything).Return(errors.New("sns down"))
	svc := newTestService(store, WithEventPublisher(pub))

	id, err := svc.SubmitOrder(context.Background(), SubmitRequest{CartID: "C100", UserID: "U1", Total: decimal.NewFromInt(25)})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, countOrders(t, store, "C100", "U1"))
}

type failingInsertStore struct {
	docstore.Store
	err error
}

func (f *failingInsertStore) Insert(context.Context, string, interface{}) (string, error) {
	return "", f.err
}

func TestSubmitOrder_WriteFailure(t *testing.T) {
	store := &failingInsertStore{Store: seedStore(t), err: errors.New("write timeout")}
	svc := newTestService(store)

	_, err := svc.SubmitOrder(context.Background(), SubmitRequest{CartID: "C100", UserID: "U1", Total: decimal.NewFromInt(25)})
	assert.ErrorIs(t, err, ErrSubmissionFailed)
	assert.Contains(t, err.Error(), "write timeout")
}

func TestSubmitOrder_MetricFailuresAreLoggedNotReturned(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	store := seedStore(t)
	metrics := &countingMetrics{err: errors.New("throttled")}
	svc := newTestService(store, WithMetrics(metrics), WithLogger(zap.New(core)))

	id, err := svc.SubmitOrder(context.Background(), SubmitRequest{CartID: "C100", UserID: "U1", Total: decimal.RequireFromString("25.50")})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, metrics.counts["OrdersSubmitted"])
	assert.Equal(t, 25.5, metrics.values["OrderTotal"])

	failed := logs.FilterMessage("record metric failed").All()
	require.Len(t, failed, 2)
	assert.Equal(t, "OrdersSubmitted", failed[0].ContextMap()["metric"])
	assert.Equal(t, "OrderTotal", failed[1].ContextMap()["metric"])
}

func TestEnrich_LinesRoundedBeforeSumming(t *testing.T) {
	store := seedStore(t)
	require.NoError(t, store.Put(context.Background(), ProductsCollection, "HALF", models.Product{Name: "Candy", Price: 0.125}))
	svc := newTestService(store)

	enr, err := svc.Enrich(context.Background(), &models.Cart{Lines: []models.CartLine{
		{ProductID: "HALF", Quantity: 1},
		{ProductID: "HALF", Quantity: 1},
	}})
	require.NoError(t, err)
	require.Len(t, enr.Items, 2)
	assert.Equal(t, "0.12", enr.Items[0].LineTotal.StringFixed(2))
	assert.Equal(t, "0.12", enr.Items[1].LineTotal.StringFixed(2))
	assert.Equal(t, "0.24", enr.GrandTotal.StringFixed(2))
}
