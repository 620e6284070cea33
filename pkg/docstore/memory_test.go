package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testOrder struct {
	ID          string  `json:"id,omitempty"`
	CartID      string  `json:"cartId"`
	UserID      string  `json:"userId"`
	TotalAmount float64 `json:"totalAmount"`
}

func TestMemoryStore_InsertAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	id, err := store.Insert(ctx, "customer_orders", testOrder{CartID: "C100", UserID: "U1", TotalAmount: 25})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := store.Get(ctx, "customer_orders", id)
	require.NoError(t, err)
	assert.Equal(t, id, doc.ID())

	var got testOrder
	require.NoError(t, doc.Decode(&got))
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "C100", got.CartID)
	assert.Equal(t, 25.0, got.TotalAmount)
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "carts", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_QueryEquals(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Insert(ctx, "customer_orders", testOrder{CartID: "C100", UserID: "U1"})
	require.NoError(t, err)
	_, err = store.Insert(ctx, "customer_orders", testOrder{CartID: "C100", UserID: "U2"})
	require.NoError(t, err)
	_, err = store.Insert(ctx, "customer_orders", testOrder{CartID: "C200", UserID: "U1"})
	require.NoError(t, err)

	docs, err := store.QueryEquals(ctx, "customer_orders", Eq("cartId", "C100"), Eq("userId", "U1"))
	require.NoError(t, err)
	require.Len(t, docs, 1)

	docs, err = store.QueryEquals(ctx, "customer_orders", Eq("cartId", "C100"))
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = store.QueryEquals(ctx, "customer_orders", Eq("cartId", "C999"))
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMemoryStore_QueryEqualsNumeric(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "products", "P1", map[string]interface{}{"qty": 2}))

	docs, err := store.QueryEquals(ctx, "products", Eq("qty", 2))
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestMemoryStore_UpdateAndDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "products", "P1", map[string]interface{}{"name": "Milk", "price": 10}))
	require.NoError(t, store.Update(ctx, "products", "P1", map[string]interface{}{"price": 12.5}))

	doc, err := store.Get(ctx, "products", "P1")
	require.NoError(t, err)
	var got map[string]interface{}
	require.NoError(t, doc.Decode(&got))
	assert.Equal(t, 12.5, got["price"])
	assert.Equal(t, "Milk", got["name"])

	assert.ErrorIs(t, store.Update(ctx, "products", "missing", map[string]interface{}{"price": 1}), ErrNotFound)

	require.NoError(t, store.Delete(ctx, "products", "P1"))
	assert.ErrorIs(t, store.Delete(ctx, "products", "P1"), ErrNotFound)
	_, err = store.Get(ctx, "products", "P1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_List(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, store.Put(ctx, "products", id, map[string]interface{}{"name": id}))
	}

	docs, total, err := store.List(ctx, "products", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, docs, 2)
	assert.Equal(t, "b", docs[0].ID())
	assert.Equal(t, "c", docs[1].ID())

	docs, total, err = store.List(ctx, "products", 10, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Empty(t, docs)
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Get(ctx, "carts", "C1")
	assert.ErrorIs(t, err, context.Canceled)
}
