package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/advanced-supermart/console-backend/services/console/checkout"
	"github.com/advanced-supermart/console-backend/services/console/controllers"
)

type lookupCall struct {
	cartID   string
	auth     string
	terminal string
}

func fakeConsole(t *testing.T) (*httptest.Server, func() []lookupCall) {
	t.Helper()
	var mu sync.Mutex
	var calls []lookupCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cashier/lookup", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		mu.Lock()
		calls = append(calls, lookupCall{cartID: body["cartId"], auth: r.Header.Get("Authorization"), terminal: r.Header.Get("X-Terminal-ID")})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if body["cartId"] == "C404" {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"error": "cart not found", "code": "cart_not_found",
				"session": controllers.SessionView{State: checkout.StateIdle, GrandTotal: "0.00", Currency: "USD"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"session": controllers.SessionView{
				State: checkout.StateReady, CartID: body["cartId"], GrandTotal: "7.50", Currency: "USD",
				Items: []controllers.LineItemView{{ProductID: "p1", Quantity: 3, UnitPrice: "2.50", LineTotal: "7.50"}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, func() []lookupCall {
		mu.Lock()
		defer mu.Unlock()
		return append([]lookupCall(nil), calls...)
	}
}

func TestBridgeForwardsEveryDecodedScan(t *testing.T) {
	srv, calls := fakeConsole(t)
	input := strings.Join([]string{
		"not json",
		`{"id":"C100"}`,
		`{"id":"C404"}`,
		`{"id":""}`,
		`{"id":"C200"}`,
	}, "\n")

	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := bridge(ctx, checkout.NewLineFeed(strings.NewReader(input)), newConsoleClient(srv.URL+"/", "tok", "till-1"), &out, zap.NewNop())
	require.NoError(t, err)

	got := calls()
	require.Len(t, got, 3)
	assert.Equal(t, "C100", got[0].cartID)
	assert.Equal(t, "C404", got[1].cartID)
	assert.Equal(t, "C200", got[2].cartID)
	assert.Equal(t, "Bearer tok", got[0].auth)
	assert.Equal(t, "till-1", got[0].terminal)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "cart C100: 1 items, total 7.50 USD [ready]", lines[0])
	assert.Equal(t, "cart C404: cart not found (cart_not_found)", lines[1])
	assert.Equal(t, "cart C200: 1 items, total 7.50 USD [ready]", lines[2])
}

func TestBridgeStopsOnCancel(t *testing.T) {
	srv, calls := fakeConsole(t)
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- bridge(ctx, checkout.NewLineFeed(pr), newConsoleClient(srv.URL, "tok", ""), &bytes.Buffer{}, zap.NewNop())
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not stop after cancel")
	}
	assert.Empty(t, calls())
}

func TestConsoleClientReportsAPIError(t *testing.T) {
	srv, _ := fakeConsole(t)
	view, err := newConsoleClient(srv.URL, "tok", "").Lookup(context.Background(), "C404")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "cart_not_found", apiErr.Code)
	require.NotNil(t, view)
	assert.Equal(t, checkout.StateIdle, view.State)
}
