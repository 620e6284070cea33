package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	awspkg "github.com/advanced-supermart/console-backend/pkg/aws"
)

type terminal struct {
	mu      sync.Mutex
	session *CheckoutSession
	cancel  context.CancelFunc
}

// Workflow drives one CheckoutSession per terminal through
// idle → resolving → enriching → ready → submitting → idle.
// A lookup or reset cancels the lookup in flight on the same terminal, and a
// result from a superseded generation is discarded.
type Workflow struct {
	svc    *Service
	store  SessionStore
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	terminals map[string]*terminal
}

func NewWorkflow(svc *Service, store SessionStore, logger *zap.Logger) *Workflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{
		svc:       svc,
		store:     store,
		logger:    logger,
		now:       svc.now,
		terminals: make(map[string]*terminal),
	}
}

// SubmitResult describes a written order.
type SubmitResult struct {
	OrderID     string          `json:"orderId"`
	CartID      string          `json:"cartId"`
	UserID      string          `json:"userId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Currency    string          `json:"currency"`
}

func (w *Workflow) terminal(ctx context.Context, terminalID string) *terminal {
	w.mu.Lock()
	t, ok := w.terminals[terminalID]
	w.mu.Unlock()
	if ok {
		return t
	}

	restored := w.restore(ctx, terminalID)

	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.terminals[terminalID]; ok {
		return t
	}
	t = &terminal{session: restored}
	w.terminals[terminalID] = t
	return t
}

// restore loads the last saved session. Only a Ready cart survives a restart;
// anything that was in flight comes back Idle.
func (w *Workflow) restore(ctx context.Context, terminalID string) *CheckoutSession {
	if w.store == nil {
		return newSession(terminalID)
	}
	saved, err := w.store.Load(ctx, terminalID)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			w.logger.Warn("load checkout session failed", zap.String("terminal_id", terminalID), zap.Error(err))
		}
		return newSession(terminalID)
	}
	saved.TerminalID = terminalID
	if saved.State != StateReady {
		saved.clear()
	}
	return saved
}

func (w *Workflow) persist(ctx context.Context, snap *CheckoutSession) {
	if w.store == nil {
		return
	}
	if err := w.store.Save(context.WithoutCancel(ctx), snap); err != nil {
		w.logger.Warn("save checkout session failed", zap.String("terminal_id", snap.TerminalID), zap.Error(err))
	}
}

// advance applies fn when gen is still current.
func (w *Workflow) advance(t *terminal, gen uint64, final bool, fn func(s *CheckoutSession)) (*CheckoutSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session.Generation != gen {
		return t.session.snapshot(), false
	}
	fn(t.session)
	t.session.UpdatedAt = w.now().UTC()
	if final {
		t.cancel = nil
	}
	return t.session.snapshot(), true
}

// Session returns a copy of the terminal's session.
func (w *Workflow) Session(ctx context.Context, terminalID string) *CheckoutSession {
	t := w.terminal(ctx, terminalID)
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session.snapshot()
}

// Lookup resolves and prices cartID. On NotFound or a pricing failure the
// session returns to Idle with the cart id cleared.
func (w *Workflow) Lookup(ctx context.Context, terminalID, cartID string) (*CheckoutSession, error) {
	t := w.terminal(ctx, terminalID)
	cartID = strings.TrimSpace(cartID)

	t.mu.Lock()
	if cartID == "" {
		defer t.mu.Unlock()
		return t.session.snapshot(), ErrInvalidCartID
	}
	if t.session.State == StateSubmitting {
		defer t.mu.Unlock()
		return t.session.snapshot(), ErrSubmitting
	}
	if t.cancel != nil {
		t.cancel()
	}
	lookupCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	t.cancel = cancel
	t.session.clear()
	t.session.Generation++
	gen := t.session.Generation
	t.session.State = StateResolving
	t.session.CartID = cartID
	t.session.LastError = ""
	t.session.UpdatedAt = w.now().UTC()
	t.mu.Unlock()

	cart, err := w.svc.ResolveCart(lookupCtx, cartID)
	snap, current := w.advance(t, gen, err != nil, func(s *CheckoutSession) {
		if err != nil {
			s.clear()
			s.LastError = err.Error()
			return
		}
		s.State = StateEnriching
		s.Cart = cart
	})
	if !current {
		return snap, ErrStaleSession
	}
	if err != nil {
		w.persist(ctx, snap)
		return snap, err
	}

	enrichment, err := w.svc.Enrich(lookupCtx, cart)
	snap, current = w.advance(t, gen, true, func(s *CheckoutSession) {
		if err != nil {
			s.clear()
			s.LastError = err.Error()
			return
		}
		s.State = StateReady
		s.Items = enrichment.Items
		s.GrandTotal = enrichment.GrandTotal
	})
	if !current {
		return snap, ErrStaleSession
	}
	w.persist(ctx, snap)
	return snap, err
}

// Scan decodes a scanned payload and looks up the cart it names. A payload
// that does not decode leaves the session untouched.
func (w *Workflow) Scan(ctx context.Context, terminalID, payload string) (*CheckoutSession, error) {
	cartID, err := DecodeScan(payload)
	if err != nil {
		w.logger.Info("scan payload rejected", zap.String("terminal_id", terminalID), zap.Error(err))
		return w.Session(ctx, terminalID), err
	}
	return w.Lookup(ctx, terminalID, cartID)
}

// Submit guards against an existing order for the cart's owner and writes a
// new order. Success and DuplicateOrder clear the session; any other failure
// leaves it Ready so the cashier can retry.
func (w *Workflow) Submit(ctx context.Context, terminalID, processedBy string) (*SubmitResult, *CheckoutSession, error) {
	t := w.terminal(ctx, terminalID)

	t.mu.Lock()
	if t.session.State != StateReady || t.session.Cart == nil {
		defer t.mu.Unlock()
		return nil, t.session.snapshot(), ErrNotReady
	}
	if len(t.session.Items) == 0 {
		defer t.mu.Unlock()
		return nil, t.session.snapshot(), ErrEmptyCart
	}
	t.session.State = StateSubmitting
	t.session.LastError = ""
	gen := t.session.Generation
	req := SubmitRequest{
		CartID:      t.session.CartID,
		UserID:      t.session.Cart.UserID,
		Total:       t.session.GrandTotal,
		ProcessedBy: processedBy,
	}
	t.mu.Unlock()

	backToReady := func(err error) (*SubmitResult, *CheckoutSession, error) {
		snap, _ := w.advance(t, gen, true, func(s *CheckoutSession) {
			s.State = StateReady
			s.LastError = err.Error()
		})
		w.persist(ctx, snap)
		return nil, snap, err
	}

	exists, err := w.svc.HasExistingOrder(ctx, req.CartID, req.UserID)
	if err != nil {
		return backToReady(fmt.Errorf("%w: %v", ErrSubmissionFailed, err))
	}
	if exists {
		w.svc.count(ctx, awspkg.MetricDuplicateOrdersBlocked)
		w.logger.Info("duplicate order blocked",
			zap.String("terminal_id", terminalID),
			zap.String("cart_id", req.CartID),
			zap.String("user_id", req.UserID),
		)
		snap, _ := w.advance(t, gen, true, func(s *CheckoutSession) {
			s.clear()
			s.LastError = ErrDuplicateOrder.Error()
		})
		w.persist(ctx, snap)
		return nil, snap, ErrDuplicateOrder
	}

	orderID, err := w.svc.SubmitOrder(ctx, req)
	if err != nil {
		return backToReady(err)
	}

	snap, _ := w.advance(t, gen, true, func(s *CheckoutSession) {
		s.clear()
	})
	w.persist(ctx, snap)
	return &SubmitResult{
		OrderID:     orderID,
		CartID:      req.CartID,
		UserID:      req.UserID,
		TotalAmount: req.Total,
		Currency:    w.svc.Currency(),
	}, snap, nil
}

// Reset discards any cart data and cancels a lookup in flight.
func (w *Workflow) Reset(ctx context.Context, terminalID string) *CheckoutSession {
	t := w.terminal(ctx, terminalID)

	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.session.clear()
	t.session.Generation++
	t.session.LastError = ""
	t.session.UpdatedAt = w.now().UTC()
	snap := t.session.snapshot()
	t.mu.Unlock()

	w.persist(ctx, snap)
	return snap
}
