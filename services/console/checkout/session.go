package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/advanced-supermart/console-backend/services/console/models"
)

type State string

const (
	StateIdle       State = "idle"
	StateResolving  State = "resolving"
	StateEnriching  State = "enriching"
	StateReady      State = "ready"
	StateSubmitting State = "submitting"
)

// CheckoutSession is the state of one cashier terminal.
type CheckoutSession struct {
	TerminalID string          `json:"terminalId"`
	State      State           `json:"state"`
	CartID     string          `json:"cartId,omitempty"`
	Cart       *models.Cart    `json:"cart,omitempty"`
	Items      []LineItem      `json:"items,omitempty"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
	Generation uint64          `json:"generation"`
	LastError  string          `json:"lastError,omitempty"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

func newSession(terminalID string) *CheckoutSession {
	return &CheckoutSession{TerminalID: terminalID, State: StateIdle}
}

// clear drops all cart data and returns to Idle.
func (s *CheckoutSession) clear() {
	s.State = StateIdle
	s.CartID = ""
	s.Cart = nil
	s.Items = nil
	s.GrandTotal = decimal.Zero
}

func (s *CheckoutSession) snapshot() *CheckoutSession {
	cp := *s
	if s.Items != nil {
		cp.Items = append([]LineItem(nil), s.Items...)
	}
	if s.Cart != nil {
		cart := *s.Cart
		cart.Lines = append([]models.CartLine(nil), s.Cart.Lines...)
		cp.Cart = &cart
	}
	return &cp
}

// ErrSessionNotFound is returned by a SessionStore with no saved session.
var ErrSessionNotFound = errors.New("checkout session not found")

// SessionStore persists session snapshots between process restarts.
type SessionStore interface {
	Load(ctx context.Context, terminalID string) (*CheckoutSession, error)
	Save(ctx context.Context, session *CheckoutSession) error
	Delete(ctx context.Context, terminalID string) error
}

// MemorySessionStore keeps snapshots in process memory.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*CheckoutSession
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*CheckoutSession)}
}

func (m *MemorySessionStore) Load(_ context.Context, terminalID string) (*CheckoutSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[terminalID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.snapshot(), nil
}

func (m *MemorySessionStore) Save(_ context.Context, session *CheckoutSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.TerminalID] = session.snapshot()
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, terminalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, terminalID)
	return nil
}
