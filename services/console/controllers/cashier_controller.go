package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/advanced-supermart/console-backend/services/common/logger"
	"github.com/advanced-supermart/console-backend/services/console/checkout"
	"github.com/advanced-supermart/console-backend/services/console/middleware"
)

// CheckoutWorkflow is satisfied by *checkout.Workflow.
type CheckoutWorkflow interface {
	Session(ctx context.Context, terminalID string) *checkout.CheckoutSession
	Lookup(ctx context.Context, terminalID, cartID string) (*checkout.CheckoutSession, error)
	Scan(ctx context.Context, terminalID, payload string) (*checkout.CheckoutSession, error)
	Submit(ctx context.Context, terminalID, processedBy string) (*checkout.SubmitResult, *checkout.CheckoutSession, error)
	Reset(ctx context.Context, terminalID string) *checkout.CheckoutSession
}

type LineItemView struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	LineTotal string `json:"lineTotal"`
}

// SessionView is what the cashier screen renders. Amounts are 2-dp strings.
type SessionView struct {
	TerminalID string         `json:"terminalId"`
	State      checkout.State `json:"state"`
	CartID     string         `json:"cartId,omitempty"`
	UserID     string         `json:"userId,omitempty"`
	Items      []LineItemView `json:"items"`
	GrandTotal string         `json:"grandTotal"`
	Currency   string         `json:"currency"`
	LastError  string         `json:"lastError,omitempty"`
	UpdatedAt  *time.Time     `json:"updatedAt,omitempty"`
}

func money(d decimal.Decimal) string {
	return d.StringFixedBank(2)
}

func newSessionView(s *checkout.CheckoutSession, currency string) SessionView {
	v := SessionView{
		TerminalID: s.TerminalID,
		State:      s.State,
		CartID:     s.CartID,
		Items:      make([]LineItemView, 0, len(s.Items)),
		GrandTotal: money(s.GrandTotal),
		Currency:   currency,
		LastError:  s.LastError,
	}
	if s.Cart != nil {
		v.UserID = s.Cart.UserID
	}
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		v.UpdatedAt = &t
	}
	for _, it := range s.Items {
		v.Items = append(v.Items, LineItemView{
			ProductID: it.ProductID,
			Name:      it.Name,
			Category:  it.Category,
			Quantity:  it.Quantity,
			UnitPrice: money(it.UnitPrice),
			LineTotal: money(it.LineTotal),
		})
	}
	return v
}

type CashierController struct {
	workflow CheckoutWorkflow
	currency string
}

func NewCashierController(workflow CheckoutWorkflow, currency string) *CashierController {
	return &CashierController{workflow: workflow, currency: currency}
}

type lookupRequest struct {
	CartID string `json:"cartId" binding:"required"`
}

type scanRequest struct {
	Payload string `json:"payload" binding:"required"`
}

// respond writes the session, or the error together with the session the
// failure left behind.
func (cc *CashierController) respond(c *gin.Context, status int, sess *checkout.CheckoutSession, err error) {
	view := newSessionView(sess, cc.currency)
	if err != nil {
		appErr := toAppError(err)
		if appErr.Status >= http.StatusInternalServerError {
			logger.FromContext(c).Error("checkout request failed",
				zap.String("terminal_id", sess.TerminalID),
				zap.String("code", appErr.Code),
				zap.Error(err),
			)
		}
		c.JSON(appErr.Status, gin.H{"error": appErr.Message, "code": appErr.Code, "session": view})
		return
	}
	c.JSON(status, gin.H{"session": view})
}

func (cc *CashierController) GetSession(c *gin.Context) {
	sess := cc.workflow.Session(c.Request.Context(), c.GetString(middleware.ContextTerminalID))
	cc.respond(c, http.StatusOK, sess, nil)
}

func (cc *CashierController) Lookup(c *gin.Context) {
	var req lookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		cc.respond(c, 0, cc.workflow.Session(c.Request.Context(), c.GetString(middleware.ContextTerminalID)), checkout.ErrInvalidCartID)
		return
	}
	sess, err := cc.workflow.Lookup(c.Request.Context(), c.GetString(middleware.ContextTerminalID), req.CartID)
	cc.respond(c, http.StatusOK, sess, err)
}

func (cc *CashierController) Scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		cc.respond(c, 0, cc.workflow.Session(c.Request.Context(), c.GetString(middleware.ContextTerminalID)), checkout.ErrDecode)
		return
	}
	sess, err := cc.workflow.Scan(c.Request.Context(), c.GetString(middleware.ContextTerminalID), req.Payload)
	cc.respond(c, http.StatusOK, sess, err)
}

func (cc *CashierController) Submit(c *gin.Context) {
	res, sess, err := cc.workflow.Submit(c.Request.Context(), c.GetString(middleware.ContextTerminalID), c.GetString(middleware.ContextUserID))
	if err != nil {
		cc.respond(c, 0, sess, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"orderId":     res.OrderID,
		"cartId":      res.CartID,
		"userId":      res.UserID,
		"totalAmount": money(res.TotalAmount),
		"currency":    res.Currency,
		"session":     newSessionView(sess, cc.currency),
	})
}

func (cc *CashierController) Reset(c *gin.Context) {
	sess := cc.workflow.Reset(c.Request.Context(), c.GetString(middleware.ContextTerminalID))
	cc.respond(c, http.StatusOK, sess, nil)
}
