package models

import "time"

// Order is written once per (cart, user) pair by the cashier checkout.
// TotalAmount is a 2-decimal string so every backend stores the exact value.
type Order struct {
	ID          string     `json:"id,omitempty" bson:"_id,omitempty" dynamodbav:"id,omitempty"`
	CartID      string     `json:"cartId" bson:"cartId" dynamodbav:"cartId"`
	UserID      string     `json:"userId" bson:"userId" dynamodbav:"userId"`
	OrderDate   time.Time  `json:"orderDate" bson:"orderDate" dynamodbav:"orderDate"`
	TotalAmount string     `json:"totalAmount" bson:"totalAmount" dynamodbav:"totalAmount"`
	ProcessedBy string     `json:"processedBy,omitempty" bson:"processedBy,omitempty" dynamodbav:"processedBy,omitempty"`
	DuplicateOf string     `json:"duplicateOf,omitempty" bson:"duplicateOf,omitempty" dynamodbav:"duplicateOf,omitempty"`
	FlaggedAt   *time.Time `json:"flaggedAt,omitempty" bson:"flaggedAt,omitempty" dynamodbav:"flaggedAt,omitempty"`
}

// OrderSubmittedEvent is published after an order is written.
type OrderSubmittedEvent struct {
	EventType   string    `json:"event_type"`
	OrderID     string    `json:"order_id"`
	CartID      string    `json:"cart_id"`
	UserID      string    `json:"user_id"`
	TotalAmount string    `json:"total_amount"`
	Currency    string    `json:"currency"`
	ProcessedBy string    `json:"processed_by"`
	Timestamp   time.Time `json:"timestamp"`
}

const EventOrderSubmitted = "order.submitted"
