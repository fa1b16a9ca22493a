package domain

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// RefundPending is the status of a freshly created refund.
const RefundPending = "pending"

// OrderItem is a line of an order.
type OrderItem struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Order is read-only from the chat service's point of view.
type Order struct {
	OrderID          string      `json:"order_id"`
	Status           string      `json:"status"`
	ExpectedDelivery string      `json:"expected_delivery,omitempty"`
	DeliveredOn      string      `json:"delivered_on,omitempty"`
	Items            []OrderItem `json:"items"`
	CreatedAt        time.Time   `json:"created_at"`
}

// Refund is a refund request against an order.
type Refund struct {
	RefundID  string    `json:"refund_id"`
	OrderID   string    `json:"order_id"`
	Reason    string    `json:"reason,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// FAQEntry is static reference data selected by question text or intent tag.
// When several entries match, the lowest Position wins, then the question in
// lexical order. Every store lists and matches in that order.
type FAQEntry struct {
	Intent   string `json:"intent"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Position int    `json:"position"`
}
