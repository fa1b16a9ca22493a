// Package demodata holds the storefront's demo catalog: the FAQ entries the
// resolver answers from and a handful of orders to track and refund.
package demodata

import (
	"time"

	"storefront-support/internal/domain"
)

// FAQ is listed in match order. The greeting comes first because "hi" is a
// substring of several other questions.
func FAQ() []domain.FAQEntry {
	entries := []domain.FAQEntry{
		{Intent: "greeting", Question: "Hi there!", Answer: "Hello! How can I help you today? You can ask about orders, refunds, shipping or returns."},
		{Intent: "shipping_policy", Question: "How long does shipping take?", Answer: "Orders ship within 1-2 business days and usually arrive in 3-5 business days."},
		{Intent: "return_policy", Question: "What is your return policy?", Answer: "You can return most items within 30 days of delivery in their original condition."},
		{Intent: "refund_timeline", Question: "When will I get my money back?", Answer: "Approved refunds reach your original payment method within 5-7 business days."},
		{Intent: "cancellation_policy", Question: "Can I cancel my order?", Answer: "Orders can be cancelled free of charge until they are shipped."},
		{Intent: "payment_methods", Question: "Which payment methods do you accept?", Answer: "We accept credit and debit cards, UPI, net banking and cash on delivery."},
		{Intent: "offers", Question: "Are there any offers or discounts?", Answer: "Check the home page banner for current sales. Newsletter subscribers get 10% off their first order."},
	}
	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries
}

func Orders() []domain.Order {
	base := time.Date(2025, 7, 20, 9, 0, 0, 0, time.UTC)
	return []domain.Order{
		{
			OrderID: "10001", Status: "processing", ExpectedDelivery: "2025-08-02",
			Items:     []domain.OrderItem{{SKU: "TSHIRT-BLK-M", Name: "Classic T-Shirt", Quantity: 2}},
			CreatedAt: base,
		},
		{
			OrderID: "10002", Status: "shipped", ExpectedDelivery: "2025-07-29",
			Items:     []domain.OrderItem{{SKU: "SNKR-WHT-42", Name: "Canvas Sneakers", Quantity: 1}},
			CreatedAt: base.Add(24 * time.Hour),
		},
		{
			OrderID: "10003", Status: "delivered", ExpectedDelivery: "2025-07-25", DeliveredOn: "2025-07-24",
			Items: []domain.OrderItem{
				{SKU: "MUG-CER-01", Name: "Ceramic Mug", Quantity: 4},
				{SKU: "COAST-CRK", Name: "Cork Coasters", Quantity: 1},
			},
			CreatedAt: base.Add(48 * time.Hour),
		},
	}
}
