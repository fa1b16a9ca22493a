package repository

import (
	"context"
	"fmt"

	"storefront-support/internal/demodata"
)

// Seed upserts the demo FAQ entries and orders. Safe to repeat.
func (c *Client) Seed(ctx context.Context) error {
	for _, e := range demodata.FAQ() {
		if err := c.PutFAQ(ctx, e); err != nil {
			return fmt.Errorf("repository: seed faq %q: %w", e.Intent, err)
		}
	}
	for _, o := range demodata.Orders() {
		if err := c.PutOrder(ctx, o); err != nil {
			return fmt.Errorf("repository: seed order %s: %w", o.OrderID, err)
		}
	}
	return nil
}
