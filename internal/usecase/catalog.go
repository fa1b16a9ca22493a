package usecase

import (
	"context"
	"errors"
	"strings"

	"storefront-support/internal/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type OrderCatalog interface {
	OrderReader
	OrderLister
}

// CatalogService serves the read-only order and FAQ pages.
type CatalogService struct {
	orders OrderCatalog
	faq    FAQLister
}

func NewCatalogService(orders OrderCatalog, faq FAQLister) (*CatalogService, error) {
	if orders == nil {
		return nil, errors.New("usecase: order catalog must not be nil")
	}
	if faq == nil {
		return nil, errors.New("usecase: faq lister must not be nil")
	}
	return &CatalogService{orders: orders, faq: faq}, nil
}

func (s *CatalogService) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, newError(ErrorInvalidInput, "missing_order_id", nil)
	}
	order, err := s.orders.GetOrder(ctx, orderID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Order{}, newError(ErrorNotFound, "order_not_found", err)
	}
	if err != nil {
		return domain.Order{}, newError(ErrorInternal, "order_lookup_error", err)
	}
	return order, nil
}

func (s *CatalogService) ListOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	orders, err := s.orders.ListOrders(ctx, clampLimit(limit))
	if err != nil {
		return nil, newError(ErrorInternal, "order_list_error", err)
	}
	return orders, nil
}

func (s *CatalogService) ListFAQ(ctx context.Context) ([]domain.FAQEntry, error) {
	entries, err := s.faq.ListFAQ(ctx)
	if err != nil {
		return nil, newError(ErrorInternal, "faq_list_error", err)
	}
	return entries, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	}
	return limit
}
