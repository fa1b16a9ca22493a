package usecase

import (
	"context"
	"errors"
	"strings"

	"storefront-support/internal/domain"
)

type RefundInput struct {
	OrderID string
	Reason  string
}

type RefundResult struct {
	Refund   domain.Refund
	Existing bool
	Message  string
}

// RefundService creates at most one live refund per order. The duplicate check
// is read-then-write and not transactional; two concurrent first requests for
// the same order can both insert.
type RefundService struct {
	orders   OrderReader
	refunds  RefundStore
	observer Observer
}

func NewRefundService(orders OrderReader, refunds RefundStore, opts ...Option) (*RefundService, error) {
	if orders == nil {
		return nil, errors.New("usecase: order reader must not be nil")
	}
	if refunds == nil {
		return nil, errors.New("usecase: refund store must not be nil")
	}
	so := applyOptions(opts)
	return &RefundService{orders: orders, refunds: refunds, observer: so.observer}, nil
}

// Create returns the existing refund for the order when there is one,
// otherwise inserts a pending refund.
func (s *RefundService) Create(ctx context.Context, in RefundInput) (RefundResult, error) {
	orderID := strings.TrimSpace(in.OrderID)
	if orderID == "" {
		return RefundResult{}, newError(ErrorInvalidInput, "missing_order_id", nil)
	}

	if _, err := s.orders.GetOrder(ctx, orderID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.observer.ObserveRefund("order_not_found")
			return RefundResult{}, newError(ErrorNotFound, "order_not_found", err)
		}
		return RefundResult{}, newError(ErrorInternal, "order_lookup_error", err)
	}

	existing, err := s.refunds.LatestRefund(ctx, orderID)
	switch {
	case err == nil:
		s.observer.ObserveRefund("existing")
		return RefundResult{Refund: existing, Existing: true, Message: MessageRefundExisting}, nil
	case !errors.Is(err, domain.ErrNotFound):
		return RefundResult{}, newError(ErrorInternal, "refund_lookup_error", err)
	}

	refund := domain.Refund{
		RefundID:  newUUID(),
		OrderID:   orderID,
		Reason:    strings.TrimSpace(in.Reason),
		Status:    domain.RefundPending,
		CreatedAt: now(),
	}
	if err := s.refunds.CreateRefund(ctx, refund); err != nil {
		return RefundResult{}, newError(ErrorInternal, "refund_write_error", err)
	}
	s.observer.ObserveRefund("created")
	return RefundResult{Refund: refund, Message: MessageRefundCreated}, nil
}
