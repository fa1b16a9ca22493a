package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"storefront-support/internal/domain"
)

func TestNewRefundService_ValidatesDependencies(t *testing.T) {
	_, err := NewRefundService(nil, &mockRefunds{})
	require.Error(t, err)
	_, err = NewRefundService(defaultOrders(), nil)
	require.Error(t, err)
}

func TestRefundCreate_NewRefund(t *testing.T) {
	ts := time.Date(2025, 8, 2, 9, 30, 0, 0, time.UTC)
	stubClock(t, ts)
	stubUUIDs(t)
	refunds := &mockRefunds{}
	obs := newCountingObserver()
	svc, err := NewRefundService(defaultOrders(), refunds, WithObserver(obs))
	require.NoError(t, err)

	res, err := svc.Create(context.Background(), RefundInput{OrderID: " 12345 ", Reason: "damaged"})
	require.NoError(t, err)
	require.Equal(t, RefundResult{
		Refund:  domain.Refund{RefundID: "id-a", OrderID: "12345", Reason: "damaged", Status: domain.RefundPending, CreatedAt: ts},
		Message: MessageRefundCreated,
	}, res)
	require.Len(t, refunds.refunds["12345"], 1)
	require.Equal(t, 1, obs.refunds["created"])
}

func TestRefundCreate_ReturnsExistingRefund(t *testing.T) {
	existing := domain.Refund{RefundID: "r-1", OrderID: "12345", Status: "approved"}
	refunds := &mockRefunds{refunds: map[string][]domain.Refund{"12345": {existing}}}
	obs := newCountingObserver()
	svc, err := NewRefundService(defaultOrders(), refunds, WithObserver(obs))
	require.NoError(t, err)

	res, err := svc.Create(context.Background(), RefundInput{OrderID: "12345"})
	require.NoError(t, err)
	require.True(t, res.Existing)
	require.Equal(t, existing, res.Refund)
	require.Equal(t, MessageRefundExisting, res.Message)
	require.Len(t, refunds.refunds["12345"], 1)
	require.Equal(t, 1, obs.refunds["existing"])
}

func TestRefundCreate_Errors(t *testing.T) {
	ctx := context.Background()

	svc, err := NewRefundService(defaultOrders(), &mockRefunds{})
	require.NoError(t, err)
	_, err = svc.Create(ctx, RefundInput{OrderID: "  "})
	expectError(t, err, ErrorInvalidInput, "missing_order_id")

	_, err = svc.Create(ctx, RefundInput{OrderID: "55555"})
	expectError(t, err, ErrorNotFound, "order_not_found")

	svc, err = NewRefundService(&mockOrders{err: errStoreDown}, &mockRefunds{})
	require.NoError(t, err)
	_, err = svc.Create(ctx, RefundInput{OrderID: "12345"})
	expectError(t, err, ErrorInternal, "order_lookup_error")

	svc, err = NewRefundService(defaultOrders(), &mockRefunds{readErr: errStoreDown})
	require.NoError(t, err)
	_, err = svc.Create(ctx, RefundInput{OrderID: "12345"})
	expectError(t, err, ErrorInternal, "refund_lookup_error")

	svc, err = NewRefundService(defaultOrders(), &mockRefunds{writeErr: errStoreDown})
	require.NoError(t, err)
	_, err = svc.Create(ctx, RefundInput{OrderID: "12345"})
	expectError(t, err, ErrorInternal, "refund_write_error")
}
