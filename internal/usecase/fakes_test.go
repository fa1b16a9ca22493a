package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"storefront-support/internal/domain"
	"storefront-support/internal/session"
)

type mockLog struct {
	turns      []domain.Turn
	readErr    error
	appendErr  error
	failAppend int // 1-based append call that fails; 0 means never
	appends    int
}

func (m *mockLog) LatestState(_ context.Context, threadID string) (domain.DialogueState, error) {
	if m.readErr != nil {
		return "", m.readErr
	}
	for i := len(m.turns) - 1; i >= 0; i-- {
		if m.turns[i].ThreadID == threadID {
			return m.turns[i].State, nil
		}
	}
	return domain.StateIdle, nil
}

func (m *mockLog) AppendTurn(_ context.Context, turn domain.Turn) error {
	m.appends++
	if m.appendErr != nil && (m.failAppend == 0 || m.failAppend == m.appends) {
		return m.appendErr
	}
	m.turns = append(m.turns, turn)
	return nil
}

type mockOrders struct {
	orders map[string]domain.Order
	err    error
	calls  int
}

func (m *mockOrders) GetOrder(_ context.Context, orderID string) (domain.Order, error) {
	m.calls++
	if m.err != nil {
		return domain.Order{}, m.err
	}
	o, ok := m.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return o, nil
}

func (m *mockOrders) ListOrders(_ context.Context, limit int) ([]domain.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type mockRefunds struct {
	refunds  map[string][]domain.Refund
	readErr  error
	writeErr error
}

func (m *mockRefunds) LatestRefund(_ context.Context, orderID string) (domain.Refund, error) {
	if m.readErr != nil {
		return domain.Refund{}, m.readErr
	}
	rs := m.refunds[orderID]
	if len(rs) == 0 {
		return domain.Refund{}, domain.ErrNotFound
	}
	return rs[len(rs)-1], nil
}

func (m *mockRefunds) CreateRefund(_ context.Context, refund domain.Refund) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	if m.refunds == nil {
		m.refunds = map[string][]domain.Refund{}
	}
	m.refunds[refund.OrderID] = append(m.refunds[refund.OrderID], refund)
	return nil
}

type mockFAQ struct {
	entries []domain.FAQEntry
	err     error
}

func (m *mockFAQ) FindFAQByQuestion(_ context.Context, text string) (domain.FAQEntry, error) {
	if m.err != nil {
		return domain.FAQEntry{}, m.err
	}
	needle := strings.ToLower(text)
	for _, e := range m.entries {
		if strings.Contains(strings.ToLower(e.Question), needle) {
			return e, nil
		}
	}
	return domain.FAQEntry{}, domain.ErrNotFound
}

func (m *mockFAQ) FindFAQByIntent(_ context.Context, intent string) (domain.FAQEntry, error) {
	if m.err != nil {
		return domain.FAQEntry{}, m.err
	}
	for _, e := range m.entries {
		if e.Intent == intent {
			return e, nil
		}
	}
	return domain.FAQEntry{}, domain.ErrNotFound
}

func (m *mockFAQ) ListFAQ(_ context.Context) ([]domain.FAQEntry, error) {
	return m.entries, m.err
}

type mockFallback struct {
	reply   string
	err     error
	calls   int
	system  string
	message string
}

func (m *mockFallback) Reply(_ context.Context, system, message string) (string, error) {
	m.calls++
	m.system = system
	m.message = message
	return m.reply, m.err
}

type countingObserver struct {
	replies        map[string]int
	fallbackErrors int
	refunds        map[string]int
	escalations    map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{replies: map[string]int{}, refunds: map[string]int{}, escalations: map[string]int{}}
}

func (c *countingObserver) ObserveReply(source string)      { c.replies[source]++ }
func (c *countingObserver) ObserveFallbackError()           { c.fallbackErrors++ }
func (c *countingObserver) ObserveRefund(outcome string)    { c.refunds[outcome]++ }
func (c *countingObserver) ObserveEscalation(origin string) { c.escalations[origin]++ }

func defaultOrders() *mockOrders {
	return &mockOrders{orders: map[string]domain.Order{
		"12345": {OrderID: "12345", Status: "shipped", ExpectedDelivery: "2025-08-10"},
		"67890": {OrderID: "67890", Status: "delivered", ExpectedDelivery: "2025-08-01", DeliveredOn: "2025-07-31"},
	}}
}

func defaultFAQ() *mockFAQ {
	return &mockFAQ{entries: []domain.FAQEntry{
		{Intent: "shipping_policy", Question: "How long does shipping take?", Answer: "Orders ship within 2 business days."},
		{Intent: "return_policy", Question: "What is your return policy?", Answer: "Returns are accepted within 30 days."},
		{Intent: "payment_methods", Question: "Which payment methods do you accept?", Answer: "Cards, UPI and net banking."},
	}}
}

func stubClock(t *testing.T, ts time.Time) {
	t.Helper()
	orig := now
	now = func() time.Time { return ts }
	t.Cleanup(func() { now = orig })
}

func stubUUIDs(t *testing.T) {
	t.Helper()
	orig := newUUID
	n := 0
	newUUID = func() string {
		n++
		return "id-" + string(rune('a'+n-1))
	}
	t.Cleanup(func() { newUUID = orig })
}

func testSession() session.Context {
	return session.Context{SessionID: "sess-1", ThreadID: "thread-1"}
}

func expectError(t *testing.T, err error, code ErrorCode, reason string) {
	t.Helper()
	var usecaseErr *Error
	require.ErrorAs(t, err, &usecaseErr)
	require.Equal(t, code, usecaseErr.Code)
	require.Equal(t, reason, usecaseErr.Reason)
}

var errStoreDown = errors.New("store down")
