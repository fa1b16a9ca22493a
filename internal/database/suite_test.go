package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"storefront-support/internal/demodata"
	"storefront-support/internal/domain"
)

// runStoreSuite exercises a migrated, empty store. It is shared by the SQLite
// tests and the Postgres integration test.
func runStoreSuite(t *testing.T, store *Store) {
	t.Run("conversation state", func(t *testing.T) { testConversationState(t, store) })
	t.Run("escalation queue", func(t *testing.T) { testEscalationQueue(t, store) })
	t.Run("orders and refunds", func(t *testing.T) { testOrdersAndRefunds(t, store) })
	t.Run("faq", func(t *testing.T) { testFAQ(t, store) })
	t.Run("faq match order", func(t *testing.T) { testFAQMatchOrder(t, store) })
}

var suiteBase = time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)

func turn(id, thread string, role domain.Role, state domain.DialogueState, at time.Time) domain.Turn {
	return domain.Turn{ID: id, ThreadID: thread, SessionID: "sess-" + thread, Role: role, Text: "text " + id, State: state, CreatedAt: at}
}

func testConversationState(t *testing.T, store *Store) {
	ctx := context.Background()

	state, err := store.LatestState(ctx, "t-1")
	require.NoError(t, err)
	require.Equal(t, domain.StateIdle, state)

	// Identical timestamps: insertion order decides.
	require.NoError(t, store.AppendTurn(ctx, turn("c-1", "t-1", domain.RoleUser, domain.StateIdle, suiteBase)))
	require.NoError(t, store.AppendTurn(ctx, turn("c-2", "t-1", domain.RoleBot, domain.StateAwaitingOrderID, suiteBase)))
	state, err = store.LatestState(ctx, "t-1")
	require.NoError(t, err)
	require.Equal(t, domain.StateAwaitingOrderID, state)

	require.NoError(t, store.AppendTurn(ctx, turn("c-3", "t-2", domain.RoleBot, domain.StateConfirmEscalation, suiteBase)))
	state, err = store.LatestState(ctx, "t-1")
	require.NoError(t, err)
	require.Equal(t, domain.StateAwaitingOrderID, state)

	require.NoError(t, store.AppendTurn(ctx, turn("c-4", "t-1", domain.RoleBot, domain.StateIdle, suiteBase.Add(time.Second))))
	state, err = store.LatestState(ctx, "t-1")
	require.NoError(t, err)
	require.Equal(t, domain.StateIdle, state)

	require.Error(t, store.AppendTurn(ctx, turn("c-4", "t-1", domain.RoleUser, "", suiteBase)), "duplicate turn id")

	history, err := store.SessionHistory(ctx, "sess-t-1", 100)
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.Equal(t, []string{"c-1", "c-2", "c-4"}, []string{history[0].ID, history[1].ID, history[2].ID})
	require.Equal(t, "text c-1", history[0].Text)
	require.Equal(t, domain.RoleUser, history[0].Role)
	require.True(t, suiteBase.Equal(history[0].CreatedAt))
}

func testEscalationQueue(t *testing.T, store *Store) {
	ctx := context.Background()

	older := turn("e-1", "t-3", domain.RoleBot, "", suiteBase)
	older.Escalated = true
	older.Query = "talk to agent"
	newer := turn("e-2", "t-4", domain.RoleBot, "", suiteBase.Add(time.Minute))
	newer.Escalated = true
	newer.ResolutionStatus = domain.ResolutionOpen
	require.NoError(t, store.AppendTurn(ctx, older))
	require.NoError(t, store.AppendTurn(ctx, newer))
	require.NoError(t, store.AppendTurn(ctx, turn("e-3", "t-4", domain.RoleUser, "", suiteBase.Add(2*time.Minute))))

	queue, err := store.ListEscalations(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	require.Equal(t, "e-2", queue[0].ID)
	require.Equal(t, "e-1", queue[1].ID)
	require.Equal(t, domain.ResolutionOpen, queue[1].ResolutionStatus)
	require.Equal(t, "talk to agent", queue[1].Query)
	require.True(t, queue[1].Escalated)

	require.NoError(t, store.UpdateResolution(ctx, "e-1", domain.ResolutionResolved))
	open, err := store.ListEscalations(ctx, domain.ResolutionOpen, 10)
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, "e-2", open[0].ID)

	resolved, err := store.ListEscalations(ctx, domain.ResolutionResolved, 10)
	require.NoError(t, err)
	require.Len(t, resolved, 1)

	limited, err := store.ListEscalations(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	require.ErrorIs(t, store.UpdateResolution(ctx, "e-3", domain.ResolutionResolved), domain.ErrNotFound)
	require.ErrorIs(t, store.UpdateResolution(ctx, "missing", domain.ResolutionResolved), domain.ErrNotFound)
}

func testOrdersAndRefunds(t *testing.T, store *Store) {
	ctx := context.Background()
	require.NoError(t, store.Seed(ctx))
	require.NoError(t, store.Seed(ctx), "seeding twice")

	order, err := store.GetOrder(ctx, "10003")
	require.NoError(t, err)
	require.Equal(t, "delivered", order.Status)
	require.Equal(t, "2025-07-24", order.DeliveredOn)
	require.Len(t, order.Items, 2)
	require.Equal(t, domain.OrderItem{SKU: "MUG-CER-01", Name: "Ceramic Mug", Quantity: 4}, order.Items[0])

	_, err = store.GetOrder(ctx, "99999")
	require.ErrorIs(t, err, domain.ErrNotFound)

	orders, err := store.ListOrders(ctx, 2)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.Equal(t, "10003", orders[0].OrderID)
	require.Equal(t, "10002", orders[1].OrderID)

	_, err = store.LatestRefund(ctx, "10002")
	require.ErrorIs(t, err, domain.ErrNotFound)

	first := domain.Refund{RefundID: "r-1", OrderID: "10002", Reason: "late", Status: domain.RefundPending, CreatedAt: suiteBase}
	second := domain.Refund{RefundID: "r-2", OrderID: "10002", Status: "approved", CreatedAt: suiteBase.Add(time.Hour)}
	require.NoError(t, store.CreateRefund(ctx, first))
	require.NoError(t, store.CreateRefund(ctx, second))

	latest, err := store.LatestRefund(ctx, "10002")
	require.NoError(t, err)
	require.Equal(t, "r-2", latest.RefundID)
	require.Equal(t, "approved", latest.Status)
	require.True(t, second.CreatedAt.Equal(latest.CreatedAt))

	_, err = store.LatestRefund(ctx, "10001")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func testFAQ(t *testing.T, store *Store) {
	ctx := context.Background()
	require.NoError(t, store.Seed(ctx))

	e, err := store.FindFAQByQuestion(ctx, "RETURN policy")
	require.NoError(t, err)
	require.Equal(t, "return_policy", e.Intent)

	_, err = store.FindFAQByQuestion(ctx, "100%")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.FindFAQByQuestion(ctx, "  ")
	require.ErrorIs(t, err, domain.ErrNotFound)

	e, err = store.FindFAQByIntent(ctx, "greeting")
	require.NoError(t, err)
	require.Equal(t, "Hi there!", e.Question)

	_, err = store.FindFAQByIntent(ctx, "warranty")
	require.ErrorIs(t, err, domain.ErrNotFound)

	entries, err := store.ListFAQ(ctx)
	require.NoError(t, err)
	require.Equal(t, demodata.FAQ(), entries)
}

// testFAQMatchOrder pins which entry wins when a query is a substring of
// several questions: lowest position first, then question text.
func testFAQMatchOrder(t *testing.T, store *Store) {
	ctx := context.Background()
	require.NoError(t, store.Seed(ctx))

	// "hi" also occurs in "sHIpping" and "wHIch payment".
	e, err := store.FindFAQByQuestion(ctx, "hi")
	require.NoError(t, err)
	require.Equal(t, "greeting", e.Intent)

	require.NoError(t, store.PutFAQ(ctx, domain.FAQEntry{Intent: "extra", Question: "Zebra question about delivery", Answer: "z", Position: 0}))
	require.NoError(t, store.PutFAQ(ctx, domain.FAQEntry{Intent: "extra", Question: "Alpha question about delivery", Answer: "a", Position: 0}))
	e, err = store.FindFAQByQuestion(ctx, "question about delivery")
	require.NoError(t, err)
	require.Equal(t, "a", e.Answer)

	e, err = store.FindFAQByIntent(ctx, "extra")
	require.NoError(t, err)
	require.Equal(t, "a", e.Answer)
}
