package usecase

import (
	"context"

	"storefront-support/internal/domain"
)

// StateStore is the conversation log seen as a state machine. There is no
// separate snapshot: the dialogue state of a thread is the State of the turn
// most recently appended to it.
//
// Contract: read latest, write next. A caller reads LatestState once, decides,
// and records the outcome with AppendTurn. Turns are never updated through
// this interface. Concurrent requests on one thread race benignly; the last
// append wins.
type StateStore interface {
	// LatestState returns StateIdle for a thread with no turns.
	LatestState(ctx context.Context, threadID string) (domain.DialogueState, error)
	AppendTurn(ctx context.Context, turn domain.Turn) error
}

// OrderReader returns domain.ErrNotFound for unknown orders.
type OrderReader interface {
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
}

type OrderLister interface {
	ListOrders(ctx context.Context, limit int) ([]domain.Order, error)
}

// RefundStore returns domain.ErrNotFound from LatestRefund when no refund
// exists for the order.
type RefundStore interface {
	LatestRefund(ctx context.Context, orderID string) (domain.Refund, error)
	CreateRefund(ctx context.Context, refund domain.Refund) error
}

// FAQReader returns domain.ErrNotFound when nothing matches.
type FAQReader interface {
	// FindFAQByQuestion matches stored questions containing text,
	// case-insensitively.
	FindFAQByQuestion(ctx context.Context, text string) (domain.FAQEntry, error)
	FindFAQByIntent(ctx context.Context, intent string) (domain.FAQEntry, error)
}

type FAQLister interface {
	ListFAQ(ctx context.Context) ([]domain.FAQEntry, error)
}

// EscalationStore backs the admin queue. UpdateResolution is the only
// mutation ever applied to an existing turn.
type EscalationStore interface {
	ListEscalations(ctx context.Context, status domain.ResolutionStatus, limit int) ([]domain.Turn, error)
	SessionHistory(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error)
	UpdateResolution(ctx context.Context, turnID string, status domain.ResolutionStatus) error
}

// Fallback produces a free-text reply when no rule matches.
type Fallback interface {
	Reply(ctx context.Context, system, message string) (string, error)
}

// Observer receives business events for metrics.
type Observer interface {
	ObserveReply(source string)
	ObserveFallbackError()
	ObserveRefund(outcome string)
	ObserveEscalation(origin string)
}

type nopObserver struct{}

func (nopObserver) ObserveReply(string)      {}
func (nopObserver) ObserveFallbackError()    {}
func (nopObserver) ObserveRefund(string)     {}
func (nopObserver) ObserveEscalation(string) {}

type serviceOptions struct {
	observer Observer
}

// Option configures a service constructed by this package.
type Option func(*serviceOptions)

// WithObserver routes business events to o.
func WithObserver(o Observer) Option {
	return func(so *serviceOptions) {
		if o != nil {
			so.observer = o
		}
	}
}

func applyOptions(opts []Option) serviceOptions {
	so := serviceOptions{observer: nopObserver{}}
	for _, opt := range opts {
		opt(&so)
	}
	return so
}
