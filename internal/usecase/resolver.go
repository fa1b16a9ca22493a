package usecase

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"storefront-support/internal/domain"
)

const refundReasonChat = "user_requested"

var (
	orderIDPattern     = regexp.MustCompile(`\b(\d{5,})\b`)
	bareOrderIDPattern = regexp.MustCompile(`^\d{5,}$`)
	affirmativePattern = regexp.MustCompile(`(?i)\b(yes|y|yeah|yep|please do|ok|okay|sure|connect|agent)\b`)
	negativePattern    = regexp.MustCompile(`(?i)\b(no|nope|not now|not yet|cancel|never mind)\b`)
	escalationPattern  = regexp.MustCompile(`(?i)(talk to (an? )?(agent|human)|escalat|human support|more support|need support|support)`)
	trackingPattern    = regexp.MustCompile(`(?i)(track|status).*order|order.*(track|status)`)
	refundPattern      = regexp.MustCompile(`(?i)refund`)
)

// intentRules are evaluated in order against the lowercased message; the first
// hit wins.
var intentRules = []struct {
	tag     string
	pattern *regexp.Regexp
}{
	{"shipping_policy", regexp.MustCompile(`ship|delivery`)},
	{"return_policy", regexp.MustCompile(`return`)},
	{"refund_timeline", regexp.MustCompile(`refund`)},
	{"cancellation_policy", regexp.MustCompile(`cancel`)},
	{"payment_methods", regexp.MustCompile(`payment|pay|upi|card`)},
	{"greeting", regexp.MustCompile(`\b(hi|hello|hey)\b`)},
	{"offers", regexp.MustCompile(`offer|discount|sale`)},
}

// ExtractOrderID returns the first run of five or more digits in text.
func ExtractOrderID(text string) (string, bool) {
	m := orderIDPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// IsAffirmative reports whether text confirms a pending question.
func IsAffirmative(text string) bool { return affirmativePattern.MatchString(text) }

// IsNegative reports whether text declines a pending question.
func IsNegative(text string) bool { return negativePattern.MatchString(text) }

// IsEscalationRequest reports whether text asks for a human agent.
func IsEscalationRequest(text string) bool { return escalationPattern.MatchString(text) }

// IsOrderTracking reports whether text asks about an order's status.
func IsOrderTracking(text string) bool { return trackingPattern.MatchString(text) }

// IsBareOrderID reports whether text is nothing but an order number.
func IsBareOrderID(text string) bool { return bareOrderIDPattern.MatchString(strings.TrimSpace(text)) }

// MentionsRefund reports whether text talks about a refund.
func MentionsRefund(text string) bool { return refundPattern.MatchString(text) }

// MatchIntentTag maps text to a canned FAQ intent tag.
func MatchIntentTag(text string) (string, bool) {
	q := strings.ToLower(text)
	for _, rule := range intentRules {
		if rule.pattern.MatchString(q) {
			return rule.tag, true
		}
	}
	return "", false
}

// Outcome is the resolver's decision for one message.
type Outcome struct {
	Reply     string
	Source    string
	NextState domain.DialogueState
	Escalate  bool
	// Failed marks an order or refund store failure; the HTTP layer answers
	// these with a 500.
	Failed bool
}

// Resolver maps (current state, message) to an Outcome. It never writes the
// conversation log; ChatService does.
type Resolver struct {
	faq          FAQReader
	orders       OrderReader
	refunds      *RefundService
	fallback     Fallback
	systemPrompt string
	observer     Observer
}

// NewResolver wires the lookups the rules need. fallback may be nil, in which
// case unmatched messages get ReplyFallback.
func NewResolver(faq FAQReader, orders OrderReader, refunds *RefundService, fallback Fallback, systemPrompt string, opts ...Option) (*Resolver, error) {
	if faq == nil {
		return nil, errors.New("usecase: faq reader must not be nil")
	}
	if orders == nil {
		return nil, errors.New("usecase: order reader must not be nil")
	}
	if refunds == nil {
		return nil, errors.New("usecase: refund service must not be nil")
	}
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = DefaultSystemPrompt
	}
	so := applyOptions(opts)
	return &Resolver{
		faq:          faq,
		orders:       orders,
		refunds:      refunds,
		fallback:     fallback,
		systemPrompt: systemPrompt,
		observer:     so.observer,
	}, nil
}

// Resolve applies the rules in their fixed priority order:
//
//  1. pending escalation confirmation
//  2. FAQ by question text, then by keyword intent
//  3. escalation phrases
//  4. pending order id
//  5. order tracking request
//  6. bare order number
//  7. refund request
//  8. fallback responder
func (r *Resolver) Resolve(ctx context.Context, state domain.DialogueState, text string) Outcome {
	if state == domain.StateConfirmEscalation {
		return resolveEscalationAnswer(text)
	}

	if answer, ok := r.matchFAQ(ctx, text); ok {
		return Outcome{Reply: answer, Source: SourceFAQ}
	}

	if IsEscalationRequest(text) {
		return Outcome{Reply: ReplyEscalationConfirm, Source: SourceEscalationConfirm, NextState: domain.StateConfirmEscalation}
	}

	if state == domain.StateAwaitingOrderID {
		id, ok := ExtractOrderID(text)
		if !ok {
			return Outcome{Reply: ReplyInvalidOrderID, Source: SourceOrderState, NextState: domain.StateAwaitingOrderID}
		}
		return r.lookupOrder(ctx, id, orderTransitions{notFound: domain.StateAwaitingOrderID, failed: domain.StateAwaitingOrderID})
	}

	if IsOrderTracking(text) {
		id, ok := ExtractOrderID(text)
		if !ok {
			return Outcome{Reply: ReplyAskOrderID, Source: SourceOrderRequestID, NextState: domain.StateAwaitingOrderID}
		}
		return r.lookupOrder(ctx, id, orderTransitions{notFound: domain.StateAwaitingOrderID})
	}

	if IsBareOrderID(text) {
		return r.lookupOrder(ctx, strings.TrimSpace(text), orderTransitions{notFound: state})
	}

	if MentionsRefund(text) {
		return r.requestRefund(ctx, text)
	}

	return r.fallbackReply(ctx, text)
}

func resolveEscalationAnswer(text string) Outcome {
	// Declines are checked first so that a message mixing both never escalates.
	if IsNegative(text) {
		return Outcome{Reply: ReplyEscalationNo, Source: SourceEscalationNo}
	}
	if IsAffirmative(text) {
		return Outcome{Reply: ReplyEscalationYes, Source: SourceEscalationYes, Escalate: true}
	}
	return Outcome{Reply: ReplyEscalationRepeat, Source: SourceEscalationConfirmRepeat, NextState: domain.StateConfirmEscalation}
}

// matchFAQ treats store errors as a miss; FAQ data is best-effort.
func (r *Resolver) matchFAQ(ctx context.Context, text string) (string, bool) {
	entry, err := r.faq.FindFAQByQuestion(ctx, text)
	switch {
	case err == nil && entry.Answer != "":
		return entry.Answer, true
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		slog.WarnContext(ctx, "faq question lookup failed", "err", err)
	}

	intent, ok := MatchIntentTag(text)
	if !ok {
		return "", false
	}
	entry, err = r.faq.FindFAQByIntent(ctx, intent)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.WarnContext(ctx, "faq intent lookup failed", "intent", intent, "err", err)
		}
		return "", false
	}
	return entry.Answer, entry.Answer != ""
}

// orderTransitions names the next state for the unhappy lookup results. A
// found order always returns the thread to idle.
type orderTransitions struct {
	notFound domain.DialogueState
	failed   domain.DialogueState
}

func (r *Resolver) lookupOrder(ctx context.Context, orderID string, next orderTransitions) Outcome {
	order, err := r.orders.GetOrder(ctx, orderID)
	if errors.Is(err, domain.ErrNotFound) {
		return Outcome{Reply: ReplyOrderNotFound, Source: SourceOrderNotFound, NextState: next.notFound}
	}
	if err != nil {
		slog.ErrorContext(ctx, "order lookup failed", "order_id", orderID, "err", err)
		return Outcome{Reply: ReplySystemIssue, Source: SourceError, NextState: next.failed, Failed: true}
	}
	return Outcome{Reply: orderStatusReply(order), Source: SourceOrderStatus}
}

func (r *Resolver) requestRefund(ctx context.Context, text string) Outcome {
	id, ok := ExtractOrderID(text)
	if !ok {
		return Outcome{Reply: ReplyRefundAskOrderID, Source: SourceRefund}
	}
	res, err := r.refunds.Create(ctx, RefundInput{OrderID: id, Reason: refundReasonChat})
	if err != nil {
		var ucErr *Error
		if errors.As(err, &ucErr) && ucErr.Code == ErrorNotFound {
			return Outcome{Reply: ReplyRefundNoOrder, Source: SourceRefund}
		}
		slog.ErrorContext(ctx, "refund creation failed", "order_id", id, "err", err)
		return Outcome{Reply: ReplySystemIssue, Source: SourceError, Failed: true}
	}
	return Outcome{Reply: refundReply(res), Source: SourceRefund}
}

func (r *Resolver) fallbackReply(ctx context.Context, text string) Outcome {
	if r.fallback == nil {
		return Outcome{Reply: ReplyFallback, Source: SourceFallback}
	}
	reply, err := r.fallback.Reply(ctx, r.systemPrompt, text)
	if err != nil {
		r.observer.ObserveFallbackError()
		slog.WarnContext(ctx, "fallback responder failed", "err", err)
		return Outcome{Reply: ReplyFallback, Source: SourceFallback}
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return Outcome{Reply: ReplyFallback, Source: SourceFallback}
	}
	return Outcome{Reply: reply, Source: SourceGPT}
}
