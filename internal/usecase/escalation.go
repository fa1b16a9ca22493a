package usecase

import (
	"context"
	"errors"
	"strings"

	"storefront-support/internal/domain"
	"storefront-support/internal/session"
)

type EscalationInput struct {
	Session   session.Context
	UserQuery string
	AIReply   string
}

// EscalationService records explicit "talk to agent" requests from the widget.
// It writes straight to the log without consulting the resolver.
type EscalationService struct {
	log      StateStore
	observer Observer
}

func NewEscalationService(log StateStore, opts ...Option) (*EscalationService, error) {
	if log == nil {
		return nil, errors.New("usecase: state store must not be nil")
	}
	so := applyOptions(opts)
	return &EscalationService{log: log, observer: so.observer}, nil
}

// Record appends an escalated bot turn. The turn carries the idle state, so a
// pending confirmation on the same thread is dropped.
func (s *EscalationService) Record(ctx context.Context, in EscalationInput) (domain.Turn, error) {
	if in.Session.ThreadID == "" || in.Session.SessionID == "" {
		return domain.Turn{}, newError(ErrorInvalidInput, "missing_session", nil)
	}
	turn := domain.Turn{
		ID:               newUUID(),
		ThreadID:         in.Session.ThreadID,
		SessionID:        in.Session.SessionID,
		Role:             domain.RoleBot,
		Text:             strings.TrimSpace(in.AIReply),
		Query:            strings.TrimSpace(in.UserQuery),
		Escalated:        true,
		ResolutionStatus: domain.ResolutionOpen,
		CreatedAt:        now(),
	}
	if err := s.log.AppendTurn(ctx, turn); err != nil {
		return domain.Turn{}, newError(ErrorInternal, "escalation_write_error", err)
	}
	s.observer.ObserveEscalation("widget")
	return turn, nil
}
