package usecase

import (
	"context"
	"errors"
	"strings"

	"storefront-support/internal/domain"
	"storefront-support/internal/session"
)

const defaultMaxQuery = 500

type ChatInput struct {
	Session session.Context
	Query   string
}

type ChatOutput struct {
	Reply  string
	Source string
	State  domain.DialogueState
	// Failed is set when an order or refund lookup failed upstream.
	Failed bool
}

// ChatService runs one dialogue turn: read the thread's latest state, log the
// user turn, resolve, log exactly one bot turn with the next state.
type ChatService struct {
	state       StateStore
	resolver    *Resolver
	maxQueryLen int
	observer    Observer
}

func NewChatService(state StateStore, resolver *Resolver, maxQueryLen int, opts ...Option) (*ChatService, error) {
	if state == nil {
		return nil, errors.New("usecase: state store must not be nil")
	}
	if resolver == nil {
		return nil, errors.New("usecase: resolver must not be nil")
	}
	if maxQueryLen <= 0 {
		maxQueryLen = defaultMaxQuery
	}
	so := applyOptions(opts)
	return &ChatService{
		state:       state,
		resolver:    resolver,
		maxQueryLen: maxQueryLen,
		observer:    so.observer,
	}, nil
}

func (s *ChatService) Chat(ctx context.Context, in ChatInput) (ChatOutput, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return ChatOutput{}, newError(ErrorInvalidInput, "empty_query", nil)
	}
	if len(query) > s.maxQueryLen {
		return ChatOutput{}, newError(ErrorInvalidInput, "query_too_long", nil)
	}
	if in.Session.ThreadID == "" || in.Session.SessionID == "" {
		return ChatOutput{}, newError(ErrorInvalidInput, "missing_session", nil)
	}

	current, err := s.state.LatestState(ctx, in.Session.ThreadID)
	if err != nil {
		return ChatOutput{}, newError(ErrorInternal, "state_read_error", err)
	}

	// The user turn carries the current state forward so the thread's latest
	// row still holds the right state if the bot turn is never written.
	userTurn := domain.Turn{
		ID:        newUUID(),
		ThreadID:  in.Session.ThreadID,
		SessionID: in.Session.SessionID,
		Role:      domain.RoleUser,
		Text:      query,
		State:     current,
		CreatedAt: now(),
	}
	if err := s.state.AppendTurn(ctx, userTurn); err != nil {
		return ChatOutput{}, newError(ErrorInternal, "turn_write_error", err)
	}

	outcome := s.resolver.Resolve(ctx, current, query)

	botTurn := domain.Turn{
		ID:        newUUID(),
		ThreadID:  in.Session.ThreadID,
		SessionID: in.Session.SessionID,
		Role:      domain.RoleBot,
		Text:      outcome.Reply,
		Query:     query,
		State:     outcome.NextState,
		Escalated: outcome.Escalate,
		CreatedAt: after(userTurn.CreatedAt),
	}
	if outcome.Escalate {
		botTurn.ResolutionStatus = domain.ResolutionOpen
	}
	if err := s.state.AppendTurn(ctx, botTurn); err != nil {
		return ChatOutput{}, newError(ErrorInternal, "turn_write_error", err)
	}

	s.observer.ObserveReply(outcome.Source)
	if outcome.Escalate {
		s.observer.ObserveEscalation("chat")
	}
	return ChatOutput{
		Reply:  outcome.Reply,
		Source: outcome.Source,
		State:  outcome.NextState,
		Failed: outcome.Failed,
	}, nil
}
