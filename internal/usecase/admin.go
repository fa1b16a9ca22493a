package usecase

import (
	"context"
	"errors"
	"strings"

	"storefront-support/internal/domain"
)

// EscalationFilter narrows the admin queue. An empty Status lists every
// escalated turn.
type EscalationFilter struct {
	Status domain.ResolutionStatus
	Limit  int
}

// AdminService backs the reviewer dashboard.
type AdminService struct {
	store EscalationStore
}

func NewAdminService(store EscalationStore) (*AdminService, error) {
	if store == nil {
		return nil, errors.New("usecase: escalation store must not be nil")
	}
	return &AdminService{store: store}, nil
}

// ListEscalations returns escalated turns, newest first.
func (s *AdminService) ListEscalations(ctx context.Context, f EscalationFilter) ([]domain.Turn, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, newError(ErrorInvalidInput, "invalid_status", nil)
	}
	turns, err := s.store.ListEscalations(ctx, f.Status, clampLimit(f.Limit))
	if err != nil {
		return nil, newError(ErrorInternal, "escalation_list_error", err)
	}
	return turns, nil
}

// SessionHistory returns every turn of a session, oldest first.
func (s *AdminService) SessionHistory(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, newError(ErrorInvalidInput, "missing_session_id", nil)
	}
	turns, err := s.store.SessionHistory(ctx, sessionID, maxListLimit)
	if err != nil {
		return nil, newError(ErrorInternal, "history_read_error", err)
	}
	return turns, nil
}

func (s *AdminService) UpdateResolution(ctx context.Context, turnID string, status domain.ResolutionStatus) error {
	turnID = strings.TrimSpace(turnID)
	if turnID == "" {
		return newError(ErrorInvalidInput, "missing_turn_id", nil)
	}
	if !status.Valid() {
		return newError(ErrorInvalidInput, "invalid_status", nil)
	}
	err := s.store.UpdateResolution(ctx, turnID, status)
	if errors.Is(err, domain.ErrNotFound) {
		return newError(ErrorNotFound, "escalation_not_found", err)
	}
	if err != nil {
		return newError(ErrorInternal, "resolution_write_error", err)
	}
	return nil
}
