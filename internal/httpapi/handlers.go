package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront-support/internal/auth"
	"storefront-support/internal/domain"
	"storefront-support/internal/usecase"
)

type chatRequest struct {
	Query string `json:"query"`
}

type chatResponse struct {
	Reply  string               `json:"reply"`
	Source string               `json:"source,omitempty"`
	State  domain.DialogueState `json:"state,omitempty"`
	Error  string               `json:"error,omitempty"`
}

// handleChat runs one dialogue turn. Failures past validation still answer
// with a reply the widget can show.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadBody(w, err)
		return
	}

	sc := s.sessions.Resolve(r)
	s.sessions.WriteCookies(w, sc)

	out, err := s.svc.Chat.Chat(r.Context(), usecase.ChatInput{Session: sc, Query: req.Query})
	if err != nil {
		status, code, reason := classify(err)
		if status < http.StatusInternalServerError {
			respondError(w, status, code, reason)
			return
		}
		slog.ErrorContext(r.Context(), "chat turn failed", "thread_id", sc.ThreadID, "reason", reason, "err", err)
		respondJSON(w, http.StatusInternalServerError, chatResponse{Reply: usecase.ReplySystemIssue, Error: reason})
		return
	}

	res := chatResponse{Reply: out.Reply, Source: out.Source, State: out.State}
	if out.Failed {
		res.Error = "upstream_failure"
		respondJSON(w, http.StatusInternalServerError, res)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

type escalateRequest struct {
	UserQuery string `json:"user_query"`
	AIReply   string `json:"ai_reply"`
}

type escalateResponse struct {
	OK           bool        `json:"ok"`
	Conversation domain.Turn `json:"conversation"`
}

func (s *Server) handleEscalate(w http.ResponseWriter, r *http.Request) {
	var req escalateRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondBadBody(w, err)
		return
	}

	sc := s.sessions.Resolve(r)
	s.sessions.WriteCookies(w, sc)

	turn, err := s.svc.Escalation.Record(r.Context(), usecase.EscalationInput{
		Session:   sc,
		UserQuery: req.UserQuery,
		AIReply:   req.AIReply,
	})
	if err != nil {
		respondUseCaseError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, escalateResponse{OK: true, Conversation: turn})
}

type refundRequest struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

type refundResponse struct {
	OK      bool          `json:"ok"`
	Message string        `json:"message,omitempty"`
	Refund  domain.Refund `json:"refund"`
}

func (s *Server) handleRefund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadBody(w, err)
		return
	}
	res, err := s.svc.Refund.Create(r.Context(), usecase.RefundInput{OrderID: req.OrderID, Reason: req.Reason})
	if err != nil {
		respondUseCaseError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, refundResponse{OK: true, Message: res.Message, Refund: res.Refund})
}

type listQuery struct {
	Limit int `schema:"limit"`
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	q, err := decodeQuery[listQuery](r)
	if err != nil {
		respondError(w, http.StatusBadRequest, usecase.ErrorInvalidInput, "invalid_query")
		return
	}
	orders, err := s.svc.Catalog.ListOrders(r.Context(), q.Limit)
	if err != nil {
		respondUseCaseError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.svc.Catalog.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondUseCaseError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (s *Server) handleListFAQ(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.Catalog.ListFAQ(r.Context())
	if err != nil {
		respondUseCaseError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"faq": entries})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadBody(w, err)
		return
	}
	user, err := s.users.Login(req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		respondError(w, http.StatusUnauthorized, usecase.ErrorInvalidInput, "invalid_credentials")
		return
	}
	if err != nil {
		respondUseCaseError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

type escalationQuery struct {
	Status string `schema:"status"`
	Limit  int    `schema:"limit"`
}

func (s *Server) handleListEscalations(w http.ResponseWriter, r *http.Request) {
	q, err := decodeQuery[escalationQuery](r)
	if err != nil {
		respondError(w, http.StatusBadRequest, usecase.ErrorInvalidInput, "invalid_query")
		return
	}
	turns, err := s.svc.Admin.ListEscalations(r.Context(), usecase.EscalationFilter{
		Status: domain.ResolutionStatus(q.Status),
		Limit:  q.Limit,
	})
	if err != nil {
		respondUseCaseError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"escalations": turns})
}

type resolutionRequest struct {
	ResolutionStatus domain.ResolutionStatus `json:"resolution_status"`
}

func (s *Server) handleUpdateResolution(w http.ResponseWriter, r *http.Request) {
	var req resolutionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadBody(w, err)
		return
	}
	if err := s.svc.Admin.UpdateResolution(r.Context(), chi.URLParam(r, "id"), req.ResolutionStatus); err != nil {
		respondUseCaseError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSessionHistory(w http.ResponseWriter, r *http.Request) {
	turns, err := s.svc.Admin.SessionHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondUseCaseError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"turns": turns})
}
