package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"storefront-support/internal/auth"
	"storefront-support/internal/domain"
	"storefront-support/internal/observability"
	"storefront-support/internal/session"
	"storefront-support/internal/usecase"
)

const (
	CorrelationHeader = "X-Correlation-Id"
	maxBodyBytes      = 64 << 10
	adminRealm        = "storefront-admin"
)

type Chatter interface {
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
}

type Escalator interface {
	Record(ctx context.Context, in usecase.EscalationInput) (domain.Turn, error)
}

type Refunder interface {
	Create(ctx context.Context, in usecase.RefundInput) (usecase.RefundResult, error)
}

type Catalog interface {
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	ListOrders(ctx context.Context, limit int) ([]domain.Order, error)
	ListFAQ(ctx context.Context) ([]domain.FAQEntry, error)
}

type Admin interface {
	ListEscalations(ctx context.Context, f usecase.EscalationFilter) ([]domain.Turn, error)
	SessionHistory(ctx context.Context, sessionID string) ([]domain.Turn, error)
	UpdateResolution(ctx context.Context, turnID string, status domain.ResolutionStatus) error
}

// Services are the use cases the HTTP surface dispatches to.
type Services struct {
	Chat       Chatter
	Escalation Escalator
	Refund     Refunder
	Catalog    Catalog
	Admin      Admin
}

type Options struct {
	AllowedOrigins []string
}

type Server struct {
	svc      Services
	sessions *session.Manager
	users    *auth.Directory
	metrics  *observability.Metrics
	opts     Options
}

func New(svc Services, sessions *session.Manager, users *auth.Directory, metrics *observability.Metrics, opts Options) (*Server, error) {
	switch {
	case svc.Chat == nil:
		return nil, errors.New("httpapi: chat service must not be nil")
	case svc.Escalation == nil:
		return nil, errors.New("httpapi: escalation service must not be nil")
	case svc.Refund == nil:
		return nil, errors.New("httpapi: refund service must not be nil")
	case svc.Catalog == nil:
		return nil, errors.New("httpapi: catalog service must not be nil")
	case svc.Admin == nil:
		return nil, errors.New("httpapi: admin service must not be nil")
	case sessions == nil:
		return nil, errors.New("httpapi: session manager must not be nil")
	case users == nil:
		return nil, errors.New("httpapi: user directory must not be nil")
	case metrics == nil:
		return nil, errors.New("httpapi: metrics must not be nil")
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{svc: svc, sessions: sessions, users: users, metrics: metrics, opts: opts}, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.correlation)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	// Credentials are only allowed for origins listed explicitly.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", CorrelationHeader},
		ExposedHeaders:   []string{CorrelationHeader},
		AllowCredentials: !slices.Contains(s.opts.AllowedOrigins, "*"),
		MaxAge:           300,
	}))
	r.Use(middleware.RequestSize(maxBodyBytes))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", s.metrics.Handler())

	r.Post("/chat", s.handleChat)
	r.Post("/escalate", s.handleEscalate)
	r.Post("/refund", s.handleRefund)
	r.Get("/orders", s.handleListOrders)
	r.Get("/orders/{id}", s.handleGetOrder)
	r.Get("/faq", s.handleListFAQ)
	r.Post("/login", s.handleLogin)

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.BasicAuth(adminRealm, s.users.Admins()))
		r.Get("/escalations", s.handleListEscalations)
		r.Patch("/escalations/{id}", s.handleUpdateResolution)
		r.Get("/sessions/{id}/history", s.handleSessionHistory)
	})

	return r
}

type correlationKey struct{}

// CorrelationID returns the id attached to ctx by the router, if any.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// correlation echoes the caller's X-Correlation-Id or mints one.
func (s *Server) correlation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(CorrelationHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(CorrelationHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), correlationKey{}, id)))
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		route := ""
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		s.metrics.ObserveRequest(route, elapsed)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", elapsed.Milliseconds(),
			"correlation_id", CorrelationID(r.Context()),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
