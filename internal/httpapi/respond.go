package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/schema"

	"storefront-support/internal/usecase"
)

var (
	errEmptyBody = errors.New("request body is empty")
	errTooLarge  = errors.New("request body is too large")
)

var queryDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return errTooLarge
		case errors.Is(err, io.EOF):
			return errEmptyBody
		}
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// decodeQuery fills a schema-tagged struct from the URL query.
func decodeQuery[T any](r *http.Request) (T, error) {
	var v T
	if err := queryDecoder.Decode(&v, r.URL.Query()); err != nil {
		return v, fmt.Errorf("decode query: %w", err)
	}
	return v, nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code usecase.ErrorCode, reason string) {
	respondJSON(w, status, errorResponse{Error: reason, Code: string(code)})
}

// respondBadBody answers a body that could not be decoded.
func respondBadBody(w http.ResponseWriter, err error) {
	if errors.Is(err, errTooLarge) {
		respondError(w, http.StatusRequestEntityTooLarge, usecase.ErrorInvalidInput, "body_too_large")
		return
	}
	respondError(w, http.StatusBadRequest, usecase.ErrorInvalidInput, "invalid_body")
}

// classify maps a use case failure to its HTTP status, code and reason.
func classify(err error) (int, usecase.ErrorCode, string) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError, usecase.ErrorInternal, "unexpected_error"
	}
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, ucErr.Code, ucErr.Reason
	case usecase.ErrorNotFound:
		return http.StatusNotFound, ucErr.Code, ucErr.Reason
	case usecase.ErrorUpstream:
		return http.StatusBadGateway, ucErr.Code, ucErr.Reason
	default:
		return http.StatusInternalServerError, usecase.ErrorInternal, ucErr.Reason
	}
}

func respondUseCaseError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, reason := classify(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "reason", reason, "err", err)
	}
	respondError(w, status, code, reason)
}
