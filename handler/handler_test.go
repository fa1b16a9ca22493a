package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"
)

type echoed struct {
	Method  string              `json:"method"`
	Path    string              `json:"path"`
	Query   map[string][]string `json:"query"`
	Body    string              `json:"body"`
	Cookies []string            `json:"cookies"`
}

// echoRouter reflects the request back and sets two cookies.
func echoRouter() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var cookies []string
		for _, c := range r.Cookies() {
			cookies = append(cookies, c.Name+"="+c.Value)
		}
		http.SetCookie(w, &http.Cookie{Name: "chat_session_id", Value: "s1", Path: "/"})
		http.SetCookie(w, &http.Cookie{Name: "chat_thread_id", Value: "t1", Path: "/"})
		w.Header().Set("X-Correlation-Id", r.Header.Get("X-Correlation-Id"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(echoed{
			Method:  r.Method,
			Path:    r.URL.Path,
			Query:   r.URL.Query(),
			Body:    string(body),
			Cookies: cookies,
		})
	})
}

func makeEvent(body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/chat",
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func TestNewHandler_ValidatesDependency(t *testing.T) {
	_, err := NewHandler(nil)
	require.Error(t, err)
}

func TestHandle_ForwardsRequest(t *testing.T) {
	h, err := NewHandler(echoRouter())
	require.NoError(t, err)

	event := makeEvent(`{"query":"hi"}`)
	event.Headers["Cookie"] = "chat_session_id=abc"
	event.QueryStringParameters = map[string]string{"limit": "5"}

	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	out := parseBody[echoed](t, resp.Body)
	require.Equal(t, http.MethodPost, out.Method)
	require.Equal(t, "/chat", out.Path)
	require.Equal(t, []string{"5"}, out.Query["limit"])
	require.Equal(t, `{"query":"hi"}`, out.Body)
	require.Equal(t, []string{"chat_session_id=abc"}, out.Cookies)
}

func TestHandle_SetCookieIsMultiValue(t *testing.T) {
	h, err := NewHandler(echoRouter())
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`{}`))
	require.NoError(t, err)
	require.Len(t, resp.MultiValueHeaders["Set-Cookie"], 2)
	require.NotContains(t, resp.Headers, "Set-Cookie")
	require.Equal(t, []string{"application/json"}, resp.MultiValueHeaders["Content-Type"])
}

func TestHandle_MultiValueEventFields(t *testing.T) {
	h, err := NewHandler(echoRouter())
	require.NoError(t, err)

	event := makeEvent(`{}`)
	event.MultiValueHeaders = map[string][]string{"x-correlation-id": {"corr-123"}}
	event.MultiValueQueryStringParameters = map[string][]string{"status": {"open", "resolved"}}

	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, []string{"corr-123"}, resp.MultiValueHeaders["X-Correlation-Id"])
	require.Equal(t, []string{"open", "resolved"}, parseBody[echoed](t, resp.Body).Query["status"])
}

func TestHandle_Base64Body(t *testing.T) {
	h, err := NewHandler(echoRouter())
	require.NoError(t, err)

	event := makeEvent(base64.StdEncoding.EncodeToString([]byte(`{"query":"refund 10001"}`)))
	event.IsBase64Encoded = true
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, `{"query":"refund 10001"}`, parseBody[echoed](t, resp.Body).Body)

	event.Body = "%%%not-base64"
	resp, err = h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, resp.Body, "INVALID_INPUT")
}
