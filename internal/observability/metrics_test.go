package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountersByLabel(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.ObserveReply("faq")
	m.ObserveReply("faq")
	m.ObserveReply("gpt")
	m.ObserveFallbackError()
	m.ObserveRefund("created")
	m.ObserveEscalation("widget")

	require.Equal(t, 2.0, testutil.ToFloat64(m.ChatReplies.WithLabelValues("faq")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ChatReplies.WithLabelValues("gpt")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.FallbackErrors))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Refunds.WithLabelValues("created")))
	require.Equal(t, 0.0, testutil.ToFloat64(m.Refunds.WithLabelValues("existing")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Escalations.WithLabelValues("widget")))
}

func TestMetrics_SeparateRegistriesDoNotCollide(t *testing.T) {
	require.NotPanics(t, func() {
		NewMetrics("test", prometheus.NewRegistry())
		NewMetrics("test", prometheus.NewRegistry())
	})
}

func TestMetrics_HandlerExposesRegistry(t *testing.T) {
	m := NewMetrics("support", prometheus.NewRegistry())
	m.ObserveRequest("/chat", 30*time.Millisecond)
	m.ObserveRequest("", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	require.True(t, strings.Contains(text, `support_request_duration_seconds_count{route="/chat"} 1`), text)
	require.True(t, strings.Contains(text, `route="unmatched"`), text)
}
