package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Handler_Exposes_Counters(t *testing.T) {
	req := require.New(t)
	metrics := NewMetrics()

	// Given a few recorded events
	metrics.EventsPublished.WithLabelValues("message_created").Inc()
	metrics.EventsPublished.WithLabelValues("message_created").Inc()
	metrics.StreamClients.Set(3)

	// When scraping the handler
	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// Then the counters are exposed
	req.Equal(http.StatusOK, w.Code)
	req.Contains(w.Body.String(), `channel_chat_events_published_total{type="message_created"} 2`)
	req.Contains(w.Body.String(), "channel_chat_stream_clients 3")
	req.Equal(float64(2), testutil.ToFloat64(metrics.EventsPublished.WithLabelValues("message_created")))
}

func TestMetrics_Independent_Registries(t *testing.T) {
	req := require.New(t)
	first, second := NewMetrics(), NewMetrics()

	first.RateLimited.Inc()

	req.Equal(float64(1), testutil.ToFloat64(first.RateLimited))
	req.Equal(float64(0), testutil.ToFloat64(second.RateLimited))
}
