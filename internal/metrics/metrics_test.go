package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHandlerExposesCounters(t *testing.T) {
	WebhookEvents.WithLabelValues("ignored").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "vendbot_webhook_events_total") {
		t.Error("expected webhook counter in exposition")
	}
}

func TestCounterVecLabels(t *testing.T) {
	before := testutil.ToFloat64(Deliveries.WithLabelValues("content", "ok"))
	Deliveries.WithLabelValues("content", "ok").Inc()
	after := testutil.ToFloat64(Deliveries.WithLabelValues("content", "ok"))
	if after-before != 1 {
		t.Errorf("expected counter to grow by 1, got %v", after-before)
	}
}
