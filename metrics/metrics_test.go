package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_CountAndExpose(t *testing.T) {
	m := New()
	m.Mutations.WithLabelValues("customers", "create").Inc()
	m.Clients.Set(3)

	if got := testutil.ToFloat64(m.Mutations.WithLabelValues("customers", "create")); got != 1 {
		t.Errorf("mutations = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{"pos_store_mutations_total", "pos_bus_clients 3"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.Events.WithLabelValues("relay").Inc()
	if got := testutil.ToFloat64(b.Events.WithLabelValues("relay")); got != 0 {
		t.Errorf("registries share state: %v", got)
	}
}
