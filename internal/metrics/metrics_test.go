package metrics

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read scrape body: %v", err)
	}
	return string(body)
}

func TestMetrics_Counters(t *testing.T) {
	m := New(func() int { return 7 })

	m.IncRequestCreated("issuance")
	m.IncRequestCreated("issuance")
	m.IncCallback("verification", "presentation_verified")
	m.IncCallbackUnmatched("verification")
	m.IncUpstreamError("create_presentation_request")

	out := scrape(t, m)
	for _, want := range []string{
		`vcdemo_requests_created_total{kind="issuance"} 2`,
		`vcdemo_callbacks_total{kind="verification",status="presentation_verified"} 1`,
		`vcdemo_callbacks_unmatched_total{kind="verification"} 1`,
		`vcdemo_upstream_errors_total{operation="create_presentation_request"} 1`,
		`vcdemo_tracked_requests 7`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("scrape output missing %q", want)
		}
	}
}

func TestMetrics_NoGaugeWithoutSource(t *testing.T) {
	m := New(nil)
	m.IncRequestCreated("verification")

	out := scrape(t, m)
	if strings.Contains(out, "vcdemo_tracked_requests") {
		t.Error("tracked requests gauge should not be registered without a source")
	}
}

func TestMetrics_UnknownCallbackStatusesShareOneSeries(t *testing.T) {
	m := New(nil)

	m.IncCallback("verification", "presentation_verified")
	for i := range 500 {
		m.IncCallback("verification", fmt.Sprintf("forged_%d", i))
	}

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	var series int
	for _, mf := range families {
		if mf.GetName() == "vcdemo_callbacks_total" {
			series = len(mf.GetMetric())
		}
	}
	if series != 2 {
		t.Errorf("got %d callback series, want 2", series)
	}

	out := scrape(t, m)
	if !strings.Contains(out, `vcdemo_callbacks_total{kind="verification",status="other"} 500`) {
		t.Errorf("unknown statuses not counted under other:\n%s", out)
	}
}
