package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	testhelpers "github.com/Kone-AI/Kone-sub000/internal/providers"
	"github.com/Kone-AI/Kone-sub000/pkg/providers"
)

// Helper function to create test config
func testConfig() Config {
	return Config{
		Enabled:        true,
		Namespace:      "test",
		Subsystem:      "metrics",
		LatencyBuckets: []float64{0.1, 0.5, 1.0, 5.0},
	}
}

func TestCollector_NewCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewCollector(Config{Enabled: true}, registry)

	if collector.Registry() != registry {
		t.Error("Collector registry not set correctly")
	}
	if collector.config.Namespace != "kone" || collector.config.Subsystem != "gateway" {
		t.Errorf("expected default names, got %s_%s", collector.config.Namespace, collector.config.Subsystem)
	}
	if len(collector.config.LatencyBuckets) == 0 {
		t.Error("expected default latency buckets")
	}

	if NewCollector(Config{}, nil).Registry() == nil {
		t.Error("expected a registry to be created")
	}
}

func TestCollector_RecordProviderRequest(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	tests := []struct {
		name     string
		provider string
		model    string
		outcome  string
		duration time.Duration
	}{
		{"success", "groq", "groq/llama-3.1-8b", "success", 1200 * time.Millisecond},
		{"error", "anthropic", "anthropic/claude-3-haiku", "error", 500 * time.Millisecond},
		{"second success", "groq", "groq/llama-3.1-8b", "success", 300 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector.RecordProviderRequest(tt.provider, tt.model, tt.outcome, tt.duration)
		})
	}

	got := testutil.ToFloat64(collector.providerMetrics.requests.WithLabelValues("groq", "groq/llama-3.1-8b", "success"))
	if got != 2 {
		t.Errorf("expected 2 successful groq attempts, got %v", got)
	}
	got = testutil.ToFloat64(collector.providerMetrics.requests.WithLabelValues("anthropic", "anthropic/claude-3-haiku", "error"))
	if got != 1 {
		t.Errorf("expected 1 failed anthropic attempt, got %v", got)
	}
	if n := testutil.CollectAndCount(collector.providerMetrics.latency); n != 2 {
		t.Errorf("expected 2 latency series, got %d", n)
	}
}

func TestCollector_ProviderErrorsAndCooldown(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordProviderError("groq", providers.KindRateLimited)
	collector.RecordProviderError("groq", providers.KindRateLimited)
	collector.RecordProviderError("groq", "")

	if got := testutil.ToFloat64(collector.providerMetrics.errors.WithLabelValues("groq", string(providers.KindRateLimited))); got != 2 {
		t.Errorf("expected 2 rate limited errors, got %v", got)
	}
	if got := testutil.ToFloat64(collector.providerMetrics.errors.WithLabelValues("groq", "unknown")); got != 1 {
		t.Errorf("expected empty kind recorded as unknown, got %v", got)
	}

	collector.SetProviderDisabled("groq", true)
	if got := testutil.ToFloat64(collector.providerMetrics.disabled.WithLabelValues("groq")); got != 1 {
		t.Errorf("expected disabled gauge 1, got %v", got)
	}
	collector.SetProviderDisabled("groq", false)
	if got := testutil.ToFloat64(collector.providerMetrics.disabled.WithLabelValues("groq")); got != 0 {
		t.Errorf("expected disabled gauge 0, got %v", got)
	}
}

func TestCollector_Catalog(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordCatalogRefresh("groq", true, 12)
	collector.RecordCatalogRefresh("groq", false, 0)
	collector.RecordCatalogLookup("groq", true)
	collector.RecordCatalogLookup("groq", true)
	collector.RecordCatalogLookup("groq", false)

	cm := collector.catalogMetrics
	if got := testutil.ToFloat64(cm.size.WithLabelValues("groq")); got != 12 {
		t.Errorf("expected catalog size 12 kept after failed refresh, got %v", got)
	}
	if got := testutil.ToFloat64(cm.refreshes.WithLabelValues("groq", "error")); got != 1 {
		t.Errorf("expected 1 failed refresh, got %v", got)
	}
	if got := testutil.ToFloat64(cm.lookups.WithLabelValues("groq", "hit")); got != 2 {
		t.Errorf("expected 2 hits, got %v", got)
	}
	if got := testutil.ToFloat64(cm.lookups.WithLabelValues("groq", "miss")); got != 1 {
		t.Errorf("expected 1 miss, got %v", got)
	}
}

func TestCollector_RecordHealthCheck(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordHealthCheck("groq/m", "operational", 800*time.Millisecond, 1)
	collector.RecordHealthCheck("groq/m", "limited", 0, 3)

	hm := collector.healthMetrics
	if got := testutil.ToFloat64(hm.status.WithLabelValues("groq/m", "limited")); got != 1 {
		t.Errorf("expected limited to be active, got %v", got)
	}
	if got := testutil.ToFloat64(hm.status.WithLabelValues("groq/m", "operational")); got != 0 {
		t.Errorf("expected operational to be cleared, got %v", got)
	}
	if got := testutil.ToFloat64(hm.checks.WithLabelValues("groq/m", "operational")); got != 1 {
		t.Errorf("expected 1 operational check, got %v", got)
	}

	// Only the successful check carries a latency sample.
	expected := `
# HELP test_metrics_health_check_latency_seconds Latency of successful health probes in seconds
# TYPE test_metrics_health_check_latency_seconds histogram
test_metrics_health_check_latency_seconds_bucket{model="groq/m",le="0.1"} 0
test_metrics_health_check_latency_seconds_bucket{model="groq/m",le="0.5"} 0
test_metrics_health_check_latency_seconds_bucket{model="groq/m",le="1"} 1
test_metrics_health_check_latency_seconds_bucket{model="groq/m",le="5"} 1
test_metrics_health_check_latency_seconds_bucket{model="groq/m",le="+Inf"} 1
test_metrics_health_check_latency_seconds_sum{model="groq/m"} 0.8
test_metrics_health_check_latency_seconds_count{model="groq/m"} 1
`
	if err := testutil.CollectAndCompare(hm.latency, strings.NewReader(expected)); err != nil {
		t.Error(err)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, nil)

	collector.RecordProviderRequest("groq", "groq/m", "success", time.Second)
	collector.RecordProviderError("groq", providers.KindTimeout)
	collector.RecordCatalogLookup("groq", true)
	collector.RecordHealthCheck("groq/m", "operational", time.Second, 1)

	if n := testutil.CollectAndCount(collector.providerMetrics.requests); n != 0 {
		t.Errorf("expected no series from a disabled collector, got %d", n)
	}
	if n := testutil.CollectAndCount(collector.healthMetrics.checks); n != 0 {
		t.Errorf("expected no health series from a disabled collector, got %d", n)
	}
}

func TestCollector_CardinalityLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxCardinality = 2
	collector := NewCollector(cfg, nil)

	for _, model := range []string{"a", "b", "c", "d"} {
		collector.RecordProviderRequest("p", model, "success", time.Millisecond)
	}

	if got := testutil.ToFloat64(collector.providerMetrics.requests.WithLabelValues("p", otherModel, "success")); got != 2 {
		t.Errorf("expected overflow models folded into %q, got %v", otherModel, got)
	}
	if collector.cardinalityLimiter.Count() != 2 {
		t.Errorf("expected cardinality 2, got %d", collector.cardinalityLimiter.Count())
	}
}

func TestCardinalityLimiter(t *testing.T) {
	cl := NewCardinalityLimiter(2)

	tests := []struct {
		labelSet string
		want     bool
	}{
		{"a", true},
		{"b", true},
		{"a", true},
		{"c", false},
	}
	for _, tt := range tests {
		if got := cl.Allow(tt.labelSet); got != tt.want {
			t.Errorf("Allow(%q) = %v, want %v", tt.labelSet, got, tt.want)
		}
	}
}

func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.RecordProviderRequest("groq", "groq/m", "success", time.Second)

	server := httptest.NewServer(collector.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "test_metrics_provider_requests_total") {
		t.Errorf("expected provider metrics in scrape output, got:\n%s", body)
	}
}

type keyedAdapter struct {
	*testhelpers.MockAdapter
	keys *providers.KeyRotator
}

func (k keyedAdapter) Keys() *providers.KeyRotator { return k.keys }

type adapterList []providers.Adapter

func (l adapterList) Adapters() []providers.Adapter { return l }

func TestCollector_WatchKeys(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	keys := providers.NewKeyRotator([]string{"k1", "k2", "k3"}, time.Minute, nil)
	keys.MarkAuthFailed(0)

	source := adapterList{
		keyedAdapter{MockAdapter: testhelpers.NewMockAdapter("groq", "m"), keys: keys},
		testhelpers.NewMockAdapter("pollinations", "m"),
	}
	if err := collector.WatchKeys(source); err != nil {
		t.Fatalf("WatchKeys() failed: %v", err)
	}

	expected := `
# HELP test_metrics_keys_available Number of API keys currently eligible for selection
# TYPE test_metrics_keys_available gauge
test_metrics_keys_available{provider="groq"} 2
# HELP test_metrics_keys_total Number of configured API keys
# TYPE test_metrics_keys_total gauge
test_metrics_keys_total{provider="groq"} 3
`
	err := testutil.GatherAndCompare(collector.Registry(), strings.NewReader(expected),
		"test_metrics_keys_available", "test_metrics_keys_total")
	if err != nil {
		t.Error(err)
	}
}
