package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegisterer(reg)

	r.RecordRefresh("AAPL", true)
	r.RecordRefresh("AAPL", true)
	r.RecordRefresh("AAPL", false)
	r.RecordAlertTriggered("price_above")
	r.RecordLastPrice("AAPL", 151.5)

	if got := testutil.ToFloat64(r.refreshes.WithLabelValues("AAPL", "true")); got != 2 {
		t.Fatalf("ok refreshes = %v", got)
	}
	if got := testutil.ToFloat64(r.refreshes.WithLabelValues("AAPL", "false")); got != 1 {
		t.Fatalf("failed refreshes = %v", got)
	}
	if got := testutil.ToFloat64(r.alertsTriggered.WithLabelValues("price_above")); got != 1 {
		t.Fatalf("triggers = %v", got)
	}
	if got := testutil.ToFloat64(r.lastPrice.WithLabelValues("AAPL")); got != 151.5 {
		t.Fatalf("last price = %v", got)
	}
}
