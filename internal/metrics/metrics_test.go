package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestRegistry_CountersIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.MessagesAppended.WithLabelValues("session-1").Inc()
	m.MessagesAppended.WithLabelValues("session-1").Inc()
	m.BytesAppended.WithLabelValues("session-1").Add(42)
	m.HistorySize.WithLabelValues("session-1").Set(42)
	m.Resets.WithLabelValues("session-1", "manual").Inc()

	if got := counterValue(t, m.MessagesAppended.WithLabelValues("session-1")); got != 2 {
		t.Fatalf("expected messages_appended=2, got %v", got)
	}
	if got := counterValue(t, m.BytesAppended.WithLabelValues("session-1")); got != 42 {
		t.Fatalf("expected bytes_appended=42, got %v", got)
	}
	if got := gaugeValue(t, m.HistorySize.WithLabelValues("session-1")); got != 42 {
		t.Fatalf("expected size=42, got %v", got)
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetGauge().GetValue()
}
