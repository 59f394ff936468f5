package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewCollector(t *testing.T) {
	c := NewCollector()
	if c == nil {
		t.Fatal("NewCollector returned nil")
	}

	if c.Registry() == nil {
		t.Error("registry is nil")
	}
	if c.LinesScanned == nil {
		t.Error("LinesScanned is nil")
	}
	if c.ReportsSuppressed == nil {
		t.Error("ReportsSuppressed is nil")
	}
	if c.ScanDuration == nil {
		t.Error("ScanDuration is nil")
	}
}

func TestClassificationCounters(t *testing.T) {
	c := NewCollector()

	c.LinesScanned.Add(42)

	metric := &dto.Metric{}
	if err := c.LinesScanned.Write(metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 42 {
		t.Errorf("Expected 42, got %f", metric.Counter.GetValue())
	}

	c.LinesMatched.WithLabelValues("Critical").Inc()
	c.LinesMatched.WithLabelValues("Critical").Inc()

	metric = &dto.Metric{}
	if err := c.LinesMatched.WithLabelValues("Critical").(prometheus.Counter).Write(metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2 {
		t.Errorf("Expected 2, got %f", metric.Counter.GetValue())
	}
}

func TestSuppressionCounters(t *testing.T) {
	c := NewCollector()

	c.ReportsSuppressed.WithLabelValues(SuppressedDedup).Inc()
	c.ReportsSuppressed.WithLabelValues(SuppressedRateLimit).Add(3)

	metric := &dto.Metric{}
	if err := c.ReportsSuppressed.WithLabelValues(SuppressedRateLimit).(prometheus.Counter).Write(metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 3 {
		t.Errorf("Expected 3, got %f", metric.Counter.GetValue())
	}
}

func TestRegistryGathers(t *testing.T) {
	c := NewCollector()

	c.ScansTotal.Inc()
	c.CursorOffset.Set(1024)
	c.ScanDuration.Observe(0.002)

	families, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Error("expected gathered metric families")
	}
}
