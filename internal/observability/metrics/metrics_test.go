package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestClinicMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewClinicMetrics(reg)
	m.ObserveRequest("POST", "/appointments", "201", 0.05)
	m.ObserveBooking("confirmed")
	m.ObserveReminder("sent")
}

func TestClinicMetricsNilSafe(t *testing.T) {
	var m *ClinicMetrics
	m.ObserveRequest("GET", "/healthz", "200", 0.001)
	m.ObserveBooking("rejected")
	m.ObserveReminder("failed")
}
