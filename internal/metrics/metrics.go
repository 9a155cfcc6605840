package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// None of these may be touched from the real-time audio callback.

// Gauges
var (
	TransportState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "warble_transport_state",
		Help: "Current transport state (0 idle, 1 playing, 2 paused, 3 terminated)",
	})
)

// Counters
var (
	TransportMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warble_transport_messages_total",
		Help: "Control messages received by the transport controller",
	}, []string{"message"})
	TransportTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warble_transport_transitions_total",
		Help: "Transport state transitions",
	}, []string{"from", "to"})
	TransportDeviceErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warble_transport_device_errors_total",
		Help: "Play, pause and close calls rejected by the output device",
	}, []string{"operation"})
	DeviceStreamErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warble_device_stream_errors_total",
		Help: "Runtime errors reported by the output stream",
	})
	DeviceStreamErrorsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warble_device_stream_errors_dropped_total",
		Help: "Runtime output stream errors discarded because the error queue was full",
	})
	SetupFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warble_setup_failures_total",
		Help: "Fatal setup failures by reason",
	}, []string{"reason"})
	ControlRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warble_control_requests_total",
		Help: "Commands issued by the control panels",
	}, []string{"panel", "command", "outcome"})
)
