package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/autopeer-io/gatepanel/internal/gatepanel/core/model"
)

// Registry holds the gatepanel collectors and the Go/process collectors.
// It is served on /metrics.
var Registry = prometheus.NewRegistry()

var (
	// ConnectionStatus is 1 for the current broker connection status and 0 for the others.
	ConnectionStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gatepanel_connection_status",
			Help: "Current MQTT connection status (1 for the active status).",
		},
		[]string{"status"},
	)

	// GateLiveness is 1 for the current gate liveness and 0 for the others.
	GateLiveness = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gatepanel_gate_liveness",
			Help: "Gate liveness derived from heartbeats (1 for the active value).",
		},
		[]string{"liveness"},
	)

	// CommandsTotal counts gate commands by action and result.
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatepanel_commands_total",
			Help: "Total number of gate commands, by action and result (sent/rejected/failed).",
		},
		[]string{"action", "result"},
	)

	// PublishLatency records how long publishing a command took.
	PublishLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gatepanel_command_publish_seconds",
			Help:    "Latency of publishing gate commands to the broker.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// HeartbeatsTotal counts processed status messages by resulting liveness.
	HeartbeatsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatepanel_heartbeats_total",
			Help: "Total number of status messages processed, by liveness (online/offline/malformed).",
		},
		[]string{"liveness"},
	)

	// ErrorsTotal counts error notifications.
	ErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gatepanel_errors_total",
			Help: "Total number of error notifications raised by the session.",
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		ConnectionStatus,
		GateLiveness,
		CommandsTotal,
		PublishLatency,
		HeartbeatsTotal,
		ErrorsTotal,
	)
}

// Command results.
const (
	ResultSent     = "sent"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

// Recorder feeds the package collectors. Its zero value is ready to use.
type Recorder struct{}

func (Recorder) ObserveStatus(status model.ConnectionStatus) {
	for _, s := range model.ConnectionStatuses {
		v := 0.0
		if s == status {
			v = 1
		}
		ConnectionStatus.WithLabelValues(string(s)).Set(v)
	}
}

func (Recorder) ObserveLiveness(liveness model.GateLiveness) {
	for _, l := range model.GateLivenesses {
		v := 0.0
		if l == liveness {
			v = 1
		}
		GateLiveness.WithLabelValues(string(l)).Set(v)
	}
}

func (Recorder) ObserveHeartbeat(kind string) {
	HeartbeatsTotal.WithLabelValues(kind).Inc()
}

func (Recorder) ObserveCommand(action model.GateCommand, result string, took time.Duration) {
	CommandsTotal.WithLabelValues(string(action), result).Inc()
	if result != ResultRejected {
		PublishLatency.Observe(took.Seconds())
	}
}

func (Recorder) ObserveError() {
	ErrorsTotal.Inc()
}
