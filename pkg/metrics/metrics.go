// Package metrics holds the prometheus collectors for link and protocol traffic.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registry every collector below is registered with.
var Registry = prometheus.NewRegistry()

var (
	// LinkConnected is 1 while the serial link is open.
	LinkConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "armconsole_link_connected",
			Help: "Serial link state (1=open, 0=closed).",
		},
	)

	// LinkErrors counts driver faults by error code.
	LinkErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "armconsole_link_errors_total",
			Help: "Serial driver faults reported by the link, by error code.",
		},
		[]string{"code"},
	)

	// BytesReceived counts raw bytes read from the device.
	BytesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "armconsole_link_received_bytes_total",
			Help: "Bytes received from the serial device.",
		},
	)

	// BytesSent counts raw bytes written to the device.
	BytesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "armconsole_link_sent_bytes_total",
			Help: "Bytes written to the serial device.",
		},
	)

	// WritesDropped counts writes discarded because the link queue was full.
	WritesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "armconsole_link_dropped_writes_total",
			Help: "Writes dropped because the link request queue was full.",
		},
	)

	// CommandsSent counts encoded commands by kind ("raw" for playback lines).
	CommandsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "armconsole_commands_sent_total",
			Help: "Commands handed to the link, by command kind.",
		},
		[]string{"kind"},
	)

	// Reports counts decoded position reports.
	Reports = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "armconsole_position_reports_total",
			Help: "Position reports decoded from the device stream.",
		},
	)

	// DecodeFailures counts dropped malformed report lines.
	DecodeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "armconsole_decode_failures_total",
			Help: "Report lines dropped because they could not be parsed.",
		},
	)
)

func init() {
	Registry.MustRegister(LinkConnected)
	Registry.MustRegister(LinkErrors)
	Registry.MustRegister(BytesReceived)
	Registry.MustRegister(BytesSent)
	Registry.MustRegister(WritesDropped)
	Registry.MustRegister(CommandsSent)
	Registry.MustRegister(Reports)
	Registry.MustRegister(DecodeFailures)
}

// Handler serves Registry in the prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
