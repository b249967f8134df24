package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "laserview"

var (
	registerOnce sync.Once

	connectionsAccepted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "acceptor",
			Name:      "connections_accepted_total",
			Help:      "Stream connections accepted from the listener.",
		},
	)
	connectionsReplaced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "connections_replaced_total",
			Help:      "Active streams superseded by a newer connection.",
		},
	)
	streamsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "streams_closed_total",
			Help:      "Streams that returned the lifecycle to idle.",
		},
		[]string{"reason"},
	)
	streamActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "stream_active",
			Help:      "1 while a stream is connected.",
		},
	)
	framesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frames",
			Name:      "received_total",
			Help:      "Frames drained from the active stream.",
		},
	)
	framesSuperseded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frames",
			Name:      "superseded_total",
			Help:      "Frames dropped because a newer frame arrived first.",
		},
		[]string{"stage"},
	)
	framesDisplayed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frames",
			Name:      "displayed_total",
			Help:      "Frames taken by the render loop.",
		},
	)
	inboxDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "inbox_dropped_total",
			Help:      "Incoming frames dropped because the stream inbox was full.",
		},
		[]string{"transport"},
	)
)

// Stage labels for RecordSuperseded.
const (
	StageTick   = "tick"
	StageBuffer = "buffer"
)

// Register adds the collectors to the default registry once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			connectionsAccepted,
			connectionsReplaced,
			streamsClosed,
			streamActive,
			framesReceived,
			framesSuperseded,
			framesDisplayed,
			inboxDropped,
		)
	})
}

func RecordAccepted() {
	connectionsAccepted.Inc()
}

func RecordConnected(replaced bool) {
	if replaced {
		connectionsReplaced.Inc()
	}
	streamActive.Set(1)
}

func RecordClosed(reason string) {
	streamsClosed.WithLabelValues(reason).Inc()
	streamActive.Set(0)
}

func RecordReceived(n int) {
	if n > 0 {
		framesReceived.Add(float64(n))
	}
}

func RecordSuperseded(stage string, n int) {
	if n > 0 {
		framesSuperseded.WithLabelValues(stage).Add(float64(n))
	}
}

func RecordDisplayed() {
	framesDisplayed.Inc()
}

func RecordInboxDropped(transport string) {
	inboxDropped.WithLabelValues(transport).Inc()
}
