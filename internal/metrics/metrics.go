package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Readings processed end to end, labeled by kind letter (T/H/L/R/P).
var ReadingsIngested = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bridge_readings_ingested_total",
		Help: "The total number of readings decoded and persisted",
	},
	[]string{"kind"},
)

var DecodeErrors = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "bridge_decode_errors_total",
		Help: "Broker messages dropped because the payload did not decode",
	},
)

var PersistErrors = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "bridge_persist_errors_total",
		Help: "Readings lost to a store write failure",
	},
)

// Post-insert refresh failures only suppress the broadcast; the row is kept.
var RefreshErrors = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "bridge_refresh_errors_total",
		Help: "Read-back queries that failed after a successful insert",
	},
)

var EventsPublished = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bridge_events_published_total",
		Help: "Events fanned out to dashboard clients",
	},
	[]string{"event"},
)

var ConnectedClients = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "bridge_ws_clients",
		Help: "Currently connected dashboard clients",
	},
)
